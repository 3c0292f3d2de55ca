package query

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// SessionSummary aggregates the stored windows of one session.
type SessionSummary struct {
	SessionID        string  `json:"session_id"`
	Source           string  `json:"source"`
	WindowCount      uint64  `json:"window_count"`
	TotalPackets     uint64  `json:"total_packets"`
	TotalBytes       uint64  `json:"total_bytes"`
	FirstWindowStart float64 `json:"first_window_start"`
	LastWindowEnd    float64 `json:"last_window_end"`
	MaxPacketsPerSec float64 `json:"max_packets_per_sec"`
	MaxBytesPerSec   float64 `json:"max_bytes_per_sec"`
}

// WindowFilter narrows a window listing.
type WindowFilter struct {
	SessionID  string
	MinPackets uint64 // 0 means no lower bound
	Limit      int
	Offset     int
}

// Querier defines the interface for querying stored window features.
type Querier interface {
	ListWindows(ctx context.Context, f WindowFilter) ([]model.WindowFeatureRecord, error)
	SessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error)
	ListSessionSummaries(ctx context.Context, limit int) ([]SessionSummary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

const windowColumns = `
	WindowStart, WindowEnd,
	PacketCount, TotalBytes, AvgPacketSize, MinPacketSize, MaxPacketSize, PacketSizeStd,
	TCPCount, UDPCount, ICMPCount, OtherCount, TCPRatio, UDPRatio, ICMPRatio, OtherRatio,
	UniqueSrcIPs, UniqueDstIPs, UniqueSrcRatio, UniqueDstRatio,
	FlowCount, FlowRatio, AvgFlowPackets, AvgFlowBytes,
	PacketsPerSec, BytesPerSec, PortDiversity,
	TCPSynCount, TCPAckCount, TCPRstCount, TCPFinCount, TCPRetransmissions,
	PacketSizeDistribution, FlowDurationDistribution, TopFlows, TopPorts`

// buildWindowQuery renders the listing query and its arguments.
func buildWindowQuery(f WindowFilter) (string, []interface{}) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT" + windowColumns + "\nFROM window_features")

	whereClauses := []string{"SessionID = ?"}
	args := []interface{}{f.SessionID}
	if f.MinPackets > 0 {
		whereClauses = append(whereClauses, "PacketCount >= ?")
		args = append(args, f.MinPackets)
	}
	queryBuilder.WriteString("\nWHERE " + strings.Join(whereClauses, " AND "))
	queryBuilder.WriteString("\nORDER BY WindowID")

	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	queryBuilder.WriteString(fmt.Sprintf("\nLIMIT %d OFFSET %d", limit, max(f.Offset, 0)))
	return queryBuilder.String(), args
}

// ListWindows returns the stored windows of a session in window order.
func (q *clickhouseQuerier) ListWindows(ctx context.Context, f WindowFilter) ([]model.WindowFeatureRecord, error) {
	query, args := buildWindowQuery(f)
	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	records := make([]model.WindowFeatureRecord, 0)
	for rows.Next() {
		var rec model.WindowFeatureRecord
		var topFlows, topPorts string
		err := rows.Scan(
			&rec.WindowStart, &rec.WindowEnd,
			&rec.PacketCount, &rec.TotalBytes, &rec.AvgPacketSize, &rec.MinPacketSize, &rec.MaxPacketSize, &rec.PacketSizeStd,
			&rec.TCPCount, &rec.UDPCount, &rec.ICMPCount, &rec.OtherCount, &rec.TCPRatio, &rec.UDPRatio, &rec.ICMPRatio, &rec.OtherRatio,
			&rec.UniqueSrcIPs, &rec.UniqueDstIPs, &rec.UniqueSrcRatio, &rec.UniqueDstRatio,
			&rec.FlowCount, &rec.FlowRatio, &rec.AvgFlowPackets, &rec.AvgFlowBytes,
			&rec.PacketsPerSec, &rec.BytesPerSec, &rec.PortDiversity,
			&rec.TCPSynCount, &rec.TCPAckCount, &rec.TCPRstCount, &rec.TCPFinCount, &rec.TCPRetransmissions,
			&rec.PacketSizeDistribution, &rec.FlowDurationDistribution, &topFlows, &topPorts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan window row: %w", err)
		}
		if err := json.Unmarshal([]byte(topFlows), &rec.TopFlows); err != nil {
			return nil, fmt.Errorf("failed to decode top flows: %w", err)
		}
		if err := json.Unmarshal([]byte(topPorts), &rec.TopPorts); err != nil {
			return nil, fmt.Errorf("failed to decode top ports: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const summarySelect = `
	SELECT
		SessionID,
		any(Source),
		count() AS WindowCount,
		sum(PacketCount),
		sum(TotalBytes),
		min(WindowStart),
		max(WindowEnd),
		max(PacketsPerSec),
		max(BytesPerSec)
	FROM window_features`

// SessionSummary aggregates all stored windows of a session.
func (q *clickhouseQuerier) SessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	row := q.conn.QueryRow(ctx, summarySelect+"\nWHERE SessionID = ?\nGROUP BY SessionID", sessionID)

	var s SessionSummary
	if err := row.Scan(&s.SessionID, &s.Source, &s.WindowCount, &s.TotalPackets, &s.TotalBytes,
		&s.FirstWindowStart, &s.LastWindowEnd, &s.MaxPacketsPerSec, &s.MaxBytesPerSec); err != nil {
		return nil, fmt.Errorf("failed to query session summary: %w", err)
	}
	return &s, nil
}

// ListSessionSummaries summarizes the most recently inserted sessions.
func (q *clickhouseQuerier) ListSessionSummaries(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	query := summarySelect + fmt.Sprintf("\nGROUP BY SessionID\nORDER BY max(InsertedAt) DESC\nLIMIT %d", limit)
	rows, err := q.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	summaries := make([]SessionSummary, 0)
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.SessionID, &s.Source, &s.WindowCount, &s.TotalPackets, &s.TotalBytes,
			&s.FirstWindowStart, &s.LastWindowEnd, &s.MaxPacketsPerSec, &s.MaxBytesPerSec); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
