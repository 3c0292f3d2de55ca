package writer

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/factory"
	"WindowSpectra/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse)
	})
}

const createTableStatement = `
CREATE TABLE IF NOT EXISTS window_features (
    InsertedAt               DateTime,
    SessionID                String,
    Source                   String,
    WindowID                 UInt32,
    WindowStart              Float64,
    WindowEnd                Float64,
    PacketCount              UInt64,
    TotalBytes               UInt64,
    AvgPacketSize            Float64,
    MinPacketSize            UInt64,
    MaxPacketSize            UInt64,
    PacketSizeStd            Float64,
    TCPCount                 UInt64,
    UDPCount                 UInt64,
    ICMPCount                UInt64,
    OtherCount               UInt64,
    TCPRatio                 Float64,
    UDPRatio                 Float64,
    ICMPRatio                Float64,
    OtherRatio               Float64,
    UniqueSrcIPs             UInt64,
    UniqueDstIPs             UInt64,
    UniqueSrcRatio           Float64,
    UniqueDstRatio           Float64,
    FlowCount                UInt64,
    FlowRatio                Float64,
    AvgFlowPackets           Float64,
    AvgFlowBytes             Float64,
    PacketsPerSec            Float64,
    BytesPerSec              Float64,
    PortDiversity            UInt64,
    TCPSynCount              UInt64,
    TCPAckCount              UInt64,
    TCPRstCount              UInt64,
    TCPFinCount              UInt64,
    TCPRetransmissions       UInt64,
    PacketSizeDistribution   Map(String, UInt64),
    FlowDurationDistribution Map(String, UInt64),
    TopFlows                 String,
    TopPorts                 String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(InsertedAt)
ORDER BY (SessionID, WindowID);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
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

// Name returns the writer type.
func (w *ClickHouseWriter) Name() string { return "clickhouse" }

// Close closes the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// Write inserts the records of a run into window_features in one batch.
func (w *ClickHouseWriter) Write(records []model.WindowFeatureRecord, meta model.RunMeta) error {
	if len(records) == 0 {
		return nil // Nothing to write
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO window_features")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedAt := time.Now()
	for i, rec := range records {
		topFlows, err := json.Marshal(rec.TopFlows)
		if err != nil {
			return fmt.Errorf("failed to encode top flows of window %d: %w", i+1, err)
		}
		topPorts, err := json.Marshal(rec.TopPorts)
		if err != nil {
			return fmt.Errorf("failed to encode top ports of window %d: %w", i+1, err)
		}

		err = batch.Append(
			insertedAt,
			meta.SessionID,
			meta.Source,
			uint32(i+1),
			rec.WindowStart,
			rec.WindowEnd,
			rec.PacketCount,
			rec.TotalBytes,
			rec.AvgPacketSize,
			rec.MinPacketSize,
			rec.MaxPacketSize,
			rec.PacketSizeStd,
			rec.TCPCount,
			rec.UDPCount,
			rec.ICMPCount,
			rec.OtherCount,
			rec.TCPRatio,
			rec.UDPRatio,
			rec.ICMPRatio,
			rec.OtherRatio,
			rec.UniqueSrcIPs,
			rec.UniqueDstIPs,
			rec.UniqueSrcRatio,
			rec.UniqueDstRatio,
			rec.FlowCount,
			rec.FlowRatio,
			rec.AvgFlowPackets,
			rec.AvgFlowBytes,
			rec.PacketsPerSec,
			rec.BytesPerSec,
			rec.PortDiversity,
			rec.TCPSynCount,
			rec.TCPAckCount,
			rec.TCPRstCount,
			rec.TCPFinCount,
			rec.TCPRetransmissions,
			rec.PacketSizeDistribution,
			rec.FlowDurationDistribution,
			string(topFlows),
			string(topPorts),
		)
		if err != nil {
			return fmt.Errorf("failed to append window to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d windows to ClickHouse for session '%s'", len(records), meta.SessionID)
	return nil
}
