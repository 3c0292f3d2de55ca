package store

import (
	"WindowSpectra/internal/model"
	"encoding/json"
	"fmt"
	"time"
)

// Session lifecycle states.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// PcapSession tracks one uploaded capture and its extraction run.
type PcapSession struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       string    `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	Filename        string    `json:"filename"`
	Filepath        string    `json:"filepath"`
	FileSizeBytes   int64     `json:"file_size_bytes"`
	TotalPackets    uint64    `json:"total_packets"`
	WindowCount     int       `json:"window_count"`
	StartTimestamp  *float64  `json:"start_timestamp"`
	EndTimestamp    *float64  `json:"end_timestamp"`
	DurationSeconds *float64  `json:"duration_seconds"`
	Status          string    `gorm:"index;not null" json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (PcapSession) TableName() string { return "pcap_sessions" }

// TrafficWindow is one window feature record of a session. The scalar features
// are stored as columns for querying, and the full record as JSON.
type TrafficWindow struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"uniqueIndex:idx_session_window;size:64;not null" json:"session_id"`
	WindowID  int    `gorm:"uniqueIndex:idx_session_window;not null" json:"window_id"`

	WindowStart   float64 `json:"window_start"`
	WindowEnd     float64 `json:"window_end"`
	PacketCount   uint64  `json:"packet_count"`
	TotalBytes    uint64  `json:"total_bytes"`
	AvgPacketSize float64 `json:"avg_packet_size"`
	MinPacketSize uint64  `json:"min_packet_size"`
	MaxPacketSize uint64  `json:"max_packet_size"`
	PacketSizeStd float64 `json:"packet_size_std"`

	TCPCount   uint64  `gorm:"column:tcp_count" json:"tcp_count"`
	UDPCount   uint64  `gorm:"column:udp_count" json:"udp_count"`
	ICMPCount  uint64  `gorm:"column:icmp_count" json:"icmp_count"`
	OtherCount uint64  `json:"other_count"`
	TCPRatio   float64 `gorm:"column:tcp_ratio" json:"tcp_ratio"`
	UDPRatio   float64 `gorm:"column:udp_ratio" json:"udp_ratio"`
	ICMPRatio  float64 `gorm:"column:icmp_ratio" json:"icmp_ratio"`
	OtherRatio float64 `json:"other_ratio"`

	UniqueSrcIPs   uint64  `gorm:"column:unique_src_ips" json:"unique_src_ips"`
	UniqueDstIPs   uint64  `gorm:"column:unique_dst_ips" json:"unique_dst_ips"`
	UniqueSrcRatio float64 `json:"unique_src_ratio"`
	UniqueDstRatio float64 `json:"unique_dst_ratio"`

	FlowCount      uint64  `json:"flow_count"`
	FlowRatio      float64 `json:"flow_ratio"`
	AvgFlowPackets float64 `json:"avg_flow_packets"`
	AvgFlowBytes   float64 `json:"avg_flow_bytes"`
	PacketsPerSec  float64 `json:"packets_per_sec"`
	BytesPerSec    float64 `json:"bytes_per_sec"`
	PortDiversity  uint64  `json:"port_diversity"`

	FeaturesJSON string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (TrafficWindow) TableName() string { return "traffic_windows" }

// newTrafficWindow flattens a record into a row. windowID is 1-based.
func newTrafficWindow(sessionID string, windowID int, rec model.WindowFeatureRecord) (TrafficWindow, error) {
	features, err := json.Marshal(rec)
	if err != nil {
		return TrafficWindow{}, fmt.Errorf("failed to encode window %d: %w", windowID, err)
	}
	return TrafficWindow{
		SessionID:      sessionID,
		WindowID:       windowID,
		WindowStart:    rec.WindowStart,
		WindowEnd:      rec.WindowEnd,
		PacketCount:    rec.PacketCount,
		TotalBytes:     rec.TotalBytes,
		AvgPacketSize:  rec.AvgPacketSize,
		MinPacketSize:  rec.MinPacketSize,
		MaxPacketSize:  rec.MaxPacketSize,
		PacketSizeStd:  rec.PacketSizeStd,
		TCPCount:       rec.TCPCount,
		UDPCount:       rec.UDPCount,
		ICMPCount:      rec.ICMPCount,
		OtherCount:     rec.OtherCount,
		TCPRatio:       rec.TCPRatio,
		UDPRatio:       rec.UDPRatio,
		ICMPRatio:      rec.ICMPRatio,
		OtherRatio:     rec.OtherRatio,
		UniqueSrcIPs:   rec.UniqueSrcIPs,
		UniqueDstIPs:   rec.UniqueDstIPs,
		UniqueSrcRatio: rec.UniqueSrcRatio,
		UniqueDstRatio: rec.UniqueDstRatio,
		FlowCount:      rec.FlowCount,
		FlowRatio:      rec.FlowRatio,
		AvgFlowPackets: rec.AvgFlowPackets,
		AvgFlowBytes:   rec.AvgFlowBytes,
		PacketsPerSec:  rec.PacketsPerSec,
		BytesPerSec:    rec.BytesPerSec,
		PortDiversity:  rec.PortDiversity,
		FeaturesJSON:   string(features),
	}, nil
}

// Record decodes the full feature record stored with the row.
func (w *TrafficWindow) Record() (model.WindowFeatureRecord, error) {
	var rec model.WindowFeatureRecord
	if err := json.Unmarshal([]byte(w.FeaturesJSON), &rec); err != nil {
		return rec, fmt.Errorf("failed to decode window %d of session %s: %w", w.WindowID, w.SessionID, err)
	}
	return rec, nil
}
