package writer

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/factory"
	"WindowSpectra/internal/model"
	"WindowSpectra/internal/store"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testRecords() []model.WindowFeatureRecord {
	return []model.WindowFeatureRecord{
		{
			WindowStart: 100, WindowEnd: 110, PacketCount: 2, TotalBytes: 1460, TCPCount: 2, TCPRatio: 1,
			PacketSizeDistribution:   map[string]uint64{"64": 1, "128": 0, "256": 0, "512": 0, "1024": 0, "1500": 1},
			FlowDurationDistribution: map[string]uint64{"0-5": 0, "5-10": 1, "10-20": 0, "20-30": 0, "30+": 0},
			TopFlows: []model.FlowRecord{{SrcIP: "10.0.0.1", SrcPort: 40000, DstIP: "10.0.0.2", DstPort: 80, Protocol: "TCP", PacketCount: 2, TotalBytes: 1460, DurationSeconds: 5, StartTimestamp: 100, EndTimestamp: 105}},
			TopPorts: []model.PortRecord{{Port: 80, Protocol: "TCP", ServiceName: "HTTP", PacketCount: 2, TotalBytes: 1460}},
		},
		{
			WindowStart: 115, WindowEnd: 125, PacketCount: 1, TotalBytes: 80, UDPCount: 1, UDPRatio: 1,
			PacketSizeDistribution:   map[string]uint64{"64": 0, "128": 1, "256": 0, "512": 0, "1024": 0, "1500": 0},
			FlowDurationDistribution: map[string]uint64{"0-5": 1, "5-10": 0, "10-20": 0, "20-30": 0, "30+": 0},
			TopFlows:                 []model.FlowRecord{},
			TopPorts:                 []model.PortRecord{},
		},
	}
}

func TestJSONWriter(t *testing.T) {
	root := t.TempDir()
	w := NewJSONWriter(root)
	meta := model.RunMeta{SessionID: "sess-1", Source: "capture.pcap"}

	if err := w.Write(testRecords(), meta); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	path := filepath.Join(root, "sess-1_features.json")
	if w.Path("sess-1") != path {
		t.Errorf("Path = %s, want %s", w.Path("sess-1"), path)
	}
	got, err := ReadJSONFile(path)
	if err != nil {
		t.Fatalf("ReadJSONFile failed: %v", err)
	}
	if !reflect.DeepEqual(got, testRecords()) {
		t.Errorf("records changed on the way through json:\n got %+v\nwant %+v", got, testRecords())
	}

	raw, _ := os.ReadFile(path)
	for _, field := range []string{`"window_start"`, `"tcp_syn_count"`, `"packet_size_distribution"`, `"service_name"`} {
		if !strings.Contains(string(raw), field) {
			t.Errorf("json output misses field %s", field)
		}
	}
}

func TestJSONWriter_EmptyRun(t *testing.T) {
	root := t.TempDir()
	w := NewJSONWriter(root)
	if err := w.Write(nil, model.RunMeta{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(root, "features_features.json"))
	if err != nil {
		t.Fatalf("Expected a features file: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Errorf("empty run should write an empty array, got %q", raw)
	}
}

func TestGobWriter(t *testing.T) {
	root := t.TempDir()
	w := NewGobWriter(root)
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := w.Write(testRecords(), model.RunMeta{SessionID: "sess-2", Source: "a.pcap", StartedAt: started}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	runDir := filepath.Join(root, "sess-2")
	got, err := ReadGobFile(filepath.Join(runDir, "windows.dat"))
	if err != nil {
		t.Fatalf("ReadGobFile failed: %v", err)
	}
	if len(got) != 2 || got[0].TotalBytes != 1460 || got[1].PacketSizeDistribution["128"] != 1 {
		t.Errorf("unexpected decoded records: %+v", got)
	}

	summary, err := ReadSummary(runDir)
	if err != nil {
		t.Fatalf("ReadSummary failed: %v", err)
	}
	if summary.TotalWindows != 2 || summary.TotalPackets != 3 || summary.TotalBytes != 1540 {
		t.Errorf("unexpected summary totals: %+v", summary)
	}
	if summary.FirstWindowStart != 100 || summary.LastWindowEnd != 125 {
		t.Errorf("unexpected summary bounds: %+v", summary)
	}
	if summary.StartedAt != "2025-01-02T03:04:05Z" || summary.Source != "a.pcap" {
		t.Errorf("unexpected summary metadata: %+v", summary)
	}
}

func TestSQLiteWriter(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "w.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	w := NewSQLiteWriter(s, false)
	if err := w.Write(testRecords(), model.RunMeta{SessionID: "sess-3"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The store stays usable because the writer does not own it.
	windows, err := s.ListWindows(context.Background(), "sess-3", 0, 0)
	if err != nil {
		t.Fatalf("ListWindows failed: %v", err)
	}
	if len(windows) != 2 || windows[1].WindowStart != 115 {
		t.Errorf("unexpected stored windows: %+v", windows)
	}
}

func TestRegisteredWriters(t *testing.T) {
	want := []string{"clickhouse", "gob", "json", "nats", "sqlite"}
	if got := factory.RegisteredTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("registered writer types = %v, want %v", got, want)
	}

	dir := t.TempDir()
	cfg := &config.Config{Writers: []config.WriterDef{
		{Type: "json", Enabled: true, JSON: config.FileConfig{RootPath: dir}},
		{Type: "gob", Enabled: true, Gob: config.FileConfig{RootPath: dir}},
		{Type: "sqlite", Enabled: true, SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "f.db")}},
		{Type: "clickhouse", Enabled: false},
	}}
	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		t.Fatalf("CreateWriters failed: %v", err)
	}
	defer func() {
		for _, w := range writers {
			w.Close()
		}
	}()

	var names []string
	for _, w := range writers {
		names = append(names, w.Name())
	}
	if !reflect.DeepEqual(names, []string{"json", "gob", "sqlite"}) {
		t.Errorf("created writers = %v", names)
	}
}
