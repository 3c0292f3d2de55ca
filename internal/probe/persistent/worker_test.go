package persistent

import (
	"WindowSpectra/internal/codec"
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/model"
	"os"
	"strings"
	"testing"
)

func envelopes() []codec.Envelope {
	return []codec.Envelope{
		{SessionID: "s1", Source: "a.pcap", WindowID: 1, Record: model.WindowFeatureRecord{WindowStart: 0, WindowEnd: 10, PacketCount: 3, TotalBytes: 300}},
		{SessionID: "s1", Source: "a.pcap", WindowID: 2, Record: model.WindowFeatureRecord{WindowStart: 10, WindowEnd: 20, PacketCount: 1, TotalBytes: 60,
			PacketSizeDistribution: map[string]uint64{"0-64": 1}}},
	}
}

func TestWorker_Gob(t *testing.T) {
	w, err := NewWorker(config.PersistenceConfig{Path: t.TempDir(), Encoding: "gob", ChannelBufferSize: 4})
	if err != nil {
		t.Fatalf("NewWorker failed: %v", err)
	}
	for _, env := range envelopes() {
		w.Enqueue(env)
	}
	dropped, err := w.Stop()
	if err != nil || dropped != 0 {
		t.Fatalf("Stop = %d, %v", dropped, err)
	}

	got, err := ReadGobFile(w.Path())
	if err != nil {
		t.Fatalf("ReadGobFile failed: %v", err)
	}
	if len(got) != 2 || got[1].WindowID != 2 || got[1].Record.PacketSizeDistribution["0-64"] != 1 {
		t.Errorf("unexpected envelopes: %+v", got)
	}
}

func TestWorker_Text(t *testing.T) {
	w, err := NewWorker(config.PersistenceConfig{Path: t.TempDir(), Encoding: "text"})
	if err != nil {
		t.Fatalf("NewWorker failed: %v", err)
	}
	for _, env := range envelopes() {
		w.Enqueue(env)
	}
	if _, err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// A second Stop is a no-op.
	if _, err := w.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}

	data, err := os.ReadFile(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "s1 #1 [0.000, 10.000) packets=3 bytes=300") {
		t.Errorf("unexpected line: %q", lines[0])
	}
}

func TestNewWorker_UnknownEncoding(t *testing.T) {
	if _, err := NewWorker(config.PersistenceConfig{Path: t.TempDir(), Encoding: "pcap"}); err == nil {
		t.Fatal("Expected an error for an unknown encoding")
	}
}

func TestWorker_EnqueueAfterStop(t *testing.T) {
	w, err := NewWorker(config.PersistenceConfig{Path: t.TempDir(), Encoding: "text"})
	if err != nil {
		t.Fatalf("NewWorker failed: %v", err)
	}
	if _, err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	w.Enqueue(envelopes()[0])
	if dropped, _ := w.Stop(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}
