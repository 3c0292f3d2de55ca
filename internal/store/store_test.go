package store

import (
	"WindowSpectra/internal/model"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecords() []model.WindowFeatureRecord {
	return []model.WindowFeatureRecord{
		{
			WindowStart: 100, WindowEnd: 110, PacketCount: 2, TotalBytes: 1460, TCPCount: 2,
			PacketSizeDistribution: map[string]uint64{"64": 1, "1500": 1},
			TopPorts:               []model.PortRecord{{Port: 80, Protocol: "TCP", ServiceName: "HTTP", PacketCount: 2, TotalBytes: 1460}},
		},
		{WindowStart: 115, WindowEnd: 125, PacketCount: 1, TotalBytes: 80, UDPCount: 1},
	}
}

func TestStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// 1. Create a session, it starts out processing.
	if _, err := s.CreateSession(ctx, "sess-1", "capture.pcap"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Status != StatusProcessing || got.Filename != "capture.pcap" {
		t.Errorf("unexpected new session: %+v", got)
	}

	// 2. Complete it and check the derived summary.
	records := sampleRecords()
	if err := s.CompleteSession(ctx, "sess-1", SessionResult{Filepath: "/tmp/sess-1.pcap", FileSizeBytes: 2048, Records: records}); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	got, _ = s.GetSession(ctx, "sess-1")
	if got.Status != StatusCompleted || got.TotalPackets != 3 || got.WindowCount != 2 {
		t.Errorf("unexpected completed session: %+v", got)
	}
	if got.StartTimestamp == nil || *got.StartTimestamp != 100 || got.EndTimestamp == nil || *got.EndTimestamp != 125 {
		t.Errorf("unexpected time bounds: %v - %v", got.StartTimestamp, got.EndTimestamp)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 25 {
		t.Errorf("unexpected duration: %v", got.DurationSeconds)
	}

	// 3. A second session fails.
	if _, err := s.CreateSession(ctx, "sess-2", "broken.pcap"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := s.FailSession(ctx, "sess-2", errors.New("bad magic")); err != nil {
		t.Fatalf("FailSession failed: %v", err)
	}

	// 4. Listing and filtering.
	all, err := s.ListSessions(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 2 || all[0].SessionID != "sess-2" {
		t.Errorf("expected newest session first, got %+v", all)
	}
	failed, _ := s.ListSessions(ctx, StatusFailed, 10, 0)
	if len(failed) != 1 || failed[0].ErrorMessage != "bad magic" {
		t.Errorf("unexpected failed sessions: %+v", failed)
	}
}

func TestStore_UnknownSession(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession: expected ErrSessionNotFound, got %v", err)
	}
	if err := s.FailSession(ctx, "missing", errors.New("x")); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("FailSession: expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_SaveAndListWindows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SaveWindows(ctx, "sess-1", sampleRecords()); err != nil {
		t.Fatalf("SaveWindows failed: %v", err)
	}
	// Saving again replaces rather than duplicates.
	if err := s.SaveWindows(ctx, "sess-1", sampleRecords()); err != nil {
		t.Fatalf("SaveWindows (second) failed: %v", err)
	}

	windows, err := s.ListWindows(ctx, "sess-1", 0, 0)
	if err != nil {
		t.Fatalf("ListWindows failed: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("Expected 2 windows, got %d", len(windows))
	}
	if windows[0].WindowID != 1 || windows[1].WindowID != 2 {
		t.Errorf("unexpected window ids %d, %d", windows[0].WindowID, windows[1].WindowID)
	}
	if windows[0].TotalBytes != 1460 || windows[1].UDPCount != 1 {
		t.Errorf("unexpected columns: %+v", windows)
	}

	rec, err := windows[0].Record()
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(rec.TopPorts) != 1 || rec.TopPorts[0].ServiceName != "HTTP" || rec.PacketSizeDistribution["1500"] != 1 {
		t.Errorf("full record not preserved: %+v", rec)
	}

	page, _ := s.ListWindows(ctx, "sess-1", 1, 1)
	if len(page) != 1 || page[0].WindowID != 2 {
		t.Errorf("unexpected page: %+v", page)
	}
}
