package ingest

import (
	"WindowSpectra/internal/engine/manager"
	"WindowSpectra/internal/engine/window"
	"WindowSpectra/internal/store"
	"WindowSpectra/pkg/pcap"
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
)

func newTestService(t *testing.T, maxMB int64) (*Service, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "sessions.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	mgr, err := manager.New(manager.Options{Window: window.Options{WindowSize: 10}})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	uploads := filepath.Join(dir, "uploads")
	svc, err := NewService(uploads, maxMB, s, mgr)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, s, uploads
}

func captureBytes(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c.pcap")
	base := time.Unix(1700000000, 0)
	frames := []pcap.Frame{
		{Timestamp: base, SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2), Protocol: layers.IPProtocolTCP, SrcPort: 1, DstPort: 22, SYN: true},
		{Timestamp: base.Add(15 * time.Second), SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2), Protocol: layers.IPProtocolUDP, SrcPort: 2, DstPort: 53},
	}
	if err := pcap.WriteFile(path, frames); err != nil {
		t.Fatalf("Failed to write capture: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestService_Upload(t *testing.T) {
	ctx := context.Background()
	svc, s, uploads := newTestService(t, 10)

	out, err := svc.Upload(ctx, "trace.PCAP", bytes.NewReader(captureBytes(t)))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	session := out.Session
	if session.Status != store.StatusCompleted || session.WindowCount != 2 || session.TotalPackets != 2 {
		t.Errorf("unexpected session: %+v", session)
	}
	if session.Filename != "trace.PCAP" {
		t.Errorf("filename = %q", session.Filename)
	}
	if session.Filepath != filepath.Join(uploads, session.SessionID+".pcap") {
		t.Errorf("filepath = %q", session.Filepath)
	}

	windows, err := s.ListWindows(ctx, session.SessionID, 0, 0)
	if err != nil {
		t.Fatalf("ListWindows failed: %v", err)
	}
	if len(windows) != 2 || windows[0].TCPCount != 1 || windows[1].UDPCount != 1 {
		t.Errorf("unexpected stored windows: %+v", windows)
	}
}

func TestService_UploadTooLarge(t *testing.T) {
	ctx := context.Background()
	svc, s, uploads := newTestService(t, 1)

	big := bytes.NewReader(make([]byte, 1024*1024+1))
	_, err := svc.Upload(ctx, "big.pcap", big)
	if !errors.Is(err, ErrUploadTooLarge) {
		t.Fatalf("Expected ErrUploadTooLarge, got %v", err)
	}

	entries, _ := os.ReadDir(uploads)
	if len(entries) != 0 {
		t.Errorf("partial upload should be removed, found %d files", len(entries))
	}

	failed, _ := s.ListSessions(ctx, store.StatusFailed, 10, 0)
	if len(failed) != 1 || !strings.Contains(failed[0].ErrorMessage, "max size") {
		t.Errorf("expected one failed session, got %+v", failed)
	}
}

func TestService_UploadGarbage(t *testing.T) {
	ctx := context.Background()
	svc, s, _ := newTestService(t, 10)

	if _, err := svc.Upload(ctx, "notes.txt", strings.NewReader("not a capture at all")); err == nil {
		t.Fatal("Expected an error for a non-capture upload")
	}
	failed, _ := s.ListSessions(ctx, store.StatusFailed, 10, 0)
	if len(failed) != 1 {
		t.Fatalf("Expected one failed session, got %d", len(failed))
	}
}

func TestService_IngestPath(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, 0)

	path := filepath.Join(t.TempDir(), "local.pcapng")
	if err := os.WriteFile(path, captureBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := svc.IngestPath(ctx, path)
	if err != nil {
		t.Fatalf("IngestPath failed: %v", err)
	}
	if out.Session.Filepath != path || len(out.Result.Records) != 2 {
		t.Errorf("unexpected outcome: %+v", out.Session)
	}
}
