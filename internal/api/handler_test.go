package api

import (
	"WindowSpectra/internal/engine/manager"
	"WindowSpectra/internal/engine/window"
	"WindowSpectra/internal/ingest"
	"WindowSpectra/internal/metrics"
	"WindowSpectra/internal/store"
	"WindowSpectra/pkg/pcap"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/prometheus/client_golang/prometheus"
)

type testEnv struct {
	server *httptest.Server
	store  *store.Store
}

func newTestEnv(t *testing.T, maxMB int64) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "sessions.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := prometheus.NewRegistry()
	mgr, err := manager.New(manager.Options{
		Window:  window.Options{WindowSize: 10},
		Metrics: metrics.New(reg),
	})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	svc, err := ingest.NewService(filepath.Join(dir, "uploads"), maxMB, st, mgr)
	if err != nil {
		t.Fatalf("Failed to create ingest service: %v", err)
	}

	server := httptest.NewServer(NewHandler(svc, st, nil, reg).Router())
	t.Cleanup(server.Close)
	return &testEnv{server: server, store: st}
}

func captureBytes(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c.pcap")
	base := time.Unix(1700000000, 0)
	frames := []pcap.Frame{
		{Timestamp: base, SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2), Protocol: layers.IPProtocolTCP, SrcPort: 1234, DstPort: 443, SYN: true},
		{Timestamp: base.Add(time.Second), SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2), Protocol: layers.IPProtocolTCP, SrcPort: 1234, DstPort: 443, ACK: true},
		{Timestamp: base.Add(12 * time.Second), SrcIP: net.IPv4(10, 0, 0, 5), DstIP: net.IPv4(10, 0, 0, 6), Protocol: layers.IPProtocolICMPv4},
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

func upload(t *testing.T, url, field, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("comment", "ignored")
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	resp, err := http.Post(url+"/api/v1/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestAPI_UploadAndBrowse(t *testing.T) {
	env := newTestEnv(t, 10)

	// 1. Upload.
	resp := upload(t, env.server.URL, "file", "trace.pcap", captureBytes(t))
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, body)
	}
	var up UploadResponse
	decode(t, resp, &up)
	if up.SessionID == "" || up.Packets != 3 || len(up.Windows) != 2 {
		t.Fatalf("unexpected upload response: %+v", up)
	}
	if up.Session.Status != store.StatusCompleted || up.Session.WindowCount != 2 {
		t.Errorf("unexpected session: %+v", up.Session)
	}

	// 2. Session listing.
	resp, _ = http.Get(env.server.URL + "/api/v1/sessions?status=completed")
	var sessions []store.PcapSession
	decode(t, resp, &sessions)
	if len(sessions) != 1 || sessions[0].SessionID != up.SessionID {
		t.Errorf("unexpected sessions: %+v", sessions)
	}

	// 3. Single session.
	resp, _ = http.Get(env.server.URL + "/api/v1/sessions/" + up.SessionID)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get session status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 4. Windows, paged.
	resp, _ = http.Get(env.server.URL + "/api/v1/sessions/" + up.SessionID + "/windows?limit=1&offset=1")
	var windows []WindowView
	decode(t, resp, &windows)
	if len(windows) != 1 || windows[0].WindowID != 2 || windows[0].ICMPCount != 1 {
		t.Errorf("unexpected windows: %+v", windows)
	}

	// 5. Metrics reflect the run.
	resp, _ = http.Get(env.server.URL + "/metrics")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "windowspectra_windows_sealed_total 2") {
		t.Errorf("metrics missing sealed windows:\n%s", body)
	}
}

func TestAPI_UploadErrors(t *testing.T) {
	env := newTestEnv(t, 1)

	// 1. Wrong field name.
	resp := upload(t, env.server.URL, "pcap", "trace.pcap", captureBytes(t))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing field status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 2. Too large.
	resp = upload(t, env.server.URL, "file", "big.pcap", make([]byte, 1024*1024+10))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("too large status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 3. Not a capture.
	resp = upload(t, env.server.URL, "file", "notes.txt", []byte("hello"))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("garbage status = %d", resp.StatusCode)
	}
	var detail map[string]string
	decode(t, resp, &detail)
	if detail["detail"] == "" {
		t.Error("error responses should carry a detail")
	}

	// 4. Not multipart.
	resp, _ = http.Post(env.server.URL+"/api/v1/upload", "application/json", strings.NewReader("{}"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-multipart status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAPI_NotFoundAndBadParams(t *testing.T) {
	env := newTestEnv(t, 10)

	resp, _ := http.Get(env.server.URL + "/api/v1/sessions/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing session status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(env.server.URL + "/api/v1/sessions/missing/windows")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing session windows status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(env.server.URL + "/api/v1/sessions?limit=-1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// ClickHouse routes are absent without a querier.
	resp, _ = http.Get(env.server.URL + "/api/v1/clickhouse/sessions")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("clickhouse route status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(env.server.URL + "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPaging(t *testing.T) {
	limit, offset, err := paging("", "", 100)
	if err != nil || limit != 100 || offset != 0 {
		t.Errorf("defaults = %d, %d, %v", limit, offset, err)
	}
	limit, offset, err = paging("5", "10", 100)
	if err != nil || limit != 5 || offset != 10 {
		t.Errorf("explicit = %d, %d, %v", limit, offset, err)
	}
	if _, _, err := paging("x", "", 100); err == nil {
		t.Error("expected an error for a non-numeric limit")
	}
	if _, _, err := paging("", "-3", 100); err == nil {
		t.Error("expected an error for a negative offset")
	}
}
