package metrics

import (
	"WindowSpectra/internal/engine/window"
	"WindowSpectra/internal/model"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gather returns the value of a counter or gauge, matching labels when given.
func gather(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetrics_ObserveExtraction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	packets := []*model.Packet{
		{Timestamp: 0, Length: 100, Network: &model.NetworkInfo{SrcIP: "a", DstIP: "b", Transport: &model.Transport{Kind: model.TransportUDP, SrcPort: 1, DstPort: 53}}},
		{Timestamp: 1, Length: 60},
		{Timestamp: 30, Length: 40},
	}
	if _, err := window.ExtractAll(window.Options{WindowSize: 10, Observer: m}, packets); err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}

	if got := gather(t, reg, "windowspectra_packets_processed_total", nil); got != 3 {
		t.Errorf("packets_processed_total = %v, want 3", got)
	}
	if got := gather(t, reg, "windowspectra_bytes_processed_total", nil); got != 200 {
		t.Errorf("bytes_processed_total = %v, want 200", got)
	}
	if got := gather(t, reg, "windowspectra_packets_by_protocol_total", map[string]string{"protocol": "other"}); got != 2 {
		t.Errorf("other packets = %v, want 2", got)
	}
	if got := gather(t, reg, "windowspectra_windows_sealed_total", nil); got != 2 {
		t.Errorf("windows_sealed_total = %v, want 2", got)
	}
	if got := gather(t, reg, "windowspectra_last_window_packets", nil); got != 1 {
		t.Errorf("last_window_packets = %v, want 1", got)
	}

	m.WriterFailed("json")
	m.RunFinished(errors.New("x"), time.Second)
	if got := gather(t, reg, "windowspectra_writer_errors_total", map[string]string{"writer": "json"}); got != 1 {
		t.Errorf("writer_errors_total = %v, want 1", got)
	}
	if got := gather(t, reg, "windowspectra_runs_total", map[string]string{"status": "error"}); got != 1 {
		t.Errorf("runs_total{status=error} = %v, want 1", got)
	}
}
