package metrics

import (
	"WindowSpectra/internal/engine/window"
	"WindowSpectra/internal/model"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "windowspectra"

// Metrics holds the extraction counters. It implements window.Observer so an
// extractor can report to it directly.
type Metrics struct {
	PacketsTotal      prometheus.Counter
	BytesTotal        prometheus.Counter
	PacketsByClass    *prometheus.CounterVec
	WindowsSealed     prometheus.Counter
	LastWindowPackets prometheus.Gauge
	WriterErrors      *prometheus.CounterVec
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_processed_total",
			Help:      "Packets assigned to a window.",
		}),
		BytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_processed_total",
			Help:      "Captured bytes assigned to a window.",
		}),
		PacketsByClass: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_by_protocol_total",
			Help:      "Packets by protocol class (tcp, udp, icmp, other).",
		}, []string{"protocol"}),
		WindowsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_sealed_total",
			Help:      "Windows finalized into feature records.",
		}),
		LastWindowPackets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_window_packets",
			Help:      "Packet count of the most recently sealed window.",
		}),
		WriterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_errors_total",
			Help:      "Failed writes by writer type.",
		}, []string{"writer"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Extraction runs by outcome.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of extraction runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	reg.MustRegister(
		m.PacketsTotal,
		m.BytesTotal,
		m.PacketsByClass,
		m.WindowsSealed,
		m.LastWindowPackets,
		m.WriterErrors,
		m.RunsTotal,
		m.RunDuration,
	)
	return m
}

// PacketObserved counts one packet under its protocol class.
func (m *Metrics) PacketObserved(class window.Class, length int) {
	m.PacketsTotal.Inc()
	m.BytesTotal.Add(float64(max(length, 0)))
	m.PacketsByClass.WithLabelValues(class.String()).Inc()
}

// WindowSealed records a finalized window.
func (m *Metrics) WindowSealed(rec *model.WindowFeatureRecord) {
	m.WindowsSealed.Inc()
	m.LastWindowPackets.Set(float64(rec.PacketCount))
}

// WriterFailed counts a failed write.
func (m *Metrics) WriterFailed(writer string) {
	m.WriterErrors.WithLabelValues(writer).Inc()
}

// RunFinished records the outcome and duration of a run.
func (m *Metrics) RunFinished(err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
}
