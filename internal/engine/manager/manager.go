package manager

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/engine/window"
	"WindowSpectra/internal/factory"
	"WindowSpectra/internal/metrics"
	"WindowSpectra/internal/model"
	_ "WindowSpectra/internal/writer" // Registers the feature writers
	"WindowSpectra/pkg/pcap"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
)

const defaultBufferSize = 4096

// Source yields packets in order and returns io.EOF once exhausted.
type Source interface {
	Next() (*model.Packet, error)
}

// SliceSource replays an in-memory packet sequence.
type SliceSource struct {
	packets []*model.Packet
	pos     int
}

// NewSliceSource creates a source over packets.
func NewSliceSource(packets []*model.Packet) *SliceSource {
	return &SliceSource{packets: packets}
}

// Next returns the next packet or io.EOF.
func (s *SliceSource) Next() (*model.Packet, error) {
	if s.pos >= len(s.packets) {
		return nil, io.EOF
	}
	p := s.packets[s.pos]
	s.pos++
	return p, nil
}

// Options configures a Manager built without a config file.
type Options struct {
	Window        window.Options
	Writers       []model.Writer
	Metrics       *metrics.Metrics // optional
	ProgressEvery int              // 0 disables progress logging
	BufferSize    int              // packet channel size for file runs
}

// Result summarizes one extraction run.
type Result struct {
	Meta    model.RunMeta
	Records []model.WindowFeatureRecord
	Packets uint64
	Elapsed time.Duration
}

// Manager drives packet sources through the window engine and hands the
// resulting records to every configured writer.
type Manager struct {
	window        window.Options
	writers       []model.Writer
	metrics       *metrics.Metrics
	progressEvery int
	bufferSize    int
}

// NewManager creates a Manager and its writers from the config.
func NewManager(cfg *config.Config, m *metrics.Metrics) (*Manager, error) {
	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		return nil, err
	}
	mgr, err := New(Options{
		Window:        cfg.WindowOptions(nil),
		Writers:       writers,
		Metrics:       m,
		ProgressEvery: cfg.Extractor.ProgressEvery,
	})
	if err != nil {
		for _, w := range writers {
			w.Close()
		}
		return nil, err
	}
	return mgr, nil
}

// New creates a Manager from explicit options.
func New(opts Options) (*Manager, error) {
	// Validate the window options once up front.
	if _, err := window.NewExtractor(opts.Window); err != nil {
		return nil, err
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.Metrics != nil {
		opts.Window.Observer = opts.Metrics
	}
	return &Manager{
		window:        opts.Window,
		writers:       opts.Writers,
		metrics:       opts.Metrics,
		progressEvery: opts.ProgressEvery,
		bufferSize:    opts.BufferSize,
	}, nil
}

// WindowSize returns the configured window length in seconds.
func (m *Manager) WindowSize() float64 {
	return m.window.WindowSize
}

// Writers returns the names of the configured writers.
func (m *Manager) Writers() []string {
	names := make([]string, len(m.writers))
	for i, w := range m.writers {
		names[i] = w.Name()
	}
	return names
}

// Stream runs src through a fresh extractor and calls emit for every sealed
// window, in order. It returns the number of packets consumed.
func (m *Manager) Stream(ctx context.Context, src Source, emit func(model.WindowFeatureRecord) error) (uint64, error) {
	extractor, err := window.NewExtractor(m.window)
	if err != nil {
		return 0, err
	}

	var count uint64
	next := func() (*model.Packet, error) {
		if count%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p, err := src.Next()
		if err != nil {
			return nil, err
		}
		count++
		if m.progressEvery > 0 && count%uint64(m.progressEvery) == 0 {
			log.Printf("Processed %d packets...", count)
		}
		return p, nil
	}

	if err := extractor.Run(next, emit); err != nil {
		return count, err
	}
	return count, nil
}

// Run extracts every window from src and writes the full record sequence to
// each writer. A missing session id is filled with a new UUID. The first
// writer failure aborts the run.
func (m *Manager) Run(ctx context.Context, src Source, meta model.RunMeta) (*Result, error) {
	if meta.SessionID == "" {
		meta.SessionID = uuid.NewString()
	}
	if meta.StartedAt.IsZero() {
		meta.StartedAt = time.Now()
	}

	res, err := m.run(ctx, src, meta)
	if m.metrics != nil {
		m.metrics.RunFinished(err, time.Since(meta.StartedAt))
	}
	return res, err
}

func (m *Manager) run(ctx context.Context, src Source, meta model.RunMeta) (*Result, error) {
	records := make([]model.WindowFeatureRecord, 0)
	packets, err := m.Stream(ctx, src, func(rec model.WindowFeatureRecord) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extraction of session %s failed: %w", meta.SessionID, err)
	}
	log.Printf("Extracted %d windows from %d packets for session %s", len(records), packets, meta.SessionID)

	for _, w := range m.writers {
		if err := w.Write(records, meta); err != nil {
			if m.metrics != nil {
				m.metrics.WriterFailed(w.Name())
			}
			return nil, fmt.Errorf("writer %s failed for session %s: %w", w.Name(), meta.SessionID, err)
		}
	}

	return &Result{
		Meta:    meta,
		Records: records,
		Packets: packets,
		Elapsed: time.Since(meta.StartedAt),
	}, nil
}

// RunFile extracts a pcap or pcapng file. Decoding runs in its own goroutine
// and feeds the extractor through a buffered channel.
func (m *Manager) RunFile(ctx context.Context, path string, meta model.RunMeta) (*Result, error) {
	if meta.Source == "" {
		meta.Source = path
	}
	src, stop, err := m.openFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer stop()
	return m.Run(ctx, src, meta)
}

// StreamFile is the streaming counterpart of RunFile. Nothing is written.
func (m *Manager) StreamFile(ctx context.Context, path string, emit func(model.WindowFeatureRecord) error) (uint64, error) {
	src, stop, err := m.openFile(ctx, path)
	if err != nil {
		return 0, err
	}
	defer stop()
	return m.Stream(ctx, src, emit)
}

type channelSource struct {
	packets <-chan *model.Packet
	errc    <-chan error
	err     error // sticky once the channel is closed
}

func (c *channelSource) Next() (*model.Packet, error) {
	if c.err != nil {
		return nil, c.err
	}
	if p, ok := <-c.packets; ok {
		return p, nil
	}
	c.err = io.EOF
	if err := <-c.errc; err != nil {
		c.err = err
	}
	return nil, c.err
}

// openFile starts the decoding goroutine. stop cancels it, waits for it to
// exit and closes the file.
func (m *Manager) openFile(ctx context.Context, path string) (Source, func(), error) {
	reader, err := pcap.NewReader(path)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Reading %s capture %s", reader.Format(), path)

	readCtx, cancel := context.WithCancel(ctx)
	packets := make(chan *model.Packet, m.bufferSize)
	errc := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		errc <- reader.ReadPackets(readCtx, packets)
	}()

	stop := func() {
		cancel()
		// Drain so a blocked send can observe the cancellation.
		for range packets {
		}
		<-done
		reader.Close()
	}
	return &channelSource{packets: packets, errc: errc}, stop, nil
}

// Close closes every writer and returns the first error.
func (m *Manager) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close writer %s: %w", w.Name(), err))
		}
	}
	log.Println("Manager stopped.")
	return errors.Join(errs...)
}
