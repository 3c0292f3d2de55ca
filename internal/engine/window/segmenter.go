package window

import (
	"WindowSpectra/internal/model"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidWindowSize is returned when the configured window size is not positive.
var ErrInvalidWindowSize = errors.New("window size must be positive")

// DefaultWindowSize is the window length in seconds used when none is configured.
const DefaultWindowSize = 10.0

// Observer is notified as packets are classified and windows are sealed.
type Observer interface {
	PacketObserved(class Class, length int)
	WindowSealed(rec *model.WindowFeatureRecord)
}

// Options configures an Extractor.
type Options struct {
	WindowSize float64 // seconds
	TopN       int
	Observer   Observer
}

// Extractor segments an ordered packet stream into windows and emits one
// feature record per sealed window. It is not safe for concurrent use.
type Extractor struct {
	windowSize float64
	topN       int
	observer   Observer

	current *WindowState // nil until the first packet arrives
}

// NewExtractor creates an Extractor. A zero TopN falls back to DefaultTopN.
func NewExtractor(opts Options) (*Extractor, error) {
	if opts.WindowSize <= 0 || opts.WindowSize != opts.WindowSize {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidWindowSize, opts.WindowSize)
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	return &Extractor{
		windowSize: opts.WindowSize,
		topN:       opts.TopN,
		observer:   opts.Observer,
	}, nil
}

// WindowSize returns the configured window length in seconds.
func (e *Extractor) WindowSize() float64 {
	return e.windowSize
}

// Push assigns a packet to the open window. When the packet lies past the open
// window's end, that window is sealed and returned, and a new window is opened
// at the packet's own timestamp, so silent gaps never produce empty windows.
func (e *Extractor) Push(p *model.Packet) (*model.WindowFeatureRecord, bool) {
	var sealed *model.WindowFeatureRecord

	switch {
	case e.current == nil:
		e.current = newWindowState(p.Timestamp, p.Timestamp+e.windowSize)
	case p.Timestamp > e.current.End:
		sealed = e.seal()
		e.current = newWindowState(p.Timestamp, p.Timestamp+e.windowSize)
	}

	class := e.current.add(p)
	if e.observer != nil {
		e.observer.PacketObserved(class, p.Length)
	}

	return sealed, sealed != nil
}

// Close seals the open window if it holds any packets. Calling Close again,
// or on an extractor that never saw a packet, returns false.
func (e *Extractor) Close() (*model.WindowFeatureRecord, bool) {
	if e.current == nil || e.current.PacketCount == 0 {
		return nil, false
	}
	rec := e.seal()
	return rec, true
}

// seal finalizes the open window and drops its state.
func (e *Extractor) seal() *model.WindowFeatureRecord {
	rec := finalize(e.current, e.windowSize, e.topN)
	e.current = nil
	if e.observer != nil {
		e.observer.WindowSealed(&rec)
	}
	return &rec
}

// Run pulls packets from next until it returns io.EOF, handing every sealed
// record to emit in order. Any other error from next or emit aborts the run.
func (e *Extractor) Run(next func() (*model.Packet, error), emit func(model.WindowFeatureRecord) error) error {
	for {
		p, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read packet: %w", err)
		}
		if rec, ok := e.Push(p); ok {
			if err := emit(*rec); err != nil {
				return err
			}
		}
	}

	if rec, ok := e.Close(); ok {
		return emit(*rec)
	}
	return nil
}

// ExtractAll runs a fresh extractor over an in-memory packet sequence.
func ExtractAll(opts Options, packets []*model.Packet) ([]model.WindowFeatureRecord, error) {
	e, err := NewExtractor(opts)
	if err != nil {
		return nil, err
	}

	records := make([]model.WindowFeatureRecord, 0)
	i := 0
	next := func() (*model.Packet, error) {
		if i >= len(packets) {
			return nil, io.EOF
		}
		p := packets[i]
		i++
		return p, nil
	}
	emit := func(rec model.WindowFeatureRecord) error {
		records = append(records, rec)
		return nil
	}
	if err := e.Run(next, emit); err != nil {
		return nil, err
	}
	return records, nil
}
