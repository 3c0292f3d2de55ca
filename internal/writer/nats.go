package writer

import (
	"WindowSpectra/internal/codec"
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/factory"
	"WindowSpectra/internal/model"
	"WindowSpectra/internal/probe"
	"log"
)

func init() {
	factory.RegisterWriter("nats", func(def config.WriterDef) (model.Writer, error) {
		return NewNATSWriter(def.NATS)
	})
}

// NATSWriter publishes every record of a run as a protobuf Struct envelope.
type NATSWriter struct {
	pub *probe.Publisher
}

// NewNATSWriter connects to the NATS server in cfg.
func NewNATSWriter(cfg config.NATSConfig) (*NATSWriter, error) {
	pub, err := probe.NewPublisher(cfg.URL, cfg.Subject)
	if err != nil {
		return nil, err
	}
	return &NATSWriter{pub: pub}, nil
}

// Name returns the writer type.
func (w *NATSWriter) Name() string { return "nats" }

// Write publishes the records in window order and flushes the connection.
func (w *NATSWriter) Write(records []model.WindowFeatureRecord, meta model.RunMeta) error {
	for i, rec := range records {
		err := w.pub.Publish(codec.Envelope{
			SessionID: meta.SessionID,
			Source:    meta.Source,
			WindowID:  i + 1,
			Record:    rec,
		})
		if err != nil {
			return err
		}
	}
	if err := w.pub.Flush(); err != nil {
		return err
	}
	log.Printf("Published %d windows to '%s'", len(records), w.pub.Subject())
	return nil
}

// Close drains and closes the NATS connection.
func (w *NATSWriter) Close() error {
	return w.pub.Close()
}
