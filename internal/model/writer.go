package model

import "time"

// RunMeta describes the extraction run a batch of records belongs to.
type RunMeta struct {
	SessionID string
	Source    string // path of the capture the records were extracted from
	StartedAt time.Time
}

// Writer defines a generic interface for persisting window feature records.
type Writer interface {
	// Write persists the full, ordered record sequence of one extraction run.
	Write(records []WindowFeatureRecord, meta RunMeta) error

	// Name returns the writer type, used in logs and metrics.
	Name() string

	// Close releases connections or file handles held by the writer.
	Close() error
}
