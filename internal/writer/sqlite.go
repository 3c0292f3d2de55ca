package writer

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/factory"
	"WindowSpectra/internal/model"
	"WindowSpectra/internal/store"
	"context"
	"log"
)

func init() {
	factory.RegisterWriter("sqlite", func(def config.WriterDef) (model.Writer, error) {
		s, err := store.Open(def.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteWriter(s, true), nil
	})
}

// SQLiteWriter stores records in the traffic_windows table of a session store.
type SQLiteWriter struct {
	store     *store.Store
	ownsStore bool
}

// NewSQLiteWriter wraps an open store. When owns is true, Close closes the store.
func NewSQLiteWriter(s *store.Store, owns bool) *SQLiteWriter {
	return &SQLiteWriter{store: s, ownsStore: owns}
}

// Name returns the writer type.
func (w *SQLiteWriter) Name() string { return "sqlite" }

// Close closes the store if this writer opened it.
func (w *SQLiteWriter) Close() error {
	if !w.ownsStore {
		return nil
	}
	return w.store.Close()
}

// Write replaces the stored windows of meta.SessionID with records.
func (w *SQLiteWriter) Write(records []model.WindowFeatureRecord, meta model.RunMeta) error {
	sessionID := fileStem(meta.SessionID)
	if err := w.store.SaveWindows(context.Background(), sessionID, records); err != nil {
		return err
	}
	log.Printf("Stored %d windows for session '%s'", len(records), sessionID)
	return nil
}
