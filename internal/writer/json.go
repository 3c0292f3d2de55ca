package writer

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/factory"
	"WindowSpectra/internal/model"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

func init() {
	factory.RegisterWriter("json", func(def config.WriterDef) (model.Writer, error) {
		return NewJSONWriter(def.JSON.RootPath), nil
	})
}

// JSONWriter writes all records of a run as one pretty-printed JSON array.
type JSONWriter struct {
	rootPath string
}

// NewJSONWriter creates a writer that writes below rootPath.
func NewJSONWriter(rootPath string) *JSONWriter {
	return &JSONWriter{rootPath: rootPath}
}

// Name returns the writer type.
func (w *JSONWriter) Name() string { return "json" }

// Close is a no-op, each Write opens and closes its own file.
func (w *JSONWriter) Close() error { return nil }

// Path returns the file a run with the given session id is written to.
func (w *JSONWriter) Path(sessionID string) string {
	return filepath.Join(w.rootPath, fileStem(sessionID)+"_features.json")
}

// Write writes records to <root>/<session>_features.json. An empty run still
// produces a file holding an empty array.
func (w *JSONWriter) Write(records []model.WindowFeatureRecord, meta model.RunMeta) error {
	if err := os.MkdirAll(w.rootPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if records == nil {
		records = []model.WindowFeatureRecord{}
	}

	path := w.Path(meta.SessionID)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create features file '%s': %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode features to json: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close features file '%s': %w", path, err)
	}

	log.Printf("Wrote %d windows to %s", len(records), path)
	return nil
}

// ReadJSONFile loads a features file written by JSONWriter.
func ReadJSONFile(path string) ([]model.WindowFeatureRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read features file: %w", err)
	}
	var records []model.WindowFeatureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode features file: %w", err)
	}
	return records, nil
}

// fileStem names output files after the session, or "features" without one.
func fileStem(sessionID string) string {
	if sessionID == "" {
		return "features"
	}
	return sessionID
}
