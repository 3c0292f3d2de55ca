package writer

import (
	"WindowSpectra/internal/config"
	"WindowSpectra/internal/factory"
	"WindowSpectra/internal/model"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func init() {
	factory.RegisterWriter("gob", func(def config.WriterDef) (model.Writer, error) {
		return NewGobWriter(def.Gob.RootPath), nil
	})
}

// SummaryData holds the metadata of one run, written next to its gob file.
type SummaryData struct {
	SessionID        string  `json:"session_id"`
	Source           string  `json:"source"`
	TotalWindows     int     `json:"total_windows"`
	TotalPackets     uint64  `json:"total_packets"`
	TotalBytes       uint64  `json:"total_bytes"`
	FirstWindowStart float64 `json:"first_window_start"`
	LastWindowEnd    float64 `json:"last_window_end"`
	StartedAt        string  `json:"started_at"`
	Timestamp        string  `json:"timestamp"`
}

// GobWriter writes the records of a run to disk in gob format.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new gob writer rooted at rootPath.
func NewGobWriter(rootPath string) *GobWriter {
	return &GobWriter{rootPath: rootPath}
}

// Name returns the writer type.
func (w *GobWriter) Name() string { return "gob" }

// Close is a no-op.
func (w *GobWriter) Close() error { return nil }

// Dir returns the directory a run with the given session id is written to.
func (w *GobWriter) Dir(sessionID string) string {
	return filepath.Join(w.rootPath, fileStem(sessionID))
}

// Write serializes the records to <root>/<session>/windows.dat and writes a
// summary.json beside it.
func (w *GobWriter) Write(records []model.WindowFeatureRecord, meta model.RunMeta) error {
	// 1. Create the run directory
	runDir := w.Dir(meta.SessionID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	// 2. Write the records
	dataPath := filepath.Join(runDir, "windows.dat")
	file, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", dataPath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(records); err != nil {
		return fmt.Errorf("failed to encode windows to gob for file '%s': %w", dataPath, err)
	}

	// 3. Write the summary file
	summary := SummaryData{
		SessionID:    meta.SessionID,
		Source:       meta.Source,
		TotalWindows: len(records),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if !meta.StartedAt.IsZero() {
		summary.StartedAt = meta.StartedAt.UTC().Format(time.RFC3339)
	}
	for _, rec := range records {
		summary.TotalPackets += rec.PacketCount
		summary.TotalBytes += rec.TotalBytes
	}
	if len(records) > 0 {
		summary.FirstWindowStart = records[0].WindowStart
		summary.LastWindowEnd = records[len(records)-1].WindowEnd
	}

	summaryFilePath := filepath.Join(runDir, "summary.json")
	summaryFile, err := os.Create(summaryFilePath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	return nil
}

// ReadGobFile decodes a windows.dat file written by GobWriter.
func ReadGobFile(path string) ([]model.WindowFeatureRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gob file: %w", err)
	}
	defer file.Close()

	var records []model.WindowFeatureRecord
	if err := gob.NewDecoder(file).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode gob file: %w", err)
	}
	return records, nil
}

// ReadSummary loads the summary.json of a run directory.
func ReadSummary(runDir string) (*SummaryData, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "summary.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var summary SummaryData
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &summary, nil
}
