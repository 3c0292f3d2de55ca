package store

import (
	"WindowSpectra/internal/model"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Store persists extraction sessions and their window records in SQLite.
type Store struct {
	db *gorm.DB
}

// SessionResult carries what a finished extraction run learned about its capture.
type SessionResult struct {
	Filepath      string
	FileSizeBytes int64
	Records       []model.WindowFeatureRecord
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.AutoMigrate(&PcapSession{}, &TrafficWindow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}
	log.Printf("Session database ready at %s", path)

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSession registers a new session in the processing state.
func (s *Store) CreateSession(ctx context.Context, sessionID, filename string) (*PcapSession, error) {
	session := &PcapSession{
		SessionID: sessionID,
		Filename:  filename,
		Status:    StatusProcessing,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session %s: %w", sessionID, err)
	}
	return session, nil
}

// CompleteSession marks a session completed and fills in its capture summary.
// Time bounds stay null when the run produced no windows.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, res SessionResult) error {
	var packets uint64
	var start, end *float64
	for i := range res.Records {
		rec := &res.Records[i]
		packets += rec.PacketCount
		if start == nil || rec.WindowStart < *start {
			start = &rec.WindowStart
		}
		if end == nil || rec.WindowEnd > *end {
			end = &rec.WindowEnd
		}
	}

	updates := map[string]any{
		"filepath":        res.Filepath,
		"file_size_bytes": res.FileSizeBytes,
		"total_packets":   packets,
		"window_count":    len(res.Records),
		"status":          StatusCompleted,
		"error_message":   "",
	}
	if start != nil && end != nil {
		duration := *end - *start
		updates["start_timestamp"] = *start
		updates["end_timestamp"] = *end
		updates["duration_seconds"] = duration
	}
	return s.updateSession(ctx, sessionID, updates)
}

// FailSession marks a session failed with the error that stopped it.
func (s *Store) FailSession(ctx context.Context, sessionID string, cause error) error {
	return s.updateSession(ctx, sessionID, map[string]any{
		"status":        StatusFailed,
		"error_message": cause.Error(),
	})
}

func (s *Store) updateSession(ctx context.Context, sessionID string, updates map[string]any) error {
	updates["updated_at"] = time.Now()
	result := s.db.WithContext(ctx).Model(&PcapSession{}).Where("session_id = ?", sessionID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update session %s: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update session %s: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// GetSession looks up a single session.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*PcapSession, error) {
	var session PcapSession
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return &session, nil
}

// ListSessions returns sessions newest first, optionally filtered by status.
func (s *Store) ListSessions(ctx context.Context, status string, limit, offset int) ([]PcapSession, error) {
	if limit <= 0 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Model(&PcapSession{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	sessions := make([]PcapSession, 0)
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// SaveWindows stores the ordered records of a session in one transaction,
// numbering them from 1. Existing windows of the session are replaced.
func (s *Store) SaveWindows(ctx context.Context, sessionID string, records []model.WindowFeatureRecord) error {
	rows := make([]TrafficWindow, 0, len(records))
	for i, rec := range records {
		row, err := newTrafficWindow(sessionID, i+1, rec)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&TrafficWindow{}).Error; err != nil {
			return fmt.Errorf("failed to clear windows of session %s: %w", sessionID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("failed to insert windows of session %s: %w", sessionID, err)
		}
		return nil
	})
}

// ListWindows returns a session's windows in window order.
func (s *Store) ListWindows(ctx context.Context, sessionID string, limit, offset int) ([]TrafficWindow, error) {
	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("window_id ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	windows := make([]TrafficWindow, 0)
	if err := q.Find(&windows).Error; err != nil {
		return nil, fmt.Errorf("failed to list windows of session %s: %w", sessionID, err)
	}
	return windows, nil
}
