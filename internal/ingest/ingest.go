package ingest

import (
	"WindowSpectra/internal/engine/manager"
	"WindowSpectra/internal/model"
	"WindowSpectra/internal/store"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUploadTooLarge is returned when an upload exceeds the configured limit.
var ErrUploadTooLarge = errors.New("upload exceeds max size")

// Service turns uploaded captures into stored extraction sessions.
type Service struct {
	store     *store.Store
	manager   *manager.Manager
	uploadDir string
	maxBytes  int64 // 0 means unlimited
}

// NewService creates the upload directory and returns a ready service.
func NewService(uploadDir string, maxUploadSizeMB int64, s *store.Store, m *manager.Manager) (*Service, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Service{
		store:     s,
		manager:   m,
		uploadDir: uploadDir,
		maxBytes:  maxUploadSizeMB * 1024 * 1024,
	}, nil
}

// Outcome is what a finished ingestion produced.
type Outcome struct {
	Session *store.PcapSession
	Result  *manager.Result
}

// SaveUpload copies r to <upload_dir>/<session><ext>, keeping the extension
// of filename (".pcap" when it has none). A partial file is removed when the
// upload is too large or the copy fails.
func (s *Service) SaveUpload(sessionID, filename string, r io.Reader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pcap"
	}
	dest := filepath.Join(s.uploadDir, sessionID+ext)

	f, err := os.Create(dest)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = fmt.Errorf("%w (%d MB)", ErrUploadTooLarge, s.maxBytes/(1024*1024))
	}
	if err != nil {
		os.Remove(dest)
		if errors.Is(err, ErrUploadTooLarge) {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("failed to save upload: %w", err)
	}
	return dest, n, nil
}

// Upload stores the capture read from r and extracts it. The session is
// recorded as failed when any step fails, and the error is returned.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*Outcome, error) {
	sessionID := uuid.NewString()
	if _, err := s.store.CreateSession(ctx, sessionID, filename); err != nil {
		return nil, err
	}

	path, size, err := s.SaveUpload(sessionID, filename, r)
	if err != nil {
		return nil, s.fail(ctx, sessionID, err)
	}
	return s.extract(ctx, sessionID, filename, path, size)
}

// IngestPath extracts a capture already on disk as a new session.
func (s *Service) IngestPath(ctx context.Context, path string) (*Outcome, error) {
	sessionID := uuid.NewString()
	if _, err := s.store.CreateSession(ctx, sessionID, filepath.Base(path)); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, s.fail(ctx, sessionID, fmt.Errorf("failed to stat capture: %w", err))
	}
	return s.extract(ctx, sessionID, filepath.Base(path), path, info.Size())
}

func (s *Service) extract(ctx context.Context, sessionID, filename, path string, size int64) (*Outcome, error) {
	res, err := s.manager.RunFile(ctx, path, model.RunMeta{
		SessionID: sessionID,
		Source:    filename,
		StartedAt: time.Now(),
	})
	if err != nil {
		return nil, s.fail(ctx, sessionID, err)
	}

	if err := s.store.SaveWindows(ctx, sessionID, res.Records); err != nil {
		return nil, s.fail(ctx, sessionID, err)
	}
	err = s.store.CompleteSession(ctx, sessionID, store.SessionResult{
		Filepath:      path,
		FileSizeBytes: size,
		Records:       res.Records,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	log.Printf("Session %s completed: %d windows from %d packets in %s", sessionID, len(res.Records), res.Packets, res.Elapsed)
	return &Outcome{Session: session, Result: res}, nil
}

// fail marks the session failed and returns cause.
func (s *Service) fail(ctx context.Context, sessionID string, cause error) error {
	log.Printf("Session %s failed: %v", sessionID, cause)
	if err := s.store.FailSession(context.WithoutCancel(ctx), sessionID, cause); err != nil {
		log.Printf("Error recording failure of session %s: %v", sessionID, err)
	}
	return fmt.Errorf("session %s: %w", sessionID, cause)
}
