package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps Progress in a JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewFileStore creates a FileStore writing to path. The parent directory is
// created on first save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the progress file.
func (s *FileStore) Load(_ context.Context) Progress {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("progress file unreadable, starting from zero", "path", s.path, "error", err)
		}
		return Progress{}
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("progress file corrupt, starting from zero", "path", s.path, "error", err)
		return Progress{}
	}
	if p.Sanitize() {
		s.logger.Warn("progress file held negative counters, clamped to zero", "path", s.path)
	}
	return p
}

// Save writes p to a temporary file next to the target, syncs it and renames
// it over the target.
func (s *FileStore) Save(_ context.Context, p *Progress) error {
	if p == nil {
		return errors.New("nil progress")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}

	next := *p
	Stamp(&next, s.now())

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(next); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace progress file: %w", err)
	}

	*p = next
	return nil
}
