package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// FileSessionStore keeps the record in a single JSON file readable only by its owner.
type FileSessionStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewFileSessionStore returns a store backed by path. ttl <= 0 disables expiry.
func NewFileSessionStore(path string, ttl time.Duration) *FileSessionStore {
	return &FileSessionStore{path: path, ttl: ttl, now: time.Now}
}

func (s *FileSessionStore) Load(_ context.Context) (*domain.PersistedSession, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return decodeRecord(raw, s.ttl, s.now())
}

// Save replaces the file atomically.
func (s *FileSessionStore) Save(_ context.Context, session domain.PersistedSession) error {
	raw, err := encodeRecord(session, s.now())
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *FileSessionStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
