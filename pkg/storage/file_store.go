package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quorumsec/remedia/pkg/domain"
)

// FileStore implements SnapshotStore over a single JSON file. Writes go to
// a temp file in the same directory followed by an atomic rename, so
// readers either see the old snapshot or the new one, never a torn write.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path. The parent
// directory is created on first save, not here, so declaring a store over
// a missing directory is cheap.
func NewFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	return &FileStore{path: abs}, nil
}

// Path returns the absolute snapshot file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the snapshot file into v.
func (s *FileStore) Load(_ context.Context, v any) (bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, domain.Corruption(fmt.Sprintf("snapshot %s is not well-formed: %v", filepath.Base(s.path), err))
	}
	return true, nil
}

// AtomicSave encodes v and replaces the snapshot file in one rename.
func (s *FileStore) AtomicSave(_ context.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles between operations.
func (s *FileStore) Close() error {
	return nil
}
