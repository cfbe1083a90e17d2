package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/quorumsec/remedia/pkg/domain"
)

// MemoryStore is an in-memory implementation of SnapshotStore for tests
// and ephemeral deployments. It round-trips through JSON so that tests
// exercise the same encode/decode path as the file store.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the held snapshot into v.
func (s *MemoryStore) Load(_ context.Context, v any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return false, nil
	}
	if err := json.Unmarshal(s.data, v); err != nil {
		return false, domain.Corruption(fmt.Sprintf("snapshot is not well-formed: %v", err))
	}
	return true, nil
}

// AtomicSave replaces the held snapshot with the encoding of v.
func (s *MemoryStore) AtomicSave(_ context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Corrupt overwrites the snapshot with raw bytes. Test hook for exercising
// corruption handling in the ledgers.
func (s *MemoryStore) Corrupt(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = raw
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
