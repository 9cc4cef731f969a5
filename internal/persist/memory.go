package persist

import (
	"context"
	"sync"
)

// MemoryRepository implements Repository using an in-memory map.
type MemoryRepository struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		blobs: make(map[string][]byte),
	}
}

// Load returns a copy of the blob stored under key.
func (m *MemoryRepository) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

// Save stores a copy of blob under key.
func (m *MemoryRepository) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}

// Delete removes key.
func (m *MemoryRepository) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}

// Ping always succeeds.
func (m *MemoryRepository) Ping(_ context.Context) error {
	return nil
}
