package apikey

import (
	"context"
	"sync"
)

// MemoryStore implements Store using an in-memory map. It is used for tests
// and single-node development.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]int64
}

// NewMemoryStore creates an empty in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]int64)}
}

// Resolve returns the tenant id owning the key, or ErrKeyNotFound.
func (s *MemoryStore) Resolve(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, exists := s.keys[key]
	if !exists {
		return 0, ErrKeyNotFound
	}
	return tenantID, nil
}

// Put registers or replaces a key for a tenant.
func (s *MemoryStore) Put(ctx context.Context, key string, tenantID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = tenantID
	return nil
}

// Revoke removes a key.
func (s *MemoryStore) Revoke(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
