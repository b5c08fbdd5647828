package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore keeps buckets in process memory. Entries are never evicted;
// an expired bucket is overwritten on the next request for its key.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]Bucket
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]Bucket)}
}

// Get returns the bucket for key.
func (m *MemoryStore) Get(_ context.Context, key string) (Bucket, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	return b, ok, nil
}

// Set replaces the bucket for key.
func (m *MemoryStore) Set(_ context.Context, key string, b Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[key] = b
	return nil
}

// Len returns the number of tracked keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
