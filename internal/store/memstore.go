package store

import (
	"sync"

	"github.com/heysubinoy/kvs/pkg/kv"
)

// MemStore is an in-memory implementation of the kv.Store interface.
// It uses a map protected by a RWMutex so the journaled engine's apply
// loop and the caller never race on it.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
	path string
}

// Compile-time check to ensure MemStore implements kv.Store.
var _ kv.Store = (*MemStore)(nil)

// NewMemStore creates and returns a new, empty MemStore instance.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]string),
	}
}

// Get retrieves a value by key from the store.
// Returns the value and true if found, empty string and false otherwise.
// The error is always nil for in-memory operations.
func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok, nil
}

// Set stores a key-value pair in the store.
// Always returns nil for in-memory operations.
func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Remove deletes a key from the store.
// Always returns nil, even if the key doesn't exist.
func (s *MemStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of entries.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}

// Snapshot returns a copy of the current contents.
func (s *MemStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Restore replaces the contents with a copy of data.
func (s *MemStore) Restore(data map[string]string) {
	next := make(map[string]string, len(data))
	for k, v := range data {
		next[k] = v
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
}

// Path returns the backing location the store was opened with,
// or "" for a store created with NewMemStore.
func (s *MemStore) Path() string {
	return s.path
}
