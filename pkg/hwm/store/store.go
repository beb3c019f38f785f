// Package store provides pluggable persistence for high-water-marks,
// keyed by qualified name and surviving across process runs.
package store

import (
	"context"
	"sync"

	"github.com/tidemark-io/tidemark/pkg/hwm"
)

// Store persists high-water-marks across runs. Get returns (nil, nil)
// when no mark exists for the key. Both operations are idempotent for
// identical input. Implementations assume a single writer per key.
type Store interface {
	// Get returns the mark stored under the qualified name, or nil
	Get(ctx context.Context, qualifiedName string) (*hwm.HWM, error)
	// Set persists the mark under its qualified name
	Set(ctx context.Context, h *hwm.HWM) error
}

// MemoryStore is an in-process Store. It is the session default and the
// usual substitute in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]hwm.HWM
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]hwm.HWM)}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, qualifiedName string) (*hwm.HWM, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.items[qualifiedName]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// Set implements Store
func (s *MemoryStore) Set(_ context.Context, h *hwm.HWM) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[h.QualifiedName()] = *h
	return nil
}

// Len returns the number of stored marks
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
