// Package testutil provides testing utilities for the edge cache layer.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kottu/edge-cache/pkg/cache"
)

// ErrStoreDown is returned by MemStore operations when failure injection is
// armed.
var ErrStoreDown = errors.New("store unavailable")

// MemStore is an in-memory cache.Store with a tag index and failure
// injection, for tests that must not depend on Redis.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	tags    map[string]map[string]bool

	// Failure injection
	FailGets bool
	FailSets bool

	// Tracking
	GetCount int
	SetCount int
}

type memEntry struct {
	entry     *cache.Entry
	expiresAt time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[string]memEntry),
		tags:    make(map[string]map[string]bool),
	}
}

// Get implements cache.Store.
func (s *MemStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.GetCount++
	if s.FailGets {
		return nil, ErrStoreDown
	}

	stored, ok := s.entries[key]
	if !ok || time.Now().After(stored.expiresAt) {
		delete(s.entries, key)
		return nil, cache.ErrCacheMiss
	}

	// Return a copy so callers cannot mutate stored state.
	copied := *stored.entry
	copied.Headers = make(map[string]string, len(stored.entry.Headers))
	for k, v := range stored.entry.Headers {
		copied.Headers[k] = v
	}
	return &copied, nil
}

// Set implements cache.Store.
func (s *MemStore) Set(ctx context.Context, key string, entry *cache.Entry, ttl time.Duration, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SetCount++
	if s.FailSets {
		return ErrStoreDown
	}

	s.entries[key] = memEntry{entry: entry, expiresAt: time.Now().Add(ttl)}
	for _, tag := range tags {
		if s.tags[tag] == nil {
			s.tags[tag] = make(map[string]bool)
		}
		s.tags[tag][key] = true
	}
	return nil
}

// DeleteByTags implements cache.Store.
func (s *MemStore) DeleteByTags(ctx context.Context, tags []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]bool)
	for _, tag := range tags {
		for key := range s.tags[tag] {
			keys[key] = true
		}
		delete(s.tags, tag)
	}
	for key := range keys {
		delete(s.entries, key)
	}
	return len(keys), nil
}

// Clear implements cache.Store.
func (s *MemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memEntry)
	s.tags = make(map[string]map[string]bool)
	return nil
}

// Len returns the number of live entries.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
