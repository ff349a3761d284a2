package cache

import (
	"context"
	"sync"
	"time"

	"github.com/faresight/faresight-go/internal/utils"
)

type memoryEntry struct {
	value    []byte
	storedAt time.Time
}

// MemoryStore is a capacity-bounded in-process Store. Writes beyond the
// entry limit fail with utils.ErrQuotaExceeded; the ResponseCache reacts by
// sweeping expired entries and retrying once.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates a store bounded to maxEntries entries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the raw envelope bytes for a key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores envelope bytes under a key. The TTL is carried inside the
// envelope; the memory store does not expire entries on its own.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		return utils.ErrQuotaExceeded
	}
	s.entries[key] = memoryEntry{value: value, storedAt: s.now()}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Keys returns all stored keys.
func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// OldestKey returns the key with the earliest write time, for last-resort
// eviction when an expired-entry sweep frees nothing.
func (s *MemoryStore) OldestKey() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest string
	var oldestAt time.Time
	found := false
	for key, entry := range s.entries {
		if !found || entry.storedAt.Before(oldestAt) {
			oldest, oldestAt, found = key, entry.storedAt, true
		}
	}
	return oldest, found
}
