package cache

import (
	"context"
	"sync"

	"cinescout/models"
)

// Store is the persistence strategy behind the result cache. Implementations
// must be safe for concurrent use. Get returns (nil, nil) when no entry is
// bound to the key; expiry is the cache's concern, not the store's.
type Store interface {
	Get(ctx context.Context, normalizedQuery string, year int) (*models.CacheEntry, error)
	Put(ctx context.Context, entry models.CacheEntry) error
	Close() error
}

// NopStore is the null-object store used when no persistence is configured.
// Every read is a miss and every write is discarded.
type NopStore struct{}

func (NopStore) Get(context.Context, string, int) (*models.CacheEntry, error) { return nil, nil }
func (NopStore) Put(context.Context, models.CacheEntry) error                 { return nil }
func (NopStore) Close() error                                                 { return nil }

type memKey struct {
	query string
	year  int
}

// MemoryStore keeps entries in process memory. Writes upsert by the metadata's
// own id: when a record with that id is already bound to a different key, the
// old binding is dropped so one id never appears under two keys.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memKey]models.CacheEntry
	byID    map[int64]memKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[memKey]models.CacheEntry),
		byID:    make(map[int64]memKey),
	}
}

func (s *MemoryStore) Get(_ context.Context, normalizedQuery string, year int) (*models.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[memKey{query: normalizedQuery, year: year}]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *MemoryStore) Put(_ context.Context, entry models.CacheEntry) error {
	key := memKey{query: entry.NormalizedQuery, year: entry.Year}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[entry.Metadata.ID]; ok && old != key {
		delete(s.entries, old)
	}
	s.entries[key] = entry
	s.byID[entry.Metadata.ID] = key
	return nil
}

func (s *MemoryStore) Close() error { return nil }
