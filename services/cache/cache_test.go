package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinescout/models"
)

func TestNormalizeQuery(t *testing.T) {
	tests := map[string]string{
		"  The Matrix  ":  "the matrix",
		"AMÉLIE":          "amelie",
		"spirited   away": "spirited away",
		"":                "",
	}
	for input, expect := range tests {
		if got := NormalizeQuery(input); got != expect {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", input, got, expect)
		}
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := New(NewMemoryStore(), time.Hour)
	ctx := context.Background()

	rec := models.MetadataRecord{ID: 603, Title: "The Matrix", VoteAverage: 8.2}
	c.Put(ctx, "The Matrix", 1999, rec)

	got, ok := c.Get(ctx, "  the matrix ", 1999)
	if !ok {
		t.Fatal("expected cache hit after put")
	}
	if got.ID != rec.ID || got.Title != rec.Title || got.VoteAverage != rec.VoteAverage {
		t.Fatalf("cached record mismatch: %+v", got)
	}

	if _, ok := c.Get(ctx, "the matrix", 2003); ok {
		t.Fatal("expected miss for different year")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New(NewMemoryStore(), time.Hour)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put(ctx, "dune", 2021, models.MetadataRecord{ID: 438631, Title: "Dune"})

	if _, ok := c.Get(ctx, "dune", 2021); !ok {
		t.Fatal("expected hit within TTL")
	}

	// Exactly at the TTL boundary the entry is already stale.
	c.now = func() time.Time { return now.Add(time.Hour) }
	if _, ok := c.Get(ctx, "dune", 2021); ok {
		t.Fatal("expected miss once entry age reached TTL")
	}
}

func TestMemoryStoreUpsertByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := models.MetadataRecord{ID: 603, Title: "The Matrix"}
	if err := s.Put(ctx, models.CacheEntry{NormalizedQuery: "matrix", Year: 0, Metadata: rec, UpdatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	// Same record resolved under a new query moves the binding.
	if err := s.Put(ctx, models.CacheEntry{NormalizedQuery: "the matrix", Year: 1999, Metadata: rec, UpdatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	old, err := s.Get(ctx, "matrix", 0)
	if err != nil {
		t.Fatal(err)
	}
	if old != nil {
		t.Fatal("expected old binding to be dropped after re-resolution")
	}
	cur, err := s.Get(ctx, "the matrix", 1999)
	if err != nil {
		t.Fatal(err)
	}
	if cur == nil || cur.Metadata.ID != 603 {
		t.Fatalf("expected new binding, got %+v", cur)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, int) (*models.CacheEntry, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) Put(context.Context, models.CacheEntry) error { return errors.New("disk on fire") }
func (failingStore) Close() error                                 { return nil }

func TestCacheFailsOpen(t *testing.T) {
	c := New(failingStore{}, time.Hour)
	ctx := context.Background()

	// Neither call may panic or surface the store error.
	c.Put(ctx, "heat", 1995, models.MetadataRecord{ID: 949})
	if _, ok := c.Get(ctx, "heat", 1995); ok {
		t.Fatal("expected failing store to degrade to a miss")
	}
}

func TestNopStoreAlwaysMisses(t *testing.T) {
	c := New(NopStore{}, time.Hour)
	ctx := context.Background()
	c.Put(ctx, "alien", 1979, models.MetadataRecord{ID: 348})
	if _, ok := c.Get(ctx, "alien", 1979); ok {
		t.Fatal("nop store must never return a hit")
	}
}
