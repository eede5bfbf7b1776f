package cache

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"

	"cinescout/models"
)

// DefaultTTL is how long a cached metadata record stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is the result cache: a normalized (query, year) keyed view over a
// Store with TTL-on-read expiry. Store failures never surface to callers;
// a failed read degrades to a miss and a failed write is skipped.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func New(store Store, ttl time.Duration) *Cache {
	if store == nil {
		store = NopStore{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// NormalizeQuery canonicalizes a title for use as a cache key: transliterated
// to ASCII, lowercased, trimmed, inner whitespace collapsed.
func NormalizeQuery(query string) string {
	q := unidecode.Unidecode(query)
	q = strings.ToLower(strings.TrimSpace(q))
	return strings.Join(strings.Fields(q), " ")
}

// Get returns the cached record for (query, year), or false on a miss. An
// entry whose age has reached the TTL is a miss.
func (c *Cache) Get(ctx context.Context, query string, year int) (*models.MetadataRecord, bool) {
	entry, err := c.store.Get(ctx, NormalizeQuery(query), year)
	if err != nil {
		log.Printf("[cache] read failed for %q: %v", query, err)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	if c.now().Sub(entry.UpdatedAt) >= c.ttl {
		return nil, false
	}
	rec := entry.Metadata
	return &rec, true
}

// Put records a resolved lookup. Best effort: write failures are logged and
// swallowed so callers never fail because the cache did.
func (c *Cache) Put(ctx context.Context, query string, year int, rec models.MetadataRecord) {
	entry := models.CacheEntry{
		NormalizedQuery: NormalizeQuery(query),
		Year:            year,
		Metadata:        rec,
		UpdatedAt:       c.now(),
	}
	if err := c.store.Put(ctx, entry); err != nil {
		log.Printf("[cache] write failed for %q: %v", query, err)
	}
}

// Close releases the underlying store.
func (c *Cache) Close() error { return c.store.Close() }
