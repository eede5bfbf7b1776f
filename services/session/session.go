package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"cinescout/models"
	"cinescout/services/search"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 20

// Searcher issues one paginated search request. Satisfied by *search.Client.
type Searcher interface {
	Search(ctx context.Context, query string, filters map[string]string, offset, size int) (search.Page, error)
}

// Enricher augments a page of hits with provider metadata. Satisfied by
// *enrich.Pipeline.
type Enricher interface {
	Enrich(ctx context.Context, hits []models.SearchHit) []models.SearchHit
}

// Session drives one logical query lifecycle: a submitted query, its filter
// changes, and all of its "load more" continuations. State transitions:
//
//	idle → searching → ready ⇄ loadingMore, error reachable from searching
//
// All mutation goes through SubmitQuery, SetFilters, and LoadMore. Network
// calls happen outside the lock; a generation counter guards the re-entry so
// a superseded response can never overwrite newer state.
type Session struct {
	id       string
	searcher Searcher
	enricher Enricher
	pageSize int

	mu         sync.Mutex
	state      models.SessionState
	query      string
	filters    map[string]string
	offset     int
	hasMore    bool
	hits       []models.SearchHit
	seen       map[int64]struct{}
	errMsg     string
	activeKey  string
	generation uint64
	lastUsed   time.Time
}

func New(searcher Searcher, enricher Enricher, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Session{
		searcher: searcher,
		enricher: enricher,
		pageSize: pageSize,
		state:    models.StateIdle,
		seen:     make(map[int64]struct{}),
		lastUsed: time.Now(),
	}
}

// ID returns the registry-assigned session id ("" for unregistered sessions).
func (s *Session) ID() string { return s.id }

// SubmitQuery starts a fresh query cycle: accumulated results are discarded,
// the offset resets to zero, and the first page is fetched and enriched.
// A call whose (query, offset 0, filters) signature matches the request
// already in flight is a no-op, so rapid duplicate submissions fire one
// network call.
func (s *Session) SubmitQuery(ctx context.Context, query string, filters map[string]string) error {
	if strings.TrimSpace(query) == "" {
		return search.ErrEmptyQuery
	}

	key := requestKey(query, 0, filters)

	s.mu.Lock()
	if s.activeKey == key {
		s.mu.Unlock()
		return nil
	}
	s.query = query
	s.filters = copyFilters(filters)
	s.offset = 0
	s.hasMore = true
	s.hits = nil
	s.seen = make(map[int64]struct{})
	s.errMsg = ""
	s.state = models.StateSearching
	s.activeKey = key
	s.generation++
	gen := s.generation
	s.lastUsed = time.Now()
	s.mu.Unlock()

	return s.fetchPage(ctx, gen, query, filters, 0, pageMode{brandNew: true})
}

// SetFilters re-runs the active query with a new filter set. The offset resets
// to zero and the fetched page replaces the accumulated results. A failure
// keeps the stale results rather than entering the error state.
func (s *Session) SetFilters(ctx context.Context, filters map[string]string) error {
	s.mu.Lock()
	if s.query == "" {
		s.mu.Unlock()
		return fmt.Errorf("no active query to filter")
	}
	query := s.query
	key := requestKey(query, 0, filters)
	if s.activeKey == key {
		s.mu.Unlock()
		return nil
	}
	s.filters = copyFilters(filters)
	s.offset = 0
	s.hasMore = true
	s.errMsg = ""
	s.state = models.StateSearching
	s.activeKey = key
	s.generation++
	gen := s.generation
	s.lastUsed = time.Now()
	s.mu.Unlock()

	return s.fetchPage(ctx, gen, query, filters, 0, pageMode{replace: true})
}

// LoadMore fetches the next page and appends it. It is a no-op unless the
// session is ready, more results are expected, and no load is in flight.
// A failed load keeps the existing results and returns to ready silently.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.state != models.StateReady || !s.hasMore || s.activeKey != "" {
		s.mu.Unlock()
		return nil
	}
	query := s.query
	filters := copyFilters(s.filters)
	offset := s.offset
	s.state = models.StateLoadingMore
	s.activeKey = requestKey(query, offset, filters)
	s.generation++
	gen := s.generation
	s.lastUsed = time.Now()
	s.mu.Unlock()

	return s.fetchPage(ctx, gen, query, filters, offset, pageMode{loadMore: true})
}

type pageMode struct {
	brandNew bool
	replace  bool
	loadMore bool
}

func (s *Session) fetchPage(ctx context.Context, gen uint64, query string, filters map[string]string, offset int, mode pageMode) error {
	page, err := s.searcher.Search(ctx, query, filters, offset, s.pageSize)

	var enriched []models.SearchHit
	if err == nil {
		enriched = s.enricher.Enrich(ctx, page.Hits)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		// Superseded while in flight; a newer cycle owns the state now.
		return nil
	}
	s.activeKey = ""
	s.lastUsed = time.Now()

	if err != nil {
		switch {
		case mode.brandNew:
			s.state = models.StateError
			s.errMsg = err.Error()
			s.hits = nil
			s.seen = make(map[int64]struct{})
			return err
		case mode.loadMore:
			// Out-of-results and transient failure look the same to the user.
			log.Printf("[session] load more failed for %q at offset %d: %v", query, offset, err)
			s.state = models.StateReady
			return nil
		default:
			log.Printf("[session] filter refresh failed for %q, keeping stale results: %v", query, err)
			s.state = models.StateReady
			return nil
		}
	}

	if mode.replace {
		s.hits = nil
		s.seen = make(map[int64]struct{})
	}
	for _, hit := range enriched {
		if _, dup := s.seen[hit.ID]; dup {
			continue
		}
		s.seen[hit.ID] = struct{}{}
		s.hits = append(s.hits, hit)
	}

	// hasMore is inferred from the page length matching the requested size.
	// A result set that ends exactly on a page boundary reports one extra
	// page; the follow-up load comes back empty and settles it.
	s.hasMore = len(page.Hits) == s.pageSize
	s.offset = offset + s.pageSize
	s.state = models.StateReady
	s.errMsg = ""
	return nil
}

// Snapshot returns a point-in-time copy of the session.
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	hits := make([]models.SearchHit, len(s.hits))
	copy(hits, s.hits)
	return models.SessionSnapshot{
		ID:      s.id,
		State:   s.state,
		Query:   s.query,
		Filters: copyFilters(s.filters),
		Offset:  s.offset,
		HasMore: s.hasMore,
		Hits:    hits,
		Error:   s.errMsg,
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// requestKey builds the duplicate-suppression signature for one search call.
func requestKey(query string, offset int, filters map[string]string) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(query)
	fmt.Fprintf(&b, "|%d", offset)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, filters[k])
	}
	return b.String()
}

func copyFilters(filters map[string]string) map[string]string {
	if len(filters) == 0 {
		return nil
	}
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		out[k] = v
	}
	return out
}
