package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cinescout/models"
	"cinescout/services/metadata"
)

// fakeLookup records calls by title and serves canned results.
type fakeLookup struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]*models.MetadataRecord
	errs    map[string]error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		calls:   make(map[string]int),
		results: make(map[string]*models.MetadataRecord),
		errs:    make(map[string]error),
	}
}

func (f *fakeLookup) Lookup(_ context.Context, title string, _ int, _ string) (*models.MetadataRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[title]++
	if err, ok := f.errs[title]; ok {
		return nil, err
	}
	if rec, ok := f.results[title]; ok {
		return rec, nil
	}
	return nil, metadata.ErrNotFound
}

func (f *fakeLookup) callCount(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[title]
}

func hit(id int64, title string, fields map[string]any) models.SearchHit {
	return models.SearchHit{ID: id, Title: title, Fields: fields}
}

func TestEnrichPreservesOrderAndCardinality(t *testing.T) {
	lookup := newFakeLookup()
	lookup.results["B"] = &models.MetadataRecord{ID: 200, Title: "B"}
	p := New(lookup)

	hits := []models.SearchHit{
		hit(5, "A", nil),
		hit(3, "B", nil),
		hit(9, "C", map[string]any{"tmdb_id": nil}),
		hit(1, "D", nil),
	}
	out := p.Enrich(context.Background(), hits)

	if len(out) != len(hits) {
		t.Fatalf("cardinality changed: %d -> %d", len(hits), len(out))
	}
	for i := range hits {
		if out[i].ID != hits[i].ID {
			t.Fatalf("order changed at %d: %d != %d", i, out[i].ID, hits[i].ID)
		}
	}
}

func TestEnrichSkipsConfirmedAbsent(t *testing.T) {
	lookup := newFakeLookup()
	p := New(lookup)

	out := p.Enrich(context.Background(), []models.SearchHit{
		hit(1, "Obscure Short", map[string]any{"tmdb_id": nil}),
	})
	if lookup.callCount("Obscure Short") != 0 {
		t.Fatal("explicit null tmdb_id must skip the lookup")
	}
	if out[0].Metadata != nil {
		t.Fatal("skipped hit must pass through unenriched")
	}
	if _, state := out[0].TMDBID(); state != models.TMDBIDConfirmedAbsent {
		t.Fatal("null sentinel must survive enrichment")
	}
}

func TestEnrichLooksUpAbsentExactlyOnce(t *testing.T) {
	lookup := newFakeLookup()
	lookup.results["The Matrix"] = &models.MetadataRecord{ID: 603, Title: "The Matrix"}
	p := New(lookup)

	out := p.Enrich(context.Background(), []models.SearchHit{
		hit(1, "The Matrix", map[string]any{"released_year": float64(1999), "media_type": "movie"}),
	})
	if lookup.callCount("The Matrix") != 1 {
		t.Fatalf("expected exactly one lookup, got %d", lookup.callCount("The Matrix"))
	}
	if out[0].Metadata == nil || out[0].Metadata.ID != 603 {
		t.Fatalf("expected enriched metadata, got %+v", out[0].Metadata)
	}
	if id, state := out[0].TMDBID(); state != models.TMDBIDKnown || id != 603 {
		t.Fatal("resolved id must be written back into the field map")
	}
}

func TestEnrichKnownIDStillLooksUpByTitle(t *testing.T) {
	lookup := newFakeLookup()
	lookup.results["Heat"] = &models.MetadataRecord{ID: 949, Title: "Heat"}
	p := New(lookup)

	out := p.Enrich(context.Background(), []models.SearchHit{
		hit(1, "Heat", map[string]any{"tmdb_id": float64(949)}),
	})
	if lookup.callCount("Heat") != 1 {
		t.Fatalf("known-id hit still resolves by title/year, got %d calls", lookup.callCount("Heat"))
	}
	if out[0].Metadata == nil {
		t.Fatal("expected enrichment for known-id hit")
	}
}

func TestEnrichIsolatesFailures(t *testing.T) {
	lookup := newFakeLookup()
	lookup.results["Good"] = &models.MetadataRecord{ID: 1, Title: "Good"}
	lookup.errs["Bad"] = errors.New("provider down")
	p := New(lookup)

	out := p.Enrich(context.Background(), []models.SearchHit{
		hit(1, "Bad", nil),
		hit(2, "Good", nil),
		hit(3, "Missing", nil),
	})

	if out[0].Metadata != nil {
		t.Fatal("failed lookup must default to the unenriched hit")
	}
	if out[1].Metadata == nil || out[1].Metadata.ID != 1 {
		t.Fatal("one failed lookup must not affect the rest of the batch")
	}
	if out[2].Metadata != nil {
		t.Fatal("not-found lookup must default to the unenriched hit")
	}
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	lookup := newFakeLookup()
	lookup.results["The Matrix"] = &models.MetadataRecord{ID: 603}
	p := New(lookup)

	in := []models.SearchHit{hit(1, "The Matrix", map[string]any{"released_year": float64(1999)})}
	_ = p.Enrich(context.Background(), in)

	if _, ok := in[0].Fields["tmdb_id"]; ok {
		t.Fatal("enrichment must not mutate the caller's hits")
	}
	if in[0].Metadata != nil {
		t.Fatal("enrichment must not mutate the caller's hits")
	}
}
