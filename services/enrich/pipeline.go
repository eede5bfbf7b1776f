package enrich

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"cinescout/models"
	"cinescout/services/metadata"
)

const defaultMaxParallel = 8

// Lookup resolves a title/year pair to a metadata record. Satisfied by
// *metadata.Service.
type Lookup interface {
	Lookup(ctx context.Context, title string, year int, mediaTypeHint string) (*models.MetadataRecord, error)
}

// Pipeline augments search hits with provider metadata. Lookups run
// concurrently and may complete in any order; the output preserves the input
// order and cardinality, and a single failed lookup never aborts the batch.
type Pipeline struct {
	lookup      Lookup
	maxParallel int
}

func New(lookup Lookup) *Pipeline {
	return &Pipeline{lookup: lookup, maxParallel: defaultMaxParallel}
}

// Enrich returns a new slice with the same ids in the same order as hits.
//
// Per-hit decision: an explicit null tmdb_id is the confirmed "no external
// entry" sentinel and passes through untouched. Everything else — field absent
// or a concrete id — goes through a title/year lookup. (A known id could be
// fetched directly; resolution still goes by title/year for now.)
// TODO: switch known-id hits to a direct /movie/{id} fetch once the search
// index backfill has settled.
func (p *Pipeline) Enrich(ctx context.Context, hits []models.SearchHit) []models.SearchHit {
	out := make([]models.SearchHit, len(hits))
	copy(out, hits)

	var (
		mu       sync.Mutex
		resolved = make(map[int]*models.MetadataRecord)
	)

	workers := pool.New().WithMaxGoroutines(p.maxParallel)
	for i := range out {
		if _, state := out[i].TMDBID(); state == models.TMDBIDConfirmedAbsent {
			continue
		}
		i := i
		hit := out[i]
		workers.Go(func() {
			rec, err := p.lookup.Lookup(ctx, hit.Title, hit.ReleasedYear(), hit.MediaType())
			if err != nil {
				if !errors.Is(err, metadata.ErrNotFound) {
					log.Printf("[enrich] lookup failed for hit %d (%q): %v", hit.ID, hit.Title, err)
				}
				return
			}
			mu.Lock()
			resolved[i] = rec
			mu.Unlock()
		})
	}
	workers.Wait()

	for i, rec := range resolved {
		hit := out[i]
		hit.Metadata = rec
		fields := make(map[string]any, len(hit.Fields)+1)
		for k, v := range hit.Fields {
			fields[k] = v
		}
		fields["tmdb_id"] = rec.ID
		hit.Fields = fields
		out[i] = hit
	}
	return out
}
