package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"cinescout/models"
	"cinescout/services/cache"
)

// ErrNotFound means the provider answered but had no match for the title.
// It is a legitimate absent result, not a failure.
var ErrNotFound = errors.New("no metadata match")

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 250 * time.Millisecond
)

// Options tunes the lookup service. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	MaxAttempts uint
	BaseDelay   time.Duration
}

// Service resolves title/year pairs to metadata records, cache-aside against
// the result cache. Network-class failures and 5xx replies are retried with
// exponential backoff; 4xx replies are terminal.
type Service struct {
	provider    *providerClient
	cache       *cache.Cache
	maxAttempts uint
	baseDelay   time.Duration
}

func NewService(apiKey string, resultCache *cache.Cache, opts Options) *Service {
	if resultCache == nil {
		resultCache = cache.New(nil, 0)
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	return &Service{
		provider:    newProviderClient(apiKey, opts.BaseURL, opts.HTTPClient),
		cache:       resultCache,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
	}
}

// Lookup resolves metadata for a title. Outcomes:
//
//	(rec, nil)          — match found (possibly from cache)
//	(nil, ErrNotFound)  — provider had no match, or the title was empty
//	(nil, err)          — terminal upstream failure or exhausted retries
//
// Callers treat every non-nil error the same way ("no metadata available");
// the distinction exists for logging and tests.
func (s *Service) Lookup(ctx context.Context, title string, year int, mediaTypeHint string) (*models.MetadataRecord, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrNotFound
	}

	if rec, ok := s.cache.Get(ctx, title, year); ok {
		return rec, nil
	}

	var results []models.MetadataRecord
	err := retry.Do(
		func() error {
			rs, err := s.provider.searchTitle(ctx, title, year, mediaTypeHint)
			if err != nil {
				var ue *upstreamError
				if errors.As(err, &ue) && !ue.retryable() {
					return retry.Unrecoverable(err)
				}
				return err
			}
			results = rs
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.maxAttempts),
		retry.Delay(s.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", title, err)
	}

	if len(results) == 0 {
		return nil, ErrNotFound
	}

	rec := results[0]
	s.cache.Put(ctx, title, year, rec)
	log.Printf("[metadata] resolved %q (year=%d hint=%q) to id %d", title, year, mediaTypeHint, rec.ID)
	return &rec, nil
}
