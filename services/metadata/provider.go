package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cinescout/models"
)

const defaultProviderBaseURL = "https://api.themoviedb.org/3"

// upstreamError reports a non-2xx reply from the metadata provider. Client
// errors (4xx) are terminal: retrying an unauthorized or rate-limited request
// with the same inputs cannot succeed within the backoff window.
type upstreamError struct {
	status int
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("metadata provider returned %d", e.status)
}

func (e *upstreamError) retryable() bool { return e.status >= 500 }

// providerClient is a minimal client for the metadata provider's title search
// endpoints (movie, tv, combined).
type providerClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

func newProviderClient(apiKey, baseURL string, httpc *http.Client) *providerClient {
	if baseURL == "" {
		baseURL = defaultProviderBaseURL
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &providerClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
	}
}

// searchTitle returns ranked candidates for a title. A media type hint narrows
// the call to the movie or tv endpoint; without one the combined search is
// used. An empty result list means the provider has no match.
func (c *providerClient) searchTitle(ctx context.Context, title string, year int, mediaTypeHint string) ([]models.MetadataRecord, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("query", title)

	var path string
	switch mediaTypeHint {
	case "movie":
		path = "/search/movie"
		if year > 0 {
			q.Set("year", strconv.Itoa(year))
		}
	case "tv":
		path = "/search/tv"
		if year > 0 {
			q.Set("first_air_date_year", strconv.Itoa(year))
		}
	default:
		path = "/search/multi"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &upstreamError{status: resp.StatusCode}
	}

	var envelope struct {
		Results []models.MetadataRecord `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode metadata response: %w", err)
	}

	results := envelope.Results
	// The narrowed endpoints omit media_type; backfill it from the hint so
	// cached records carry it either way.
	if mediaTypeHint == "movie" || mediaTypeHint == "tv" {
		for i := range results {
			if results[i].MediaType == "" {
				results[i].MediaType = mediaTypeHint
			}
		}
	}
	return results, nil
}
