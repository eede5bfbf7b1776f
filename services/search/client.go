package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"cinescout/models"
)

// ErrEmptyQuery is returned before any network call when the query is empty
// or whitespace. Callers are expected to validate first; this is the backstop.
var ErrEmptyQuery = errors.New("search query must not be empty")

// UpstreamError reports a non-2xx reply or malformed envelope from the search
// backend. Search calls are never retried; the error is surfaced as-is.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("search backend: %s (status %d)", e.Message, e.Status)
	}
	return "search backend: " + e.Message
}

// Page is the flattened view of one backend result page.
type Page struct {
	Hits  []models.SearchHit
	Total int
}

// filterClause is the backend's field/value-list filter shape.
type filterClause struct {
	Field string   `json:"field"`
	Value []string `json:"value"`
}

type searchRequest struct {
	Value   string         `json:"value"`
	Size    int            `json:"size,omitempty"`
	Offset  int            `json:"offset,omitempty"`
	Mode    string         `json:"mode,omitempty"`
	Filters []filterClause `json:"filters,omitempty"`
}

type autocompleteRequest struct {
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Size   int    `json:"size"`
	Offset int    `json:"offset,omitempty"`
}

// Client talks to the search/autocomplete backend. It owns the translation
// between the backend's paginated envelope and the flat Page shape the rest
// of the system consumes.
type Client struct {
	baseURL string
	mode    string
	httpc   *http.Client
}

func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		mode:    "default",
		httpc:   httpc,
	}
}

// Search issues one paginated search request. The query must be non-empty;
// filters are normalized into the backend's field/value-list shape.
func (c *Client) Search(ctx context.Context, query string, filters map[string]string, offset, size int) (Page, error) {
	if strings.TrimSpace(query) == "" {
		return Page{}, ErrEmptyQuery
	}

	req := searchRequest{
		Value:   query,
		Size:    size,
		Offset:  offset,
		Mode:    c.mode,
		Filters: normalizeFilters(filters),
	}

	var env struct {
		Content       []json.RawMessage `json:"content"`
		TotalElements int               `json:"totalElements"`
	}
	if err := c.post(ctx, "/v1/search", req, &env); err != nil {
		return Page{}, err
	}

	hits := make([]models.SearchHit, 0, len(env.Content))
	for _, raw := range env.Content {
		hit, err := decodeHit(raw)
		if err != nil {
			return Page{}, &UpstreamError{Message: fmt.Sprintf("malformed hit in envelope: %v", err)}
		}
		hits = append(hits, hit)
	}
	return Page{Hits: hits, Total: env.TotalElements}, nil
}

// Autocomplete fetches suggestion candidates for a field prefix.
func (c *Client) Autocomplete(ctx context.Context, field, value string, size int) ([]models.Suggestion, error) {
	req := autocompleteRequest{Field: field, Value: value, Size: size}
	var env struct {
		Content []models.Suggestion `json:"content"`
	}
	if err := c.post(ctx, "/v1/autocomplete", req, &env); err != nil {
		return nil, err
	}
	return env.Content, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Message: fmt.Sprintf("malformed envelope: %v", err)}
	}
	return nil
}

// decodeHit pulls id/title/relevance out of a raw hit object and leaves every
// other attribute in the open field map. Decoding into a map keeps the
// distinction between an absent tmdb_id and an explicit null.
func decodeHit(raw json.RawMessage) (models.SearchHit, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.SearchHit{}, err
	}

	var hit models.SearchHit
	id, ok := obj["id"].(float64)
	if !ok {
		return models.SearchHit{}, errors.New("missing numeric id")
	}
	hit.ID = int64(id)
	hit.Title, _ = obj["title"].(string)
	hit.Relevance, _ = obj["relevance"].(float64)

	delete(obj, "id")
	delete(obj, "title")
	delete(obj, "relevance")
	if len(obj) > 0 {
		hit.Fields = obj
	}
	return hit, nil
}

// normalizeFilters converts the flat filter map into the backend's clause
// list, sorted by field so identical filter sets serialize identically.
func normalizeFilters(filters map[string]string) []filterClause {
	if len(filters) == 0 {
		return nil
	}
	clauses := make([]filterClause, 0, len(filters))
	for field, value := range filters {
		if strings.TrimSpace(value) == "" {
			continue
		}
		clauses = append(clauses, filterClause{Field: field, Value: []string{value}})
	}
	sort.Slice(clauses, func(i, j int) bool { return clauses[i].Field < clauses[j].Field })
	return clauses
}
