package models

import (
	"encoding/json"
	"math"
)

// TMDBIDState classifies the tmdb_id attribute of a search hit. The search
// index stores it as an open field, so three cases exist: the field was never
// resolved (absent), a previous resolution confirmed no external entry exists
// (explicit null), or a concrete id is known.
type TMDBIDState int

const (
	TMDBIDUnknown         TMDBIDState = iota // field absent, needs resolution
	TMDBIDConfirmedAbsent                    // explicit null, no external entry
	TMDBIDKnown                              // concrete id present
)

// SearchHit is one result record returned by the search backend. Fields holds
// the open attribute map from the index (director, country, plot,
// released_year, media_type, tmdb_id, ...). Identity is ID. Hits are not
// mutated after the search client returns them; enrichment works on copies.
type SearchHit struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Relevance float64         `json:"relevance"`
	Fields    map[string]any  `json:"fields,omitempty"`
	Metadata  *MetadataRecord `json:"metadata,omitempty"`
}

// TMDBID reports the hit's external id and its tri-state classification.
func (h SearchHit) TMDBID() (int64, TMDBIDState) {
	raw, ok := h.Fields["tmdb_id"]
	if !ok {
		return 0, TMDBIDUnknown
	}
	if raw == nil {
		return 0, TMDBIDConfirmedAbsent
	}
	if id, ok := numericField(raw); ok {
		return id, TMDBIDKnown
	}
	return 0, TMDBIDUnknown
}

// ReleasedYear returns the released_year field, or 0 when absent or malformed.
func (h SearchHit) ReleasedYear() int {
	if v, ok := numericField(h.Fields["released_year"]); ok {
		return int(v)
	}
	return 0
}

// MediaType returns the media_type field ("movie", "tv", ...), or "".
func (h SearchHit) MediaType() string {
	if s, ok := h.Fields["media_type"].(string); ok {
		return s
	}
	return ""
}

// StringField returns an arbitrary string attribute from the open field map.
func (h SearchHit) StringField(name string) string {
	if s, ok := h.Fields[name].(string); ok {
		return s
	}
	return ""
}

// numericField converts the loosely typed values JSON decoding produces for
// numbers into an int64. Fractional values are not valid ids or years.
func numericField(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Suggestion is one autocomplete candidate from the search backend.
type Suggestion struct {
	Value        string `json:"value"`
	MediaType    string `json:"media_type,omitempty"`
	ReleasedYear int    `json:"released_year,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}
