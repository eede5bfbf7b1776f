package models

import "time"

// MetadataRecord holds the external provider metadata for one movie or show.
// Movies populate Title/ReleaseDate, series populate Name/FirstAirDate; the
// shape is identical whether it came from the provider or from the cache.
type MetadataRecord struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	MediaType    string  `json:"media_type,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	VoteCount    int64   `json:"vote_count,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	GenreIDs     []int64 `json:"genre_ids,omitempty"`
}

// DisplayTitle returns the movie title or series name, whichever is set.
func (m MetadataRecord) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// CacheEntry binds a metadata record to the normalized search key it was
// resolved from. An entry older than the configured TTL is treated as absent.
type CacheEntry struct {
	NormalizedQuery string         `json:"normalized_query"`
	Year            int            `json:"year,omitempty"`
	Metadata        MetadataRecord `json:"metadata"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
