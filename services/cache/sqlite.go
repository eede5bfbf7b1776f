package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cinescout/models"
)

// SQLiteStore persists cache entries in the metadata_cache table. Rows are
// keyed by the metadata's own tmdb id; the (query, year) binding is a unique
// index used for reads, so re-resolving a known record under a new query
// moves the binding instead of duplicating the row.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, normalizedQuery string, year int) (*models.CacheEntry, error) {
	var (
		payload   string
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM metadata_cache WHERE query = ? AND year = ?`,
		normalizedQuery, year,
	).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query metadata_cache: %w", err)
	}

	var rec models.MetadataRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode cached metadata: %w", err)
	}
	return &models.CacheEntry{
		NormalizedQuery: normalizedQuery,
		Year:            year,
		Metadata:        rec,
		UpdatedAt:       updatedAt,
	}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, entry models.CacheEntry) error {
	payload, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}
	defer tx.Rollback()

	// A different record may already hold this (query, year) slot; it loses
	// the binding to the newer resolution.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM metadata_cache WHERE query = ? AND year = ? AND tmdb_id <> ?`,
		entry.NormalizedQuery, entry.Year, entry.Metadata.ID,
	); err != nil {
		return fmt.Errorf("evict stale binding: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO metadata_cache (tmdb_id, query, year, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(tmdb_id) DO UPDATE SET
		   query = excluded.query,
		   year = excluded.year,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		entry.Metadata.ID, entry.NormalizedQuery, entry.Year, string(payload), entry.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert metadata_cache: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error { return nil }
