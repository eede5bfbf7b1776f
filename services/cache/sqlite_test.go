package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cinescout/internal/database"
	"cinescout/models"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDB(database.Config{DatabasePath: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db.Connection())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	entry := models.CacheEntry{
		NormalizedQuery: "blade runner",
		Year:            1982,
		Metadata: models.MetadataRecord{
			ID:          78,
			Title:       "Blade Runner",
			PosterPath:  "/poster.jpg",
			MediaType:   "movie",
			ReleaseDate: "1982-06-25",
			VoteAverage: 7.9,
			VoteCount:   14000,
			Overview:    "A blade runner must pursue replicants.",
			GenreIDs:    []int64{878, 18},
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Put(ctx, entry))

	got, err := s.Get(ctx, "blade runner", 1982)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, entry.Metadata, got.Metadata)
	require.WithinDuration(t, entry.UpdatedAt, got.UpdatedAt, time.Second)

	miss, err := s.Get(ctx, "blade runner", 2049)
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestSQLiteStoreUpsertByID(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	rec := models.MetadataRecord{ID: 603, Title: "The Matrix"}
	require.NoError(t, s.Put(ctx, models.CacheEntry{
		NormalizedQuery: "matrix", Metadata: rec, UpdatedAt: time.Now(),
	}))
	require.NoError(t, s.Put(ctx, models.CacheEntry{
		NormalizedQuery: "the matrix", Year: 1999, Metadata: rec, UpdatedAt: time.Now(),
	}))

	// The id is the row key, so the old binding is gone.
	old, err := s.Get(ctx, "matrix", 0)
	require.NoError(t, err)
	require.Nil(t, old)

	cur, err := s.Get(ctx, "the matrix", 1999)
	require.NoError(t, err)
	require.NotNil(t, cur)
	require.EqualValues(t, 603, cur.Metadata.ID)
}

func TestSQLiteStoreEvictsCompetingBinding(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	// Two different records fight over the same (query, year) slot; the
	// later resolution wins.
	require.NoError(t, s.Put(ctx, models.CacheEntry{
		NormalizedQuery: "dune", Year: 0,
		Metadata:  models.MetadataRecord{ID: 841, Title: "Dune (1984)"},
		UpdatedAt: time.Now(),
	}))
	require.NoError(t, s.Put(ctx, models.CacheEntry{
		NormalizedQuery: "dune", Year: 0,
		Metadata:  models.MetadataRecord{ID: 438631, Title: "Dune"},
		UpdatedAt: time.Now(),
	}))

	got, err := s.Get(ctx, "dune", 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.EqualValues(t, 438631, got.Metadata.ID)
}
