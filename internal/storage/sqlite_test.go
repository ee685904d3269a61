package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T, opts ...Option) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:", opts...)
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func intPtr(v int) *int { return &v }

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)

	version, err := SchemaVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestClose(t *testing.T) {
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	assert.NoError(t, storage.Close())
}

func TestUpsertOpportunity(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	posted := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	opp := &Opportunity{
		Category:    "scholarships",
		DedupKey:    "https://scholarships.gov.in",
		ExternalID:  "nsp",
		Name:        "National Scholarship Portal",
		Description: "Central scholarships",
		Source:      "Government of India",
		URL:         "https://scholarships.gov.in",
		DatePosted:  &posted,
		Priority:    intPtr(1),
		States:      []string{"All India"},
	}
	require.NoError(t, storage.UpsertOpportunity(ctx, opp))
	assert.Greater(t, opp.ID, int64(0))
	firstID := opp.ID

	// Same category and dedup key updates in place and keeps the row id
	updated := &Opportunity{
		Category: "scholarships",
		DedupKey: "https://scholarships.gov.in",
		Name:     "NSP",
		URL:      "https://scholarships.gov.in",
	}
	require.NoError(t, storage.UpsertOpportunity(ctx, updated))
	assert.Equal(t, firstID, updated.ID)

	opps, err := storage.ListOpportunities(ctx, "scholarships")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "NSP", opps[0].Name)
	assert.Nil(t, opps[0].Priority)
	assert.Nil(t, opps[0].DatePosted)
	assert.Empty(t, opps[0].States)

	// Same dedup key in another category is a separate row
	other := &Opportunity{Category: "workshops", DedupKey: "https://scholarships.gov.in", Name: "NSP workshop"}
	require.NoError(t, storage.UpsertOpportunity(ctx, other))
	assert.NotEqual(t, firstID, other.ID)
}

func TestOpportunityRoundTrip(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	posted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	opp := &Opportunity{
		Category:   "hackathons",
		DedupKey:   "Smart India Hackathon",
		Name:       "Smart India Hackathon",
		DatePosted: &posted,
		Priority:   intPtr(0),
		States:     []string{"Delhi", "Kerala"},
	}
	require.NoError(t, storage.UpsertOpportunity(ctx, opp))

	opps, err := storage.ListOpportunities(ctx, "hackathons")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	got := opps[0]
	require.NotNil(t, got.Priority)
	assert.Equal(t, 0, *got.Priority)
	require.NotNil(t, got.DatePosted)
	assert.True(t, posted.Equal(*got.DatePosted))
	assert.Equal(t, []string{"Delhi", "Kerala"}, got.States)
	assert.Nil(t, got.FileID)
}

func TestListOpportunitiesOrder(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	names := []string{"Gamma", "Alpha", "Beta"}
	for _, name := range names {
		require.NoError(t, storage.UpsertOpportunity(ctx, &Opportunity{
			Category: "workshops",
			DedupKey: name,
			Name:     name,
		}))
	}
	require.NoError(t, storage.UpsertOpportunity(ctx, &Opportunity{
		Category: "internships",
		DedupKey: "Delta",
		Name:     "Delta",
	}))

	opps, err := storage.ListOpportunities(ctx, "workshops")
	require.NoError(t, err)
	require.Len(t, opps, 3)
	for i, name := range names {
		assert.Equal(t, name, opps[i].Name)
	}

	all, err := storage.ListOpportunities(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	count, err := storage.CountOpportunities(ctx, "workshops")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	none, err := storage.ListOpportunities(ctx, "scholarships")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalogFiles(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	file := &CatalogFile{
		Path:        "catalog/scholarships.json",
		ContentHash: sha256.Sum256([]byte("v1")),
		ModTime:     time.Now(),
		SizeBytes:   2,
	}
	require.NoError(t, storage.UpsertCatalogFile(ctx, file))
	assert.Greater(t, file.ID, int64(0))
	firstID := file.ID

	got, err := storage.GetCatalogFile(ctx, "catalog/scholarships.json")
	require.NoError(t, err)
	assert.Equal(t, file.ContentHash, got.ContentHash)
	assert.Nil(t, got.ParseError)

	msg := "unexpected end of JSON input"
	file.ContentHash = sha256.Sum256([]byte("v2"))
	file.ParseError = &msg
	require.NoError(t, storage.UpsertCatalogFile(ctx, file))
	assert.Equal(t, firstID, file.ID)

	got, err = storage.GetCatalogFile(ctx, "catalog/scholarships.json")
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256([]byte("v2")), got.ContentHash)
	require.NotNil(t, got.ParseError)
	assert.Equal(t, msg, *got.ParseError)

	_, err = storage.GetCatalogFile(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	files, err := storage.ListCatalogFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDeleteOpportunitiesByFile(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	file := &CatalogFile{Path: "a.json", ContentHash: sha256.Sum256([]byte("a"))}
	require.NoError(t, storage.UpsertCatalogFile(ctx, file))

	for i := 0; i < 3; i++ {
		require.NoError(t, storage.UpsertOpportunity(ctx, &Opportunity{
			FileID:   &file.ID,
			Category: "internships",
			DedupKey: fmt.Sprintf("intern-%d", i),
			Name:     fmt.Sprintf("Intern %d", i),
		}))
	}
	require.NoError(t, storage.UpsertOpportunity(ctx, &Opportunity{
		Category: "internships",
		DedupKey: "unowned",
		Name:     "Unowned",
	}))

	require.NoError(t, storage.DeleteOpportunitiesByFile(ctx, file.ID))

	count, err := storage.CountOpportunities(ctx, "internships")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestKeyValue(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	_, err := storage.GetValue(ctx, "eduportal.searchHistory")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, storage.SetValue(ctx, "eduportal.searchHistory", `[]`))
	require.NoError(t, storage.SetValue(ctx, "eduportal.searchHistory", `[{"type":"search"}]`))

	value, err := storage.GetValue(ctx, "eduportal.searchHistory")
	require.NoError(t, err)
	assert.Equal(t, `[{"type":"search"}]`, value)

	require.NoError(t, storage.DeleteValue(ctx, "eduportal.searchHistory"))
	_, err = storage.GetValue(ctx, "eduportal.searchHistory")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetValueQuota(t *testing.T) {
	storage := setupTestDB(t, WithQuota(100))
	ctx := context.Background()

	require.NoError(t, storage.SetValue(ctx, "a", strings.Repeat("x", 60)))

	err := storage.SetValue(ctx, "b", strings.Repeat("y", 50))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	// Overwriting a key only counts its new size
	require.NoError(t, storage.SetValue(ctx, "a", strings.Repeat("x", 90)))

	// Freeing space allows the write
	require.NoError(t, storage.SetValue(ctx, "a", "x"))
	require.NoError(t, storage.SetValue(ctx, "b", strings.Repeat("y", 50)))
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t, WithQuota(1024))
	ctx := context.Background()

	file := &CatalogFile{Path: "w.json", ContentHash: sha256.Sum256([]byte("w"))}
	require.NoError(t, storage.UpsertCatalogFile(ctx, file))
	for _, name := range []string{"One", "Two"} {
		require.NoError(t, storage.UpsertOpportunity(ctx, &Opportunity{
			FileID: &file.ID, Category: "workshops", DedupKey: name, Name: name,
		}))
	}
	require.NoError(t, storage.UpsertOpportunity(ctx, &Opportunity{
		Category: "hackathons", DedupKey: "Hack", Name: "Hack",
	}))
	require.NoError(t, storage.SetValue(ctx, "k", "12345"))

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.FilesCount)
	assert.Equal(t, 2, status.OpportunityCounts["workshops"])
	assert.Equal(t, 1, status.OpportunityCounts["hackathons"])
	assert.Equal(t, 3, status.Total())
	assert.Equal(t, 1, status.StateKeys)
	assert.Equal(t, int64(5), status.StateBytes)
	assert.Equal(t, int64(1024), status.QuotaBytes)
	assert.Greater(t, status.DatabaseSizeMB, 0.0)
}

func TestGetStatusLastImportedAt(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.LastImportedAt.IsZero(), "no files imported yet")

	before := time.Now().Add(-time.Second)
	file := &CatalogFile{
		Path:        "scholarships.json",
		ContentHash: sha256.Sum256([]byte("s")),
		ModTime:     time.Now(),
	}
	require.NoError(t, storage.UpsertCatalogFile(ctx, file))

	status, err = storage.GetStatus(ctx)
	require.NoError(t, err)
	require.False(t, status.LastImportedAt.IsZero(), "last import time must survive the round trip")
	assert.True(t, status.LastImportedAt.After(before))
	assert.WithinDuration(t, file.LastImportedAt, status.LastImportedAt, time.Second)

	stored, err := storage.GetCatalogFile(ctx, "scholarships.json")
	require.NoError(t, err)
	assert.WithinDuration(t, file.ModTime, stored.ModTime, time.Second)
}

func TestParseTimestamp(t *testing.T) {
	tests := []string{
		"2026-10-17 06:21:59.76361272 +0000 UTC",
		"2026-10-17 06:21:59.76361272 +0000 UTC m=+0.011293825",
		"2026-10-17T06:21:59.76361272Z",
		"2026-10-17 06:21:59",
	}
	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			got, err := parseTimestamp(v)
			require.NoError(t, err)
			assert.Equal(t, 2026, got.Year())
			assert.Equal(t, 21, got.Minute())
		})
	}

	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestTransaction(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.UpsertOpportunity(ctx, &Opportunity{
			Category: "workshops", DedupKey: "committed", Name: "Committed",
		}))
		require.NoError(t, tx.Commit())

		count, err := storage.CountOpportunities(ctx, "workshops")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("rollback", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.UpsertOpportunity(ctx, &Opportunity{
			Category: "workshops", DedupKey: "rolled-back", Name: "Rolled back",
		}))
		require.NoError(t, tx.Rollback())

		count, err := storage.CountOpportunities(ctx, "workshops")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("nested", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
		assert.Error(t, tx.Close())
	})
}
