package storage_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduportal/eduportal-search/internal/storage"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(storage.DriverName, ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var name string
	err := db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestApplyMigrations(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	require.NoError(t, storage.ApplyMigrations(ctx, db))

	version, err := storage.SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, storage.CurrentSchemaVersion, version)

	for _, table := range []string{"schema_version", "catalog_files", "opportunities", "kv_store"} {
		assert.True(t, tableExists(t, db, table), "table %s should exist", table)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	require.NoError(t, storage.ApplyMigrations(ctx, db))
	require.NoError(t, storage.ApplyMigrations(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(storage.AllMigrations), count, "one record per migration")
}

func TestRollbackMigration(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()
	require.NoError(t, storage.ApplyMigrations(ctx, db))

	require.NoError(t, storage.RollbackMigration(ctx, db))
	assert.False(t, tableExists(t, db, "kv_store"))
	assert.True(t, tableExists(t, db, "opportunities"))

	version, err := storage.SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	// Reapplying restores the rolled back step only
	require.NoError(t, storage.ApplyMigrations(ctx, db))
	assert.True(t, tableExists(t, db, "kv_store"))

	version, err = storage.SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, storage.CurrentSchemaVersion, version)
}

func TestRollbackFirstMigration(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()
	require.NoError(t, storage.ApplyMigrations(ctx, db))

	require.NoError(t, storage.RollbackMigration(ctx, db))
	require.NoError(t, storage.RollbackMigration(ctx, db))

	for _, table := range []string{"schema_version", "catalog_files", "opportunities"} {
		assert.False(t, tableExists(t, db, table), "table %s should be dropped", table)
	}
}
