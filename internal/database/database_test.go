package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sentinel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenAndMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))

	version, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM missions`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))

	version, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestSchemaConstraints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	_, err := db.Conn().Exec(`
		INSERT INTO missions (id, prompt, current_prompt, progress, created_at, updated_at)
		VALUES ('m1', 'p', 'p', 150, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	assert.Error(t, err, "progress above 100 must violate the check constraint")
}
