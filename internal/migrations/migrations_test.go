package migrations

import (
	"context"
	"testing"
	"testing/fstest"

	"fluxao-backend-go/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Apply(ctx, database))
	require.NoError(t, Apply(ctx, database))

	var versions []string
	require.NoError(t, database.Select(&versions, `SELECT version FROM schema_migrations ORDER BY version`))
	assert.Equal(t, []string{"1", "2"}, versions)

	pending, err := Pending(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM alerts`))
	assert.Zero(t, count)
}

func TestApplyFS_OrdersByVersion(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer database.Close()

	fsys := fstest.MapFS{
		"V10__add_column.sql": {Data: []byte(`ALTER TABLE things ADD COLUMN label TEXT`)},
		"V2__things.sql":      {Data: []byte(`CREATE TABLE things (id TEXT PRIMARY KEY)`)},
		"README.md":           {Data: []byte(`ignored`)},
	}
	require.NoError(t, ApplyFS(ctx, database, fsys))

	_, err = database.Exec(`INSERT INTO things (id, label) VALUES ('a', 'b')`)
	require.NoError(t, err)
}

func TestApplyFS_FailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer database.Close()

	fsys := fstest.MapFS{"V1__broken.sql": {Data: []byte(`CREATE TABLE (`)}}
	require.Error(t, ApplyFS(ctx, database, fsys))

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Zero(t, count)
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "12", parseVersion("V12__init.sql"))
	assert.Equal(t, "", parseVersion("init.sql"))
	assert.Equal(t, "", parseVersion("V3.sql"))
	_, ok := parseVersionNumber("Vx__y.sql")
	assert.False(t, ok)
}
