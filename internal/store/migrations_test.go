package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MigratesV1Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.db")

	old, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = old.Exec(`
		CREATE TABLE positions (post_id TEXT PRIMARY KEY, fragment TEXT NOT NULL, updated_at DATETIME NOT NULL);
		CREATE TABLE sessions (id TEXT PRIMARY KEY, post_id TEXT NOT NULL, started_at DATETIME NOT NULL);
	`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, columnExists(s.db, "sessions", "ended_at"))
	assert.True(t, columnExists(s.db, "sessions", "fragment"))
	v, err := SchemaVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)

	id, err := s.StartSession("intro")
	require.NoError(t, err)
	require.NoError(t, s.EndSession(id, "slide-2"))
}

func TestRunMigrations_Idempotent(t *testing.T) {
	s := openTemp(t)

	n, err := RunMigrations(s.db)
	require.NoError(t, err)
	assert.Zero(t, n, "a fresh schema needs no column migrations")
	assert.False(t, tableExists(s.db, "knowledge_atoms"))
	assert.True(t, tableExists(s.db, "positions"))
}
