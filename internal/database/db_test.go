package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bozorlik.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"active_lists", "user_languages", "user_history", "shared_lists", "execution_metrics"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestRollbackMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bozorlik.db")
	require.NoError(t, RunMigrations(path))

	require.NoError(t, RollbackMigrations(path, 1))

	version, _, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
