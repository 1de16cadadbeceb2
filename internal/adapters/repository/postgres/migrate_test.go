package postgres

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_create_poll_results.up.sql",
		"000001_create_polls.down.sql",
		"000001_create_polls.up.sql",
		"000002_create_poll_results.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}

	up, err := MigrationFiles(dir, "up")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_polls.up.sql", "000002_create_poll_results.up.sql"}, up)

	down, err := MigrationFiles(dir, "down")
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_create_poll_results.down.sql", "000001_create_polls.down.sql"}, down)

	one, err := MigrationFiles(dir, "create_polls.up")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_polls.up.sql"}, one)

	_, err = MigrationFiles(dir, "create_users.up")
	assert.Error(t, err)

	_, err = MigrationFiles(filepath.Join(dir, "missing"), "up")
	assert.Error(t, err)
}

func TestMigrationFilesShippedInOrder(t *testing.T) {
	up, err := MigrationFiles("migrations", "up")
	require.NoError(t, err)
	require.NotEmpty(t, up)
	assert.IsNonDecreasing(t, up)
}
