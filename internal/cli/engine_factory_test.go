package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMigration(t *testing.T) {
	// Helper to create a temp dir with specific files
	createDir := func(t *testing.T, files []string) string {
		dir := t.TempDir()
		for _, f := range files {
			err := os.WriteFile(filepath.Join(dir, f), []byte("content"), 0644)
			require.NoError(t, err)
		}
		return dir
	}

	t.Run("File is used as is", func(t *testing.T) {
		dir := createDir(t, []string{"people.yaml"})
		got, err := resolveMigration(filepath.Join(dir, "people.yaml"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "people.yaml"), got)
	})

	t.Run("Default to migration.yaml", func(t *testing.T) {
		dir := createDir(t, []string{"migration.yaml", "migration.json"})
		got, err := resolveMigration(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "migration.yaml"), got)
	})

	t.Run("Fallback to migration.json", func(t *testing.T) {
		dir := createDir(t, []string{"migration.json", "other.yaml"})
		got, err := resolveMigration(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "migration.json"), got)
	})

	t.Run("Fallback to DirectoryName", func(t *testing.T) {
		tmpRoot := t.TempDir()
		moduleDir := filepath.Join(tmpRoot, "billing")
		require.NoError(t, os.Mkdir(moduleDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(moduleDir, "billing.yml"), []byte("content"), 0644))

		got, err := resolveMigration(moduleDir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(moduleDir, "billing.yml"), got)
	})

	t.Run("Error if nothing matches", func(t *testing.T) {
		dir := createDir(t, []string{"other.md"})
		_, err := resolveMigration(dir)
		assert.Error(t, err)
	})

	t.Run("Error if missing", func(t *testing.T) {
		_, err := resolveMigration(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
