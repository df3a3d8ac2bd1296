package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	dbPath := filepath.Join(dir, "board.db")
	configPath := filepath.Join(dir, "treehole.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database:\n  type: sqlite3\n  database: "+dbPath+"\nlog:\n  level: error\n"), 0o600))

	root := newRootCommand()
	root.SetArgs([]string{"migrate", "--config", configPath})
	require.NoError(t, root.Execute())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestMissingConfigFails(t *testing.T) {
	t.Chdir(t.TempDir())

	root := newRootCommand()
	root.SetArgs([]string{"migrate", "--config", "nope.yaml"})
	assert.Error(t, root.Execute())
}
