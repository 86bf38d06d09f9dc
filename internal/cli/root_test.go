package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the favsync command tree against a throwaway data dir
// and returns combined output. The config flag points at a missing file
// so tests never pick up a developer's real config.
func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand("test")
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	full := append([]string{
		"--config", filepath.Join(dataDir, "config.yaml"),
		"--data-dir", dataDir,
	}, args...)
	cmd.SetArgs(full)

	err := cmd.Execute()
	return buf.String(), err
}

func TestListCommand_Empty(t *testing.T) {
	out, err := execute(t, t.TempDir(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no favorites")
}

func TestAddThenListCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "add", "grp-tampa-js")
	require.NoError(t, err)
	assert.Contains(t, out, "favorited grp-tampa-js")

	// Favorites survive across invocations through the shared database.
	out, err = execute(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "grp-tampa-js")
}

func TestRemoveCommand(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "add", "grp-1")
	require.NoError(t, err)

	out, err := execute(t, dir, "remove", "grp-1")
	require.NoError(t, err)
	assert.Contains(t, out, "removed grp-1")

	out, err = execute(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no favorites")
}

func TestToggleCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "toggle", "grp-1")
	require.NoError(t, err)
	assert.Contains(t, out, "favorited grp-1")

	out, err = execute(t, dir, "toggle", "grp-1")
	require.NoError(t, err)
	assert.Contains(t, out, "removed grp-1")
}

func TestClearCommand_RequiresConfirmation(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "add", "grp-1")
	require.NoError(t, err)

	_, err = execute(t, dir, "clear")
	assert.Error(t, err)

	out, err := execute(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "grp-1")

	out, err = execute(t, dir, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")

	out, err = execute(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no favorites")
}

func TestStatusCommand_NeverSynced(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "add", "grp-1")
	require.NoError(t, err)

	out, err := execute(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "favorites: 1")
	assert.Contains(t, out, "synced for: (never)")
	assert.Contains(t, out, "storage: persistent")
}

func TestAddCommand_RequiresArgument(t *testing.T) {
	_, err := execute(t, t.TempDir(), "add")
	assert.Error(t, err)
}
