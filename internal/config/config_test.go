package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotEmpty(t, cfg.APIBaseURL)
	assert.NotEmpty(t, cfg.PushURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, time.Second, cfg.GraceDelay())
	assert.Equal(t, 300*time.Millisecond, cfg.FadeDelay())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apiBaseUrl: https://groups.example
pushUrl: wss://groups.example/ws
graceDelayMs: 1500
logLevel: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://groups.example", cfg.APIBaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.GraceDelay())
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, 250, cfg.PollIntervalMS)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestCatalogURL_FallsBackToAPI(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.APIBaseURL, cfg.CatalogURL())

	cfg.CatalogBaseURL = "https://catalog.example"
	assert.Equal(t, "https://catalog.example", cfg.CatalogURL())
}

func TestExpandedDataDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "~/.favsync"

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".favsync"), cfg.ExpandedDataDir())

	cfg.DataDir = "/var/lib/favsync"
	assert.Equal(t, "/var/lib/favsync", cfg.ExpandedDataDir())
}
