package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<RestockMapEditor>")
	assert.Contains(t, string(data), "<MaxSessions>10</MaxSessions>")

	assert.Equal(t, filepath.Join(dir, "data", "maps.duckdb"), cfg.Storage.DuckDBPath)
	assert.Equal(t, filepath.Join(dir, "data", "exports"), cfg.Storage.ExportsDirectory)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 50*time.Millisecond, cfg.AnimationInterval())
}

func TestLoadConfig_ReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	xmlData := `<?xml version="1.0" encoding="UTF-8"?>
<RestockMapEditor>
  <Server><Port>9000</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Storage><DuckDBPath>/var/lib/maps.duckdb</DuckDBPath></Storage>
  <Editor><MaxCanvasPixels>800</MaxCanvasPixels><NameFallback>true</NameFallback></Editor>
</RestockMapEditor>`
	require.NoError(t, os.WriteFile(path, []byte(xmlData), 0644))

	t.Setenv("PORT", "9100")
	t.Setenv("DATA_DIR", "/srv/data")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.GetServerAddr())
	assert.Equal(t, "/srv/data", cfg.GetDataDir())
	assert.Equal(t, "/var/lib/maps.duckdb", cfg.Storage.DuckDBPath)
	assert.Equal(t, 800, cfg.Editor.MaxCanvasPixels)
	assert.True(t, cfg.Editor.NameFallback)
	// Unset elements keep their defaults.
	assert.Equal(t, 10, cfg.Editor.MaxSessions)
	assert.Equal(t, filepath.Join(dir, "data", "exports"), cfg.Storage.ExportsDirectory)
}

func TestLoadConfig_InvalidXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	require.NoError(t, os.WriteFile(path, []byte("<RestockMapEditor><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, filepath.Join(dir, "data", "exports"))
}
