package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	store, err := LoadFrom(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, store.Path())

	cfg := store.Config
	assert.Equal(t, "http://localhost:8000", cfg.API.DefaultURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.UI.RefreshInterval)
	assert.Equal(t, 3*time.Second, cfg.UI.NotificationDuration)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "sub", "acct-console.db"), cfg.Storage.Path)
	assert.NotEmpty(t, cfg.UI.Timezone)
}

func TestLoadFromReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api:
  default_url: http://api.example:9000
  timeout: 5s
ui:
  refresh_interval: 1m
  timezone: Europe/Berlin
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.example:9000", store.Config.API.DefaultURL)
	assert.Equal(t, 5*time.Second, store.Config.API.Timeout)
	assert.Equal(t, time.Minute, store.Config.UI.RefreshInterval)
	assert.Equal(t, 3*time.Second, store.Config.UI.NotificationDuration)
	assert.Equal(t, "debug", store.Config.Log.Level)
	assert.Equal(t, "Europe/Berlin", store.Location().String())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("ACCT_CONSOLE_API_DEFAULT_URL", "http://from-env:1234")
	t.Setenv("ACCT_CONSOLE_UI_REFRESH_INTERVAL", "10s")

	store, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:1234", store.Config.API.DefaultURL)
	assert.Equal(t, 10*time.Second, store.Config.UI.RefreshInterval)
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := LoadFrom(path)
	require.NoError(t, err)

	store.Config.UI.Timezone = "Asia/Tokyo"
	store.Config.API.Timeout = 42 * time.Second
	require.NoError(t, store.Save())

	reloaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", reloaded.Config.UI.Timezone)
	assert.Equal(t, 42*time.Second, reloaded.Config.API.Timeout)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	var nilStore *Store
	assert.Equal(t, time.UTC, nilStore.Location())

	store := &Store{Config: Data{UI: UIConfig{Timezone: "Not/AZone"}}}
	assert.Equal(t, time.UTC, store.Location())
}

func TestSaveNilStore(t *testing.T) {
	var store *Store
	assert.Error(t, store.Save())
}
