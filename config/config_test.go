// ABOUTME: Tests for configuration loading, saving and environment overrides
// ABOUTME: Uses temp directories for the config file and .env
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DEALFLOW_API_URL",
	"DEALFLOW_TOKEN",
	"DEALFLOW_DB_PATH",
	"DEALFLOW_CACHE_DIR",
	"DEALFLOW_ADDR",
	"DEALFLOW_LOG_LEVEL",
	"DEALFLOW_PERSIST_SCHEDULE_ORDER",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	assert.True(t, strings.HasPrefix(path, filepath.Join(xdg.ConfigHome, "dealflow")))
	assert.Equal(t, "config.json", filepath.Base(path))
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(dir, "config.json"), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Token)
	assert.False(t, cfg.PersistScheduleOrder)
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	original := &Config{
		APIURL:               "https://crm.example.com/api/",
		Token:                "secret",
		DBPath:               "/tmp/dealflow.db",
		Addr:                 ":9090",
		LogLevel:             "debug",
		PersistScheduleOrder: true,
	}
	require.NoError(t, SaveTo(path, original))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadInvalidJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	_, err := LoadFrom(path, "")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveTo(path, &Config{APIURL: "http://file/api/", Token: "file-token"}))

	t.Setenv("DEALFLOW_API_URL", "http://env/api/")
	t.Setenv("DEALFLOW_PERSIST_SCHEDULE_ORDER", "TRUE")

	cfg, err := LoadFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, "http://env/api/", cfg.APIURL)
	assert.Equal(t, "file-token", cfg.Token)
	assert.True(t, cfg.PersistScheduleOrder)
}

func TestDotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv only fills variables that are absent from the environment.
	require.NoError(t, os.Unsetenv("DEALFLOW_LOG_LEVEL"))

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DEALFLOW_LOG_LEVEL=warn\n"), 0600))

	cfg, err := LoadFrom(filepath.Join(dir, "config.json"), envFile)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	// A missing .env is not an error.
	_, err = LoadFrom(filepath.Join(dir, "config.json"), filepath.Join(dir, "absent.env"))
	assert.NoError(t, err)
}
