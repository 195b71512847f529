// ABOUTME: Client and server configuration stored at XDG paths
// ABOUTME: Loads config.json, then .env, then DEALFLOW_* environment overrides
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL   = "http://localhost:8080/api/"
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
)

// Config holds the settings shared by the client commands and the API server.
type Config struct {
	APIURL   string `json:"api_url"`
	Token    string `json:"token,omitempty"`
	DBPath   string `json:"db_path,omitempty"`
	CacheDir string `json:"cache_dir,omitempty"`
	Addr     string `json:"addr"`
	LogLevel string `json:"log_level"`

	// PersistScheduleOrder saves schedule positions after a reorder.
	PersistScheduleOrder bool `json:"persist_schedule_order"`
}

// ConfigDir returns the XDG config directory for dealflow.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "dealflow")
}

// ConfigPath returns the location of config.json.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func defaults() *Config {
	return &Config{
		APIURL:   DefaultAPIURL,
		Addr:     DefaultAddr,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads the config file if present and applies environment overrides.
// A missing file yields the defaults. A .env file in the working directory,
// when present, is loaded before the overrides are read; it never replaces
// variables already set in the environment.
// Environment variables:
// - DEALFLOW_API_URL
// - DEALFLOW_TOKEN
// - DEALFLOW_DB_PATH
// - DEALFLOW_CACHE_DIR
// - DEALFLOW_ADDR
// - DEALFLOW_LOG_LEVEL
// - DEALFLOW_PERSIST_SCHEDULE_ORDER.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), ".env")
}

// LoadFrom is Load with explicit file locations. An empty envFile skips .env loading.
func LoadFrom(path, envFile string) (*Config, error) {
	cfg := defaults()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer func() { _ = f.Close() }()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEALFLOW_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("DEALFLOW_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("DEALFLOW_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DEALFLOW_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("DEALFLOW_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DEALFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DEALFLOW_PERSIST_SCHEDULE_ORDER"); v != "" {
		v = strings.ToLower(v)
		cfg.PersistScheduleOrder = v == "true" || v == "1"
	}
}

// Save writes the config to ConfigPath.
func Save(cfg *Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config with owner-only permissions.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
