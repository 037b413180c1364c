// Package config loads bookbot configuration from a single JSON file.
// This is the single source of truth for tunables; components receive the
// sections they need at construction time instead of re-reading the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// UserConfig holds ALL bookbot configuration from bookbot.json.
type UserConfig struct {
	// DataDir is the root for the database, logs and seed files.
	DataDir string `json:"data_dir,omitempty"`

	// =========================================================================
	// STORE CONFIGURATION
	// =========================================================================

	Store *StoreConfig `json:"store,omitempty"`

	// =========================================================================
	// SESSION CONFIGURATION
	// =========================================================================

	Session *SessionConfig `json:"session,omitempty"`

	// =========================================================================
	// UNDERSTANDING CONFIGURATION
	// =========================================================================

	NLU *NLUConfig `json:"nlu,omitempty"`

	// =========================================================================
	// LOGGING
	// =========================================================================

	Logging *LoggingConfig `json:"logging,omitempty"`
}

// StoreConfig configures the SQLite catalog/order store.
type StoreConfig struct {
	// DBPath is the SQLite database file. Relative paths resolve under DataDir.
	DBPath string `json:"db_path,omitempty"`

	// CatalogPath is the YAML catalog seed file watched for changes.
	CatalogPath string `json:"catalog_path,omitempty"`

	// CacheTTLSeconds bounds how long read results are served from cache.
	CacheTTLSeconds int `json:"cache_ttl_seconds,omitempty"`
}

// SessionConfig configures session lifetime and sweeping.
type SessionConfig struct {
	// TimeoutSeconds is the session TTL; expired sessions are logically gone.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// CleanupIntervalSeconds is the sweeper period for expired sessions.
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds,omitempty"`

	// HistoryLimit caps the per-session conversation history.
	HistoryLimit int `json:"history_limit,omitempty"`
}

// NLUConfig configures the understanding pipeline thresholds.
type NLUConfig struct {
	// FuzzyThreshold is the 0-100 partial-similarity floor for author and
	// category extraction.
	FuzzyThreshold int `json:"fuzzy_threshold,omitempty"`

	// TitleFuzzyThreshold is the lower floor used for book titles.
	TitleFuzzyThreshold int `json:"title_fuzzy_threshold,omitempty"`
}

// LoggingConfig mirrors logging.Settings.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Level      string          `json:"level,omitempty"`
	Categories map[string]bool `json:"categories,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *UserConfig {
	return &UserConfig{
		DataDir: ".bookbot",
		Store: &StoreConfig{
			DBPath:          "bookstore.db",
			CatalogPath:     "books.yaml",
			CacheTTLSeconds: 300,
		},
		Session: &SessionConfig{
			TimeoutSeconds:         3600,
			CleanupIntervalSeconds: 300,
			HistoryLimit:           50,
		},
		NLU: &NLUConfig{
			FuzzyThreshold:      80,
			TitleFuzzyThreshold: 60,
		},
		Logging: &LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads the config file at path, filling any missing sections with
// defaults. A missing file is not an error; defaults are returned.
func Load(path string) (*UserConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *UserConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyDefaults fills nil sections and zero fields after unmarshalling a
// partial file.
func (c *UserConfig) applyDefaults() {
	def := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Store == nil {
		c.Store = def.Store
	} else {
		if c.Store.DBPath == "" {
			c.Store.DBPath = def.Store.DBPath
		}
		if c.Store.CatalogPath == "" {
			c.Store.CatalogPath = def.Store.CatalogPath
		}
		if c.Store.CacheTTLSeconds <= 0 {
			c.Store.CacheTTLSeconds = def.Store.CacheTTLSeconds
		}
	}
	if c.Session == nil {
		c.Session = def.Session
	} else {
		if c.Session.TimeoutSeconds <= 0 {
			c.Session.TimeoutSeconds = def.Session.TimeoutSeconds
		}
		if c.Session.CleanupIntervalSeconds <= 0 {
			c.Session.CleanupIntervalSeconds = def.Session.CleanupIntervalSeconds
		}
		if c.Session.HistoryLimit <= 0 {
			c.Session.HistoryLimit = def.Session.HistoryLimit
		}
	}
	if c.NLU == nil {
		c.NLU = def.NLU
	} else {
		if c.NLU.FuzzyThreshold <= 0 {
			c.NLU.FuzzyThreshold = def.NLU.FuzzyThreshold
		}
		if c.NLU.TitleFuzzyThreshold <= 0 {
			c.NLU.TitleFuzzyThreshold = def.NLU.TitleFuzzyThreshold
		}
	}
	if c.Logging == nil {
		c.Logging = def.Logging
	} else if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// ResolvePath resolves a possibly-relative path under DataDir.
func (c *UserConfig) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// SessionTimeout returns the session TTL as a duration.
func (c *UserConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutSeconds) * time.Second
}

// CleanupInterval returns the sweeper period as a duration.
func (c *UserConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalSeconds) * time.Second
}

// CacheTTL returns the store cache TTL as a duration.
func (c *UserConfig) CacheTTL() time.Duration {
	return time.Duration(c.Store.CacheTTLSeconds) * time.Second
}
