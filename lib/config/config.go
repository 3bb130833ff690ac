// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Offprint.
type Config struct {
	// Store configures the record store locations.
	Store StoreConfig `yaml:"store"`

	// Export configures the export subsystem.
	Export ExportConfig `yaml:"export"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// StoreConfig configures the record store locations.
type StoreConfig struct {
	// Root is the base directory for Offprint data.
	Root string `yaml:"root"`

	// Catalog is the path to the catalog database.
	// Default: ${OFFPRINT_ROOT}/catalog.db
	Catalog string `yaml:"catalog"`

	// Data is the directory holding record files. Storage paths in the
	// catalog are relative to it.
	// Default: ${OFFPRINT_ROOT}/data
	Data string `yaml:"data"`

	// PoolSize is the catalog connection pool size. Zero uses the
	// catalog's own default.
	PoolSize int `yaml:"pool_size"`
}

// ExportConfig configures the export subsystem.
type ExportConfig struct {
	// Registry is the path to a JSONC capability table describing
	// exportable types and exporter variants. Empty uses the
	// compiled-in table.
	Registry string `yaml:"registry"`

	// LineageKey is the metadata key stripped from every record file
	// placed in an export manifest. Empty uses the exporter's default.
	LineageKey string `yaml:"lineage_key"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum level emitted: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the default configuration. These defaults make a
// single-user store under the home directory work with no config file
// at all.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "offprint")

	return &Config{
		Store: StoreConfig{
			Root:    defaultRoot,
			Catalog: filepath.Join(defaultRoot, "catalog.db"),
			Data:    filepath.Join(defaultRoot, "data"),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load loads configuration from the OFFPRINT_CONFIG environment
// variable. Fails when the variable is not set; commands that fall
// back to the built-in defaults go through Resolve instead.
func Load() (*Config, error) {
	configPath := os.Getenv("OFFPRINT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("OFFPRINT_CONFIG environment variable not set; " +
			"set it to the path of your offprint.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	return cfg, nil
}

// Resolve returns the configuration for a command invocation: the
// explicit path when non-empty, the OFFPRINT_CONFIG file when the
// variable is set, the built-in defaults otherwise.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if envPath := os.Getenv("OFFPRINT_CONFIG"); envPath != "" {
		return LoadFile(envPath)
	}
	return Default(), nil
}

// loadFile loads a single configuration file, merging into the current
// config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"OFFPRINT_ROOT": c.Store.Root,
		"HOME":          os.Getenv("HOME"),
	}

	c.Store.Root = expandVars(c.Store.Root, vars)
	vars["OFFPRINT_ROOT"] = c.Store.Root // Update for dependent paths.

	c.Store.Catalog = expandVars(c.Store.Catalog, vars)
	c.Store.Data = expandVars(c.Store.Data, vars)
	c.Export.Registry = expandVars(c.Export.Registry, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Root == "" {
		errs = append(errs, fmt.Errorf("store.root is required"))
	}
	if c.Store.Catalog == "" {
		errs = append(errs, fmt.Errorf("store.catalog is required"))
	}
	if c.Store.Data == "" {
		errs = append(errs, fmt.Errorf("store.data is required"))
	}
	if c.Store.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("store.pool_size must not be negative"))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level. Unknown
// names (rejected by Validate) map to info.
func (c *LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// EnsurePaths creates the store directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Store.Root,
		c.Store.Data,
		filepath.Dir(c.Store.Catalog),
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
