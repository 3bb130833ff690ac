// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/offprint-labs/offprint/lib/catalog"
	"github.com/offprint-labs/offprint/lib/config"
)

// StoreConfig holds the shared flags for locating the record store.
// Used by CLI commands that read or modify the catalog.
//
// Locations resolve in three steps: the --config file when given, else
// the file named by $OFFPRINT_CONFIG, else the built-in defaults; the
// individual location flags then override whatever that produced.
//
// Usage pattern:
//
//	type lsParams struct {
//	    cli.StoreConfig
//	    cli.JSONOutput
//	}
//
//	// In Run:
//	store, err := params.Open()
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
type StoreConfig struct {
	ConfigFile string
	Root       string
	Catalog    string
	Data       string
}

// AddFlags registers --config, --root, --catalog, and --data on the
// given flag set. --config is the primary interface; the others are
// overrides for pointing at a store the config file doesn't describe.
func (c *StoreConfig) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.ConfigFile, "config", "", "path to offprint.yaml (default: $OFFPRINT_CONFIG, then built-in defaults)")
	flagSet.StringVar(&c.Root, "root", "", "store root directory (overrides config)")
	flagSet.StringVar(&c.Catalog, "catalog", "", "catalog database path (overrides config)")
	flagSet.StringVar(&c.Data, "data", "", "record data directory (overrides config)")
}

// Resolve returns the effective configuration for the configured flags.
// --root re-derives the catalog and data locations under the new root;
// --catalog and --data override individually on top of that.
func (c *StoreConfig) Resolve() (*config.Config, error) {
	cfg, err := config.Resolve(c.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if c.Root != "" {
		cfg.Store.Root = c.Root
		cfg.Store.Catalog = filepath.Join(c.Root, "catalog.db")
		cfg.Store.Data = filepath.Join(c.Root, "data")
	}
	if c.Catalog != "" {
		cfg.Store.Catalog = c.Catalog
	}
	if c.Data != "" {
		cfg.Store.Data = c.Data
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Store is an opened record store: the catalog plus the resolved
// configuration and logger it was opened with. Close it when done.
type Store struct {
	Catalog *catalog.Catalog
	Config  *config.Config
	Logger  *slog.Logger
}

// Open resolves the configuration and opens the catalog. The catalog
// database and its schema are created on first open; the surrounding
// directories are not ("offprint catalog init" creates those).
func (c *StoreConfig) Open() (*Store, error) {
	cfg, err := c.Resolve()
	if err != nil {
		return nil, err
	}

	logger := NewCommandLogger(cfg.Log.SlogLevel())

	cat, err := catalog.Open(catalog.Config{
		Path:     cfg.Store.Catalog,
		DataDir:  cfg.Store.Data,
		PoolSize: cfg.Store.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		if _, statErr := os.Stat(filepath.Dir(cfg.Store.Catalog)); os.IsNotExist(statErr) {
			return nil, NotFound("%w", err).
				WithHint("Store directories are missing; run 'offprint catalog init' first.")
		}
		return nil, err
	}

	return &Store{Catalog: cat, Config: cfg, Logger: logger}, nil
}

// Close closes the catalog.
func (s *Store) Close() error {
	return s.Catalog.Close()
}
