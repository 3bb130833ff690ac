// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Store.Root == "" {
		t.Error("expected a non-empty default store root")
	}
	if cfg.Store.Catalog != filepath.Join(cfg.Store.Root, "catalog.db") {
		t.Errorf("expected catalog under the root, got %s", cfg.Store.Catalog)
	}
	if cfg.Store.Data != filepath.Join(cfg.Store.Root, "data") {
		t.Errorf("expected data dir under the root, got %s", cfg.Store.Data)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected level=info, got %s", cfg.Log.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoadRequiresOffprintConfig(t *testing.T) {
	t.Setenv("OFFPRINT_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when OFFPRINT_CONFIG not set, got nil")
	}
	if !strings.Contains(err.Error(), "OFFPRINT_CONFIG") {
		t.Errorf("error %q does not name the variable", err)
	}
}

func TestLoadWithOffprintConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "offprint.yaml")
	configContent := `
store:
  root: /test/root
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("OFFPRINT_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Store.Root != "/test/root" {
		t.Errorf("expected root=/test/root, got %s", cfg.Store.Root)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected level=debug, got %s", cfg.Log.Level)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "offprint.yaml")
	configContent := `
store:
  root: /custom/root
  catalog: /custom/catalog.db
  pool_size: 8

export:
  registry: /custom/registry.jsonc
  lineage_key: parent_sweep

log:
  level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Store.Root != "/custom/root" {
		t.Errorf("expected root=/custom/root, got %s", cfg.Store.Root)
	}
	if cfg.Store.Catalog != "/custom/catalog.db" {
		t.Errorf("expected catalog=/custom/catalog.db, got %s", cfg.Store.Catalog)
	}
	if cfg.Store.PoolSize != 8 {
		t.Errorf("expected pool_size=8, got %d", cfg.Store.PoolSize)
	}
	if cfg.Export.Registry != "/custom/registry.jsonc" {
		t.Errorf("expected registry=/custom/registry.jsonc, got %s", cfg.Export.Registry)
	}
	if cfg.Export.LineageKey != "parent_sweep" {
		t.Errorf("expected lineage_key=parent_sweep, got %s", cfg.Export.LineageKey)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected level=warn, got %s", cfg.Log.Level)
	}

	// Fields the file omits keep their defaults.
	if cfg.Store.Data == "" {
		t.Error("expected the default data dir to survive a partial file")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()

	flagPath := filepath.Join(dir, "flag.yaml")
	if err := os.WriteFile(flagPath, []byte("store:\n  root: /from/flag\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, "env.yaml")
	if err := os.WriteFile(envPath, []byte("store:\n  root: /from/env\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OFFPRINT_CONFIG", envPath)

	// An explicit path wins over the environment.
	cfg, err := Resolve(flagPath)
	if err != nil {
		t.Fatalf("Resolve(flag): %v", err)
	}
	if cfg.Store.Root != "/from/flag" {
		t.Errorf("expected root=/from/flag, got %s", cfg.Store.Root)
	}

	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve(env): %v", err)
	}
	if cfg.Store.Root != "/from/env" {
		t.Errorf("expected root=/from/env, got %s", cfg.Store.Root)
	}

	// Neither set: built-in defaults.
	t.Setenv("OFFPRINT_CONFIG", "")
	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve(defaults): %v", err)
	}
	if cfg.Store.Root != Default().Store.Root {
		t.Errorf("expected default root, got %s", cfg.Store.Root)
	}
}

func TestExpandRootInDependentPaths(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "offprint.yaml")
	configContent := `
store:
  root: /srv/offprint
  catalog: ${OFFPRINT_ROOT}/meta/catalog.db
  data: ${OFFPRINT_ROOT}/records
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Store.Catalog != "/srv/offprint/meta/catalog.db" {
		t.Errorf("catalog = %s, want /srv/offprint/meta/catalog.db", cfg.Store.Catalog)
	}
	if cfg.Store.Data != "/srv/offprint/records" {
		t.Errorf("data = %s, want /srv/offprint/records", cfg.Store.Data)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/offprint",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/offprint",
		},
		{
			input:    "${MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "empty root",
			modify: func(c *Config) {
				c.Store.Root = ""
			},
			wantErr: true,
		},
		{
			name: "empty catalog path",
			modify: func(c *Config) {
				c.Store.Catalog = ""
			},
			wantErr: true,
		},
		{
			name: "negative pool size",
			modify: func(c *Config) {
				c.Store.PoolSize = -1
			},
			wantErr: true,
		},
		{
			name: "unknown log level",
			modify: func(c *Config) {
				c.Log.Level = "loud"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		lc := LogConfig{Level: tt.name}
		if got := lc.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEnsurePaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "offprint")

	cfg := Default()
	cfg.Store.Root = root
	cfg.Store.Catalog = filepath.Join(root, "meta", "catalog.db")
	cfg.Store.Data = filepath.Join(root, "data")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}

	for _, path := range []string{root, filepath.Join(root, "meta"), cfg.Store.Data} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}
