// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Offprint
// commands.
//
// Configuration is loaded from a single file specified by either the
// OFFPRINT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no ~/.config discovery and no automatic
// file search; [Resolve] falls back to the built-in defaults when no
// file is named. This keeps the effective configuration deterministic
// and auditable.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${OFFPRINT_ROOT}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Store, Export, Log sections
//   - [Default] -- returns a Config usable with no file at all
//   - [Load], [LoadFile], [Resolve] -- the entry points for loading
//
// This package depends on no other Offprint packages.
package config
