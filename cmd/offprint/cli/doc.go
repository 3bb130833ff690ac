// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the offprint CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/offprint/commands
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// The package also provides the shared store access used by CLI
// subcommand packages: [StoreConfig] holds the --config/--root/
// --catalog/--data flags, resolves them against the configuration
// chain (explicit flag, then $OFFPRINT_CONFIG, then built-in
// defaults), and opens the catalog via [StoreConfig.Open].
//
// Command failures are classified with [CommandError] so the binary's
// main function can pick the exit code without parsing message text:
// validation errors exit 2, everything else exits 1. Commands that
// print their own output and only need a non-zero code return
// [ExitError] instead.
package cli
