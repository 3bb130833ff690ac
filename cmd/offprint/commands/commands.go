// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete Offprint CLI command tree.
package commands

import (
	"fmt"

	catalogcmd "github.com/offprint-labs/offprint/cmd/offprint/catalog"
	"github.com/offprint-labs/offprint/cmd/offprint/cli"
	exportcmd "github.com/offprint-labs/offprint/cmd/offprint/export"
	"github.com/offprint-labs/offprint/lib/version"
)

// Root builds and returns the complete Offprint CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "offprint",
		Description: `Offprint: a catalog of scientific records with export preparation.

Track records, ensembles, and their provenance in a SQLite catalog,
and prepare exports: gate targets against the capability table and
compute file manifests carrying each record's full reference closure.`,
		Subcommands: []*cli.Command{
			catalogcmd.Command(),
			exportcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("offprint %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Create the store directories and catalog",
				Command:     "offprint catalog init",
			},
			{
				Description: "Register a connectivity record",
				Command:     "offprint catalog ingest --type connectivity --metadata subject=subj-01",
			},
			{
				Description: "List stored records",
				Command:     "offprint catalog ls",
			},
			{
				Description: "Test a variant against an export target",
				Command:     "offprint export accepts 7be0fa129cd14b2a8e5d3c1f0a9b8c7d --variant series-matrix",
			},
			{
				Description: "Prepare an export manifest for an archiver",
				Command:     "offprint export prepare 4f1b2d3c9aa04e6bb0cf7e11d2a53f88 --json",
			},
		},
	}
}
