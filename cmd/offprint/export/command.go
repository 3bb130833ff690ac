// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package export implements the "offprint export" CLI subcommands:
// the variant roster, the capability gate, and manifest preparation.
//
// The capability table comes from the config's export.registry JSONC
// file when set, the compiled-in table otherwise. "accepts" answers
// through its exit code (0 accepted, 1 refused) so scripts can gate
// without parsing output; "prepare --json" emits the manifest for a
// downstream archiver.
package export

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/offprint-labs/offprint/cmd/offprint/cli"
	"github.com/offprint-labs/offprint/lib/catalog"
	"github.com/offprint-labs/offprint/lib/config"
	"github.com/offprint-labs/offprint/lib/export"
	"github.com/offprint-labs/offprint/lib/gid"
)

// Command returns the top-level "export" command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "export",
		Summary: "Prepare records for export",
		Description: `Prepare store records for export: list the exporter variants, test
whether a variant accepts a target, and compute the file manifest an
archiver needs to package a record or ensemble with its full
reference closure.`,
		Subcommands: []*cli.Command{
			variantsCommand(),
			acceptsCommand(),
			prepareCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "List the exporter variants",
				Command:     "offprint export variants",
			},
			{
				Description: "Test a variant against an ensemble",
				Command:     "offprint export accepts 7be0fa129cd14b2a8e5d3c1f0a9b8c7d --variant series-matrix",
			},
			{
				Description: "Prepare a manifest as JSON",
				Command:     "offprint export prepare 4f1b2d3c9aa04e6bb0cf7e11d2a53f88 --json",
			},
		},
	}
}

// loadRegistry returns the capability table: the configured JSONC file
// when export.registry is set, the compiled-in table otherwise.
func loadRegistry(cfg *config.Config) (*export.Registry, error) {
	if cfg.Export.Registry == "" {
		return export.DefaultRegistry(), nil
	}
	return export.LoadRegistry(cfg.Export.Registry)
}

// newExporter builds the export pipeline over an open store.
func newExporter(store *cli.Store, registry *export.Registry) (*export.Exporter, error) {
	return export.New(export.Config{
		Gateway:    store.Catalog,
		Registry:   registry,
		Logger:     store.Logger,
		LineageKey: store.Config.Export.LineageKey,
	})
}

// --- variants ---

type variantsParams struct {
	cli.StoreConfig
	cli.JSONOutput
}

func variantsCommand() *cli.Command {
	var params variantsParams

	return &cli.Command{
		Name:    "variants",
		Summary: "List the exporter variants",
		Usage:   "offprint export variants [flags]",
		Description: `List the capability table's exporter variants: name, label, whether
the variant takes ensemble targets, and the record types it supports.
Subtypes of a supported type are supported too.

Reads only the config; the store does not need to exist.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("variants", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("variants takes no arguments")
			}

			cfg, err := params.Resolve()
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			variants := registry.Variants()

			if done, err := params.EmitJSON(variants); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "NAME\tLABEL\tENSEMBLES\tSUPPORTS\n")
			for _, variant := range variants {
				ensembles := "no"
				if variant.Groups {
					ensembles = "yes"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					variant.Name, variant.Label, ensembles,
					strings.Join(variant.Supports, ", "))
			}
			writer.Flush()
			return nil
		},
	}
}

// --- accepts ---

type acceptsParams struct {
	cli.StoreConfig
	cli.JSONOutput
	Variant string `json:"variant" flag:"variant" desc:"exporter variant to test (required)"`
}

type acceptsResult struct {
	Gid      gid.Gid `json:"gid"`
	Kind     string  `json:"kind"`
	Type     string  `json:"type"`
	Variant  string  `json:"variant"`
	Accepted bool    `json:"accepted"`
}

func acceptsCommand() *cli.Command {
	var params acceptsParams

	return &cli.Command{
		Name:    "accepts",
		Summary: "Test whether a variant accepts an export target",
		Usage:   "offprint export accepts <gid> --variant <name> [flags]",
		Description: `Test the capability gate: whether the named variant accepts the
record or ensemble with the given gid. Exit code 0 means accepted,
1 refused. Refusal is an answer, not an error: non-exportable types,
unsupported types, and ensembles offered to a record-only variant
all refuse.`,
		Examples: []cli.Example{
			{
				Description: "Gate an ensemble before offering it for download",
				Command:     "offprint export accepts 7be0fa129cd14b2a8e5d3c1f0a9b8c7d --variant series-matrix",
			},
			{
				Description: "Same answer as JSON",
				Command:     "offprint export accepts 7be0fa129cd14b2a8e5d3c1f0a9b8c7d --variant series-matrix --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("accepts", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("accepts takes exactly one gid argument\n\nUsage: offprint export accepts <gid> --variant <name> [flags]")
			}
			if params.Variant == "" {
				return cli.Validation("--variant is required").
					WithHint("Run 'offprint export variants' to see the variant roster.")
			}
			g, err := gid.Parse(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}

			store, err := params.Open()
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := context.Background()

			registry, err := loadRegistry(store.Config)
			if err != nil {
				return err
			}
			if _, ok := registry.Variant(params.Variant); !ok {
				return cli.Validation("unknown variant %q", params.Variant).
					WithHint("Run 'offprint export variants' to see the variant roster.")
			}
			exporter, err := newExporter(store, registry)
			if err != nil {
				return err
			}

			target, err := store.Catalog.ResolveTarget(ctx, g)
			if err != nil {
				if catalog.IsNotFound(err) {
					return cli.NotFound("no record or group with gid %s", g).
						WithHint("Run 'offprint catalog ls' to see stored records.")
				}
				return err
			}

			kind, typeName := "record", ""
			if target.IsGroup() {
				kind, typeName = "ensemble", target.Group.TypeName
			} else {
				typeName = target.Record.TypeName
			}
			accepted := exporter.Accepts(ctx, target, params.Variant)

			result := acceptsResult{
				Gid:      g,
				Kind:     kind,
				Type:     typeName,
				Variant:  params.Variant,
				Accepted: accepted,
			}
			if done, err := params.EmitJSON(result); done {
				if err != nil {
					return err
				}
				if !accepted {
					return &cli.ExitError{Code: 1}
				}
				return nil
			}

			if accepted {
				fmt.Printf("variant %q accepts %s %s (%s)\n", params.Variant, kind, g, typeName)
				return nil
			}
			fmt.Fprintf(os.Stderr, "variant %q does not accept %s %s (%s)\n", params.Variant, kind, g, typeName)
			return &cli.ExitError{Code: 1}
		},
	}
}

// --- prepare ---

type prepareParams struct {
	cli.StoreConfig
	cli.JSONOutput
}

func prepareCommand() *cli.Command {
	var params prepareParams

	return &cli.Command{
		Name:    "prepare",
		Summary: "Compute the export manifest for a record or ensemble",
		Usage:   "offprint export prepare <gid> [flags]",
		Description: `Run the export pipeline for the record or ensemble with the given
gid: flatten it to concrete records, link the paired ensemble from
the same sweep, and compute the file manifest with the full reference
closure, deduplicated and grouped into folders. The lineage metadata
key is stripped from every file in the manifest.

Capability is not re-checked here; gate with 'offprint export
accepts' before offering the export.`,
		Examples: []cli.Example{
			{
				Description: "Prepare a single record",
				Command:     "offprint export prepare 4f1b2d3c9aa04e6bb0cf7e11d2a53f88",
			},
			{
				Description: "Feed the manifest to an archiver",
				Command:     "offprint export prepare 7be0fa129cd14b2a8e5d3c1f0a9b8c7d --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("prepare", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("prepare takes exactly one gid argument\n\nUsage: offprint export prepare <gid> [flags]")
			}
			g, err := gid.Parse(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}

			store, err := params.Open()
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := context.Background()

			registry, err := loadRegistry(store.Config)
			if err != nil {
				return err
			}
			exporter, err := newExporter(store, registry)
			if err != nil {
				return err
			}

			target, err := store.Catalog.ResolveTarget(ctx, g)
			if err != nil {
				if catalog.IsNotFound(err) {
					return cli.NotFound("no record or group with gid %s", g).
						WithHint("Run 'offprint catalog ls' to see stored records.")
				}
				return err
			}

			manifest, err := exporter.PrepareExport(ctx, target)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(manifest); done {
				return err
			}

			fileCount := 0
			for _, files := range manifest.FilesByFolder {
				fileCount += len(files)
			}
			fmt.Printf("prepared %d records, %d files in %d folders\n",
				len(manifest.Records), fileCount, len(manifest.Folders))
			for _, folder := range manifest.Folders {
				fmt.Printf("\n%s/\n", folder)
				for _, file := range manifest.FilesByFolder[folder] {
					fmt.Printf("  %s\n", file)
				}
			}
			return nil
		},
	}
}
