// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog implements the "offprint catalog" CLI subcommands
// for inspecting and modifying the record catalog.
//
// Store locations resolve through the shared [cli.StoreConfig] flags:
// --config names an offprint.yaml explicitly, $OFFPRINT_CONFIG names
// one implicitly, and the built-in defaults put the store under
// ~/.local/share/offprint. --root/--catalog/--data override
// individual locations on top of whichever config won.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/offprint-labs/offprint/cmd/offprint/cli"
	"github.com/offprint-labs/offprint/lib/catalog"
	"github.com/offprint-labs/offprint/lib/gid"
	"github.com/offprint-labs/offprint/lib/record"
	"github.com/offprint-labs/offprint/lib/recordfile"
)

// Command returns the top-level "catalog" command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Summary: "Inspect and modify the record catalog",
		Description: `Work with the record catalog: the SQLite inventory of records,
ensembles, and operations, and the record files it points at.

The catalog database and record files live under the store root,
resolved from --config, $OFFPRINT_CONFIG, or the built-in defaults.`,
		Subcommands: []*cli.Command{
			initCommand(),
			ingestCommand(),
			lsCommand(),
			showCommand(),
			rmCommand(),
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
				Description: "List all time-series records",
				Command:     "offprint catalog ls --type time_series_region",
			},
			{
				Description: "Show one record with its references",
				Command:     "offprint catalog show 4f1b2d3c9aa04e6bb0cf7e11d2a53f88",
			},
		},
	}
}

// parsePairs splits repeated key=value flag entries into a map. The
// flagName only appears in error messages.
func parsePairs(entries []string, flagName string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	pairs := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("--%s %q: expected key=value", flagName, entry)
		}
		if _, dup := pairs[key]; dup {
			return nil, fmt.Errorf("--%s %q: duplicate key %q", flagName, entry, key)
		}
		pairs[key] = value
	}
	return pairs, nil
}

// --- init ---

type initParams struct {
	cli.StoreConfig
	cli.JSONOutput
}

type initResult struct {
	Root    string `json:"root"`
	Catalog string `json:"catalog"`
	Data    string `json:"data"`
}

func initCommand() *cli.Command {
	var params initParams

	return &cli.Command{
		Name:    "init",
		Summary: "Create the store directories and catalog database",
		Usage:   "offprint catalog init [flags]",
		Description: `Create the store root, the data directory, and the catalog database
with its schema. Safe to run on an existing store: directories and
schema objects that already exist are left alone.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("init", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("init takes no arguments")
			}

			cfg, err := params.Resolve()
			if err != nil {
				return err
			}
			if err := cfg.EnsurePaths(); err != nil {
				return cli.Internal("creating store directories: %w", err)
			}

			store, err := params.Open()
			if err != nil {
				return err
			}
			defer store.Close()

			// Schema setup runs on first connection use; an empty
			// listing forces it so the store is usable immediately.
			if _, err := store.Catalog.ListRecords(context.Background(), ""); err != nil {
				return err
			}

			result := initResult{
				Root:    cfg.Store.Root,
				Catalog: cfg.Store.Catalog,
				Data:    cfg.Store.Data,
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Printf("Initialized offprint store at %s\n", result.Root)
			fmt.Printf("  catalog: %s\n", result.Catalog)
			fmt.Printf("  data:    %s\n", result.Data)
			return nil
		},
	}
}

// --- ingest ---

type ingestParams struct {
	cli.StoreConfig
	cli.JSONOutput
	Type      string   `json:"type"      flag:"type"      desc:"record type name (required)"`
	Role      string   `json:"role"      flag:"role"      desc:"record role: primary or derived-measure" default:"primary"`
	Source    string   `json:"source"    flag:"source"    desc:"source record gid (required for derived-measure)"`
	Operation int64    `json:"operation" flag:"operation" desc:"producing operation id (default: a new finished operation)"`
	Folder    string   `json:"folder"    flag:"folder"    desc:"data subdirectory for the record file (default: op-<operation>)"`
	Metadata  []string `json:"metadata"  flag:"metadata"  desc:"metadata entry key=value (repeatable)"`
	Refs      []string `json:"refs"      flag:"ref"       desc:"reference entry field=gid (repeatable)"`
}

type ingestResult struct {
	Gid         gid.Gid `json:"gid"`
	OperationID int64   `json:"operation_id"`
	File        string  `json:"file"`
}

func ingestCommand() *cli.Command {
	var params ingestParams

	return &cli.Command{
		Name:    "ingest",
		Summary: "Register a new record in the catalog",
		Usage:   "offprint catalog ingest --type <name> [flags]",
		Description: `Create a record: write its record file under the data directory and
insert the catalog row. Prints the new record's gid.

Records ingested outside a parameter sweep get a fresh finished
operation as their provenance; pass --operation to attach to an
existing one instead. The record file lands in the operation's
folder unless --folder says otherwise.`,
		Examples: []cli.Example{
			{
				Description: "Register a connectivity with subject metadata",
				Command:     "offprint catalog ingest --type connectivity --metadata subject=subj-01",
			},
			{
				Description: "Register a time series referencing its connectivity",
				Command:     "offprint catalog ingest --type time_series_region --ref connectivity=4f1b2d3c9aa04e6bb0cf7e11d2a53f88",
			},
			{
				Description: "Register a derived measure over a time series",
				Command:     "offprint catalog ingest --type derived_measure --role derived-measure --source 9c2e4a1b7d3f4e0a8b6c5d4e3f2a1b0c",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("ingest", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("ingest takes no arguments, only flags")
			}
			if params.Type == "" {
				return cli.Validation("--type is required")
			}

			role, err := record.ParseRole(params.Role)
			if err != nil {
				return cli.Validation("--role: %w", err)
			}

			var sourceGid gid.Gid
			if params.Source != "" {
				sourceGid, err = gid.Parse(params.Source)
				if err != nil {
					return cli.Validation("--source: %w", err)
				}
			}
			if role == record.RoleDerivedMeasure && sourceGid.IsZero() {
				return cli.Validation("--source is required for derived-measure records")
			}
			if role == record.RolePrimary && !sourceGid.IsZero() {
				return cli.Validation("--source only applies to derived-measure records")
			}

			metadata, err := parsePairs(params.Metadata, "metadata")
			if err != nil {
				return cli.Validation("%w", err)
			}
			refPairs, err := parsePairs(params.Refs, "ref")
			if err != nil {
				return cli.Validation("%w", err)
			}
			var refs map[string]gid.Gid
			if len(refPairs) > 0 {
				refs = make(map[string]gid.Gid, len(refPairs))
				for field, value := range refPairs {
					target, err := gid.Parse(value)
					if err != nil {
						return cli.Validation("--ref %s: %w", field, err)
					}
					refs[field] = target
				}
			}

			store, err := params.Open()
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := context.Background()

			operationID := params.Operation
			if operationID == 0 {
				operationID, err = store.Catalog.InsertOperation(ctx, record.Operation{
					Status: record.StatusFinished,
				})
				if err != nil {
					return err
				}
			}

			folder := params.Folder
			if folder == "" {
				folder = fmt.Sprintf("op-%d", operationID)
			}

			g := gid.New()
			relPath := filepath.Join(folder, fmt.Sprintf("%s_%s.record", params.Type, g))
			absPath := filepath.Join(store.Config.Store.Data, relPath)

			doc := &recordfile.Document{
				Gid:      g,
				TypeName: params.Type,
				Created:  time.Now().UTC(),
				Metadata: metadata,
				Refs:     refs,
			}
			if err := recordfile.Write(absPath, doc); err != nil {
				return cli.Internal("%w", err)
			}

			err = store.Catalog.InsertRecord(ctx, record.Record{
				Gid:         g,
				TypeName:    params.Type,
				Role:        role,
				SourceGid:   sourceGid,
				OperationID: operationID,
				StoragePath: relPath,
			})
			if err != nil {
				// The row is the source of truth; without it the file
				// is unreachable garbage.
				if removeErr := os.Remove(absPath); removeErr != nil {
					store.Logger.Warn("leaving orphaned record file after failed insert",
						"path", absPath, "error", removeErr)
				}
				return err
			}

			result := ingestResult{Gid: g, OperationID: operationID, File: absPath}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Println(g)
			return nil
		},
	}
}

// --- ls ---

type lsParams struct {
	cli.StoreConfig
	cli.JSONOutput
	Type string `json:"type" flag:"type" desc:"filter by type name"`
}

func lsCommand() *cli.Command {
	var params lsParams

	return &cli.Command{
		Name:    "ls",
		Summary: "List records in the catalog",
		Usage:   "offprint catalog ls [flags]",
		Description: `List catalog records, newest first, optionally filtered to one type
name. Filtering is by exact name; the capability table's subtype
relation plays no part here.`,
		Examples: []cli.Example{
			{
				Description: "List everything",
				Command:     "offprint catalog ls",
			},
			{
				Description: "List region time series as JSON",
				Command:     "offprint catalog ls --type time_series_region --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("ls", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("ls takes no arguments, only flags")
			}

			store, err := params.Open()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Catalog.ListRecords(context.Background(), params.Type)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(records); done {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No records found.")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "GID\tTYPE\tROLE\tCREATED\tPATH\n")
			for _, entry := range records {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
					entry.Gid,
					entry.TypeName,
					entry.Role,
					entry.Created.Format("2006-01-02 15:04:05"),
					entry.StoragePath,
				)
			}
			writer.Flush()
			return nil
		},
	}
}

// --- show ---

type showParams struct {
	cli.StoreConfig
	cli.JSONOutput
}

// showResult is the JSON shape of one inspected record: the catalog
// row, its provenance operation, and the record file's contents
// (metadata, references, array descriptors but not payloads).
type showResult struct {
	record.Record
	Operation  *record.Operation      `json:"operation,omitempty"`
	File       string                 `json:"file"`
	Metadata   map[string]string      `json:"metadata,omitempty"`
	References []recordfile.Reference `json:"references,omitempty"`
	Arrays     []arrayView            `json:"arrays,omitempty"`
}

type arrayView struct {
	Name    string  `json:"name"`
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Codec   string  `json:"codec"`
	RawSize int64   `json:"raw_size"`
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show one record's row, provenance, and file contents",
		Usage:   "offprint catalog show <gid> [flags]",
		Description: `Display a record: the catalog row, the operation that produced it,
and the record file's metadata, references, and array descriptors.
Array payloads are not decoded.`,
		Examples: []cli.Example{
			{
				Description: "Show a record",
				Command:     "offprint catalog show 4f1b2d3c9aa04e6bb0cf7e11d2a53f88",
			},
			{
				Description: "Show a record as JSON",
				Command:     "offprint catalog show 4f1b2d3c9aa04e6bb0cf7e11d2a53f88 --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("show takes exactly one gid argument\n\nUsage: offprint catalog show <gid> [flags]")
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

			rec, err := store.Catalog.LoadRecord(ctx, g)
			if err != nil {
				if catalog.IsNotFound(err) {
					return cli.NotFound("no record with gid %s", g).
						WithHint("Run 'offprint catalog ls' to see stored records.")
				}
				return err
			}

			result := showResult{
				Record: *rec,
				File:   store.Catalog.StoragePath(rec),
			}

			operation, err := store.Catalog.OperationForRecord(ctx, rec)
			if err == nil {
				result.Operation = operation
			} else if !catalog.IsNotFound(err) {
				return err
			}

			// A missing or unreadable file is reported, not fatal: the
			// row is still worth seeing when the file is damaged.
			doc, docErr := recordfile.Read(result.File)
			if docErr == nil {
				result.Metadata = doc.Metadata
				result.References = doc.References()
				for i := range doc.Arrays {
					a := &doc.Arrays[i]
					result.Arrays = append(result.Arrays, arrayView{
						Name:    a.Name,
						DType:   a.DType,
						Shape:   a.Shape,
						Codec:   a.Codec.String(),
						RawSize: a.RawSize,
					})
				}
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "Gid:\t%s\n", result.Gid)
			fmt.Fprintf(writer, "Type:\t%s\n", result.TypeName)
			fmt.Fprintf(writer, "Role:\t%s\n", result.Role)
			if !result.SourceGid.IsZero() {
				fmt.Fprintf(writer, "Source:\t%s\n", result.SourceGid)
			}
			fmt.Fprintf(writer, "Created:\t%s\n", result.Created.Format("2006-01-02 15:04:05 UTC"))
			fmt.Fprintf(writer, "File:\t%s\n", result.File)
			if result.Operation != nil {
				fmt.Fprintf(writer, "Operation:\t%d (%s)\n", result.Operation.ID, result.Operation.Status)
				if result.Operation.OperationGroupID != 0 {
					fmt.Fprintf(writer, "Sweep:\t%d\n", result.Operation.OperationGroupID)
				}
				if !result.Operation.ConfigurationGid.IsZero() {
					fmt.Fprintf(writer, "Configuration:\t%s\n", result.Operation.ConfigurationGid)
				}
			}
			for key, value := range result.Metadata {
				fmt.Fprintf(writer, "Metadata %s:\t%s\n", key, value)
			}
			for _, ref := range result.References {
				fmt.Fprintf(writer, "Ref %s:\t%s\n", ref.Field, ref.Target)
			}
			for _, a := range result.Arrays {
				fmt.Fprintf(writer, "Array %s:\t%s %v (%s, %d bytes raw)\n",
					a.Name, a.DType, a.Shape, a.Codec, a.RawSize)
			}
			writer.Flush()

			if docErr != nil {
				fmt.Fprintf(os.Stderr, "\nrecord file unreadable: %v\n", docErr)
			}
			return nil
		},
	}
}

// --- rm ---

type rmParams struct {
	cli.StoreConfig
	cli.JSONOutput
	KeepFile bool `json:"keep_file" flag:"keep-file" desc:"remove only the catalog row, leave the record file"`
}

type rmResult struct {
	Gid         gid.Gid `json:"gid"`
	FileRemoved bool    `json:"file_removed"`
}

func rmCommand() *cli.Command {
	var params rmParams

	return &cli.Command{
		Name:    "rm",
		Summary: "Remove a record from the catalog",
		Usage:   "offprint catalog rm <gid> [flags]",
		Description: `Remove a record's catalog row and its record file. Ensembles that
listed the record keep their membership slot; exports skip it from
then on. References from other record files to the removed gid stop
resolving, which the export pipeline treats as a skip, not an error.`,
		Examples: []cli.Example{
			{
				Description: "Remove a record and its file",
				Command:     "offprint catalog rm 4f1b2d3c9aa04e6bb0cf7e11d2a53f88",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("rm", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("rm takes exactly one gid argument\n\nUsage: offprint catalog rm <gid> [flags]")
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

			rec, err := store.Catalog.LoadRecord(ctx, g)
			if err != nil {
				if catalog.IsNotFound(err) {
					return cli.NotFound("no record with gid %s", g)
				}
				return err
			}
			if err := store.Catalog.DeleteRecord(ctx, g); err != nil {
				return err
			}

			result := rmResult{Gid: g}
			if !params.KeepFile {
				path := store.Catalog.StoragePath(rec)
				switch err := os.Remove(path); {
				case err == nil:
					result.FileRemoved = true
				case os.IsNotExist(err):
					// Row without a file; nothing left to clean.
				default:
					store.Logger.Warn("record row removed but file remains",
						"gid", g, "path", path, "error", err)
				}
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Printf("removed %s\n", g)
			return nil
		},
	}
}
