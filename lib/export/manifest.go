// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/offprint-labs/offprint/lib/gid"
	"github.com/offprint-labs/offprint/lib/record"
)

// Manifest is the computed file plan for one export: the combined
// record list it was built from, and every file the export must carry,
// grouped into folder buckets for a downstream archiver.
type Manifest struct {
	// Records is the combined record list, in linked order.
	Records []*record.Record `json:"records"`

	// Folders lists the buckets in first-seen order.
	Folders []string `json:"folders"`

	// FilesByFolder maps each bucket to the source paths of its
	// files, in first-seen order. A file's bucket is normally its own
	// directory; a configuration file is bucketed under the folder of
	// the record whose operation it configured, so the configuration
	// travels with what it produced. No path appears twice anywhere
	// in the manifest.
	FilesByFolder map[string][]string `json:"files_by_folder"`
}

// manifestBuilder is the bookkeeping for one BuildManifest call. Each
// call owns a fresh builder, so concurrent exports never share state.
type manifestBuilder struct {
	exporter  *Exporter
	manifest  *Manifest
	seenPaths map[string]bool
	visited   map[gid.Gid]bool
}

// BuildManifest computes the reference-closure file plan for the
// combined records: each record's own file, every file transitively
// reachable through record references, and each combined record's
// operation configuration file, deduplicated globally and with the
// lineage key stripped from every included file.
//
// A lineage-strip failure on a combined record's own file is fatal —
// the export must not ship a root file still carrying stale lineage.
// On transitively referenced files it is a warning and the build
// continues. An empty combined list fails with ErrEmptyTarget before
// any file is touched.
func (e *Exporter) BuildManifest(ctx context.Context, combined []*record.Record) (*Manifest, error) {
	if len(combined) == 0 {
		return nil, &ExportError{Phase: PhaseManifest, Err: ErrEmptyTarget}
	}

	builder := &manifestBuilder{
		exporter: e,
		manifest: &Manifest{
			Records:       combined,
			FilesByFolder: make(map[string][]string),
		},
		seenPaths: make(map[string]bool),
		visited:   make(map[gid.Gid]bool),
	}

	for _, root := range combined {
		if err := builder.addRoot(ctx, root); err != nil {
			return nil, err
		}
	}
	return builder.manifest, nil
}

// addRoot processes one combined-list record: its own file, its
// reference closure, and its operation's configuration file.
func (b *manifestBuilder) addRoot(ctx context.Context, root *record.Record) error {
	path := b.exporter.gateway.StoragePath(root)
	b.addPath(path)

	// The strip runs even when an earlier root's references already
	// visited this record: a reference-level strip failure is only a
	// warning, and a root must not ride on that leniency.
	if err := b.exporter.gateway.StripMetadata(path, b.exporter.lineageKey); err != nil {
		return &ExportError{Phase: PhaseManifest, Gid: root.Gid,
			Err: fmt.Errorf("stripping lineage from %s: %w", path, err)}
	}

	if !b.visited[root.Gid] {
		b.visited[root.Gid] = true
		if err := b.walkReferences(ctx, root); err != nil {
			return err
		}
	}

	return b.addConfiguration(ctx, root)
}

// walkReferences collects the files reachable from root's reference
// graph. The traversal is an explicit worklist with a visited set
// keyed by gid spanning the whole manifest build: shared substructure
// (a connectivity referenced by every sweep member) is processed once,
// and reference cycles terminate.
func (b *manifestBuilder) walkReferences(ctx context.Context, root *record.Record) error {
	worklist := []*record.Record{root}
	for len(worklist) > 0 {
		current := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		refs, err := b.exporter.gateway.References(b.exporter.gateway.StoragePath(current))
		if err != nil {
			if current == root {
				return &ExportError{Phase: PhaseManifest, Gid: current.Gid,
					Err: fmt.Errorf("reading references: %w", err)}
			}
			b.exporter.logger.Warn("reference listing failed, treating file as leaf",
				"record", current.Gid, "error", err)
			continue
		}

		for _, ref := range refs {
			if ref.Target.IsZero() || b.visited[ref.Target] {
				continue
			}
			b.visited[ref.Target] = true

			referenced, err := b.exporter.gateway.LoadRecord(ctx, ref.Target)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					b.exporter.logger.Warn("reference no longer resolves, skipping",
						"record", current.Gid, "field", ref.Field, "target", ref.Target)
					continue
				}
				return &ExportError{Phase: PhaseManifest, Gid: ref.Target,
					Err: fmt.Errorf("loading reference %s of %s: %w", ref.Field, current.Gid, err)}
			}

			path := b.exporter.gateway.StoragePath(referenced)
			b.addPath(path)
			if err := b.exporter.gateway.StripMetadata(path, b.exporter.lineageKey); err != nil {
				b.exporter.logger.Warn("lineage strip failed on referenced file",
					"record", referenced.Gid, "path", path, "error", err)
			}
			worklist = append(worklist, referenced)
		}
	}
	return nil
}

// addConfiguration locates the configuration record that parameterized
// root's producing operation and buckets its file under root's own
// folder. Configurations deleted from the store are skipped with a
// warning; the result files still stand on their own.
func (b *manifestBuilder) addConfiguration(ctx context.Context, root *record.Record) error {
	operation, err := b.exporter.gateway.OperationForRecord(ctx, root)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			b.exporter.logger.Warn("producing operation not found, skipping configuration",
				"record", root.Gid)
			return nil
		}
		return &ExportError{Phase: PhaseManifest, Gid: root.Gid,
			Err: fmt.Errorf("loading producing operation: %w", err)}
	}
	if operation.ConfigurationGid.IsZero() {
		return nil
	}

	configuration, err := b.exporter.gateway.LoadRecord(ctx, operation.ConfigurationGid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			b.exporter.logger.Warn("configuration record no longer resolves, skipping",
				"record", root.Gid, "configuration", operation.ConfigurationGid)
			return nil
		}
		return &ExportError{Phase: PhaseManifest, Gid: root.Gid,
			Err: fmt.Errorf("loading configuration %s: %w", operation.ConfigurationGid, err)}
	}

	configPath := b.exporter.gateway.StoragePath(configuration)
	rootFolder := filepath.Dir(b.exporter.gateway.StoragePath(root))
	b.addPathToFolder(configPath, rootFolder)
	if err := b.exporter.gateway.StripMetadata(configPath, b.exporter.lineageKey); err != nil {
		b.exporter.logger.Warn("lineage strip failed on configuration file",
			"record", configuration.Gid, "path", configPath, "error", err)
	}
	return nil
}

// addPath buckets path under its own directory.
func (b *manifestBuilder) addPath(path string) {
	b.addPathToFolder(path, filepath.Dir(path))
}

// addPathToFolder appends path to folder's file list unless the path
// is already anywhere in the manifest. New folders are appended in
// first-seen order.
func (b *manifestBuilder) addPathToFolder(path, folder string) {
	if b.seenPaths[path] {
		return
	}
	b.seenPaths[path] = true

	if _, ok := b.manifest.FilesByFolder[folder]; !ok {
		b.manifest.Folders = append(b.manifest.Folders, folder)
	}
	b.manifest.FilesByFolder[folder] = append(b.manifest.FilesByFolder[folder], path)
}
