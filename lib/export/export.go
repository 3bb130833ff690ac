// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/offprint-labs/offprint/lib/gid"
	"github.com/offprint-labs/offprint/lib/record"
	"github.com/offprint-labs/offprint/lib/recordfile"
)

// DefaultLineageKey is the metadata key naming the composite run a
// record file was produced under. Exports strip it: the receiving
// store has no such run, and a stale pointer would corrupt lineage on
// re-import.
const DefaultLineageKey = "parent_run"

// Target is what an export request names: exactly one of a plain
// record or an ensemble.
type Target struct {
	Record *record.Record
	Group  *record.Group
}

// Gid returns the identifier of whichever side is set.
func (t Target) Gid() gid.Gid {
	if t.Record != nil {
		return t.Record.Gid
	}
	if t.Group != nil {
		return t.Group.Gid
	}
	return gid.Gid{}
}

// IsGroup reports whether the target is an ensemble.
func (t Target) IsGroup() bool {
	return t.Group != nil
}

// Gateway is the record-store surface the export pipeline works
// against. lib/catalog is the production implementation.
//
// Lookups report a missing entity with an error matching
// errors.Is(err, ErrNotFound); any other error is a store failure and
// aborts the export.
type Gateway interface {
	// LoadRecord returns the record with the given gid.
	LoadRecord(ctx context.Context, g gid.Gid) (*record.Record, error)

	// ListMembers returns an ensemble's membership in stored order.
	// Members whose records were deleted appear with an empty
	// TypeName.
	ListMembers(ctx context.Context, groupGid gid.Gid) ([]record.Member, error)

	// OperationForRecord returns the operation that produced r.
	OperationForRecord(ctx context.Context, r *record.Record) (*record.Operation, error)

	// GroupForOperationGroup returns the ensemble with the given role
	// produced by the given sweep, nil when the sweep produced none,
	// and an error when more than one matches. A zero id means no
	// sweep and resolves to nil.
	GroupForOperationGroup(ctx context.Context, operationGroupID int64, role record.Role) (*record.Group, error)

	// StoragePath resolves a record to the absolute path of its file.
	StoragePath(r *record.Record) string

	// StripMetadata removes a metadata key from the record file at
	// path, rewriting it atomically. An absent key is a no-op.
	StripMetadata(path, key string) error

	// References lists the outgoing record references of the file at
	// path.
	References(path string) ([]recordfile.Reference, error)
}

// Config holds the collaborators an Exporter needs.
type Config struct {
	// Gateway is the record store. Required.
	Gateway Gateway

	// Registry is the capability table Accepts consults. Required.
	Registry *Registry

	// Logger receives skip warnings and debug traces. Defaults to a
	// discard logger.
	Logger *slog.Logger

	// LineageKey is the metadata key stripped from every exported
	// file. Defaults to DefaultLineageKey.
	LineageKey string
}

// Exporter prepares export manifests. Safe for concurrent use: every
// call owns its own traversal state.
type Exporter struct {
	gateway    Gateway
	registry   *Registry
	logger     *slog.Logger
	lineageKey string
}

// New validates cfg and returns an Exporter.
func New(cfg Config) (*Exporter, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("export: Gateway is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("export: Registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	lineageKey := cfg.LineageKey
	if lineageKey == "" {
		lineageKey = DefaultLineageKey
	}

	return &Exporter{
		gateway:    cfg.Gateway,
		registry:   cfg.Registry,
		logger:     logger,
		lineageKey: lineageKey,
	}, nil
}

// PrepareExport runs the full pipeline for a target: flatten it to
// concrete records, link the ensemble paired through the same sweep,
// and build the file manifest. A target that resolves to no records is
// a fatal ExportError wrapping ErrEmptyTarget.
//
// Capability is not re-checked here; callers gate with Accepts before
// offering the export at all.
func (e *Exporter) PrepareExport(ctx context.Context, target Target) (*Manifest, error) {
	flattened, err := e.Flatten(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(flattened) == 0 {
		return nil, &ExportError{Phase: PhaseFlatten, Gid: target.Gid(), Err: ErrEmptyTarget}
	}

	combined, err := e.Link(ctx, flattened)
	if err != nil {
		return nil, err
	}

	return e.BuildManifest(ctx, combined)
}
