// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the domain types the catalog stores and the
// export pipeline consumes: records, record groups (ensembles),
// operations, and the role tag that separates primary results from
// measures derived over them.
package record

import (
	"fmt"
	"time"

	"github.com/offprint-labs/offprint/lib/gid"
)

// Record is one stored artifact. Records are immutable once written;
// the export subsystem only reads them.
type Record struct {
	Gid      gid.Gid `json:"gid"`
	TypeName string  `json:"type"`
	Role     Role    `json:"role"`

	// SourceGid is the time-series a derived measure was computed
	// from. Zero for primary records. The pairing between measure
	// ensembles and their source ensembles runs through this field
	// plus the operation group.
	SourceGid gid.Gid `json:"source_gid,omitzero"`

	// OperationID is the provenance operation that produced this
	// record.
	OperationID int64 `json:"operation_id"`

	// StoragePath is the record file's path relative to the store's
	// data root.
	StoragePath string `json:"storage_path"`

	Created time.Time `json:"created"`
}

// Validate checks the ingestion invariants. The catalog refuses rows
// that fail here.
func (r *Record) Validate() error {
	if r.Gid.IsZero() {
		return fmt.Errorf("record has zero gid")
	}
	if r.TypeName == "" {
		return fmt.Errorf("record %s has empty type name", r.Gid)
	}
	if r.StoragePath == "" {
		return fmt.Errorf("record %s has empty storage path", r.Gid)
	}
	if r.OperationID == 0 {
		return fmt.Errorf("record %s has no producing operation", r.Gid)
	}
	switch r.Role {
	case RolePrimary:
		if !r.SourceGid.IsZero() {
			return fmt.Errorf("primary record %s carries a source gid", r.Gid)
		}
	case RoleDerivedMeasure:
		if r.SourceGid.IsZero() {
			return fmt.Errorf("derived-measure record %s has no source gid", r.Gid)
		}
	default:
		return fmt.Errorf("record %s has unknown role %d", r.Gid, r.Role)
	}
	return nil
}

// Group is an ensemble: an ordered collection of same-typed records
// produced by one parameter sweep. Membership lives in the catalog
// (position-indexed) and is listed separately; a Group value carries
// only the ensemble's own identity.
type Group struct {
	Gid      gid.Gid `json:"gid"`
	Name     string  `json:"name"`
	TypeName string  `json:"type"`
	Role     Role    `json:"role"`

	// OperationGroupID ties the ensemble to the sweep that produced
	// it. Paired ensembles (primary results and their derived
	// measures) share this id.
	OperationGroupID int64 `json:"operation_group_id"`

	Created time.Time `json:"created"`
}

// Validate checks the ingestion invariants for an ensemble.
func (g *Group) Validate() error {
	if g.Gid.IsZero() {
		return fmt.Errorf("group has zero gid")
	}
	if g.Name == "" {
		return fmt.Errorf("group %s has empty name", g.Gid)
	}
	if g.TypeName == "" {
		return fmt.Errorf("group %s has empty type name", g.Gid)
	}
	if g.OperationGroupID == 0 {
		return fmt.Errorf("group %s has no operation group", g.Gid)
	}
	if g.Role != RolePrimary && g.Role != RoleDerivedMeasure {
		return fmt.Errorf("group %s has unknown role %d", g.Gid, g.Role)
	}
	return nil
}

// Member is one entry of an ensemble's membership listing. TypeName
// is empty when the member record no longer resolves (deleted after
// grouping); callers decide whether to skip or fail.
type Member struct {
	Gid      gid.Gid `json:"gid"`
	TypeName string  `json:"type"`
}

// Operation is the provenance unit for a record: which run produced
// it and which configuration record parameterized that run.
type Operation struct {
	ID int64 `json:"id"`

	// OperationGroupID is non-zero when the operation ran as part of
	// a parameter sweep.
	OperationGroupID int64 `json:"operation_group_id,omitzero"`

	// ConfigurationGid references the configuration record
	// (view-model) that drove this operation. Zero when the
	// operation was not parameterized by a stored configuration.
	ConfigurationGid gid.Gid `json:"configuration_gid,omitzero"`

	Status  Status    `json:"status"`
	Created time.Time `json:"created"`
}

// Status is an operation's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
)

// Valid reports whether s is one of the known operation states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusFinished, StatusError, StatusCanceled:
		return true
	}
	return false
}
