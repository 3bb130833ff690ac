// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"errors"
	"fmt"

	"github.com/offprint-labs/offprint/lib/gid"
)

// Phase names the pipeline stage an export failure occurred in.
type Phase string

const (
	PhaseFlatten  Phase = "flatten"
	PhaseLink     Phase = "link"
	PhaseManifest Phase = "manifest"
)

// ErrNotFound is the sentinel gateway lookups match (errors.Is) when a
// named entity does not exist. The pipeline uses it to separate
// dangling references, which are skipped with a warning, from store
// failures, which abort the export.
var ErrNotFound = errors.New("not found")

// ErrEmptyTarget is wrapped by export failures caused by a target that
// resolves to no records: an empty ensemble, or one whose members have
// all been deleted.
var ErrEmptyTarget = errors.New("target resolves to no records")

// ExportError is the distinct failure category for export preparation.
// Gid identifies the record or ensemble in hand when the failure
// occurred, zero when the failure is not attributable to one.
type ExportError struct {
	Phase Phase
	Gid   gid.Gid
	Err   error
}

func (err *ExportError) Error() string {
	if err.Gid.IsZero() {
		return fmt.Sprintf("export %s: %v", err.Phase, err.Err)
	}
	return fmt.Sprintf("export %s: %s: %v", err.Phase, err.Gid, err.Err)
}

func (err *ExportError) Unwrap() error {
	return err.Err
}

// IsExportError reports whether err is an export preparation failure,
// as opposed to a store or I/O failure surfaced unwrapped.
func IsExportError(err error) bool {
	var exportError *ExportError
	return errors.As(err, &exportError)
}
