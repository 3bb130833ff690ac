// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/offprint-labs/offprint/lib/record"
)

// Link attaches the ensemble structurally paired with flattened
// through a shared parameter sweep, producing one combined list in a
// stable order: sweep results precede the measures derived from them.
//
// The branch is chosen by flattened[0]'s role. Derived measures pull
// in the primary ensemble of the sweep that produced their source
// record and prepend it; primary records pull in the sweep's
// derived-measure ensemble and append it. Records outside any sweep,
// or sweeps without a paired ensemble, link to themselves: the input
// is returned unchanged.
func (e *Exporter) Link(ctx context.Context, flattened []*record.Record) ([]*record.Record, error) {
	if len(flattened) == 0 {
		return nil, &ExportError{Phase: PhaseLink, Err: ErrEmptyTarget}
	}

	if flattened[0].Role == record.RoleDerivedMeasure {
		return e.linkMeasures(ctx, flattened)
	}
	return e.linkPrimaries(ctx, flattened)
}

// linkMeasures prepends the primary ensemble the measures were
// computed over: a reviewer receives the sweep context before the
// metrics derived from it.
func (e *Exporter) linkMeasures(ctx context.Context, measures []*record.Record) ([]*record.Record, error) {
	head := measures[0]
	if head.SourceGid.IsZero() {
		return measures, nil
	}

	source, err := e.gateway.LoadRecord(ctx, head.SourceGid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.logger.Warn("measure source no longer resolves, exporting measures alone",
				"measure", head.Gid, "source", head.SourceGid)
			return measures, nil
		}
		return nil, &ExportError{Phase: PhaseLink, Gid: head.Gid,
			Err: fmt.Errorf("loading measure source %s: %w", head.SourceGid, err)}
	}

	paired, err := e.pairedGroup(ctx, source, record.RolePrimary)
	if err != nil {
		return nil, err
	}
	if paired == nil {
		return measures, nil
	}

	primaries, err := e.Flatten(ctx, Target{Group: paired})
	if err != nil {
		return nil, err
	}

	combined := make([]*record.Record, 0, len(primaries)+len(measures))
	combined = append(combined, primaries...)
	combined = append(combined, measures...)
	return combined, nil
}

// linkPrimaries appends the derived-measure ensemble produced by the
// same sweep as the primaries.
func (e *Exporter) linkPrimaries(ctx context.Context, primaries []*record.Record) ([]*record.Record, error) {
	paired, err := e.pairedGroup(ctx, primaries[0], record.RoleDerivedMeasure)
	if err != nil {
		return nil, err
	}
	if paired == nil {
		return primaries, nil
	}

	measures, err := e.Flatten(ctx, Target{Group: paired})
	if err != nil {
		return nil, err
	}

	combined := make([]*record.Record, 0, len(primaries)+len(measures))
	combined = append(combined, primaries...)
	combined = append(combined, measures...)
	return combined, nil
}

// pairedGroup finds the ensemble of the given role produced by the
// sweep that produced r: nil when r ran outside any sweep or the sweep
// has no such ensemble. More than one match is a store inconsistency
// surfaced as a link failure.
func (e *Exporter) pairedGroup(ctx context.Context, r *record.Record, role record.Role) (*record.Group, error) {
	operation, err := e.gateway.OperationForRecord(ctx, r)
	if err != nil {
		return nil, &ExportError{Phase: PhaseLink, Gid: r.Gid,
			Err: fmt.Errorf("loading producing operation: %w", err)}
	}
	if operation.OperationGroupID == 0 {
		return nil, nil
	}

	group, err := e.gateway.GroupForOperationGroup(ctx, operation.OperationGroupID, role)
	if err != nil {
		return nil, &ExportError{Phase: PhaseLink, Gid: r.Gid, Err: err}
	}
	return group, nil
}
