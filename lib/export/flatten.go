// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/offprint-labs/offprint/lib/record"
)

// Flatten resolves a target to the concrete records to package: the
// record itself, or the ensemble's members in stored order. A member
// whose record no longer resolves is skipped with a warning rather
// than failing the whole ensemble. The result never contains nil
// entries; it may be empty (an empty or fully dangling ensemble), and
// callers decide whether emptiness is fatal.
func (e *Exporter) Flatten(ctx context.Context, target Target) ([]*record.Record, error) {
	if target.Record != nil {
		return []*record.Record{target.Record}, nil
	}
	if target.Group == nil {
		return nil, &ExportError{Phase: PhaseFlatten, Err: fmt.Errorf("target names neither record nor ensemble")}
	}

	members, err := e.gateway.ListMembers(ctx, target.Group.Gid)
	if err != nil {
		return nil, &ExportError{Phase: PhaseFlatten, Gid: target.Group.Gid, Err: fmt.Errorf("listing members: %w", err)}
	}

	records := make([]*record.Record, 0, len(members))
	for _, member := range members {
		rec, err := e.gateway.LoadRecord(ctx, member.Gid)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				e.logger.Warn("ensemble member no longer resolves, skipping",
					"group", target.Group.Gid, "member", member.Gid)
				continue
			}
			return nil, &ExportError{Phase: PhaseFlatten, Gid: member.Gid, Err: fmt.Errorf("loading member: %w", err)}
		}
		records = append(records, rec)
	}
	return records, nil
}
