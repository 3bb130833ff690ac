// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package export_test

import (
	"context"
	"testing"

	"github.com/offprint-labs/offprint/lib/export"
	"github.com/offprint-labs/offprint/lib/gid"
	"github.com/offprint-labs/offprint/lib/record"
)

func TestAccepts(t *testing.T) {
	fx := buildSweep(t)
	exporter := fx.store.exporter()
	ctx := context.Background()

	tests := []struct {
		name    string
		target  export.Target
		variant string
		want    bool
	}{
		{
			name:    "time series record for archive",
			target:  export.Target{Record: fx.ts[0]},
			variant: "archive",
			want:    true,
		},
		{
			name:    "measure record for archive",
			target:  export.Target{Record: fx.measures[0]},
			variant: "archive",
			want:    true,
		},
		{
			name:    "subtype accepted through parent",
			target:  export.Target{Record: fx.ts[0]},
			variant: "series-matrix",
			want:    true,
		},
		{
			name:    "unsupported type refused",
			target:  export.Target{Record: fx.ts[0]},
			variant: "mesh",
			want:    false,
		},
		{
			name:    "unknown variant refused",
			target:  export.Target{Record: fx.ts[0]},
			variant: "zip",
			want:    false,
		},
		{
			name:    "non-exportable type refused",
			target:  export.Target{Record: fx.tsConfigs[0]},
			variant: "archive",
			want:    false,
		},
		{
			name:    "ensemble for group-capable variant",
			target:  export.Target{Group: fx.tsGroup},
			variant: "archive",
			want:    true,
		},
		{
			name:    "ensemble refused by record-only variant",
			target:  export.Target{Group: fx.tsGroup},
			variant: "series-matrix",
			want:    false,
		},
		{
			name:    "empty target refused",
			target:  export.Target{},
			variant: "archive",
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exporter.Accepts(ctx, tt.target, tt.variant); got != tt.want {
				t.Errorf("Accepts(%s, %q) = %v, want %v", tt.target.Gid(), tt.variant, got, tt.want)
			}
		})
	}
}

func TestAcceptsEmptyEnsemble(t *testing.T) {
	store := newTestStore(t)
	operationGroup := store.addOperationGroup("sweep-pending")
	group := store.addGroup("pending", "time_series_region", record.RolePrimary, operationGroup, nil)
	exporter := store.exporter()

	if exporter.Accepts(context.Background(), export.Target{Group: group}, "archive") {
		t.Error("empty ensemble accepted, want refusal")
	}
}

func TestAcceptsEnsembleWithOnlyDanglingMembers(t *testing.T) {
	fx := buildSweep(t)
	exporter := fx.store.exporter()
	ctx := context.Background()

	for _, ts := range fx.ts {
		if err := fx.store.catalog.DeleteRecord(ctx, ts.Gid); err != nil {
			t.Fatalf("DeleteRecord: %v", err)
		}
	}

	if exporter.Accepts(ctx, export.Target{Group: fx.tsGroup}, "archive") {
		t.Error("ensemble with no resolving members accepted, want refusal")
	}
}

func TestAcceptsTypeUnknownToRegistry(t *testing.T) {
	// The catalog stores any type name; the capability table decides
	// what leaves the store.
	store := newTestStore(t)
	op := store.addOperation(0, gid.Gid{})
	mystery := store.addRecord(recordSpec{
		typeName:  "mystery_payload",
		role:      record.RolePrimary,
		operation: op,
		folder:    "op-0",
	})
	exporter := store.exporter()

	if exporter.Accepts(context.Background(), export.Target{Record: mystery}, "archive") {
		t.Error("record of unregistered type accepted, want refusal")
	}
}
