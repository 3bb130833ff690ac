// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package export prepares stored records for export: deciding whether
// an exporter variant can handle a target (capability filtering),
// resolving ensemble targets to their member records, pairing a
// parameter sweep's ensemble with the measure ensemble derived from it,
// and computing the reference-closure manifest of files an export must
// carry to be self-contained and re-loadable.
//
// The package operates against a Gateway, the record store's lookup
// and file surface; lib/catalog is the production implementation. It
// keeps no state between calls: every PrepareExport owns its own
// traversal bookkeeping, so concurrent exports in a host process need
// no coordination.
//
// Pipeline order: Flatten (target to records), Link (attach the paired
// ensemble), BuildManifest (reference closure with global file dedup
// and lineage stripping). Accepts is the gating predicate hosts call
// before offering a variant; PrepareExport assumes the caller gated.
package export
