// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog is the SQLite-backed record inventory: records,
// ensembles, the operations that produced them, and the mapping from
// records to their files under the data directory.
//
// The catalog is the gateway the export pipeline works against (it
// implements lib/export's Gateway interface): loading records and
// ensemble members, resolving producing operations and paired
// ensembles, and the per-file operations manifest building needs
// (path resolution, lineage stripping, reference listing).
//
// Rows are authoritative for identity and relationships; the record
// files under the data directory are authoritative for payloads. The
// two meet at the records table's storage_path column, which is always
// relative to the data directory so a store can be relocated
// wholesale.
package catalog
