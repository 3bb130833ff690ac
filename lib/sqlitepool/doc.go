// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the standard SQLite connection pool for
// Offprint's catalog storage.
//
// It wraps zombiezen.com/go/sqlite with production defaults: WAL
// journal mode, NORMAL synchronous for process-crash durability
// without fsync-per-commit overhead, and a busy timeout so concurrent
// writers wait instead of failing with SQLITE_BUSY.
//
// The pool is built on sqlitex.Pool, which manages a fixed-size set
// of connections. Callers [Pool.Take] a connection, perform work, and
// [Pool.Put] it back. Connections are NOT safe for concurrent use —
// each goroutine holds its own connection for the duration of its
// work.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: concurrent readers under a single writer.
//   - synchronous=NORMAL: transactions survive process crashes. Not
//     durable across power failure — acceptable for a catalog whose
//     source of truth is the record files on disk.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock.
//   - foreign_keys=ON: the catalog schema relies on enforced
//     references between records, operations, and operation groups.
//     Group membership is the one table declared without a
//     constraint, so members may dangle after record deletion.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - temp_store=MEMORY: temp tables and indexes in memory.
//
// # Design
//
// The package is intentionally thin: standard pragmas, the zombiezen
// types exposed directly, no query builder. Callers write SQL, use
// sqlitex.Execute for cached statements, and manage transactions with
// sqlitex.ImmediateTransaction.
package sqlitepool
