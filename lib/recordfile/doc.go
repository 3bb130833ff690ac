// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package recordfile reads and writes the on-disk document backing
// each catalog record.
//
// A record file is a single CBOR document (lib/codec's deterministic
// modes) holding the record's identity, its free-form metadata, its
// named references to other records, and zero or more numeric array
// payloads. Arrays are compressed per payload (lz4, zstd, or a
// byte-shuffle transpose followed by lz4 for numeric data) and carry
// a keyed BLAKE3 digest of the raw bytes, verified on every decode.
//
// Writes are atomic: the document is staged in a temp file in the
// target directory and renamed into place, so readers never see a
// partial file and a failed rewrite leaves the original intact. The
// export pipeline depends on that for StripMetadata, which
// read-modify-rewrites a file in place to remove lineage markers.
package recordfile
