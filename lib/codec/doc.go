// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Offprint's standard CBOR encoding
// configuration.
//
// Offprint uses three serialization formats with a clear boundary:
//
//   - CBOR for record documents on disk (lib/recordfile) and any
//     other binary state the tool owns.
//   - JSON for CLI --json output and the capability registry
//     definition files (JSONC, stripped to JSON before decoding).
//   - YAML for tool configuration (lib/config).
//
// This package holds the shared CBOR modes so every package encodes
// identically without duplicating configuration. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. Same logical document
// always produces identical bytes, which keeps record files stable
// under read-modify-rewrite and makes digests meaningful.
//
// Types that only ever live in record files carry `cbor` struct tags.
// Types that also appear in CLI --json output carry `json` tags;
// fxamacker/cbor reads them as fallback, so one tag serves both
// formats. Never put both tags on a field.
package codec
