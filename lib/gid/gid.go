// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

// Package gid provides the record identifier used throughout the
// catalog and the export pipeline. A Gid is a 128-bit value rendered
// as 32 lowercase hex characters with no separators, so it sorts and
// compares the same in memory, in SQLite, and inside record files.
package gid

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// EncodedLen is the length of a Gid's text form.
const EncodedLen = 32

// Gid identifies one record or record group. The zero value means
// "unset" and is valid wherever a reference is optional.
type Gid [16]byte

// New returns a fresh random Gid.
func New() Gid {
	return Gid(uuid.New())
}

// Parse decodes the 32-character hex form. Both cases are accepted;
// the canonical form produced by String is lowercase.
func Parse(s string) (Gid, error) {
	if len(s) != EncodedLen {
		return Gid{}, fmt.Errorf("invalid gid %q: length %d, expected %d", s, len(s), EncodedLen)
	}
	var g Gid
	if _, err := hex.Decode(g[:], []byte(s)); err != nil {
		return Gid{}, fmt.Errorf("invalid gid %q: %w", s, err)
	}
	return g, nil
}

// MustParse is Parse for compiled-in and test fixtures. It panics on
// invalid input.
func MustParse(s string) Gid {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// String returns the canonical 32-character lowercase hex form.
func (g Gid) String() string {
	return hex.EncodeToString(g[:])
}

// IsZero reports whether this is the unset zero-value Gid.
func (g Gid) IsZero() bool {
	return g == Gid{}
}

// MarshalText implements encoding.TextMarshaler so Gids serialize as
// hex strings in CBOR, JSON, and YAML.
func (g Gid) MarshalText() ([]byte, error) {
	text := make([]byte, EncodedLen)
	hex.Encode(text, g[:])
	return text, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gid) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
