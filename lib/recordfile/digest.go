// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package recordfile

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is the 32-byte keyed BLAKE3 digest of an array's raw
// (uncompressed) bytes. Digests are computed before compression so
// they stay valid across codec changes.
type Digest [32]byte

// arrayDomainKey is the BLAKE3 key for array digests. Domain
// separation keeps array digests from ever colliding with hashes
// computed elsewhere over the same bytes. The key is the ASCII
// domain name zero-padded to 32 bytes, so it is readable in hex
// dumps; BLAKE3 keyed mode treats it as an opaque value.
var arrayDomainKey = [32]byte{
	'o', 'f', 'f', 'p', 'r', 'i', 'n', 't', '.', 'r', 'e', 'c', 'o', 'r', 'd', '.',
	'a', 'r', 'r', 'a', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// digestArray computes the array-domain digest of raw payload bytes.
func digestArray(raw []byte) Digest {
	hasher, err := blake3.NewKeyed(arrayDomainKey[:])
	if err != nil {
		panic("recordfile: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(raw)

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// String returns the hex form, the form stored in record files.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText implements encoding.TextMarshaler so digests serialize
// as hex strings in record files and JSON output.
func (d Digest) MarshalText() ([]byte, error) {
	text := make([]byte, hex.EncodedLen(len(d)))
	hex.Encode(text, d[:])
	return text, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	if len(text) != hex.EncodedLen(len(d)) {
		return fmt.Errorf("invalid digest %q: length %d, expected %d", text, len(text), hex.EncodedLen(len(d)))
	}
	if _, err := hex.Decode(d[:], text); err != nil {
		return fmt.Errorf("invalid digest %q: %w", text, err)
	}
	return nil
}
