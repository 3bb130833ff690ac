// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package record

import "fmt"

// Role tags a record (and an ensemble) as either a primary result or
// a measure derived from one. The tag is assigned once at ingestion;
// the export pipeline branches on it instead of inspecting record
// structure.
type Role uint8

const (
	// RolePrimary marks first-class results: time series, surfaces,
	// connectivities, configurations.
	RolePrimary Role = iota

	// RoleDerivedMeasure marks scalar or low-dimensional metrics
	// computed from a primary record, linked back to it through
	// Record.SourceGid.
	RoleDerivedMeasure
)

// String returns the role's text form.
func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleDerivedMeasure:
		return "derived-measure"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole decodes the text form produced by String.
func ParseRole(s string) (Role, error) {
	switch s {
	case "primary":
		return RolePrimary, nil
	case "derived-measure":
		return RoleDerivedMeasure, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// MarshalText implements encoding.TextMarshaler so roles render as
// their names in JSON output.
func (r Role) MarshalText() ([]byte, error) {
	if r != RolePrimary && r != RoleDerivedMeasure {
		return nil, fmt.Errorf("cannot marshal unknown role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
