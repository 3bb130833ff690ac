// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/offprint-labs/offprint/lib/gid"
)

// sampleEntry is a representative record-file fragment using cbor
// struct tags (the convention for on-disk-only types).
type sampleEntry struct {
	Type     string            `cbor:"type"`
	Metadata map[string]string `cbor:"metadata,omitempty"`
	Count    int               `cbor:"count"`
}

// sampleListing uses json struct tags (the convention for types that
// serve both CLI --json output and CBOR, relying on fxamacker's
// fallback).
type sampleListing struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleEntry{
		Type:     "timeseries.region",
		Metadata: map[string]string{"parent_run": "run-19"},
		Count:    42,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Type != original.Type || decoded.Count != original.Count {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
	if decoded.Metadata["parent_run"] != "run-19" {
		t.Errorf("metadata lost in roundtrip: %+v", decoded.Metadata)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	// Map key order must not leak into the encoding: two maps with
	// the same entries inserted in different orders encode to the
	// same bytes under Core Deterministic Encoding.
	first, err := Marshal(map[string]int{"alpha": 1, "beta": 2, "gamma": 3})
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(map[string]int{"gamma": 3, "alpha": 1, "beta": 2})
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestGidEncodesAsTextString(t *testing.T) {
	g := gid.MustParse("0123456789abcdef0123456789abcdef")

	data, err := Marshal(struct {
		Target gid.Gid `cbor:"target"`
	}{Target: g})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// The hex form must appear literally in the encoding (text
	// string), not as a 16-byte binary blob.
	if !bytes.Contains(data, []byte(g.String())) {
		t.Errorf("gid not encoded as text string: % x", data)
	}

	var decoded struct {
		Target gid.Gid `cbor:"target"`
	}
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Target != g {
		t.Errorf("gid roundtrip: got %s, want %s", decoded.Target, g)
	}
}

func TestJSONTagFallback(t *testing.T) {
	original := sampleListing{Version: 3, Name: "archive"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleListing
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded != original {
		t.Errorf("json-tag roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	// Forward compatibility: documents written by a newer version may
	// carry fields this version does not know.
	data, err := Marshal(map[string]any{
		"type":          "measure",
		"count":         1,
		"future_field":  "whatever",
		"another_field": 99,
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal with unknown fields: %v", err)
	}
	if decoded.Type != "measure" || decoded.Count != 1 {
		t.Errorf("known fields not decoded: %+v", decoded)
	}
}

func TestDefaultMapTypeIsStringKeyed(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": "x"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type %T, want map[string]any", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Errorf("nested map type %T, want map[string]any", outer["outer"])
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var entry sampleEntry
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &entry); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"type": "surface"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, "surface") {
		t.Errorf("diagnostic notation %q does not mention the value", notation)
	}
}

func BenchmarkMarshal(b *testing.B) {
	entry := sampleEntry{
		Type:     "timeseries.region",
		Metadata: map[string]string{"parent_run": "run-19"},
		Count:    42,
	}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(entry)
	}
}
