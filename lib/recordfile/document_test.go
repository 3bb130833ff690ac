// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package recordfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/offprint-labs/offprint/lib/gid"
)

// newTestDocument builds a representative document with metadata,
// references, and one float64 payload.
func newTestDocument(t *testing.T) *Document {
	t.Helper()

	array, err := NewFloat64Array("samples", []int64{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("NewFloat64Array: %v", err)
	}

	return &Document{
		Gid:      gid.New(),
		TypeName: "timeseries.region",
		Created:  time.Now().UTC(),
		Metadata: map[string]string{
			"parent_run": "run-19",
			"subject":    "s042",
		},
		Refs: map[string]gid.Gid{
			"connectivity": gid.New(),
			"surface":      gid.Gid{},
		},
		Arrays: []Array{array},
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "op-1", "timeseries.rec")
	doc := newTestDocument(t)

	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if loaded.Gid != doc.Gid {
		t.Errorf("gid: got %s, want %s", loaded.Gid, doc.Gid)
	}
	if loaded.TypeName != doc.TypeName {
		t.Errorf("type: got %q, want %q", loaded.TypeName, doc.TypeName)
	}
	if !loaded.Created.Equal(doc.Created) {
		t.Errorf("created: got %v, want %v", loaded.Created, doc.Created)
	}
	if loaded.Metadata["parent_run"] != "run-19" {
		t.Errorf("metadata: %+v", loaded.Metadata)
	}
	if loaded.Refs["connectivity"] != doc.Refs["connectivity"] {
		t.Errorf("refs: got %+v, want %+v", loaded.Refs, doc.Refs)
	}

	array := loaded.Array("samples")
	if array == nil {
		t.Fatal("array \"samples\" missing after roundtrip")
	}
	values, err := array.Float64s()
	if err != nil {
		t.Fatalf("Float64s: %v", err)
	}
	want := []float64{1, 2, 3, 4, 5, 6}
	for i, v := range values {
		if v != want[i] {
			t.Errorf("values[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestWriteRejectsInvalidDocument(t *testing.T) {
	dir := t.TempDir()

	doc := newTestDocument(t)
	doc.Gid = gid.Gid{}
	if err := Write(filepath.Join(dir, "bad.rec"), doc); err == nil {
		t.Error("Write accepted a document with a zero gid")
	}

	doc = newTestDocument(t)
	doc.Arrays = append(doc.Arrays, doc.Arrays[0])
	if err := Write(filepath.Join(dir, "bad.rec"), doc); err == nil {
		t.Error("Write accepted duplicate array names")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.rec")

	if err := Write(path, newTestDocument(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "doc.rec" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory contains %v, want only doc.rec", names)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.rec"))
	if err == nil {
		t.Fatal("Read of a missing file succeeded")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error %v does not wrap fs.ErrNotExist", err)
	}
}

func TestReadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.rec")
	if err := os.WriteFile(path, []byte("not cbor at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("Read accepted a malformed file")
	}
}

func TestStripMetadataRemovesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.rec")
	if err := Write(path, newTestDocument(t)); err != nil {
		t.Fatal(err)
	}

	if err := StripMetadata(path, "parent_run"); err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}

	loaded, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, present := loaded.Metadata["parent_run"]; present {
		t.Error("parent_run still present after strip")
	}
	if loaded.Metadata["subject"] != "s042" {
		t.Errorf("unrelated metadata disturbed: %+v", loaded.Metadata)
	}
}

func TestStripMetadataAbsentKeyIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.rec")
	if err := Write(path, newTestDocument(t)); err != nil {
		t.Fatal(err)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := StripMetadata(path, "no_such_key"); err != nil {
		t.Fatalf("StripMetadata on absent key: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("file rewritten even though the key was absent")
	}
}

func TestStripMetadataErrors(t *testing.T) {
	if err := StripMetadata(filepath.Join(t.TempDir(), "absent.rec"), "k"); err == nil {
		t.Error("StripMetadata on a missing file succeeded")
	}

	path := filepath.Join(t.TempDir(), "garbage.rec")
	if err := os.WriteFile(path, []byte{0x01, 0x02}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := StripMetadata(path, "k"); err == nil {
		t.Error("StripMetadata on a malformed file succeeded")
	}
}

func TestReferencesSortedWithUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.rec")
	doc := newTestDocument(t)
	doc.Refs = map[string]gid.Gid{
		"zeta":    gid.New(),
		"alpha":   gid.New(),
		"midline": gid.Gid{},
	}
	if err := Write(path, doc); err != nil {
		t.Fatal(err)
	}

	refs, err := ReadReferences(path)
	if err != nil {
		t.Fatalf("ReadReferences: %v", err)
	}

	wantFields := []string{"alpha", "midline", "zeta"}
	if len(refs) != len(wantFields) {
		t.Fatalf("got %d references, want %d", len(refs), len(wantFields))
	}
	for i, field := range wantFields {
		if refs[i].Field != field {
			t.Errorf("refs[%d].Field = %q, want %q", i, refs[i].Field, field)
		}
	}
	if !refs[1].Target.IsZero() {
		t.Error("unset reference lost its zero target")
	}
	if refs[0].Target != doc.Refs["alpha"] {
		t.Errorf("refs[0].Target = %s, want %s", refs[0].Target, doc.Refs["alpha"])
	}
}
