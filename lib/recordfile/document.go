// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package recordfile

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/offprint-labs/offprint/lib/codec"
	"github.com/offprint-labs/offprint/lib/gid"
)

// Document is the on-disk form of one record. This is a disk-only
// contract (cbor tags); the CLI presents documents through its own
// view types.
type Document struct {
	Gid      gid.Gid           `cbor:"gid"`
	TypeName string            `cbor:"type"`
	Created  time.Time         `cbor:"created"`
	Metadata map[string]string `cbor:"metadata,omitempty"`

	// Refs are the record's named reference fields. A zero gid means
	// the field exists but is unset; the reference walk skips those.
	Refs map[string]gid.Gid `cbor:"refs,omitempty"`

	Arrays []Array `cbor:"arrays,omitempty"`
}

// Reference is one named reference field extracted from a document.
// Appears in CLI output, hence json tags.
type Reference struct {
	Field  string  `json:"field"`
	Target gid.Gid `json:"target"`
}

// Validate checks that a document is well-formed enough to write.
func (d *Document) Validate() error {
	if d.Gid.IsZero() {
		return fmt.Errorf("document has zero gid")
	}
	if d.TypeName == "" {
		return fmt.Errorf("document %s has empty type name", d.Gid)
	}
	seen := make(map[string]bool, len(d.Arrays))
	for i := range d.Arrays {
		a := &d.Arrays[i]
		if a.Name == "" {
			return fmt.Errorf("document %s: array %d has empty name", d.Gid, i)
		}
		if seen[a.Name] {
			return fmt.Errorf("document %s: duplicate array name %q", d.Gid, a.Name)
		}
		seen[a.Name] = true
		if _, err := dtypeWidth(a.DType); err != nil {
			return fmt.Errorf("document %s: array %q: %w", d.Gid, a.Name, err)
		}
	}
	return nil
}

// Array returns the named array payload, or nil when absent.
func (d *Document) Array(name string) *Array {
	for i := range d.Arrays {
		if d.Arrays[i].Name == name {
			return &d.Arrays[i]
		}
	}
	return nil
}

// References returns the document's reference fields in field-name
// order, including unset (zero-gid) fields.
func (d *Document) References() []Reference {
	refs := make([]Reference, 0, len(d.Refs))
	for field, target := range d.Refs {
		refs = append(refs, Reference{Field: field, Target: target})
	}
	slices.SortFunc(refs, func(a, b Reference) int {
		return strings.Compare(a.Field, b.Field)
	})
	return refs
}

// Write atomically persists a document. The bytes are staged in a
// temp file next to the target and renamed into place, so readers
// never observe a partial document.
func Write(path string, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("writing record file %s: %w", path, err)
	}
	data, err := codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling record document %s: %w", doc.Gid, err)
	}
	return writeFileAtomic(path, data)
}

// Read loads a document. Returns an error wrapping fs.ErrNotExist when
// the file is absent.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record file %s: %w", path, err)
	}

	var doc Document
	if err := codec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding record file %s: %w", path, err)
	}
	return &doc, nil
}

// ReadReferences loads a document and returns its reference fields in
// field-name order.
func ReadReferences(path string) ([]Reference, error) {
	doc, err := Read(path)
	if err != nil {
		return nil, err
	}
	return doc.References(), nil
}

// StripMetadata removes one metadata key from the document at path
// and rewrites it atomically. A missing key is a no-op: the file is
// not rewritten and no error is returned. Malformed documents and I/O
// failures are returned for the caller's policy to judge.
func StripMetadata(path, key string) error {
	doc, err := Read(path)
	if err != nil {
		return err
	}

	if _, present := doc.Metadata[key]; !present {
		return nil
	}
	delete(doc.Metadata, key)
	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}

	if err := Write(path, doc); err != nil {
		return fmt.Errorf("rewriting record file after stripping %q: %w", key, err)
	}
	return nil
}

// writeFileAtomic stages data in a temp file in path's directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating record directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing record file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp record file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming record file to %s: %w", path, err)
	}

	success = true
	return nil
}
