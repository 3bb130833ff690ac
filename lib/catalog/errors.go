// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"

	"github.com/offprint-labs/offprint/lib/export"
	"github.com/offprint-labs/offprint/lib/gid"
)

// NotFoundError reports that an entity the caller named does not exist
// in the catalog. Kind names the entity class: "record", "group",
// "target", or "operation for record" (operations are looked up
// through the record that names them, so the gid identifies the
// record).
type NotFoundError struct {
	Kind string
	Gid  gid.Gid
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: %s %s not found", err.Kind, err.Gid)
}

// Is matches the gateway's not-found sentinel, the form the export
// pipeline checks for.
func (err *NotFoundError) Is(target error) bool {
	return target == export.ErrNotFound
}

// IsNotFound reports whether err is a catalog not-found error. The
// export pipeline uses this to separate dangling references (skipped
// with a warning) from store failures (fatal).
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
