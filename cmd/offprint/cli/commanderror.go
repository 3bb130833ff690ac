// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies command errors so the binary's main function
// can pick the process exit code without parsing error message text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// missing required arguments, wrong argument count, unparseable
	// values. Exits 2, the conventional usage-error code.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not exist:
	// unknown gid, missing registry file. Retrying with the same
	// arguments will not help.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryInternal indicates an unexpected error: bugs, I/O
	// failures, parse errors on data the system produced.
	CategoryInternal ErrorCategory = "internal"
)

// CommandError is a categorized error returned by CLI commands.
//
// CommandError wraps an inner error, preserving the full error chain
// for debugging while adding the category. Use the category-specific
// constructors (Validation, NotFound, Internal) rather than
// constructing CommandError directly.
type CommandError struct {
	// Category classifies the error for exit-code selection.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error

	// Hint suggests a follow-up action. Shown after the error message,
	// separated by a blank line. Set via WithHint.
	Hint string
}

// Error returns the error message, with the hint appended when one is
// set. The category is not included in the string — it only drives the
// exit code.
func (e *CommandError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

// Unwrap returns the underlying error, allowing errors.Is and
// errors.As to walk the full chain through the CommandError wrapper.
func (e *CommandError) Unwrap() error { return e.Err }

// WithHint attaches a follow-up suggestion to the error and returns
// the receiver, so constructors chain:
//
//	return cli.NotFound("no record or group with gid %s", arg).
//	    WithHint("Run 'offprint catalog ls' to see stored records.")
func (e *CommandError) WithHint(hint string) *CommandError {
	e.Hint = hint
	return e
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *CommandError {
	return &CommandError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced resource does not exist.
func NotFound(format string, args ...any) *CommandError {
	return &CommandError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *CommandError {
	return &CommandError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a validation-category
// CommandError. The main function exits 2 for these.
func IsValidation(err error) bool {
	var commandErr *CommandError
	return errors.As(err, &commandErr) && commandErr.Category == CategoryValidation
}
