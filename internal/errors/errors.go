// Package errors provides coded domain errors for the baking pipeline.
//
// Usage:
//
//	// In components - return typed errors
//	if len(doc.Spine) == 0 {
//	    return errors.MalformedMetadata("spine is empty")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrMalformedMetadata) {
//	    // fatal: nothing was written
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the pipeline.
const (
	// CodeMalformedMetadata is fatal: the metadata document is missing or
	// invalid and nothing can proceed.
	CodeMalformedMetadata Code = "MALFORMED_METADATA"

	// CodeDurationMismatch is a warning: cumulative part durations diverge
	// from the declared total beyond tolerance. Processing continues.
	CodeDurationMismatch Code = "DURATION_MISMATCH"

	// CodePartWriteFailure is a per-part error, collected and reported
	// without aborting the batch.
	CodePartWriteFailure Code = "PART_WRITE_FAILURE"

	// CodeTagWarning is informational: a known-benign warning surfaced by
	// the tag writer.
	CodeTagWarning Code = "TAG_WARNING"

	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "VALIDATION"
	CodeInternal   Code = "INTERNAL"
)

// Fatal reports whether an error with this code aborts the whole run.
func (c Code) Fatal() bool {
	switch c {
	case CodeDurationMismatch, CodePartWriteFailure, CodeTagWarning:
		return false
	default:
		return true
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrMalformedMetadata = &Error{Code: CodeMalformedMetadata, Message: "malformed metadata"}
	ErrDurationMismatch  = &Error{Code: CodeDurationMismatch, Message: "duration mismatch"}
	ErrPartWriteFailure  = &Error{Code: CodePartWriteFailure, Message: "part write failure"}
	ErrTagWarning        = &Error{Code: CodeTagWarning, Message: "tag warning"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// MalformedMetadata creates a malformed metadata error naming the
// missing or invalid field.
func MalformedMetadata(msg string) *Error {
	return &Error{Code: CodeMalformedMetadata, Message: msg}
}

// MalformedMetadataf creates a malformed metadata error with a formatted message.
func MalformedMetadataf(format string, args ...any) *Error {
	return &Error{Code: CodeMalformedMetadata, Message: fmt.Sprintf(format, args...)}
}

// DurationMismatch creates a duration mismatch warning.
func DurationMismatch(msg string) *Error {
	return &Error{Code: CodeDurationMismatch, Message: msg}
}

// DurationMismatchf creates a duration mismatch warning with a formatted message.
func DurationMismatchf(format string, args ...any) *Error {
	return &Error{Code: CodeDurationMismatch, Message: fmt.Sprintf(format, args...)}
}

// PartWriteFailure creates a per-part write failure.
func PartWriteFailure(msg string) *Error {
	return &Error{Code: CodePartWriteFailure, Message: msg}
}

// PartWriteFailuref creates a per-part write failure with a formatted message.
func PartWriteFailuref(format string, args ...any) *Error {
	return &Error{Code: CodePartWriteFailure, Message: fmt.Sprintf(format, args...)}
}

// TagWarning creates an informational tag writer warning.
func TagWarning(msg string) *Error {
	return &Error{Code: CodeTagWarning, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
