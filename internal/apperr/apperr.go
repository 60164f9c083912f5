// Package apperr defines application-level errors — failures in
// orchestrating a calculation, as opposed to in-sheet Value.Error
// results, which are ordinary data and never reach this package. The
// gRPC-style code set is extended with the codes this engine's phases
// can raise.
package apperr

import (
	"errors"
	"fmt"
)

// Code mirrors a gRPC-style status code; CLI entry points map it to a
// process exit code. Codes that don't make sense for this engine
// (Unauthenticated, PermissionDenied) are omitted.
type Code int

const (
	OK Code = 0

	// Unknown is used when an underlying error carries no further
	// classification.
	Unknown Code = 2

	// InvalidArgument covers malformed references, unparsable formula
	// text, and config validation failures.
	InvalidArgument Code = 3

	// NotFound covers unknown sheet names and named ranges.
	NotFound Code = 5

	// FailedPrecondition covers a cyclic dependency graph, an
	// unstable volatile replan, or a calculation that does not
	// stabilize within the configured pass count — the workbook cannot
	// be calculated in its current state.
	FailedPrecondition Code = 9

	// OutOfRange covers a workbook whose formula-cell count exceeds the
	// configured MaxGraphNodes limit.
	OutOfRange Code = 11

	// Unimplemented covers a function name with no registered handler.
	Unimplemented Code = 12

	// Internal means an invariant this engine relies on was violated.
	Internal Code = 13
)

// Error is an application-level error carrying a Code for exit-code
// mapping, distinct from an in-sheet Value.Error result.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an Error around an existing error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// ExitCode maps a Code to a CLI process exit code:
// 0 success, 1 parse error, 2 cyclic-dependency (or unstable
// volatile — the pass-level analog of a cycle), 3
// unsupported-function, 4 file-not-found (or any other failure this
// CLI can't classify more precisely).
func ExitCode(code Code) int {
	switch code {
	case OK:
		return 0
	case InvalidArgument:
		return 1
	case FailedPrecondition, OutOfRange:
		return 2
	case Unimplemented:
		return 3
	case NotFound, Unknown, Internal:
		return 4
	default:
		return 4
	}
}

// FromError classifies err into a Code, defaulting to Internal when
// err is not already an *Error.
func FromError(err error) Code {
	if err == nil {
		return OK
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return Internal
}
