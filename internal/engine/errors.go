package engine

import (
	"errors"
	"fmt"
)

// Argument errors reported by statement kinds. Kinds wrap these with
// fmt.Errorf so the reason survives in the process failure.
var (
	ErrWrongArity    = errors.New("wrong arity")
	ErrWrongType     = errors.New("wrong type")
	ErrBadArgument   = errors.New("bad argument")
	ErrUnknownModule = errors.New("unknown module")
)

// RuntimeError represents an error detected by the engine while driving a
// process.
//
// Runtime errors include:
//   - Unresolved reference: an argument or method object could not be found
//   - Quota exceeded: a slot backtracked more often than WithMaxCycles allows
//   - Unknown module: a statement names a module that is not registered
//   - Statement failed: a statement raised SignalDeadError or failed to start
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Process is the path of the affected process.
	Process string

	// Index is the statement index inside Process, or -1.
	Index int

	// Statement is the statement description (e.g. `concat("a") c`).
	Statement string

	// Cause is the underlying error, if any.
	Cause error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnresolved indicates a variable or object reference did not resolve.
	ErrCodeUnresolved RuntimeErrorCode = "UNRESOLVED"

	// ErrCodeQuotaExceeded indicates a slot exceeded its backtrack cycle quota.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeUnknownModule indicates a statement names an unregistered module.
	ErrCodeUnknownModule RuntimeErrorCode = "UNKNOWN_MODULE"

	// ErrCodeStatementFailed indicates a statement went DeadError.
	ErrCodeStatementFailed RuntimeErrorCode = "STATEMENT_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Process != "" && e.Index >= 0 {
		return fmt.Sprintf("%s (process=%s, index=%d)", msg, e.Process, e.Index)
	}
	if e.Process != "" {
		return fmt.Sprintf("%s (process=%s)", msg, e.Process)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and CyclesExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded) || IsCyclesExceededError(err)
}

// IsUnresolvedError returns true if the error is an unresolved reference.
func IsUnresolvedError(err error) bool {
	return hasCode(err, ErrCodeUnresolved)
}

// hasCode walks the RuntimeError chain looking for code.
func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	for errors.As(err, &re) {
		if re.Code == code {
			return true
		}
		if re.Cause == nil {
			return false
		}
		err = re.Cause
	}
	return false
}

// NewUnresolvedError creates a RuntimeError for a reference that did not resolve.
func NewUnresolvedError(what, ref string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnresolved,
		Message: fmt.Sprintf("%s %q does not resolve", what, ref),
		Index:   -1,
	}
}

// NewQuotaError creates a RuntimeError for an exceeded cycle quota.
func NewQuotaError(cause *CyclesExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: "backtrack quota spent",
		Index:   -1,
		Cause:   cause,
	}
}
