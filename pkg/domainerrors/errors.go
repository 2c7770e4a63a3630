// Package domainerrors defines the error-code taxonomy shared across the
// detection pipeline. Every package that crosses a trust boundary (parsing,
// rule evaluation, state-store I/O) wraps failures in a *Error carrying one
// of the codes below, so callers can branch on Code rather than string
// matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies the nature of a failure.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeConflict           Code = "conflict"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal"
)

// Error is the concrete error type produced by New and Wrap.
type Error struct {
	code    Code
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the classification code e was constructed with. Use CodeOf
// for an arbitrary error, which defaults to CodeInternal.
func (e *Error) Code() Code {
	return e.code
}

// New constructs an Error with no underlying cause.
func New(code Code, message string) error {
	return &Error{code: code, message: message}
}

// Newf constructs an Error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error, preserving it for
// errors.Unwrap / errors.Is chains.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{code: code, message: message, cause: cause}
}

// HasCode reports whether the first *Error in err's chain carries code;
// *Errors further down the chain are not checked.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.code == code
	}
	return false
}

// CodeOf extracts the Code from err, defaulting to CodeInternal when err
// does not carry one of ours.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
