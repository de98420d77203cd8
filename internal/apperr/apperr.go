// Package apperr defines the error taxonomy shared by the statistics engine
// and its transports.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error class.
type Code string

const (
	CodeNotFound    Code = "not_found"
	CodeValidation  Code = "validation"
	CodeComputation Code = "computation"
	CodeCacheMiss   Code = "cache_miss"
	CodeTimeout     Code = "timeout"
	CodeInternal    Code = "internal"
)

// Error is the domain error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrNotFound    = &Error{Code: CodeNotFound}
	ErrValidation  = &Error{Code: CodeValidation}
	ErrComputation = &Error{Code: CodeComputation}
	ErrCacheMiss   = &Error{Code: CodeCacheMiss}
	ErrTimeout     = &Error{Code: CodeTimeout}
)

func (e *Error) Error() string {
	if e.Cause != nil && e.Message != "" {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Code)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NotFound returns a not_found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Computation returns a computation error.
func Computation(format string, args ...any) *Error {
	return &Error{Code: CodeComputation, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code carried by err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
