// Package builderr defines the typed failure raised by build components.
package builderr

import (
	"errors"
	"fmt"
)

// CodeGeneral is used when a failure carries no process exit code of its own.
const CodeGeneral = 1

// Error is a build failure with a human-readable message and the exit code
// that should surface as the pipeline result.
type Error struct {
	Message string
	Code    int
	Err     error
}

// New creates an Error with the given exit code.
func New(code int, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Code: code}
}

// Wrap creates an Error carrying err as its cause.
func Wrap(err error, code int, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Code: code, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the exit code carried by err. A nil error maps to 0 and an
// untyped error maps to CodeGeneral.
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	var be *Error
	if errors.As(err, &be) && be.Code != 0 {
		return be.Code
	}
	return CodeGeneral
}
