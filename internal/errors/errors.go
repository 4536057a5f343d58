package errors

import (
	"errors"
	"fmt"
)

// Error is the typed error carried through service layers so the HTTP boundary
// can map an error kind to a status code without string matching.
type Error struct {
	Code    ErrorCode
	Message string
	Status  int // optional override; 0 means use Code.HTTPStatus()
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus returns the status override when set, else the code default.
func (e *Error) HTTPStatus() int {
	if e.Status >= 400 && e.Status < 600 {
		return e.Status
	}
	return e.Code.HTTPStatus()
}

// New creates a typed error with the default status for its code.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStatus creates a typed error with an explicit HTTP status, used to pass
// through upstream statuses in the 400-599 range.
func WithStatus(code ErrorCode, message string, status int) *Error {
	if status < 400 || status >= 600 {
		status = 502
	}
	return &Error{Code: code, Message: message, Status: status}
}

// Wrap attaches a cause to a typed error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// AsError extracts a typed error from an error chain. Untyped errors map to
// an internal error so nothing leaks raw messages to clients.
func AsError(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Code: ErrCodeInternalError, Message: "internal error", cause: err}
}

// CodeOf returns the error code of an error chain, or ErrCodeInternalError.
func CodeOf(err error) ErrorCode {
	return AsError(err).Code
}
