package apperrors

import (
	"errors"
)

// appError is the concrete implementation of Error.
type appError struct {
	msg        string  // primary error message
	base       error   // base error for errors.Is/As compatibility
	wrapped    []error // additional wrapped errors
	statuscode int     // HTTP status code
}

// Error returns the error message, appending the most recently attached
// cause when one is present.
func (e *appError) Error() string {
	if len(e.wrapped) > 1 {
		return e.msg + ": " + e.wrapped[len(e.wrapped)-1].Error()
	}
	return e.msg
}

// Unwrap returns the base error for compatibility with errors.Is / errors.As.
func (e *appError) Unwrap() error {
	return e.base
}

// New creates a fresh error using the current error as a template.
// The new error inherits the status code but starts with a new message.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

// Msg creates a new error with a new message and wraps the original error.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		wrapped:    append([]error{e}, e.wrapped...),
		statuscode: e.statuscode,
	}
}

// Err creates a new error by attaching additional errors to the current one.
// The message and status code are preserved.
func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:        e.msg,
		base:       e,
		wrapped:    append([]error{e}, errs...),
		statuscode: e.statuscode,
	}
}

// SetStatusCode sets the HTTP status code and returns a new error.
func (e *appError) SetStatusCode(code int) Error {
	return &appError{
		msg:        e.msg,
		base:       e.base,
		wrapped:    e.wrapped,
		statuscode: code,
	}
}

// StatusCode returns the HTTP status code associated with the error.
func (e *appError) StatusCode() int {
	return e.statuscode
}

// New creates a new root error with the given message.
func New(msg string) Error {
	return &appError{msg: msg}
}

// Is reports whether any error in err's chain matches target, delegating to
// the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
