// Package apperrors provides the error type used across the classline client.
// It implements the standard error interface while adding error chaining and
// HTTP status code management, so transport-layer outcomes can be mapped to
// typed, user-presentable failures.
package apperrors

// Error defines the interface for application errors. It extends the standard
// error interface with error wrapping and status code management. Methods
// returning Error support chaining.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error   // creates a new error using current as template
	Msg(msg string) Error   // creates a new error with message and wraps original
	Err(err ...error) Error // attaches additional errors to current error
	SetStatusCode(int) Error
	StatusCode() int
}
