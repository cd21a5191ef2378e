package httpclient

import "context"

// Doer is the interface the platform API client depends on. It allows tests
// to substitute a stub transport without a network listener.
type Doer interface {
	// Do makes an HTTP request with the given options.
	// Returns the response and any transport-level error that occurred.
	Do(ctx context.Context, opts RequestOptions) (*Response, error)
}

// Compile-time check that HTTPClient satisfies Doer.
var _ Doer = &HTTPClient{}
