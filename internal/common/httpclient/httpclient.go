// Package httpclient provides a configurable HTTP client for talking to the
// classroom platform REST API. It handles bearer authentication, request
// building, and error extraction from server responses. The package requires
// a Configurator implementation for server configuration and credentials.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Configurator defines the interface for providing server configuration and
// authentication details.
type Configurator interface {
	GetServerURL() string
	GetToken() string
}

// HTTPError represents an error response from the server with HTTP status
// code and message.
type HTTPError struct {
	StatusCode int    // HTTP status code of the error
	Message    string // Error message or response body
}

// Error implements the error interface for HTTPError.
func (e *HTTPError) Error() string {
	return e.Message
}

// Response holds the outcome of a completed HTTP exchange. Non-2xx status
// codes are returned here rather than as errors; callers own the mapping of
// status codes to typed outcomes.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response status is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err converts a non-2xx response into an *HTTPError, extracting the server's
// error message from the body when one is present. Returns nil for 2xx.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	msg := string(r.Body)
	for _, field := range []string{"detail.error", "detail", "error"} {
		if v := gjson.GetBytes(r.Body, field); v.Exists() && v.Type == gjson.String {
			msg = v.String()
			break
		}
	}
	return &HTTPError{StatusCode: r.StatusCode, Message: msg}
}

// HTTPClient represents a client for making HTTP requests to the platform
// API server.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	DisableCertValidation bool // If true, skips SSL certificate validation
}

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}

	httpClient := &http.Client{}
	if clientOpts.DisableCertValidation {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
	}
}

// RequestOptions contains options for making HTTP requests.
// Method and Path are required; the rest are optional.
type RequestOptions struct {
	Method      string            // HTTP method (GET, POST, PUT, DELETE)
	Path        string            // API endpoint path
	QueryParams map[string]string // Optional query parameters
	Body        []byte            // Optional request body
	Token       string            // Optional bearer token overriding the configured one
}

// Do makes an HTTP request with the given options. Only transport-level
// failures are returned as errors; server-side failure statuses come back in
// the Response for the caller to map. Authentication uses the per-request
// token when set, otherwise the configured token.
func (c *HTTPClient) Do(ctx context.Context, opts RequestOptions) (*Response, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %v", err)
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewBuffer(opts.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Request-ID", uuid.NewString())

	token := opts.Token
	if token == "" {
		token = c.config.GetToken()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// MorphServer ensures the server URL is properly formatted.
// Adds https:// prefix if missing and removes trailing slashes.
func MorphServer(server string) string {
	if server == "" {
		return server
	}
	server = strings.TrimRight(server, "/")
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}
	return server
}
