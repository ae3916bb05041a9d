package client

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the registry responds with a 404.
var ErrNotFound = errors.New("not found")

// HTTPError represents a non-retryable HTTP error response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// RetryError is returned when all retry attempts for a URL are exhausted.
type RetryError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("giving up on %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
