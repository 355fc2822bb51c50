package integrations

import (
	"errors"
	"net/http"
	"time"
)

const httpTimeout = 15 * time.Second

var (
	// ErrNotFound is returned when the upstream has no such resource.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with the standard upstream timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
