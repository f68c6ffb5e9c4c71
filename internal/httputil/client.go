package httputil

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout  = 30 * time.Second
	DownloadTimeout = 5 * time.Minute
)

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return NewClientWithTimeout(DefaultTimeout)
}

// NewClientWithTimeout returns an HTTP client for long transfers such as
// full dataset downloads.
func NewClientWithTimeout(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}
