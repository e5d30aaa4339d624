package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient builds a client tuned for long-lived streaming responses.
// A zero timeout leaves the exchange bounded only by its request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}
