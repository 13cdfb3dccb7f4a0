// Package fetcher defines the HTTP retrieval contract and its error
// taxonomy. Implementations live in subpackages; everything else in the
// pipeline talks to the network only through this interface.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind buckets fetch failures for the crawler's skip/retry decisions.
type ErrorKind string

// Failure kinds. Timeout and network errors are transient and retried;
// permanent errors (4xx) surface immediately.
const (
	KindTimeout   ErrorKind = "timeout"
	KindNetwork   ErrorKind = "network"
	KindPermanent ErrorKind = "permanent"
)

// Error is the terminal failure returned once retries are exhausted or a
// permanent condition is hit.
type Error struct {
	URL        string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind != KindPermanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// KindForStatus maps an HTTP status to an error kind; 2xx statuses are not
// errors and map to "".
func KindForStatus(status int) ErrorKind {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return KindTimeout
	case status >= 400 && status < 500:
		return KindPermanent
	default:
		return KindNetwork
	}
}

// Response is a successfully fetched page.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	Headers    http.Header
	Duration   time.Duration
}

// Fetcher retrieves a URL. Implementations enforce their own timeout,
// politeness delay and retry discipline; a returned error is final.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}
