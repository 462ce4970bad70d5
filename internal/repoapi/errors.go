package repoapi

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError reports a path the repository does not contain.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("repoapi: not found: %s", e.Path)
}

// RateLimitError reports a rate-limited request. Reset is zero when the API
// did not advertise one. Callers stop the crawl and surface it; retrying
// immediately only burns more quota.
type RateLimitError struct {
	Path  string
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return fmt.Sprintf("repoapi: rate limited: %s", e.Path)
	}
	return fmt.Sprintf("repoapi: rate limited: %s (resets %s)", e.Path, e.Reset.UTC().Format(time.RFC3339))
}

// TransportError reports any other failure to complete a request: network
// trouble, an unexpected HTTP status, or an undecodable payload. Status is
// zero when the request never completed.
type TransportError struct {
	Op     string
	Path   string
	Status int
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("repoapi: %s %s", e.Op, e.Path)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsRateLimit reports whether err wraps a RateLimitError.
func IsRateLimit(err error) bool {
	var e *RateLimitError
	return errors.As(err, &e)
}
