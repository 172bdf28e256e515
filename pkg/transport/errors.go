package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error is a transport-level failure: the network broke, the request timed
// out, or the API answered with a non-success status. The conversation is
// left untouched when a round fails with an Error, so the caller may retry
// the identical request.
type Error struct {
	Op         string // "complete", "stream", "list models"
	StatusCode int    // 0 when the request never got a response
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("transport: %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport: %s failed", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// DecodeError reports a response frame the client could not parse. It is as
// fatal to a round as a network failure.
type DecodeError struct {
	Op   string
	Data string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("transport: %s: malformed frame %q: %v", e.Op, e.Data, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RateLimitError is returned when the API responds with HTTP 429. It carries
// an optional RetryAfter duration parsed from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// ParseRetryAfter parses the Retry-After header value as either seconds
// (integer) or an HTTP-date (RFC 7231). Returns zero if unparseable or if
// the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
		return 0
	}
	return 0
}
