package domain

import (
	"fmt"
	"time"
)

// ConnectionError indicates the request never produced an HTTP response.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error fetching %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError indicates the request exceeded its deadline.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout fetching %s: %v", e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// RateLimitedError indicates the per-source rate limit refused the request.
// RetryAfter is the time until the window frees capacity.
type RateLimitedError struct {
	SourceID   string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited for source %q, retry after %s", e.SourceID, e.RetryAfter)
}

// HTTPError indicates a non-2xx HTTP response.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d fetching %s", e.Status, e.URL)
}

// SourceError wraps any failure attributable to a single source, so the
// registry can isolate it without aborting a fan-out.
type SourceError struct {
	SourceID string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q: %v", e.SourceID, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ValidationError indicates a raw record that cannot be normalized. The
// only hard validation failure is a missing URL; every other absent field
// is defaulted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Message)
	}

	return fmt.Sprintf("validation failed: missing field %q", e.Field)
}

// StorageError wraps a persistence failure with the operation that caused it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
