package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a request failure.
type Kind string

const (
	// KindAuth indicates credential issuance failed.
	KindAuth Kind = "auth"

	// KindRateLimited indicates the backoff budget was exhausted on 429s.
	KindRateLimited Kind = "rate_limited"

	// KindUpstream indicates a non-200, non-429 origin response.
	KindUpstream Kind = "upstream"

	// KindTransport indicates a network or parse fault.
	KindTransport Kind = "transport"
)

// Common errors returned by the client.
var (
	// ErrBackoffExhausted is returned when the linear backoff budget is spent.
	ErrBackoffExhausted = errors.New("backoff budget exhausted")

	// ErrCancelled is returned when the context is cancelled during backoff.
	ErrCancelled = errors.New("request cancelled")
)

// APIError is the tagged failure outcome of a fetch. Exactly one logical
// request produces at most one APIError; the client never panics and never
// lets transport faults escape unclassified.
type APIError struct {
	// Kind is the failure classification.
	Kind Kind

	// StatusCode is the HTTP status, when a response was received (0 otherwise).
	StatusCode int

	// Detail is the parsed origin error body, when present. The origin
	// returns structured error bodies even on failures.
	Detail json.RawMessage

	// Err is the underlying cause, when any.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("lms %s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("lms %s error: %v", e.Kind, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("lms %s error (status %d): %s", e.Kind, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("lms %s error", e.Kind)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain.
// Returns the empty Kind for nil or foreign errors.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// retryable reports whether a failure kind is absorbed by backoff.
// Only rate limiting is retried: upstream errors are final answers from the
// origin, and transport faults are surfaced for the caller to decide.
func retryable(kind Kind) bool {
	return kind == KindRateLimited
}
