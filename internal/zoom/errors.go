package zoom

import (
	"errors"
	"fmt"
)

// APIError is the base error for Zoom API failures. It carries enough
// context for callers to log and classify the failure without re-reading
// the HTTP response.
type APIError struct {
	// Message is the provider-supplied error message, or the HTTP status text.
	Message string

	// StatusCode is the HTTP status code of the final attempt.
	StatusCode int

	// RequestID is the value of the x-zm-trackingid response header, if any.
	RequestID string

	// RetryAfter is the provider wait hint in seconds, if one was supplied.
	RetryAfter float64

	// Code is the Zoom-specific error code from the response body, if any.
	Code string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("zoom: %s (status %d, request %s)", e.Message, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("zoom: %s (status %d)", e.Message, e.StatusCode)
}

// AuthError indicates authentication failed and a token refresh did not
// recover it. It is fatal to the run; callers must not retry.
type AuthError struct{ APIError }

// PermissionError indicates the provider refused the operation by policy,
// e.g. a host-only download restriction. Never retried.
type PermissionError struct{ APIError }

// RateLimitError indicates the retry budget was exhausted on HTTP 429
// responses. The operation failed; it must not be retried again higher up.
type RateLimitError struct{ APIError }

// TransientError indicates the retry budget was exhausted on 5xx responses
// or network-level failures.
type TransientError struct {
	APIError

	// Err is the underlying network error when the failure never produced
	// an HTTP response.
	Err error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zoom: %s: %v", e.Message, e.Err)
	}
	return e.APIError.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// NotFoundError indicates the requested resource does not exist. Listing
// treats it as an empty result rather than a failure.
type NotFoundError struct{ APIError }

// ValidationError indicates a malformed local input (filter, identifier,
// payload field). Local, never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "zoom: " + e.Message }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

// IsPermission reports whether err is a provider policy refusal.
func IsPermission(err error) bool {
	var e *PermissionError
	return errors.As(err, &e)
}

// IsRateLimit reports whether err is an exhausted rate-limit retry budget.
func IsRateLimit(err error) bool {
	var e *RateLimitError
	return errors.As(err, &e)
}

// IsTransient reports whether err is an exhausted transient-failure budget.
func IsTransient(err error) bool {
	var e *TransientError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a missing-resource response.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
