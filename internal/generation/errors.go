// Package generation wraps the external text-generation provider with the
// resilience the rest of the system relies on: process-wide pacing, retry
// with backoff, a shared circuit breaker, and per-tenant credential
// resolution.
package generation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// CircuitOpenError indicates the circuit breaker rejected the call without
// attempting the provider.
type CircuitOpenError struct {
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("generation service unavailable: circuit open, retry in %s", e.RetryAfter.Round(time.Second))
}

// RateLimitedError indicates retries were exhausted against provider
// overload or rate-limit responses.
type RateLimitedError struct {
	Attempts int
	Cause    error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("generation rate limited after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RateLimitedError) Unwrap() error {
	return e.Cause
}

// QuotaExceededError indicates the provider reported an exhausted quota that
// did not recover within the retry budget.
type QuotaExceededError struct {
	Cause error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("generation quota exceeded: %v", e.Cause)
}

func (e *QuotaExceededError) Unwrap() error {
	return e.Cause
}

// InvalidCredentialError indicates the tenant's (or shared) API key was
// rejected or missing.
type InvalidCredentialError struct {
	Cause error
}

func (e *InvalidCredentialError) Error() string {
	return fmt.Sprintf("generation credential invalid: %v", e.Cause)
}

func (e *InvalidCredentialError) Unwrap() error {
	return e.Cause
}

// UnclassifiedError wraps provider failures that match no known signal.
type UnclassifiedError struct {
	Cause error
}

func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *UnclassifiedError) Unwrap() error {
	return e.Cause
}

// failureKind classifies a provider error for retry and surfacing decisions.
type failureKind int

const (
	kindUnclassified failureKind = iota
	kindOverloaded               // transient overload or rate limit; retryable
	kindQuota                    // quota exhaustion; retryable, may recover within the window
	kindBadCredential
)

// classify inspects a provider error. It checks googleapi status codes first
// and falls back to message sniffing since the Gemini SDK does not always
// surface structured errors.
func classify(err error) failureKind {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			if strings.Contains(strings.ToLower(apiErr.Message), "quota") {
				return kindQuota
			}
			return kindOverloaded
		case 500, 502, 503:
			return kindOverloaded
		case 401, 403:
			return kindBadCredential
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		return kindQuota
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "try again"):
		return kindOverloaded
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "permission denied"):
		return kindBadCredential
	default:
		return kindUnclassified
	}
}

func (k failureKind) retryable() bool {
	return k == kindOverloaded || k == kindQuota
}

// surface converts the last provider error into the typed error callers see.
func surface(kind failureKind, attempts int, err error) error {
	switch kind {
	case kindOverloaded:
		return &RateLimitedError{Attempts: attempts, Cause: err}
	case kindQuota:
		return &QuotaExceededError{Cause: err}
	case kindBadCredential:
		return &InvalidCredentialError{Cause: err}
	default:
		return &UnclassifiedError{Cause: err}
	}
}
