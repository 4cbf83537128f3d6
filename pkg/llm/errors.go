package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Outcome is the three-way error classification the dispatcher acts on.
// It never inspects vendor-specific error bodies beyond this.
type Outcome int

const (
	// OutcomeRetryable: transient failure, try the next provider in the chain.
	OutcomeRetryable Outcome = iota
	// OutcomeRateLimited: retry the same provider with backoff.
	OutcomeRateLimited
	// OutcomeNonRetryable: bad request or auth failure, skip to fallback
	// immediately without retrying this provider.
	OutcomeNonRetryable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeNonRetryable:
		return "non_retryable"
	default:
		return "retryable"
	}
}

// ProviderError is a typed invocation failure.
type ProviderError struct {
	Vendor     string
	Outcome    Outcome
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (%s, status %d): %v", e.Vendor, e.Outcome, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewStatusError classifies an HTTP status into a ProviderError.
func NewStatusError(vendor string, status int, body string) *ProviderError {
	e := &ProviderError{
		Vendor:     vendor,
		StatusCode: status,
		Err:        fmt.Errorf("status %d: %s", status, body),
	}
	switch {
	case status == http.StatusTooManyRequests:
		e.Outcome = OutcomeRateLimited
	case status == http.StatusBadRequest,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound,
		status == http.StatusUnprocessableEntity:
		e.Outcome = OutcomeNonRetryable
	default:
		e.Outcome = OutcomeRetryable
	}
	return e
}

// NewTransportError wraps a network-level failure as retryable.
func NewTransportError(vendor string, err error) *ProviderError {
	return &ProviderError{
		Vendor:  vendor,
		Outcome: OutcomeRetryable,
		Err:     err,
	}
}

// Classify extracts the outcome from an invocation error. Context
// cancellation is non-retryable: retrying a dead request is pointless.
func Classify(err error) Outcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeNonRetryable
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Outcome
	}
	return OutcomeRetryable
}
