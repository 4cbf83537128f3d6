package entity

import "errors"

// Dispatch and ledger error taxonomy. Only a subset is ever surfaced to
// callers; rate limits and ledger write conflicts are retried internally.
var (
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrRateLimited           = errors.New("provider rate limited")
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	ErrLedgerWriteConflict   = errors.New("ledger write conflict")
	ErrRefundTargetInvalid   = errors.New("refund target invalid")
)

// ErrorKind maps an error to the stable code exposed in API responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownProvider):
		return "UNKNOWN_PROVIDER"
	case errors.Is(err, ErrInsufficientCredits):
		return "INSUFFICIENT_CREDITS"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, ErrProviderUnavailable):
		return "PROVIDER_UNAVAILABLE"
	case errors.Is(err, ErrAllProvidersExhausted):
		return "ALL_PROVIDERS_EXHAUSTED"
	case errors.Is(err, ErrRefundTargetInvalid):
		return "REFUND_TARGET_INVALID"
	default:
		return "INTERNAL_ERROR"
	}
}
