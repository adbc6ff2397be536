package admission

import (
	"fmt"
	"time"

	"vantori-hq/tollgate/pkg/admission/ratelimit"
)

// RateLimitedError denies a request that breached a sliding-window limit.
// RetryAfter is when the oldest in-window event expires and one slot frees.
type RateLimitedError struct {
	Kind       ratelimit.LimitKind
	Limit      int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited on %s (limit %d): retry after %s",
		e.Kind, e.Limit, e.RetryAfter)
}

// RetryAfterSeconds returns the retry hint rounded up to whole seconds,
// suitable for a Retry-After header. Never less than 1.
func (e *RateLimitedError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// ConcurrencyLimitedError denies a request because the subject already has
// its cap of in-flight executions.
type ConcurrencyLimitedError struct {
	Cap int
}

// Error implements the error interface.
func (e *ConcurrencyLimitedError) Error() string {
	return fmt.Sprintf("concurrency limited: %d executions already in flight", e.Cap)
}

// InsufficientFundsError denies a request whose cost the subject's balance
// cannot cover. Both figures are carried so the caller can render an
// upgrade prompt without a second round trip.
type InsufficientFundsError struct {
	RequiredCents  int64
	AvailableCents int64
}

// Error implements the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d cents, available %d cents",
		e.RequiredCents, e.AvailableCents)
}

// OperationFailedError wraps a failure of the guarded operation itself.
// The reservation was voided; the inner error is passed through unchanged.
type OperationFailedError struct {
	Cause error
}

// Error implements the error interface.
func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("operation failed: %v", e.Cause)
}

// Unwrap returns the guarded operation's own error.
func (e *OperationFailedError) Unwrap() error {
	return e.Cause
}
