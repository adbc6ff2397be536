package ratelimit

import (
	"errors"
	"time"
)

// LimitKind identifies a dimension of rate limiting.
type LimitKind string

const (
	// KindRequestsPerMinute limits requests in a trailing one-minute window.
	KindRequestsPerMinute LimitKind = "requests_per_minute"

	// KindRequestsPerHour limits requests in a trailing one-hour window.
	KindRequestsPerHour LimitKind = "requests_per_hour"

	// KindRequestsPerDay limits requests in a trailing 24-hour window.
	KindRequestsPerDay LimitKind = "requests_per_day"

	// KindAgentExecutionsPerHour limits executions of a single agent in a
	// trailing one-hour window. Keys carry the agent identifier as scope.
	KindAgentExecutionsPerHour LimitKind = "agent_executions_per_hour"

	// KindTokensPerMinute limits tokens consumed in a trailing one-minute
	// window.
	KindTokensPerMinute LimitKind = "tokens_per_minute"
)

// Window returns the trailing window duration associated with the kind.
func (k LimitKind) Window() time.Duration {
	switch k {
	case KindRequestsPerMinute, KindTokensPerMinute:
		return time.Minute
	case KindRequestsPerHour, KindAgentExecutionsPerHour:
		return time.Hour
	case KindRequestsPerDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Scoped reports whether keys of this kind carry an agent scope.
func (k LimitKind) Scoped() bool {
	return k == KindAgentExecutionsPerHour
}

// Requirement is a single limit a subject must satisfy: at most Threshold
// admissions of Kind within the trailing Window.
type Requirement struct {
	// Kind is the limit dimension.
	Kind LimitKind

	// Threshold is the maximum number of admitted events in the window.
	// Zero denies every attempt.
	Threshold int

	// Window is the trailing window duration. Must be positive.
	Window time.Duration
}

// ErrInvalidWindow is returned when a requirement carries a non-positive
// window.
var ErrInvalidWindow = errors.New("rate limit window must be positive")

// Validate checks the requirement for construction-time errors.
// A zero threshold is valid (it denies everything); a non-positive window
// is not.
func (r Requirement) Validate() error {
	if r.Window <= 0 {
		return ErrInvalidWindow
	}
	if r.Threshold < 0 {
		return errors.New("rate limit threshold cannot be negative")
	}
	return nil
}

// Key identifies one window of admission state.
type Key struct {
	// Subject is the rate-limited identity (account or API key hash).
	Subject string

	// Kind is the limit dimension.
	Kind LimitKind

	// Scope optionally narrows the key (agent identifier for
	// agent-scoped kinds). Empty for subject-wide kinds.
	Scope string
}

// String returns the canonical map key form.
func (k Key) String() string {
	if k.Scope == "" {
		return k.Subject + "|" + string(k.Kind)
	}
	return k.Subject + "|" + string(k.Kind) + "|" + k.Scope
}

// Decision is the outcome of a single admission check.
type Decision struct {
	// Allowed indicates whether the event was admitted and recorded.
	Allowed bool

	// Kind is the limit dimension that produced this decision.
	Kind LimitKind

	// Limit is the configured threshold.
	Limit int

	// Remaining is how many admissions remain in the window after this
	// decision.
	Remaining int

	// RetryAfter is how long until one slot frees up (denials only).
	RetryAfter time.Duration

	// Reset is when the oldest in-window admission expires.
	Reset time.Time

	// RecordedAt is the timestamp the admission was recorded with
	// (allowed decisions only). It addresses the recorded event for
	// Unrecord.
	RecordedAt time.Time
}
