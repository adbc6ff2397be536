package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Subscription is one subject's active plan and period state.
type Subscription struct {
	// Subject is the billed identity this subscription belongs to.
	Subject string `json:"subject"`

	// Tier is the name of the subscribed tier.
	Tier string `json:"tier"`

	// IncludedPerPeriod is the allotment of covered executions per
	// billing period.
	IncludedPerPeriod int `json:"included_per_period"`

	// PeriodLength is the billing period duration.
	PeriodLength time.Duration `json:"period_length"`

	// OveragePriceCents is the flat price, in cents, of each execution
	// beyond the included allotment.
	OveragePriceCents int64 `json:"overage_price_cents"`

	// PeriodStart is when the current billing period began.
	PeriodStart time.Time `json:"period_start"`

	// PeriodEnd is when the current billing period ends. The period is
	// half-open: an instant equal to PeriodEnd belongs to the next
	// period.
	PeriodEnd time.Time `json:"period_end"`

	// ExecutionsUsed counts covered executions consumed this period.
	// Invariant: 0 <= ExecutionsUsed <= IncludedPerPeriod.
	ExecutionsUsed int `json:"executions_used"`

	// CreatedAt is when the subscription was first recorded.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the subscription state last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Remaining returns how many covered executions are left this period.
func (s *Subscription) Remaining() int {
	r := s.IncludedPerPeriod - s.ExecutionsUsed
	if r < 0 {
		return 0
	}
	return r
}

// Validate checks the subscription for construction-time errors.
func (s *Subscription) Validate() error {
	if s.Subject == "" {
		return fmt.Errorf("subject cannot be empty")
	}
	if s.Tier == "" {
		return fmt.Errorf("tier cannot be empty")
	}
	if s.IncludedPerPeriod < 0 {
		return fmt.Errorf("included allotment cannot be negative")
	}
	if s.PeriodLength <= 0 {
		return fmt.Errorf("period length must be positive")
	}
	if s.OveragePriceCents < 0 {
		return fmt.Errorf("overage price cannot be negative")
	}
	if s.ExecutionsUsed < 0 {
		return fmt.Errorf("executions used cannot be negative")
	}
	return nil
}

// ErrNotFound is returned when a subject has no stored subscription.
var ErrNotFound = errors.New("subscription not found")

// Store persists subscription state.
type Store interface {
	// Get returns the subject's subscription, or ErrNotFound.
	Get(ctx context.Context, subject string) (*Subscription, error)

	// Put inserts or replaces the subject's subscription.
	Put(ctx context.Context, sub *Subscription) error

	// Delete removes the subject's subscription. Deleting an absent
	// subscription is not an error.
	Delete(ctx context.Context, subject string) error

	// List returns every stored subscription.
	List(ctx context.Context) ([]*Subscription, error)

	// Close releases any resources held by the store.
	Close() error
}
