package admission

import (
	"context"
	"fmt"

	"vantori-hq/tollgate/pkg/admission/ratelimit"
	"vantori-hq/tollgate/pkg/pricing"
)

// Operation is the caller-supplied paid work. It is opaque to the
// controller; whatever error it returns is passed through unchanged after
// cleanup.
type Operation func(ctx context.Context) error

// Request describes one prospective execution.
type Request struct {
	// Subject is the billed identity.
	Subject string

	// Tier is the subject's tier name. Empty selects the default tier.
	Tier string

	// Agent identifies which agent will run; it scopes per-agent limits
	// and carries the cost weight.
	Agent string

	// BasePriceCents is the unweighted price of one execution.
	BasePriceCents int64

	// Requirements overrides the tier's limit set when non-nil. Most
	// callers leave it nil and take the tier's limits.
	Requirements []ratelimit.Requirement
}

// Validate checks the request for construction-time errors.
func (r *Request) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("subject cannot be empty")
	}
	if r.BasePriceCents < 0 {
		return fmt.Errorf("base price cannot be negative")
	}
	for _, req := range r.Requirements {
		if err := req.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Outcome reports a successfully admitted and completed execution.
type Outcome struct {
	// Resolution is the pricing decision the execution was billed under.
	Resolution *pricing.Resolution

	// ReservationID is the ledger reservation that was committed.
	ReservationID string
}
