package pricing

import (
	"context"
	"fmt"
	"math"

	"vantori-hq/tollgate/pkg/subscription"
	"vantori-hq/tollgate/pkg/tier"
)

// Resolver prices executions from the tier policy and the subject's
// subscription state. It has no state of its own; the only side effect of
// Resolve is the lazy period roll inside the subscription tracker.
type Resolver struct {
	tiers   *tier.Registry
	tracker *subscription.Tracker
}

// NewResolver creates a resolver over the tier registry and tracker.
func NewResolver(tiers *tier.Registry, tracker *subscription.Tracker) *Resolver {
	return &Resolver{
		tiers:   tiers,
		tracker: tracker,
	}
}

// Resolve prices one execution of the agent for the subject. The agent
// weight scales basePriceCents before anything else; the included
// allotment and overage price are then decided on the subject's
// subscription, falling back to the default tier for subjects without one.
func (r *Resolver) Resolve(ctx context.Context, subject, agentID string, basePriceCents int64) (*Resolution, error) {
	if basePriceCents < 0 {
		return nil, fmt.Errorf("base price cannot be negative, got %d", basePriceCents)
	}

	weighted := scaleCents(basePriceCents, r.tiers.AgentWeight(agentID))

	sub, err := r.tracker.Current(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscription: %w", err)
	}

	if sub == nil {
		fallback := r.tiers.Default()
		return &Resolution{
			CostCents:             scaleCents(weighted, fallback.Multiplier),
			CoveredBySubscription: false,
			Tier:                  fallback.Name,
			WeightedBaseCents:     weighted,
		}, nil
	}

	if sub.Remaining() > 0 {
		return &Resolution{
			CostCents:             0,
			CoveredBySubscription: true,
			Tier:                  sub.Tier,
			WeightedBaseCents:     weighted,
		}, nil
	}

	return &Resolution{
		CostCents:             sub.OveragePriceCents,
		CoveredBySubscription: false,
		Tier:                  sub.Tier,
		WeightedBaseCents:     weighted,
	}, nil
}

// scaleCents multiplies a cent amount by a factor, rounding half away from
// zero.
func scaleCents(cents int64, factor float64) int64 {
	return int64(math.Round(float64(cents) * factor))
}
