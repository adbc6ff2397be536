package tier

import (
	"fmt"
	"time"

	"vantori-hq/tollgate/pkg/admission/ratelimit"
)

// Tier is a named service level. It fixes every admission and pricing
// parameter a subject inherits by subscribing to it.
type Tier struct {
	// Name is the tier identifier, unique within a policy.
	Name string

	// Multiplier scales the base price of every execution for subjects
	// on this tier. Applied before the included-allotment decision.
	Multiplier float64

	// ConcurrencyCap is the maximum number of simultaneously executing
	// operations. Zero means no paid executions at all.
	ConcurrencyCap int

	// IncludedExecutions is the allotment of covered executions per
	// billing period.
	IncludedExecutions int

	// PeriodLength is the billing period duration.
	PeriodLength time.Duration

	// OveragePriceCents is the flat price, in cents, of each execution
	// beyond the included allotment.
	OveragePriceCents int64

	// Limits maps each enforced limit kind to its threshold. Kinds not
	// present are not enforced for this tier.
	Limits map[ratelimit.LimitKind]int
}

// Requirements returns the tier's limits as validated check requirements,
// in a stable order.
func (t Tier) Requirements() []ratelimit.Requirement {
	kinds := []ratelimit.LimitKind{
		ratelimit.KindRequestsPerMinute,
		ratelimit.KindRequestsPerHour,
		ratelimit.KindRequestsPerDay,
		ratelimit.KindAgentExecutionsPerHour,
		ratelimit.KindTokensPerMinute,
	}

	var reqs []ratelimit.Requirement
	for _, kind := range kinds {
		threshold, ok := t.Limits[kind]
		if !ok {
			continue
		}
		reqs = append(reqs, ratelimit.Requirement{
			Kind:      kind,
			Threshold: threshold,
			Window:    kind.Window(),
		})
	}
	return reqs
}

// Validate checks the tier for construction-time errors.
func (t Tier) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tier name cannot be empty")
	}
	if t.Multiplier < 0 {
		return fmt.Errorf("tier %q: multiplier cannot be negative", t.Name)
	}
	if t.ConcurrencyCap < 0 {
		return fmt.Errorf("tier %q: concurrency cap cannot be negative", t.Name)
	}
	if t.IncludedExecutions < 0 {
		return fmt.Errorf("tier %q: included executions cannot be negative", t.Name)
	}
	if t.PeriodLength <= 0 {
		return fmt.Errorf("tier %q: period length must be positive", t.Name)
	}
	if t.OveragePriceCents < 0 {
		return fmt.Errorf("tier %q: overage price cannot be negative", t.Name)
	}
	for kind := range t.Limits {
		if kind.Window() == 0 {
			return fmt.Errorf("tier %q: unknown limit kind %q", t.Name, kind)
		}
		if t.Limits[kind] < 0 {
			return fmt.Errorf("tier %q: limit %q cannot be negative", t.Name, kind)
		}
	}
	return nil
}

// Policy is a complete pricing and limits policy: the tier catalog, the
// fallback tier for subjects with no subscription, and per-agent cost
// weights.
type Policy struct {
	// Version identifies this revision of the policy document. It is
	// stamped into commit-entry metadata so ledger entries record which
	// policy priced them.
	Version string

	// DefaultTier names the tier applied to subjects without an active
	// subscription.
	DefaultTier string

	// Tiers is the tier catalog keyed by name.
	Tiers map[string]Tier

	// AgentWeights maps agent identifiers to cost weights. Agents not
	// listed weigh 1.0.
	AgentWeights map[string]float64
}

// Validate checks the policy for construction-time errors.
func (p *Policy) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("policy defines no tiers")
	}
	if p.DefaultTier == "" {
		return fmt.Errorf("default_tier cannot be empty")
	}
	if _, ok := p.Tiers[p.DefaultTier]; !ok {
		return fmt.Errorf("default_tier %q is not a defined tier", p.DefaultTier)
	}
	for name, t := range p.Tiers {
		if t.Name != name {
			return fmt.Errorf("tier %q keyed under %q", t.Name, name)
		}
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for agent, w := range p.AgentWeights {
		if w <= 0 {
			return fmt.Errorf("agent %q: weight must be positive", agent)
		}
	}
	return nil
}
