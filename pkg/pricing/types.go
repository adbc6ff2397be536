package pricing

// Resolution is the priced outcome for one prospective execution.
type Resolution struct {
	// CostCents is what the execution will cost, in cents. Zero when the
	// subscription covers it.
	CostCents int64 `json:"cost_cents"`

	// CoveredBySubscription reports whether the included allotment
	// absorbs this execution. Only covered executions count against the
	// allotment after they succeed.
	CoveredBySubscription bool `json:"covered_by_subscription"`

	// Tier is the tier name the decision was made under.
	Tier string `json:"tier"`

	// WeightedBaseCents is the base price after the agent weight was
	// applied, before the subscription decision.
	WeightedBaseCents int64 `json:"weighted_base_cents"`
}
