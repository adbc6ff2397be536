package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vantori-hq/tollgate/pkg/admission/concurrency"
	"vantori-hq/tollgate/pkg/admission/ratelimit"
	"vantori-hq/tollgate/pkg/ledger"
	"vantori-hq/tollgate/pkg/pricing"
	"vantori-hq/tollgate/pkg/subscription"
	"vantori-hq/tollgate/pkg/telemetry/logging"
	"vantori-hq/tollgate/pkg/tier"
)

// Controller runs the admission pipeline. It owns no domain state itself;
// it sequences the limiter, slot manager, resolver, ledger, and tracker
// and guarantees their cleanup obligations hold on every path.
type Controller struct {
	tiers    *tier.Registry
	limiter  *ratelimit.Limiter
	slots    *concurrency.SlotManager
	resolver *pricing.Resolver
	ledger   *ledger.Ledger
	tracker  *subscription.Tracker
	metrics  *Metrics
	logger   *logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// ControllerConfig wires the controller's collaborators.
type ControllerConfig struct {
	Tiers    *tier.Registry
	Limiter  *ratelimit.Limiter
	Slots    *concurrency.SlotManager
	Resolver *pricing.Resolver
	Ledger   *ledger.Ledger
	Tracker  *subscription.Tracker

	// Metrics may be nil; a nil value registers on the default
	// Prometheus registerer.
	Metrics *Metrics

	// Logger may be nil; a nil value discards logs.
	Logger *logging.Logger
}

// NewController creates a controller from its collaborators.
func NewController(cfg ControllerConfig) *Controller {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{
		tiers:    cfg.Tiers,
		limiter:  cfg.Limiter,
		slots:    cfg.Slots,
		resolver: cfg.Resolver,
		ledger:   cfg.Ledger,
		tracker:  cfg.Tracker,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// AdmitAndRun admits the request through every gate, runs the operation,
// and settles the billing. Denials come back as typed errors before the
// operation runs; operation failures and cancellations void the
// reservation and surface as OperationFailedError.
func (c *Controller) AdmitAndRun(ctx context.Context, req Request, op Operation) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := c.now()

	t, err := c.lookupTier(req.Tier)
	if err != nil {
		return nil, err
	}

	requirements := req.Requirements
	if requirements == nil {
		requirements = t.Requirements()
	}

	// Rate limits first: a denied request touches nothing else. When a
	// later requirement denies, admissions already recorded in earlier
	// windows for this request are unrecorded, so a denied request
	// consumes no budget anywhere.
	type recorded struct {
		key ratelimit.Key
		at  time.Time
	}
	var admitted []recorded
	for _, r := range requirements {
		key := ratelimit.Key{Subject: req.Subject, Kind: r.Kind}
		if r.Kind.Scoped() {
			key.Scope = req.Agent
		}
		d := c.limiter.CheckAndRecord(key, r.Threshold, r.Window)
		if !d.Allowed {
			for _, a := range admitted {
				c.limiter.Unrecord(a.key, a.at)
			}
			c.metrics.RecordDecision(t.Name, "rate_limited")
			c.metrics.RecordRateLimitHit(t.Name, string(r.Kind))
			c.logger.DebugContext(ctx, "rate limit denial",
				"subject", req.Subject,
				"limit_kind", r.Kind,
				"retry_after", d.RetryAfter,
			)
			return nil, &RateLimitedError{
				Kind:       r.Kind,
				Limit:      r.Threshold,
				RetryAfter: d.RetryAfter,
			}
		}
		admitted = append(admitted, recorded{key: key, at: d.RecordedAt})
	}

	if !c.slots.Acquire(req.Subject, t.ConcurrencyCap) {
		c.metrics.RecordDecision(t.Name, "concurrency_limited")
		return nil, &ConcurrencyLimitedError{Cap: t.ConcurrencyCap}
	}
	// The single release for this acquire. Deferring it here makes it
	// unconditional for every path below, panics included.
	defer c.slots.Release(req.Subject)

	resolution, err := c.resolver.Resolve(ctx, req.Subject, req.Agent, req.BasePriceCents)
	if err != nil {
		return nil, fmt.Errorf("cost resolution failed: %w", err)
	}

	reservationID, err := c.ledger.Reserve(ctx, req.Subject, resolution.CostCents)
	if err != nil {
		var insufficient *ledger.InsufficientFundsError
		if errors.As(err, &insufficient) {
			c.metrics.RecordDecision(t.Name, "insufficient_funds")
			return nil, &InsufficientFundsError{
				RequiredCents:  insufficient.RequiredCents,
				AvailableCents: insufficient.AvailableCents,
			}
		}
		return nil, fmt.Errorf("failed to reserve funds: %w", err)
	}
	c.metrics.RecordReservation("reserve")
	c.metrics.RecordDecision(t.Name, "admitted")
	c.metrics.RecordAdmitDuration("admit", c.now().Sub(start).Seconds())

	c.metrics.ExecutionStarted(t.Name)
	opErr := c.runGuarded(ctx, reservationID, op)
	c.metrics.ExecutionFinished(t.Name)

	// A cancelled request never bills, even if the operation happened to
	// return nil on its way out.
	if opErr == nil && ctx.Err() != nil {
		opErr = ctx.Err()
	}

	if opErr != nil {
		c.voidReservation(ctx, reservationID)
		result := "failure"
		if errors.Is(opErr, context.Canceled) || errors.Is(opErr, context.DeadlineExceeded) {
			result = "cancelled"
		}
		c.metrics.RecordExecution(t.Name, result)
		return nil, &OperationFailedError{Cause: opErr}
	}

	if _, err := c.ledger.Commit(ctx, reservationID, commitDescription(req), c.commitMetadata(req)); err != nil {
		c.metrics.RecordExecution(t.Name, "failure")
		c.logger.ErrorContext(ctx, "failed to commit reservation",
			"subject", req.Subject,
			"reservation_id", reservationID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	c.metrics.RecordReservation("commit")

	if resolution.CoveredBySubscription {
		if err := c.tracker.RecordUsage(ctx, req.Subject); err != nil {
			// The work completed and was billed as covered; a missed
			// usage increment undercounts the allotment, which favors
			// the subject. Log it rather than failing the request.
			c.logger.ErrorContext(ctx, "failed to record covered usage",
				"subject", req.Subject,
				"error", err,
			)
		}
	}

	c.metrics.RecordExecution(t.Name, "success")
	return &Outcome{
		Resolution:    resolution,
		ReservationID: reservationID,
	}, nil
}

// runGuarded executes the operation, voiding the reservation if it
// panics. The panic is re-raised; the deferred slot release in
// AdmitAndRun still runs.
func (c *Controller) runGuarded(ctx context.Context, reservationID string, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.voidReservation(ctx, reservationID)
			panic(r)
		}
	}()
	return op(ctx)
}

// voidReservation refunds a reservation on the failure path. The cleanup
// must outlive the request's own context; a cancelled request still gets
// its refund. A void that fails here is a leak for the reconciler to
// sweep.
func (c *Controller) voidReservation(ctx context.Context, reservationID string) {
	cleanupCtx := context.WithoutCancel(ctx)
	if _, err := c.ledger.Void(cleanupCtx, reservationID); err != nil {
		c.logger.ErrorContext(cleanupCtx, "failed to void reservation",
			"reservation_id", reservationID,
			"error", err,
		)
		return
	}
	c.metrics.RecordReservation("void")
}

func (c *Controller) lookupTier(name string) (tier.Tier, error) {
	if name == "" {
		return c.tiers.Default(), nil
	}
	t, ok := c.tiers.Lookup(name)
	if !ok {
		return tier.Tier{}, fmt.Errorf("unknown tier %q", name)
	}
	return t, nil
}

func commitDescription(req Request) string {
	if req.Agent == "" {
		return "execution for " + req.Subject
	}
	return "execution of " + req.Agent + " for " + req.Subject
}

// commitMetadata stamps the request context and the active policy
// version into the commit entry, tying each billed execution to the
// policy document that priced it.
func (c *Controller) commitMetadata(req Request) map[string]string {
	md := map[string]string{"subject": req.Subject}
	if req.Agent != "" {
		md["agent"] = req.Agent
	}
	if v := c.tiers.Version(); v != "" {
		md["policy_version"] = v
	}
	return md
}
