package subscription

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"vantori-hq/tollgate/pkg/telemetry/logging"
)

const trackerShardCount = 64

// Tracker answers allotment questions for subjects and rolls billing
// periods lazily. The read-roll-write sequence for one subject runs under
// a per-subject lock, so concurrent recordings never lose an increment and
// a period is never rolled twice for the same boundary.
type Tracker struct {
	store  Store
	logger *logging.Logger

	locks [trackerShardCount]sync.Mutex

	// now is replaceable in tests for deterministic timing.
	now func() time.Time
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store, logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe installs or replaces the subject's subscription, starting a
// fresh billing period from now.
func (t *Tracker) Subscribe(ctx context.Context, sub *Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	t.lock(sub.Subject)
	defer t.unlock(sub.Subject)

	now := t.now()
	cp := *sub
	cp.PeriodStart = now
	cp.PeriodEnd = now.Add(cp.PeriodLength)
	cp.ExecutionsUsed = 0
	cp.UpdatedAt = now
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}

	if err := t.store.Put(ctx, &cp); err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}

	t.logger.InfoContext(ctx, "subscription installed",
		"subject", cp.Subject,
		"tier", cp.Tier,
		"included", cp.IncludedPerPeriod,
		"period_end", cp.PeriodEnd,
	)
	return nil
}

// Cancel removes the subject's subscription. Cancelling a subject without
// one is not an error.
func (t *Tracker) Cancel(ctx context.Context, subject string) error {
	t.lock(subject)
	defer t.unlock(subject)

	return t.store.Delete(ctx, subject)
}

// Current returns the subject's subscription with its period rolled
// forward if it had lapsed, or nil when the subject has none.
func (t *Tracker) Current(ctx context.Context, subject string) (*Subscription, error) {
	t.lock(subject)
	defer t.unlock(subject)

	return t.currentLocked(ctx, subject)
}

// RemainingIncluded returns how many covered executions remain in the
// subject's current period. A subject with no subscription has zero.
func (t *Tracker) RemainingIncluded(ctx context.Context, subject string) (int, error) {
	sub, err := t.Current(ctx, subject)
	if err != nil {
		return 0, err
	}
	if sub == nil {
		return 0, nil
	}
	return sub.Remaining(), nil
}

// RecordUsage counts one covered execution against the subject's current
// period. Callers must invoke it only for executions the allotment
// actually covered; overage-priced executions are billed through the
// ledger instead.
func (t *Tracker) RecordUsage(ctx context.Context, subject string) error {
	t.lock(subject)
	defer t.unlock(subject)

	sub, err := t.currentLocked(ctx, subject)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNotFound
	}

	sub.ExecutionsUsed++
	sub.UpdatedAt = t.now()
	if err := t.store.Put(ctx, sub); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// currentLocked loads the subscription and rolls a lapsed period. Callers
// hold the subject lock.
func (t *Tracker) currentLocked(ctx context.Context, subject string) (*Subscription, error) {
	sub, err := t.store.Get(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	now := t.now()
	if now.Before(sub.PeriodEnd) {
		return sub, nil
	}

	sub.ExecutionsUsed = 0
	sub.PeriodStart = now
	sub.PeriodEnd = now.Add(sub.PeriodLength)
	sub.UpdatedAt = now

	if err := t.store.Put(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to roll billing period: %w", err)
	}

	t.logger.InfoContext(ctx, "billing period rolled",
		"subject", sub.Subject,
		"tier", sub.Tier,
		"period_start", sub.PeriodStart,
		"period_end", sub.PeriodEnd,
	)
	return sub, nil
}

func (t *Tracker) lock(subject string) {
	t.locks[shardIndex(subject)].Lock()
}

func (t *Tracker) unlock(subject string) {
	t.locks[shardIndex(subject)].Unlock()
}

func shardIndex(subject string) int {
	h := fnv.New32a()
	h.Write([]byte(subject))
	return int(h.Sum32() % trackerShardCount)
}
