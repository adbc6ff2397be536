package subscription

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testSub() *Subscription {
	return &Subscription{
		Subject:           "acct_1",
		Tier:              "basic",
		IncludedPerPeriod: 2,
		PeriodLength:      30 * 24 * time.Hour,
		OveragePriceCents: 50,
	}
}

func newTestTracker(t *testing.T, start time.Time) (*Tracker, *time.Time) {
	t.Helper()

	tr := NewTracker(NewMemoryStore(), nil)
	now := start
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestTracker_SubscribeAndRemaining(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	if err := tr.Subscribe(ctx, testSub()); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	remaining, err := tr.RemainingIncluded(ctx, "acct_1")
	if err != nil {
		t.Fatalf("RemainingIncluded() error: %v", err)
	}
	if remaining != 2 {
		t.Errorf("remaining = %d, want 2", remaining)
	}
}

func TestTracker_NoSubscription(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, time.Now())

	remaining, err := tr.RemainingIncluded(ctx, "acct_none")
	if err != nil {
		t.Fatalf("RemainingIncluded() error: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}

	sub, err := tr.Current(ctx, "acct_none")
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if sub != nil {
		t.Errorf("Current() = %+v, want nil", sub)
	}

	if err := tr.RecordUsage(ctx, "acct_none"); err != ErrNotFound {
		t.Errorf("RecordUsage() error = %v, want ErrNotFound", err)
	}
}

func TestTracker_RecordUsageDrainsAllotment(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	if err := tr.Subscribe(ctx, testSub()); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	for want := 2; want > 0; want-- {
		remaining, err := tr.RemainingIncluded(ctx, "acct_1")
		if err != nil {
			t.Fatalf("RemainingIncluded() error: %v", err)
		}
		if remaining != want {
			t.Errorf("remaining = %d, want %d", remaining, want)
		}
		if err := tr.RecordUsage(ctx, "acct_1"); err != nil {
			t.Fatalf("RecordUsage() error: %v", err)
		}
	}

	remaining, err := tr.RemainingIncluded(ctx, "acct_1")
	if err != nil {
		t.Fatalf("RemainingIncluded() error: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining after drain = %d, want 0", remaining)
	}
}

func TestTracker_LazyPeriodRoll(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr, now := newTestTracker(t, start)

	if err := tr.Subscribe(ctx, testSub()); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	if err := tr.RecordUsage(ctx, "acct_1"); err != nil {
		t.Fatalf("RecordUsage() error: %v", err)
	}
	if err := tr.RecordUsage(ctx, "acct_1"); err != nil {
		t.Fatalf("RecordUsage() error: %v", err)
	}

	// Just before period_end nothing rolls.
	*now = start.Add(30*24*time.Hour - time.Second)
	remaining, err := tr.RemainingIncluded(ctx, "acct_1")
	if err != nil {
		t.Fatalf("RemainingIncluded() error: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining before boundary = %d, want 0", remaining)
	}

	// At period_end the next read starts a fresh period from now.
	rollAt := start.Add(30 * 24 * time.Hour)
	*now = rollAt
	remaining, err = tr.RemainingIncluded(ctx, "acct_1")
	if err != nil {
		t.Fatalf("RemainingIncluded() error: %v", err)
	}
	if remaining != 2 {
		t.Errorf("remaining after roll = %d, want 2", remaining)
	}

	sub, err := tr.Current(ctx, "acct_1")
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if !sub.PeriodStart.Equal(rollAt) {
		t.Errorf("period start = %v, want %v", sub.PeriodStart, rollAt)
	}
	if !sub.PeriodEnd.Equal(rollAt.Add(30 * 24 * time.Hour)) {
		t.Errorf("period end = %v", sub.PeriodEnd)
	}
	if sub.ExecutionsUsed != 0 {
		t.Errorf("executions used after roll = %d", sub.ExecutionsUsed)
	}
}

func TestTracker_Cancel(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, time.Now())

	if err := tr.Subscribe(ctx, testSub()); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	if err := tr.Cancel(ctx, "acct_1"); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	sub, err := tr.Current(ctx, "acct_1")
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if sub != nil {
		t.Error("subscription survived cancellation")
	}
}

// TestTracker_ConcurrentRecording verifies no usage increment is lost when
// many goroutines record against one subject.
func TestTracker_ConcurrentRecording(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), nil)

	sub := testSub()
	sub.IncludedPerPeriod = 1000
	if err := tr.Subscribe(ctx, sub); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	const recordings = 100
	var wg sync.WaitGroup
	for i := 0; i < recordings; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tr.RecordUsage(ctx, "acct_1"); err != nil {
				t.Errorf("RecordUsage() error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := tr.Current(ctx, "acct_1")
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if got.ExecutionsUsed != recordings {
		t.Errorf("executions used = %d, want %d", got.ExecutionsUsed, recordings)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "subs.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}

	sub := testSub()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	sub.PeriodStart = now
	sub.PeriodEnd = now.Add(sub.PeriodLength)
	sub.CreatedAt = now
	sub.UpdatedAt = now

	if err := store.Put(ctx, sub); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := store.Get(ctx, "acct_1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Tier != "basic" || got.OveragePriceCents != 50 {
		t.Errorf("loaded subscription mismatch: %+v", got)
	}
	if !got.PeriodEnd.Equal(sub.PeriodEnd) {
		t.Errorf("period end = %v, want %v", got.PeriodEnd, sub.PeriodEnd)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// State survives reopening.
	store2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer store2.Close()

	got, err = store2.Get(ctx, "acct_1")
	if err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if got.Tier != "basic" {
		t.Errorf("subscription lost across restart: %+v", got)
	}

	if _, err := store2.Get(ctx, "acct_missing"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "subs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	defer store.Close()

	for _, subject := range []string{"acct_a", "acct_b"} {
		sub := testSub()
		sub.Subject = subject
		sub.PeriodStart = time.Now()
		sub.PeriodEnd = sub.PeriodStart.Add(sub.PeriodLength)
		if err := store.Put(ctx, sub); err != nil {
			t.Fatalf("Put(%s) error: %v", subject, err)
		}
	}

	subs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("list length = %d, want 2", len(subs))
	}

	if err := store.Delete(ctx, "acct_a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, "acct_a"); err != ErrNotFound {
		t.Errorf("deleted subscription still present: %v", err)
	}
}
