package ledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"vantori-hq/tollgate/pkg/telemetry/logging"
)

const ledgerShardCount = 64

// Ledger exposes balances and two-phase debits over an append-only entry
// store. All writes for one subject run under a per-subject lock, so a
// reserve can never race another reserve past the same balance.
type Ledger struct {
	storage Storage
	logger  *logging.Logger

	locks [ledgerShardCount]sync.Mutex

	// now and newID are replaceable in tests.
	now   func() time.Time
	newID func() string
}

// New creates a ledger over the given storage backend.
func New(storage Storage, logger *logging.Logger) *Ledger {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Ledger{
		storage: storage,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Balance returns the subject's current balance in cents. A subject with
// no entries has a zero balance.
func (l *Ledger) Balance(ctx context.Context, subject string) (int64, error) {
	last, err := l.storage.LastEntry(ctx, subject)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	return last.BalanceAfterCents, nil
}

// Credit adds funds to the subject's balance. When eventID is non-empty
// the credit is idempotent: a replay of an already-recorded event returns
// the original entry without changing the balance.
func (l *Ledger) Credit(ctx context.Context, subject string, amountCents int64, creditKind, eventID string, metadata map[string]string) (*Entry, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amountCents)
	}

	l.lock(subject)
	defer l.unlock(subject)

	if eventID != "" {
		existing, err := l.storage.ByEventID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			l.logger.InfoContext(ctx, "duplicate credit event ignored",
				"subject", subject,
				"event_id", eventID,
			)
			return existing, nil
		}
	}

	balance, err := l.balanceLocked(ctx, subject)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:                l.newID(),
		Subject:           subject,
		Kind:              EntryCredit,
		AmountCents:       amountCents,
		BalanceAfterCents: balance + amountCents,
		EventID:           eventID,
		CreditKind:        creditKind,
		Metadata:          metadata,
		CreatedAt:         l.now(),
	}
	if err := l.storage.Append(ctx, entry); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "credit recorded",
		"subject", subject,
		"amount_cents", amountCents,
		"credit_kind", creditKind,
		"balance_cents", entry.BalanceAfterCents,
	)
	return entry, nil
}

// Reserve provisionally debits the subject for the full amount before the
// paid work runs. It returns the reservation id to commit or void later.
// A zero amount always succeeds; covered executions still flow through the
// ledger for audit symmetry.
func (l *Ledger) Reserve(ctx context.Context, subject string, amountCents int64) (string, error) {
	if amountCents < 0 {
		return "", fmt.Errorf("reserve amount cannot be negative, got %d", amountCents)
	}

	l.lock(subject)
	defer l.unlock(subject)

	balance, err := l.balanceLocked(ctx, subject)
	if err != nil {
		return "", err
	}
	if amountCents > balance {
		return "", &InsufficientFundsError{
			Subject:        subject,
			RequiredCents:  amountCents,
			AvailableCents: balance,
		}
	}

	entry := &Entry{
		ID:                l.newID(),
		Subject:           subject,
		Kind:              EntryReserve,
		AmountCents:       -amountCents,
		BalanceAfterCents: balance - amountCents,
		ReservationID:     l.newID(),
		CreatedAt:         l.now(),
	}
	if err := l.storage.Append(ctx, entry); err != nil {
		return "", err
	}

	l.logger.DebugContext(ctx, "reservation created",
		"subject", subject,
		"reservation_id", entry.ReservationID,
		"amount_cents", amountCents,
		"balance_cents", entry.BalanceAfterCents,
	)
	return entry.ReservationID, nil
}

// Commit finalizes a reservation after the paid work succeeded. The debit
// already happened at reserve time, so the entry's amount is zero. A
// replay against an already-finalized reservation returns the original
// finalizing entry and changes nothing.
func (l *Ledger) Commit(ctx context.Context, reservationID, description string, metadata map[string]string) (*Entry, error) {
	return l.finalize(ctx, reservationID, EntryCommit, description, metadata)
}

// Void refunds a reservation after the paid work failed or was cancelled.
// A replay against an already-finalized reservation returns the original
// finalizing entry and changes nothing.
func (l *Ledger) Void(ctx context.Context, reservationID string) (*Entry, error) {
	return l.finalize(ctx, reservationID, EntryVoid, "", nil)
}

func (l *Ledger) finalize(ctx context.Context, reservationID string, kind EntryKind, description string, metadata map[string]string) (*Entry, error) {
	reserve, final, err := l.reservationState(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if final != nil {
		return final, nil
	}

	l.lock(reserve.Subject)
	defer l.unlock(reserve.Subject)

	// Re-check under the lock; a concurrent replay may have finalized
	// between the lookup and here.
	reserve, final, err = l.reservationState(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if final != nil {
		return final, nil
	}

	balance, err := l.balanceLocked(ctx, reserve.Subject)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:            l.newID(),
		Subject:       reserve.Subject,
		Kind:          kind,
		ReservationID: reservationID,
		Description:   description,
		Metadata:      metadata,
		CreatedAt:     l.now(),
	}
	switch kind {
	case EntryCommit:
		entry.AmountCents = 0
		entry.BalanceAfterCents = balance
	case EntryVoid:
		entry.AmountCents = -reserve.AmountCents
		entry.BalanceAfterCents = balance - reserve.AmountCents
	}

	if err := l.storage.Append(ctx, entry); err != nil {
		return nil, err
	}

	l.logger.DebugContext(ctx, "reservation finalized",
		"subject", reserve.Subject,
		"reservation_id", reservationID,
		"kind", kind,
		"balance_cents", entry.BalanceAfterCents,
	)
	return entry, nil
}

// reservationState returns the reserve entry and, if present, the
// finalizing entry for a reservation.
func (l *Ledger) reservationState(ctx context.Context, reservationID string) (reserve, final *Entry, err error) {
	entries, err := l.storage.ByReservation(ctx, reservationID)
	if err != nil {
		return nil, nil, err
	}

	for _, e := range entries {
		switch {
		case e.Kind == EntryReserve:
			reserve = e
		case e.Finalizes():
			final = e
		}
	}
	if reserve == nil {
		return nil, nil, &ReservationNotFoundError{ReservationID: reservationID}
	}
	return reserve, final, nil
}

// Entries returns the subject's full ledger in creation order.
func (l *Ledger) Entries(ctx context.Context, subject string) ([]*Entry, error) {
	return l.storage.Entries(ctx, subject)
}

// VerifyReplay folds the subject's entries in creation order and checks
// every prefix against the recorded balances. It returns a
// ReplayMismatchError at the first divergence.
func (l *Ledger) VerifyReplay(ctx context.Context, subject string) error {
	entries, err := l.storage.Entries(ctx, subject)
	if err != nil {
		return err
	}

	var sum int64
	for _, e := range entries {
		sum += e.AmountCents
		if sum != e.BalanceAfterCents {
			return &ReplayMismatchError{
				Subject:       subject,
				Seq:           e.Seq,
				ExpectedCents: sum,
				RecordedCents: e.BalanceAfterCents,
			}
		}
	}
	return nil
}

// balanceLocked reads the balance while the caller holds the subject lock.
func (l *Ledger) balanceLocked(ctx context.Context, subject string) (int64, error) {
	last, err := l.storage.LastEntry(ctx, subject)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	return last.BalanceAfterCents, nil
}

func (l *Ledger) lock(subject string) {
	l.locks[ledgerShard(subject)].Lock()
}

func (l *Ledger) unlock(subject string) {
	l.locks[ledgerShard(subject)].Unlock()
}

func ledgerShard(subject string) int {
	h := fnv.New32a()
	h.Write([]byte(subject))
	return int(h.Sum32() % ledgerShardCount)
}
