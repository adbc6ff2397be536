package ledger

import (
	"context"
	"fmt"
	"time"
)

// EntryKind identifies what a ledger entry records.
type EntryKind string

const (
	// EntryReserve is a provisional debit written before paid work runs.
	EntryReserve EntryKind = "reserve"

	// EntryCommit finalizes a reservation after the work succeeded. The
	// amount is zero; the debit happened at reserve time.
	EntryCommit EntryKind = "commit"

	// EntryVoid refunds a reservation after the work failed or was
	// cancelled.
	EntryVoid EntryKind = "void"

	// EntryCredit adds funds, typically from an external payment event.
	EntryCredit EntryKind = "credit"
)

// CreditExternalTopup is the credit kind recorded for the external
// payment-processing replenishment path.
const CreditExternalTopup = "external-topup"

// Entry is one immutable ledger record.
type Entry struct {
	// ID is the entry's unique identifier (UUID v4).
	ID string `json:"id"`

	// Seq is assigned by storage on append and increases monotonically
	// within a subject, defining creation order.
	Seq int64 `json:"seq"`

	// Subject is the billed identity the entry belongs to.
	Subject string `json:"subject"`

	// Kind is the entry type.
	Kind EntryKind `json:"kind"`

	// AmountCents is the signed balance delta in cents.
	AmountCents int64 `json:"amount_cents"`

	// BalanceAfterCents is the subject's balance after applying this
	// entry. Invariant: for every prefix of the subject's entries, the
	// sum of AmountCents equals the last entry's BalanceAfterCents.
	BalanceAfterCents int64 `json:"balance_after_cents"`

	// ReservationID links reserve, commit, and void entries for one
	// two-phase debit. Empty on credits.
	ReservationID string `json:"reservation_id,omitempty"`

	// EventID is the idempotency key of the external event that caused a
	// credit. Empty on debit-side entries.
	EventID string `json:"event_id,omitempty"`

	// CreditKind labels the credit source ("external-topup",
	// "promotional", ...). Empty on debit-side entries.
	CreditKind string `json:"credit_kind,omitempty"`

	// Description is a human-readable note.
	Description string `json:"description,omitempty"`

	// Metadata carries caller-supplied key-value context.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"created_at"`
}

// Finalizes reports whether the entry ends a reservation.
func (e *Entry) Finalizes() bool {
	return e.Kind == EntryCommit || e.Kind == EntryVoid
}

// Validate checks the entry for storage-time errors.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entry id cannot be empty")
	}
	if e.Subject == "" {
		return fmt.Errorf("entry subject cannot be empty")
	}
	switch e.Kind {
	case EntryReserve:
		if e.AmountCents > 0 {
			return fmt.Errorf("reserve amount must not be positive")
		}
		if e.ReservationID == "" {
			return fmt.Errorf("reserve entry needs a reservation id")
		}
	case EntryCommit:
		if e.AmountCents != 0 {
			return fmt.Errorf("commit amount must be zero")
		}
		if e.ReservationID == "" {
			return fmt.Errorf("commit entry needs a reservation id")
		}
	case EntryVoid:
		if e.AmountCents < 0 {
			return fmt.Errorf("void amount must not be negative")
		}
		if e.ReservationID == "" {
			return fmt.Errorf("void entry needs a reservation id")
		}
	case EntryCredit:
		if e.AmountCents <= 0 {
			return fmt.Errorf("credit amount must be positive")
		}
	default:
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
	return nil
}

// Storage defines the interface for ledger storage backends.
// Implementations must be thread-safe and preserve append order per
// subject.
type Storage interface {
	// Append persists an entry and assigns its Seq. Entries are
	// immutable once appended.
	Append(ctx context.Context, entry *Entry) error

	// Entries returns the subject's entries in creation order.
	Entries(ctx context.Context, subject string) ([]*Entry, error)

	// LastEntry returns the subject's most recent entry, or nil when
	// the subject has none.
	LastEntry(ctx context.Context, subject string) (*Entry, error)

	// ByReservation returns the entries sharing a reservation id, in
	// creation order.
	ByReservation(ctx context.Context, reservationID string) ([]*Entry, error)

	// ByEventID returns the credit entry recorded for the external
	// event, or nil when the event was never seen.
	ByEventID(ctx context.Context, eventID string) (*Entry, error)

	// OpenReservations returns reserve entries created before the
	// cutoff that have no commit or void entry yet.
	OpenReservations(ctx context.Context, olderThan time.Time) ([]*Entry, error)

	// Subjects returns every subject with at least one entry.
	Subjects(ctx context.Context) ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}
