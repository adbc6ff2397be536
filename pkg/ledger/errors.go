package ledger

import "fmt"

// InsufficientFundsError is returned by Reserve when the subject's balance
// cannot cover the requested amount. It carries both figures so callers can
// render an upgrade prompt without a second lookup.
type InsufficientFundsError struct {
	Subject        string
	RequiredCents  int64
	AvailableCents int64
}

// Error implements the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s: required %d cents, available %d cents",
		e.Subject, e.RequiredCents, e.AvailableCents)
}

// ReservationNotFoundError is returned when a commit or void names a
// reservation that was never reserved.
type ReservationNotFoundError struct {
	ReservationID string
}

// Error implements the error interface.
func (e *ReservationNotFoundError) Error() string {
	return fmt.Sprintf("reservation %s not found", e.ReservationID)
}

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("append", "entries", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage error [backend=%s, operation=%s]: %v",
		e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// ReplayMismatchError reports a ledger whose entries no longer fold to
// their recorded balances. This is an internal invariant violation, never a
// user error.
type ReplayMismatchError struct {
	Subject       string
	Seq           int64
	ExpectedCents int64
	RecordedCents int64
}

// Error implements the error interface.
func (e *ReplayMismatchError) Error() string {
	return fmt.Sprintf("ledger replay mismatch for %s at seq %d: fold gives %d cents, entry records %d cents",
		e.Subject, e.Seq, e.ExpectedCents, e.RecordedCents)
}

// LeakedReservationError reports a reservation with neither commit nor void
// past the reconciliation grace period. This is an internal invariant
// violation, never a user error.
type LeakedReservationError struct {
	Subject       string
	ReservationID string
	AmountCents   int64
}

// Error implements the error interface.
func (e *LeakedReservationError) Error() string {
	return fmt.Sprintf("leaked reservation %s for %s holding %d cents",
		e.ReservationID, e.Subject, e.AmountCents)
}
