// Package ledger provides an append-only credit ledger with two-phase
// debits.
//
// # Overview
//
// Every balance change is an immutable Entry; a subject's balance is the
// fold of its entries in creation order, and each entry records the balance
// after itself so the fold can be verified for any prefix. The balance is
// never mutated independently of an entry being written.
//
// Debits are two-phase. Reserve writes a negative entry for the full cost
// before the paid work runs, proving funds were sufficient up front. When
// the outcome is known, exactly one of:
//
//   - Commit finalizes the reservation with a zero-amount entry (the money
//     already left at reserve time), or
//   - Void refunds it with a compensating positive entry.
//
// Commit and Void are idempotent per reservation: replays after the first
// finalizing call return the original finalizing entry and change nothing.
// Credits from external payment events are idempotent by the event's own
// id.
//
// A reservation that is never committed or voided is a leak; the reconcile
// subpackage sweeps for them.
//
// # Amounts
//
// All amounts are integer cents. Reserve entries are negative, void entries
// positive, commit entries zero, credit entries positive.
package ledger
