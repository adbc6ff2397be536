// Package concurrency bounds the number of simultaneously executing paid
// operations per subject.
//
// A SlotManager keeps one counter per subject. Acquire atomically tests the
// counter against the subject's cap and increments only when below it; a
// denied acquire leaves the counter untouched, so a concurrent caller never
// observes a phantom occupied slot. Release decrements, floored at zero.
//
// # Usage
//
//	mgr := concurrency.NewSlotManager()
//	if !mgr.Acquire("acct_1", 4) {
//		return ErrTooManyInFlight
//	}
//	defer mgr.Release("acct_1")
//
// Every successful Acquire must be paired with exactly one Release, issued
// regardless of how the guarded work terminates.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Counters are lock-free; callers
// for different subjects never contend.
package concurrency
