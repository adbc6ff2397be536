// Package subscription tracks each subject's billing period and included
// execution allotment.
//
// A Tracker answers how many covered executions remain in the current
// period and records usage as covered executions complete. Periods roll
// lazily: the first read or write at or after period_end resets the usage
// counter and starts a fresh period from that moment. No background job is
// required for correctness.
//
// State lives behind the Store interface with two backends: an in-memory
// store for tests and single-process setups, and a SQLite store for
// durability across restarts.
//
// # Thread Safety
//
// The Tracker serializes the read-roll-write sequence per subject, so two
// concurrent usage recordings for one subject never lose an increment.
// Different subjects do not contend.
package subscription
