// Package storage provides ledger storage backends.
//
// Two implementations of ledger.Storage are available:
//
//   - MemoryStorage keeps entries in process memory. Fast, but balances do
//     not survive restarts; intended for tests and development.
//   - SQLiteStorage persists entries in a SQLite database with WAL mode.
//     This is the production backend: reservations must be durable or a
//     crash between reserve and commit silently loses the debit.
//
// Both backends assign Seq on append and preserve per-subject creation
// order.
package storage
