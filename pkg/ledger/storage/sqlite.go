package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vantori-hq/tollgate/pkg/ledger"
)

// SQLiteConfig contains configuration for the SQLite ledger backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/ledger.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements ledger.Storage using SQLite. Entries are
// append-only at the schema level too: there is no update or delete path.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	mu     sync.RWMutex

	appendStmt        *sql.Stmt
	entriesStmt       *sql.Stmt
	lastStmt          *sql.Stmt
	byReservationStmt *sql.Stmt
	byEventStmt       *sql.Stmt
	subjectsStmt      *sql.Stmt
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	subject TEXT NOT NULL,
	kind TEXT NOT NULL,
	amount_cents INTEGER NOT NULL,
	balance_after_cents INTEGER NOT NULL,
	reservation_id TEXT NOT NULL DEFAULT '',
	event_id TEXT NOT NULL DEFAULT '',
	credit_kind TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_subject ON ledger_entries(subject, seq);
CREATE INDEX IF NOT EXISTS idx_ledger_reservation ON ledger_entries(reservation_id) WHERE reservation_id != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_event ON ledger_entries(event_id) WHERE event_id != '';
`

// NewSQLiteStorage creates a SQLite ledger backend.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize sets up the schema and pragmas.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return ledger.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return ledger.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return ledger.NewStorageError("sqlite", "create_schema", err)
	}
	return nil
}

const entryColumns = `seq, id, subject, kind, amount_cents, balance_after_cents,
	reservation_id, event_id, credit_kind, description, metadata, created_at`

func (s *SQLiteStorage) prepareStatements() error {
	var err error

	s.appendStmt, err = s.db.Prepare(`
		INSERT INTO ledger_entries (id, subject, kind, amount_cents, balance_after_cents,
			reservation_id, event_id, credit_kind, description, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return ledger.NewStorageError("sqlite", "prepare_append", err)
	}

	s.entriesStmt, err = s.db.Prepare(`
		SELECT ` + entryColumns + ` FROM ledger_entries WHERE subject = ? ORDER BY seq
	`)
	if err != nil {
		return ledger.NewStorageError("sqlite", "prepare_entries", err)
	}

	s.lastStmt, err = s.db.Prepare(`
		SELECT ` + entryColumns + ` FROM ledger_entries WHERE subject = ? ORDER BY seq DESC LIMIT 1
	`)
	if err != nil {
		return ledger.NewStorageError("sqlite", "prepare_last", err)
	}

	s.byReservationStmt, err = s.db.Prepare(`
		SELECT ` + entryColumns + ` FROM ledger_entries WHERE reservation_id = ? ORDER BY seq
	`)
	if err != nil {
		return ledger.NewStorageError("sqlite", "prepare_by_reservation", err)
	}

	s.byEventStmt, err = s.db.Prepare(`
		SELECT ` + entryColumns + ` FROM ledger_entries WHERE event_id = ? AND kind = 'credit' LIMIT 1
	`)
	if err != nil {
		return ledger.NewStorageError("sqlite", "prepare_by_event", err)
	}

	s.subjectsStmt, err = s.db.Prepare(`
		SELECT DISTINCT subject FROM ledger_entries ORDER BY subject
	`)
	if err != nil {
		return ledger.NewStorageError("sqlite", "prepare_subjects", err)
	}

	return nil
}

// Append persists an entry and assigns its Seq.
func (s *SQLiteStorage) Append(ctx context.Context, entry *ledger.Entry) error {
	if err := entry.Validate(); err != nil {
		return ledger.NewStorageError("sqlite", "append", err)
	}

	var metadataJSON string
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return ledger.NewStorageError("sqlite", "append", err)
		}
		metadataJSON = string(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.appendStmt.ExecContext(ctx,
		entry.ID,
		entry.Subject,
		string(entry.Kind),
		entry.AmountCents,
		entry.BalanceAfterCents,
		entry.ReservationID,
		entry.EventID,
		entry.CreditKind,
		entry.Description,
		metadataJSON,
		entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return ledger.NewStorageError("sqlite", "append", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return ledger.NewStorageError("sqlite", "append", err)
	}
	entry.Seq = seq
	return nil
}

// Entries returns the subject's entries in creation order.
func (s *SQLiteStorage) Entries(ctx context.Context, subject string) ([]*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.entriesStmt.QueryContext(ctx, subject)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "entries", err)
	}
	return collectEntries(rows)
}

// LastEntry returns the subject's most recent entry, or nil.
func (s *SQLiteStorage) LastEntry(ctx context.Context, subject string) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := scanEntry(s.lastStmt.QueryRowContext(ctx, subject))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "last_entry", err)
	}
	return entry, nil
}

// ByReservation returns the entries sharing a reservation id.
func (s *SQLiteStorage) ByReservation(ctx context.Context, reservationID string) ([]*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.byReservationStmt.QueryContext(ctx, reservationID)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "by_reservation", err)
	}
	return collectEntries(rows)
}

// ByEventID returns the credit entry for the external event, or nil.
func (s *SQLiteStorage) ByEventID(ctx context.Context, eventID string) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := scanEntry(s.byEventStmt.QueryRowContext(ctx, eventID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "by_event", err)
	}
	return entry, nil
}

// OpenReservations returns reserve entries created before the cutoff with
// no commit or void entry yet.
func (s *SQLiteStorage) OpenReservations(ctx context.Context, olderThan time.Time) ([]*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries r
		WHERE r.kind = 'reserve'
		  AND r.created_at < ?
		  AND NOT EXISTS (
			SELECT 1 FROM ledger_entries f
			WHERE f.reservation_id = r.reservation_id
			  AND f.kind IN ('commit', 'void')
		  )
		ORDER BY r.seq
	`, olderThan.UnixNano())
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "open_reservations", err)
	}
	return collectEntries(rows)
}

// Subjects returns every subject with at least one entry.
func (s *SQLiteStorage) Subjects(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.subjectsStmt.QueryContext(ctx)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "subjects", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, ledger.NewStorageError("sqlite", "subjects", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite", "subjects", err)
	}
	return subjects, nil
}

// Close releases the database and prepared statements.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range []*sql.Stmt{
		s.appendStmt, s.entriesStmt, s.lastStmt,
		s.byReservationStmt, s.byEventStmt, s.subjectsStmt,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*ledger.Entry, error) {
	var (
		entry        ledger.Entry
		kind         string
		metadataJSON string
		createdAt    int64
	)

	err := row.Scan(
		&entry.Seq,
		&entry.ID,
		&entry.Subject,
		&kind,
		&entry.AmountCents,
		&entry.BalanceAfterCents,
		&entry.ReservationID,
		&entry.EventID,
		&entry.CreditKind,
		&entry.Description,
		&metadataJSON,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Kind = ledger.EntryKind(kind)
	entry.CreatedAt = time.Unix(0, createdAt).UTC()
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &entry.Metadata); err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

func collectEntries(rows *sql.Rows) ([]*ledger.Entry, error) {
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, ledger.NewStorageError("sqlite", "scan", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite", "iterate", err)
	}
	return entries, nil
}
