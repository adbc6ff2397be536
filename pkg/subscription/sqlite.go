package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence. Subscription
// state survives process restarts, which the admission path requires for
// honest period accounting.
//
// SQLiteStore uses a write-ahead log (WAL) and periodic checkpointing to
// balance write performance with durability.
type SQLiteStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	// preparedStatements contains pre-compiled SQL statements
	getStmt    *sql.Stmt
	putStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a SQLite store with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go store.checkpointLoop()

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		subject TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		included_per_period INTEGER NOT NULL,
		period_length_ns INTEGER NOT NULL,
		overage_price_cents INTEGER NOT NULL,
		period_start INTEGER NOT NULL,
		period_end INTEGER NOT NULL,
		executions_used INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_subscriptions_period_end ON subscriptions(period_end);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`
		SELECT subject, tier, included_per_period, period_length_ns, overage_price_cents,
		       period_start, period_end, executions_used, created_at, updated_at
		FROM subscriptions
		WHERE subject = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO subscriptions (subject, tier, included_per_period, period_length_ns,
			overage_price_cents, period_start, period_end, executions_used, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject) DO UPDATE SET
			tier = excluded.tier,
			included_per_period = excluded.included_per_period,
			period_length_ns = excluded.period_length_ns,
			overage_price_cents = excluded.overage_price_cents,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			executions_used = excluded.executions_used,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM subscriptions WHERE subject = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT subject, tier, included_per_period, period_length_ns, overage_price_cents,
		       period_start, period_end, executions_used, created_at, updated_at
		FROM subscriptions
		ORDER BY subject
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// Get returns the subject's subscription, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, subject string) (*Subscription, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, err := scanSubscription(s.getStmt.QueryRowContext(ctx, subject))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

// Put inserts or replaces the subject's subscription.
func (s *SQLiteStore) Put(ctx context.Context, sub *Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.putStmt.ExecContext(ctx,
		sub.Subject,
		sub.Tier,
		sub.IncludedPerPeriod,
		int64(sub.PeriodLength),
		sub.OveragePriceCents,
		sub.PeriodStart.UnixNano(),
		sub.PeriodEnd.UnixNano(),
		sub.ExecutionsUsed,
		sub.CreatedAt.UnixNano(),
		sub.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// Delete removes the subject's subscription.
func (s *SQLiteStore) Delete(ctx context.Context, subject string) error {
	if subject == "" {
		return fmt.Errorf("subject cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, subject); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// List returns every stored subscription.
func (s *SQLiteStore) List(ctx context.Context) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return subs, nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.getStmt != nil {
			s.getStmt.Close()
		}
		if s.putStmt != nil {
			s.putStmt.Close()
		}
		if s.deleteStmt != nil {
			s.deleteStmt.Close()
		}
		if s.listStmt != nil {
			s.listStmt.Close()
		}

		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*Subscription, error) {
	var (
		sub          Subscription
		periodLength int64
		periodStart  int64
		periodEnd    int64
		createdAt    int64
		updatedAt    int64
	)

	err := row.Scan(
		&sub.Subject,
		&sub.Tier,
		&sub.IncludedPerPeriod,
		&periodLength,
		&sub.OveragePriceCents,
		&periodStart,
		&periodEnd,
		&sub.ExecutionsUsed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.PeriodLength = time.Duration(periodLength)
	sub.PeriodStart = time.Unix(0, periodStart).UTC()
	sub.PeriodEnd = time.Unix(0, periodEnd).UTC()
	sub.CreatedAt = time.Unix(0, createdAt).UTC()
	sub.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &sub, nil
}
