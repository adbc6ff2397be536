package reconcile

import (
	"context"
	"time"

	"vantori-hq/tollgate/pkg/ledger"
	"vantori-hq/tollgate/pkg/telemetry/logging"
)

// Config contains configuration for the ledger reconciler.
type Config struct {
	// GracePeriod is how long a reservation may stay open before it is
	// considered leaked. Requests that are still executing hold open
	// reservations, so this must comfortably exceed the longest
	// legitimate execution.
	GracePeriod time.Duration

	// Schedule is a cron expression for scheduling sweeps.
	// Example: "*/10 * * * *" (every ten minutes).
	// Empty disables the scheduler.
	Schedule string

	// AutoVoid voids leaked reservations, refunding the held funds.
	// When false the sweep only reports them.
	AutoVoid bool
}

// DefaultConfig returns the default reconciler configuration.
func DefaultConfig() *Config {
	return &Config{
		GracePeriod: time.Hour,
		Schedule:    "*/10 * * * *",
		AutoVoid:    true,
	}
}

// Report summarizes a single reconciliation sweep.
type Report struct {
	// Leaked holds one error per reservation found open past the grace
	// period, whether or not it was voided.
	Leaked []*ledger.LeakedReservationError

	// Voided is the number of leaked reservations that were voided.
	Voided int

	// SubjectsChecked is the number of subjects whose histories were
	// replayed.
	SubjectsChecked int

	// ReplayErrors holds one error per subject whose recorded balances
	// did not match the replay.
	ReplayErrors []error
}

// Reconciler sweeps the ledger for leaked reservations and balance
// corruption.
type Reconciler struct {
	ledger    *ledger.Ledger
	store     ledger.Storage
	config    *Config
	logger    *logging.Logger
	scheduler *Scheduler

	now func() time.Time
}

// NewReconciler creates a reconciler over the given ledger and its
// backing store.
func NewReconciler(led *ledger.Ledger, store ledger.Storage, config *Config, logger *logging.Logger) *Reconciler {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	r := &Reconciler{
		ledger: led,
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
	r.scheduler = NewScheduler(r)
	return r
}

// Reconcile runs one sweep: find reservations open past the grace
// period, void them if configured, then replay every subject's history.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	report := &Report{}

	cutoff := r.now().Add(-r.config.GracePeriod)
	open, err := r.store.OpenReservations(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	for _, reserve := range open {
		leak := &ledger.LeakedReservationError{
			Subject:       reserve.Subject,
			ReservationID: reserve.ReservationID,
			AmountCents:   -reserve.AmountCents,
		}
		report.Leaked = append(report.Leaked, leak)
		r.logger.Warn("leaked reservation found",
			"subject", reserve.Subject,
			"reservation_id", reserve.ReservationID,
			"held_cents", -reserve.AmountCents,
			"reserved_at", reserve.CreatedAt,
		)

		if !r.config.AutoVoid {
			continue
		}
		if _, err := r.ledger.Void(ctx, reserve.ReservationID); err != nil {
			r.logger.Error("failed to void leaked reservation",
				"reservation_id", reserve.ReservationID,
				"error", err,
			)
			continue
		}
		report.Voided++
	}

	subjects, err := r.store.Subjects(ctx)
	if err != nil {
		return report, err
	}
	for _, subject := range subjects {
		report.SubjectsChecked++
		if err := r.ledger.VerifyReplay(ctx, subject); err != nil {
			report.ReplayErrors = append(report.ReplayErrors, err)
			r.logger.Error("ledger replay mismatch",
				"subject", subject,
				"error", err,
			)
		}
	}

	return report, nil
}

// Start starts the sweep scheduler. Call this when starting the
// application.
func (r *Reconciler) Start(ctx context.Context) error {
	return r.scheduler.Start(ctx)
}

// Stop stops the sweep scheduler. Call this during graceful shutdown.
func (r *Reconciler) Stop() {
	r.scheduler.Stop()
}

// NextSweep returns the time of the next scheduled sweep.
func (r *Reconciler) NextSweep() *time.Time {
	return r.scheduler.NextRun()
}
