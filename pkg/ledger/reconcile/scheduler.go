package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs reconciliation sweeps on a cron schedule.
type Scheduler struct {
	reconciler *Reconciler
	cron       *cron.Cron
	mu         sync.Mutex
	running    bool
}

// NewScheduler creates a scheduler for the given reconciler.
func NewScheduler(reconciler *Reconciler) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		cron:       cron.New(),
	}
}

// Start begins scheduled sweeps based on the configured cron expression.
// If no schedule is configured, Start does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.reconciler.config.Schedule
	if schedule == "" {
		s.reconciler.logger.Info("reconcile schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.reconciler.logger.Info("ledger reconciler started",
		"schedule", schedule,
		"grace_period", s.reconciler.config.GracePeriod,
		"auto_void", s.reconciler.config.AutoVoid,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one reconciliation cycle.
func (s *Scheduler) runSweep(ctx context.Context) {
	report, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.reconciler.logger.Error("scheduled reconciliation failed",
			"error", err,
		)
		return
	}

	if len(report.Leaked) > 0 || len(report.ReplayErrors) > 0 {
		s.reconciler.logger.Warn("reconciliation sweep found problems",
			"leaked", len(report.Leaked),
			"voided", report.Voided,
			"replay_errors", len(report.ReplayErrors),
			"subjects_checked", report.SubjectsChecked,
		)
	} else {
		s.reconciler.logger.Debug("reconciliation sweep clean",
			"subjects_checked", report.SubjectsChecked,
		)
	}
}

// Stop stops the scheduler and waits for any running sweep to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.reconciler.logger.Info("ledger reconciler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
