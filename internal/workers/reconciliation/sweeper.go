// Package reconciliation finalizes ledger entries that were left pending, for
// example after a restart or a reset while a payment was still open. The
// gateway remains the source of truth; the sweeper only copies its verdict
// into the ledger.
package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/repositories"
	"github.com/qrisgate-service/qrisgate_service/pkg/logger"
	"github.com/qrisgate-service/qrisgate_service/pkg/metrics"
)

// StatusChecker is the slice of the gateway the sweeper needs
type StatusChecker interface {
	GetStatus(ctx context.Context, depositID string) (*entities.Deposit, error)
}

// Config holds sweeper settings
type Config struct {
	// Schedule is a cron expression, e.g. "*/5 * * * *"
	Schedule string
	// MinAge keeps the sweeper away from entries the live poll loop is
	// still responsible for
	MinAge time.Duration
}

// Sweeper periodically re-checks stale pending ledger entries against the
// gateway and writes back any terminal status it finds.
type Sweeper struct {
	ledger  repositories.Ledger
	checker StatusChecker
	cfg     Config
	logger  *logger.Logger
	cron    *cron.Cron
}

// NewSweeper creates a reconciliation sweeper
func NewSweeper(ledger repositories.Ledger, checker StatusChecker, cfg Config, log *logger.Logger) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = "*/5 * * * *"
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 30 * time.Minute
	}
	return &Sweeper{
		ledger:  ledger,
		checker: checker,
		cfg:     cfg,
		logger:  log,
		cron:    cron.New(),
	}
}

// Start registers the schedule and begins sweeping
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Reconciliation sweeper started", "schedule", s.cfg.Schedule, "min_age", s.cfg.MinAge)
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Reconciliation sweeper stopped")
}

// RunOnce performs a single reconciliation pass
func (s *Sweeper) RunOnce(ctx context.Context) {
	runID := uuid.New().String()
	log := s.logger.With("run_id", runID)

	entries, err := s.ledger.LoadAll(ctx)
	if err != nil {
		log.Error("Reconciliation failed to load ledger", "error", err)
		metrics.ReconciliationRunsCounter.WithLabelValues("error").Inc()
		return
	}

	cutoff := time.Now().Add(-s.cfg.MinAge)
	var checked, finalized, failed int

	for _, entry := range entries {
		if entry.Status.IsTerminal() {
			continue
		}
		if entry.LocalCreatedAt.After(cutoff) {
			continue
		}
		checked++

		result, err := s.checker.GetStatus(ctx, entry.ID)
		if err != nil {
			failed++
			log.Warn("Reconciliation status check failed",
				"deposit_id", entry.ID,
				"error", err)
			continue
		}
		if !result.Status.IsTerminal() {
			continue
		}
		if err := entry.Status.ValidateTransition(result.Status); err != nil {
			log.Warn("Reconciliation skipping invalid transition",
				"deposit_id", entry.ID,
				"from", entry.Status,
				"to", result.Status)
			continue
		}
		if err := s.ledger.UpdateStatus(ctx, entry.ID, result.Status); err != nil {
			failed++
			log.Warn("Reconciliation ledger update failed",
				"deposit_id", entry.ID,
				"error", err)
			continue
		}
		finalized++
		log.Info("Reconciled stale pending deposit",
			"deposit_id", entry.ID,
			"status", result.Status)
	}

	outcome := "success"
	if failed > 0 {
		outcome = "partial"
	}
	metrics.ReconciliationRunsCounter.WithLabelValues(outcome).Inc()

	if checked > 0 {
		log.Info("Reconciliation pass complete",
			"checked", checked,
			"finalized", finalized,
			"failed", failed)
	}
}
