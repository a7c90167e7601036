package jobs

import (
	"context"
	"log/slog"
	"time"
)

// RunnerStore combines everything the background runner touches.
type RunnerStore interface {
	ReconcileStore
	RetentionStore
}

// RunnerConfig configures the periodic maintenance loop.
type RunnerConfig struct {
	SweepInterval   time.Duration
	StaleAfter      time.Duration
	CleanupInterval time.Duration
	Retention       RetentionPolicy
}

// StartRunner launches the background maintenance loop: a reconcile sweep
// on every SweepInterval tick and, when retention is configured, a cleanup
// pass on every CleanupInterval tick. It returns immediately; the loop
// stops when ctx is canceled.
func StartRunner(ctx context.Context, store RunnerStore, cfg RunnerConfig, logger *slog.Logger) {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}

	reconciler := NewReconciler(store, cfg.StaleAfter, logger)

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := reconciler.Sweep(ctx); err != nil && logger != nil {
					logger.Error("reconcile sweep failed", "error", err)
				}
			}
		}
	}()

	if cfg.CleanupInterval > 0 && (cfg.Retention.JobAge > 0 || cfg.Retention.CandidateAge > 0) {
		go func() {
			ticker := time.NewTicker(cfg.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := CleanupExpiredData(ctx, store, cfg.Retention, logger); err != nil && logger != nil {
						logger.Error("retention cleanup failed", "error", err)
					}
				}
			}
		}()
	}
}
