package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/metrics"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

// DefaultStaleAfter is how long a job may sit in processing before the
// reconciler considers its worker dead.
const DefaultStaleAfter = 10 * time.Minute

// ReconcileStore is the slice of the store the reconciler needs.
type ReconcileStore interface {
	ListStaleProcessingJobs(ctx context.Context, cutoff time.Time) ([]model.ScrapingJob, error)
	UpdateScrapeJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string, completedAt *time.Time) error
}

// Reconciler fails processing jobs whose worker goroutine is presumed dead
// (process restart, crash). It never touches pending or terminal jobs, so
// running it repeatedly over the same data is harmless.
type Reconciler struct {
	store      ReconcileStore
	staleAfter time.Duration
	logger     *slog.Logger
}

func NewReconciler(store ReconcileStore, staleAfter time.Duration, logger *slog.Logger) *Reconciler {
	if staleAfter < 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Reconciler{store: store, staleAfter: staleAfter, logger: logger}
}

// Sweep fails every processing job older than the staleness threshold and
// returns the ids of the jobs it transitioned.
func (r *Reconciler) Sweep(ctx context.Context) ([]uuid.UUID, error) {
	return r.sweep(ctx, time.Now().UTC().Add(-r.staleAfter))
}

// ForceSweep fails every processing job regardless of age. Used by the
// force_fix_all_stuck_jobs admin action.
func (r *Reconciler) ForceSweep(ctx context.Context) ([]uuid.UUID, error) {
	return r.sweep(ctx, time.Time{})
}

func (r *Reconciler) sweep(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	stale, err := r.store.ListStaleProcessingJobs(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing stale jobs: %w", err)
	}

	fixed := make([]uuid.UUID, 0, len(stale))
	for _, job := range stale {
		msg := fmt.Sprintf("job timed out: stuck in processing since %s", job.CreatedAt.UTC().Format(time.RFC3339))
		now := time.Now().UTC()
		if err := r.store.UpdateScrapeJobStatus(ctx, job.ID, string(StatusFailed), &msg, &now); err != nil {
			if r.logger != nil {
				r.logger.Warn("failed to reconcile stuck job", "job_id", job.ID, "error", err)
			}
			continue
		}
		fixed = append(fixed, job.ID)
		if r.logger != nil {
			r.logger.Info("reconciled stuck job", "job_id", job.ID, "created_at", job.CreatedAt)
		}
	}

	if len(fixed) > 0 {
		metrics.RecordReconciledJobs(int64(len(fixed)))
	}
	return fixed, nil
}
