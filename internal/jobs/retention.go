package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/metrics"
)

// RetentionStore is the slice of the store the cleanup pass needs.
type RetentionStore interface {
	DeleteExpiredScrapeJobs(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredScrapedProducts(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionPolicy holds how long finished jobs and unimported candidates
// are kept before cleanup removes them. Zero values disable that class.
type RetentionPolicy struct {
	JobAge       time.Duration
	CandidateAge time.Duration
}

// CleanupExpiredData deletes terminal jobs and unimported candidates older
// than the policy windows. Imported candidates are never removed here: the
// import record is the audit trail for catalog products.
func CleanupExpiredData(ctx context.Context, store RetentionStore, policy RetentionPolicy, logger *slog.Logger) error {
	now := time.Now().UTC()

	if policy.JobAge > 0 {
		n, err := store.DeleteExpiredScrapeJobs(ctx, now.Add(-policy.JobAge))
		if err != nil {
			return err
		}
		if n > 0 {
			metrics.RecordRetentionJobs(n)
			if logger != nil {
				logger.Info("retention removed expired jobs", "count", n)
			}
		}
	}

	if policy.CandidateAge > 0 {
		n, err := store.DeleteExpiredScrapedProducts(ctx, now.Add(-policy.CandidateAge))
		if err != nil {
			return err
		}
		if n > 0 {
			metrics.RecordRetentionCandidates(n)
			if logger != nil {
				logger.Info("retention removed expired candidates", "count", n)
			}
		}
	}

	return nil
}
