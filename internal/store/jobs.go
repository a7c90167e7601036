package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

const jobColumns = `id, urls, platform, settings, status, total_urls, processed_urls,
	successful_scrapes, failed_scrapes, results, error_message, created_by,
	created_at, completed_at`

// CreateScrapeJob inserts a new scraping job row.
func (s *Store) CreateScrapeJob(ctx context.Context, job *model.ScrapingJob) error {
	urls, err := json.Marshal(job.URLs)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(job.Settings)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO scrape_jobs (id, urls, platform, settings, status, total_urls,
			processed_urls, successful_scrapes, failed_scrapes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, urls, job.Platform, settings, job.Status, job.TotalURLs,
		job.ProcessedURLs, job.SuccessfulScrapes, job.FailedScrapes,
		job.CreatedBy, job.CreatedAt)
	return err
}

// GetScrapeJob fetches a full job record. Returns sql.ErrNoRows for
// unknown ids.
func (s *Store) GetScrapeJob(ctx context.Context, id uuid.UUID) (model.ScrapingJob, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM scrape_jobs WHERE id = $1`, id)
	return scanScrapeJob(row)
}

// GetScrapeJobStatus returns just the status column. The worker loop uses
// this before each progress write to detect a concurrent force-reconcile.
func (s *Store) GetScrapeJobStatus(ctx context.Context, id uuid.UUID) (string, error) {
	var status string
	err := s.DB.QueryRowContext(ctx,
		`SELECT status FROM scrape_jobs WHERE id = $1`, id).Scan(&status)
	return status, err
}

// UpdateScrapeJobStatus sets the status plus the optional error message and
// completion timestamp. The WHERE clause refuses to touch terminal rows, so
// forward-only transitions hold even when the worker and the reconciler
// race on the same record.
func (s *Store) UpdateScrapeJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string, completedAt *time.Time) error {
	var msg sql.NullString
	if errMsg != nil {
		msg = sql.NullString{String: *errMsg, Valid: true}
	}
	var done sql.NullTime
	if completedAt != nil {
		done = sql.NullTime{Time: *completedAt, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		UPDATE scrape_jobs
		SET status = $2,
		    error_message = COALESCE($3, error_message),
		    completed_at = COALESCE($4, completed_at)
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		id, status, msg, done)
	return err
}

// UpdateScrapeJobProgress persists the per-URL counters and results so that
// progress is observable mid-flight.
func (s *Store) UpdateScrapeJobProgress(ctx context.Context, id uuid.UUID, processed, successful, failed int, results []model.URLResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		UPDATE scrape_jobs
		SET processed_urls = $2, successful_scrapes = $3, failed_scrapes = $4, results = $5
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		id, processed, successful, failed, payload)
	return err
}

// ListStaleProcessingJobs returns jobs still marked processing that were
// created before the cutoff. A zero cutoff matches every processing job
// (the force sweep).
func (s *Store) ListStaleProcessingJobs(ctx context.Context, cutoff time.Time) ([]model.ScrapingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scrape_jobs WHERE status = 'processing'`
	args := []any{}
	if !cutoff.IsZero() {
		query += ` AND created_at < $1`
		args = append(args, cutoff)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.ScrapingJob
	for rows.Next() {
		job, err := scanScrapeJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListRecentScrapeJobs returns up to limit jobs, newest first.
func (s *Store) ListRecentScrapeJobs(ctx context.Context, limit int) ([]model.ScrapingJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM scrape_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.ScrapingJob
	for rows.Next() {
		job, err := scanScrapeJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteScrapeJobByID removes one job row. Candidates keep their job_id
// back-reference; deleting a job never cascades into them.
func (s *Store) DeleteScrapeJobByID(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM scrape_jobs WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteExpiredScrapeJobs removes terminal jobs completed before the cutoff.
func (s *Store) DeleteExpiredScrapeJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM scrape_jobs
		WHERE status IN ('completed', 'failed') AND completed_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScrapeJob(row rowScanner) (model.ScrapingJob, error) {
	var (
		job      model.ScrapingJob
		urls     []byte
		settings []byte
		results  pqtype.NullRawMessage
		errMsg   sql.NullString
		done     sql.NullTime
	)

	err := row.Scan(&job.ID, &urls, &job.Platform, &settings, &job.Status,
		&job.TotalURLs, &job.ProcessedURLs, &job.SuccessfulScrapes, &job.FailedScrapes,
		&results, &errMsg, &job.CreatedBy, &job.CreatedAt, &done)
	if err != nil {
		return model.ScrapingJob{}, err
	}

	if err := json.Unmarshal(urls, &job.URLs); err != nil {
		return model.ScrapingJob{}, err
	}
	if err := json.Unmarshal(settings, &job.Settings); err != nil {
		return model.ScrapingJob{}, err
	}
	if results.Valid && len(results.RawMessage) > 0 {
		if err := json.Unmarshal(results.RawMessage, &job.Results); err != nil {
			return model.ScrapingJob{}, err
		}
	}
	if errMsg.Valid {
		job.ErrorMessage = errMsg.String
	}
	if done.Valid {
		t := done.Time
		job.CompletedAt = &t
	}
	return job, nil
}
