package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/extract"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/importer"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/jobs"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/metrics"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

// DefaultMaxBatchSize caps the number of URLs in one submission.
const DefaultMaxBatchSize = 50

// DefaultInterRequestDelay is the pause between URLs within one job so
// source sites are not hammered. Sequential processing with this delay is
// deliberate: rate limits matter more than throughput here.
const DefaultInterRequestDelay = 2 * time.Second

// JobStore is the slice of the store the orchestrator drives the job state
// machine through. Updates for a given job id are applied atomically by
// the storage collaborator.
type JobStore interface {
	CreateScrapeJob(ctx context.Context, job *model.ScrapingJob) error
	GetScrapeJob(ctx context.Context, id uuid.UUID) (model.ScrapingJob, error)
	GetScrapeJobStatus(ctx context.Context, id uuid.UUID) (string, error)
	UpdateScrapeJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string, completedAt *time.Time) error
	UpdateScrapeJobProgress(ctx context.Context, id uuid.UUID, processed, successful, failed int, results []model.URLResult) error
}

// CandidateStore persists the candidates the pipeline produces.
type CandidateStore interface {
	CreateScrapedProduct(ctx context.Context, p *model.ScrapedProduct) error
}

// Pipeline extracts one URL into a candidate.
type Pipeline interface {
	Extract(ctx context.Context, rawURL string, hint extract.Platform, settings model.JobSettings) (*model.ScrapedProduct, error)
}

// AutoImporter promotes a single freshly scraped candidate when the
// auto_import setting is on.
type AutoImporter interface {
	ImportOne(ctx context.Context, id uuid.UUID, mod importer.Modification) error
}

// SubmitRequest is one batch of URLs to scrape.
type SubmitRequest struct {
	URLs      []string
	Platform  string
	Settings  model.JobSettings
	CreatedBy string
}

// Orchestrator owns the scraping job state machine. Submissions create the
// job record synchronously and hand the URL loop to a detached goroutine
// whose cancel handle is retained, so a future cancellation surface is an
// addition rather than a redesign.
type Orchestrator struct {
	jobs       JobStore
	candidates CandidateStore
	pipeline   Pipeline
	autoImport AutoImporter
	logger     *slog.Logger

	delay        time.Duration
	maxBatchSize int

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func New(jobStore JobStore, candidates CandidateStore, pipeline Pipeline, autoImport AutoImporter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:         jobStore,
		candidates:   candidates,
		pipeline:     pipeline,
		autoImport:   autoImport,
		logger:       logger,
		delay:        DefaultInterRequestDelay,
		maxBatchSize: DefaultMaxBatchSize,
		cancels:      make(map[uuid.UUID]context.CancelFunc),
	}
}

// SetInterRequestDelay overrides the pause between URLs (config wiring and
// tests).
func (o *Orchestrator) SetInterRequestDelay(d time.Duration) {
	o.delay = d
}

// SetMaxBatchSize overrides the submission cap.
func (o *Orchestrator) SetMaxBatchSize(n int) {
	if n > 0 {
		o.maxBatchSize = n
	}
}

// Submit validates the batch, creates the job record with status pending,
// and schedules the worker loop without blocking the caller. A job id is
// always returned for accepted batches even when every URL later fails.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*model.ScrapingJob, error) {
	if len(req.URLs) == 0 {
		return nil, &ValidationError{msg: "at least one url is required"}
	}
	if len(req.URLs) > o.maxBatchSize {
		return nil, &ValidationError{msg: fmt.Sprintf("too many urls; maximum is %d", o.maxBatchSize)}
	}
	for _, u := range req.URLs {
		if strings.TrimSpace(u) == "" {
			return nil, &ValidationError{msg: "urls must not contain blank entries"}
		}
	}
	switch req.Settings.DefaultStatus {
	case "", "draft", "active":
	default:
		return nil, &ValidationError{msg: "default_status must be draft or active"}
	}

	job := &model.ScrapingJob{
		ID:        newJobID(),
		URLs:      req.URLs,
		Platform:  jobPlatform(req.Platform, req.URLs),
		Settings:  req.Settings,
		Status:    string(jobs.StatusPending),
		TotalURLs: len(req.URLs),
		Results:   []model.URLResult{},
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now().UTC(),
	}

	if err := o.jobs.CreateScrapeJob(ctx, job); err != nil {
		return nil, err
	}

	// The worker outlives the submitting request, so it runs on its own
	// context rather than the request's.
	runCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	go o.runJob(runCtx, *job)

	return job, nil
}

// GetStatus returns the full job record. Unknown ids surface the store's
// not-found error unchanged.
func (o *Orchestrator) GetStatus(ctx context.Context, id uuid.UUID) (model.ScrapingJob, error) {
	return o.jobs.GetScrapeJob(ctx, id)
}

// Shutdown cancels every in-flight worker loop.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, cancel := range o.cancels {
		cancel()
		delete(o.cancels, id)
	}
}

func (o *Orchestrator) release(id uuid.UUID) {
	o.mu.Lock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
		delete(o.cancels, id)
	}
	o.mu.Unlock()
}

// runJob drives the URL loop for one job. URLs are processed strictly in
// submission order; per-URL failures become result rows, never loop
// failures. Only a panic or a cancelled context fails the job as a whole.
func (o *Orchestrator) runJob(ctx context.Context, job model.ScrapingJob) {
	defer o.release(job.ID)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("worker loop panicked: %v", r)
			now := time.Now().UTC()
			_ = o.jobs.UpdateScrapeJobStatus(context.Background(), job.ID, string(jobs.StatusFailed), &msg, &now)
			metrics.RecordJobFinished(string(jobs.StatusFailed))
			if o.logger != nil {
				o.logger.Error("scrape job failed", "job_id", job.ID, "error", msg)
			}
		}
	}()

	if err := o.jobs.UpdateScrapeJobStatus(ctx, job.ID, string(jobs.StatusProcessing), nil, nil); err != nil {
		o.failJob(job.ID, "failed to mark job processing: "+err.Error())
		return
	}

	var (
		results    = make([]model.URLResult, 0, len(job.URLs))
		successful int
		failed     int
	)

	for i, rawURL := range job.URLs {
		if ctx.Err() != nil {
			o.failJob(job.ID, "worker canceled: "+ctx.Err().Error())
			return
		}

		// A concurrent force-reconcile may have failed this job already;
		// once the record is terminal every further write is moot, so stop.
		if status, err := o.jobs.GetScrapeJobStatus(ctx, job.ID); err == nil && jobs.Status(status).Terminal() {
			if o.logger != nil {
				o.logger.Warn("job turned terminal mid-flight, abandoning worker", "job_id", job.ID, "status", status)
			}
			return
		}

		results = append(results, o.processURL(ctx, &job, rawURL, &successful, &failed))

		if err := o.jobs.UpdateScrapeJobProgress(ctx, job.ID, i+1, successful, failed, results); err != nil && o.logger != nil {
			o.logger.Warn("failed to persist job progress", "job_id", job.ID, "error", err)
		}

		// Pause between URLs, but not after the last one.
		if o.delay > 0 && i < len(job.URLs)-1 {
			select {
			case <-ctx.Done():
				o.failJob(job.ID, "worker canceled: "+ctx.Err().Error())
				return
			case <-time.After(o.delay):
			}
		}
	}

	if err := o.jobs.UpdateScrapeJobProgress(ctx, job.ID, job.TotalURLs, successful, failed, results); err != nil && o.logger != nil {
		o.logger.Warn("failed to persist final job progress", "job_id", job.ID, "error", err)
	}

	now := time.Now().UTC()
	_ = o.jobs.UpdateScrapeJobStatus(context.Background(), job.ID, string(jobs.StatusCompleted), nil, &now)
	metrics.RecordJobFinished(string(jobs.StatusCompleted))

	if o.logger != nil {
		o.logger.Info("scrape job completed", "job_id", job.ID,
			"total", job.TotalURLs, "successful", successful, "failed", failed)
	}
}

// processURL runs the pipeline for one URL and returns its result row,
// bumping whichever counter applies.
func (o *Orchestrator) processURL(ctx context.Context, job *model.ScrapingJob, rawURL string, successful, failed *int) model.URLResult {
	start := time.Now()

	fail := func(reason string) model.URLResult {
		*failed++
		return model.URLResult{
			URL:              rawURL,
			Status:           "failed",
			Error:            reason,
			ScrapedAt:        time.Now().UTC(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
	}

	hint := extract.Platform("")
	if job.Platform != "" && job.Platform != "multi-platform" {
		hint = extract.Platform(job.Platform)
	}

	cand, err := o.pipeline.Extract(ctx, rawURL, hint, job.Settings)
	if err != nil {
		return fail(err.Error())
	}

	if job.Settings.ExcludeOutOfStock && cand.Availability == "out_of_stock" {
		return fail("excluded: product is out of stock")
	}

	cand.ID = uuid.New()
	cand.JobID = job.ID
	if err := o.candidates.CreateScrapedProduct(ctx, cand); err != nil {
		return fail("failed to store candidate: " + err.Error())
	}

	// Auto-import failures are logged, not counted against the scrape.
	if job.Settings.AutoImport && o.autoImport != nil {
		mod := importer.Modification{Status: job.Settings.DefaultStatus}
		if job.Settings.OverrideExisting {
			override := true
			mod.OverrideExisting = &override
		}
		if err := o.autoImport.ImportOne(ctx, cand.ID, mod); err != nil && o.logger != nil {
			o.logger.Warn("auto-import failed", "job_id", job.ID, "candidate_id", cand.ID, "error", err)
		}
	}

	*successful++
	return model.URLResult{
		URL:              rawURL,
		Status:           "success",
		Product:          cand,
		ScrapedAt:        time.Now().UTC(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

func (o *Orchestrator) failJob(id uuid.UUID, msg string) {
	now := time.Now().UTC()
	_ = o.jobs.UpdateScrapeJobStatus(context.Background(), id, string(jobs.StatusFailed), &msg, &now)
	metrics.RecordJobFinished(string(jobs.StatusFailed))
	if o.logger != nil {
		o.logger.Error("scrape job failed", "job_id", id, "error", msg)
	}
}

// jobPlatform resolves the job-level platform tag: the caller's declared
// value wins, otherwise it is detected from the URLs. Mixed batches are
// tagged multi-platform.
func jobPlatform(declared string, urls []string) string {
	if declared != "" {
		return declared
	}

	var detected extract.Platform
	for i, u := range urls {
		p := extract.DetectPlatform(u)
		if i == 0 {
			detected = p
			continue
		}
		if p != detected {
			return "multi-platform"
		}
	}
	if detected == extract.PlatformUnknown {
		return "multi-platform"
	}
	return string(detected)
}

// newJobID prefers uuidv7 so job ids sort by creation time.
func newJobID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}
