package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/extract"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/importer"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/jobs"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

// fakeJobStore is an in-memory JobStore that signals on done when a job
// reaches a terminal status.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*model.ScrapingJob
	done chan string

	// forceStatus, when non-empty, is returned from GetScrapeJobStatus to
	// simulate a concurrent reconciler flipping the job terminal.
	forceStatus string
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		jobs: make(map[uuid.UUID]*model.ScrapingJob),
		done: make(chan string, 1),
	}
}

func (f *fakeJobStore) CreateScrapeJob(ctx context.Context, job *model.ScrapingJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStore) GetScrapeJob(ctx context.Context, id uuid.UUID) (model.ScrapingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return model.ScrapingJob{}, sql.ErrNoRows
	}
	return *job, nil
}

func (f *fakeJobStore) GetScrapeJobStatus(ctx context.Context, id uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forceStatus != "" {
		return f.forceStatus, nil
	}
	job, ok := f.jobs[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	return job.Status, nil
}

func (f *fakeJobStore) UpdateScrapeJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if jobs.Status(job.Status).Terminal() {
		return nil
	}
	job.Status = status
	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	if completedAt != nil {
		job.CompletedAt = completedAt
	}
	if jobs.Status(status).Terminal() {
		select {
		case f.done <- status:
		default:
		}
	}
	return nil
}

func (f *fakeJobStore) UpdateScrapeJobProgress(ctx context.Context, id uuid.UUID, processed, successful, failed int, results []model.URLResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if jobs.Status(job.Status).Terminal() {
		return nil
	}
	job.ProcessedURLs = processed
	job.SuccessfulScrapes = successful
	job.FailedScrapes = failed
	job.Results = append([]model.URLResult(nil), results...)
	return nil
}

func (f *fakeJobStore) get(id uuid.UUID) model.ScrapingJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.jobs[id]
}

func (f *fakeJobStore) waitTerminal(t *testing.T) string {
	t.Helper()
	select {
	case status := <-f.done:
		return status
	case <-time.After(5 * time.Second):
		t.Fatal("job never reached a terminal status")
		return ""
	}
}

type fakeCandidateStore struct {
	mu      sync.Mutex
	created []model.ScrapedProduct
	err     error
}

func (f *fakeCandidateStore) CreateScrapedProduct(ctx context.Context, p *model.ScrapedProduct) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *p)
	return nil
}

type fakePipeline struct {
	extract func(ctx context.Context, rawURL string, hint extract.Platform, settings model.JobSettings) (*model.ScrapedProduct, error)
}

func (f *fakePipeline) Extract(ctx context.Context, rawURL string, hint extract.Platform, settings model.JobSettings) (*model.ScrapedProduct, error) {
	return f.extract(ctx, rawURL, hint, settings)
}

type fakeImporter struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (f *fakeImporter) ImportOne(ctx context.Context, id uuid.UUID, mod importer.Modification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return f.err
}

func okPipeline() *fakePipeline {
	return &fakePipeline{extract: func(ctx context.Context, rawURL string, hint extract.Platform, settings model.JobSettings) (*model.ScrapedProduct, error) {
		return &model.ScrapedProduct{Title: "Widget", SourceURL: rawURL, Availability: "in_stock"}, nil
	}}
}

func newTestOrchestrator(js JobStore, cs CandidateStore, p Pipeline, ai AutoImporter) *Orchestrator {
	o := New(js, cs, p, ai, nil)
	o.SetInterRequestDelay(0)
	return o
}

func TestSubmit_EmptyURLs(t *testing.T) {
	o := newTestOrchestrator(newFakeJobStore(), &fakeCandidateStore{}, okPipeline(), nil)

	_, err := o.Submit(context.Background(), SubmitRequest{})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmit_TooManyURLs(t *testing.T) {
	o := newTestOrchestrator(newFakeJobStore(), &fakeCandidateStore{}, okPipeline(), nil)

	urls := make([]string, 51)
	for i := range urls {
		urls[i] = "https://shop.example.com/p/1"
	}
	_, err := o.Submit(context.Background(), SubmitRequest{URLs: urls})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for 51 urls, got %v", err)
	}

	// Exactly the cap is accepted.
	js := newFakeJobStore()
	o = newTestOrchestrator(js, &fakeCandidateStore{}, okPipeline(), nil)
	job, err := o.Submit(context.Background(), SubmitRequest{URLs: urls[:50]})
	if err != nil {
		t.Fatalf("expected 50 urls accepted, got %v", err)
	}
	if job.TotalURLs != 50 {
		t.Fatalf("expected total_urls 50, got %d", job.TotalURLs)
	}
	js.waitTerminal(t)
}

func TestSubmit_InvalidDefaultStatus(t *testing.T) {
	o := newTestOrchestrator(newFakeJobStore(), &fakeCandidateStore{}, okPipeline(), nil)

	_, err := o.Submit(context.Background(), SubmitRequest{
		URLs:     []string{"https://shop.example.com/p/1"},
		Settings: model.JobSettings{DefaultStatus: "published"},
	})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunJob_AllSucceed(t *testing.T) {
	js := newFakeJobStore()
	cs := &fakeCandidateStore{}
	o := newTestOrchestrator(js, cs, okPipeline(), nil)

	job, err := o.Submit(context.Background(), SubmitRequest{
		URLs: []string{
			"https://www.amazon.com/dp/B000",
			"https://www.amazon.com/dp/B001",
			"https://www.amazon.com/dp/B002",
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != string(jobs.StatusPending) {
		t.Fatalf("expected pending on accept, got %s", job.Status)
	}

	if status := js.waitTerminal(t); status != string(jobs.StatusCompleted) {
		t.Fatalf("expected completed, got %s", status)
	}

	final := js.get(job.ID)
	if final.ProcessedURLs != final.TotalURLs {
		t.Fatalf("processed %d != total %d", final.ProcessedURLs, final.TotalURLs)
	}
	if final.SuccessfulScrapes+final.FailedScrapes != final.ProcessedURLs {
		t.Fatalf("counter invariant broken: %d + %d != %d",
			final.SuccessfulScrapes, final.FailedScrapes, final.ProcessedURLs)
	}
	if final.SuccessfulScrapes != 3 || final.FailedScrapes != 0 {
		t.Fatalf("expected 3/0, got %d/%d", final.SuccessfulScrapes, final.FailedScrapes)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
	if len(cs.created) != 3 {
		t.Fatalf("expected 3 candidates stored, got %d", len(cs.created))
	}
	if final.Platform != "amazon" {
		t.Fatalf("expected detected platform amazon, got %q", final.Platform)
	}
}

func TestRunJob_PartialFailureStillCompletes(t *testing.T) {
	js := newFakeJobStore()
	p := &fakePipeline{extract: func(ctx context.Context, rawURL string, hint extract.Platform, settings model.JobSettings) (*model.ScrapedProduct, error) {
		if strings.Contains(rawURL, "bad") {
			return nil, errors.New("fetch refused")
		}
		return &model.ScrapedProduct{Title: "Widget", SourceURL: rawURL}, nil
	}}
	o := newTestOrchestrator(js, &fakeCandidateStore{}, p, nil)

	job, err := o.Submit(context.Background(), SubmitRequest{
		URLs: []string{
			"https://shop.example.com/good",
			"https://shop.example.com/bad",
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if status := js.waitTerminal(t); status != string(jobs.StatusCompleted) {
		t.Fatalf("per-url failure must not fail the job, got %s", status)
	}

	final := js.get(job.ID)
	if final.SuccessfulScrapes != 1 || final.FailedScrapes != 1 {
		t.Fatalf("expected 1/1, got %d/%d", final.SuccessfulScrapes, final.FailedScrapes)
	}
	if len(final.Results) != 2 {
		t.Fatalf("expected 2 result rows, got %d", len(final.Results))
	}
	if final.Results[1].Status != "failed" || final.Results[1].Error == "" {
		t.Fatalf("expected failed result with reason, got %+v", final.Results[1])
	}
}

func TestRunJob_ExcludeOutOfStock(t *testing.T) {
	js := newFakeJobStore()
	cs := &fakeCandidateStore{}
	p := &fakePipeline{extract: func(ctx context.Context, rawURL string, hint extract.Platform, settings model.JobSettings) (*model.ScrapedProduct, error) {
		return &model.ScrapedProduct{Title: "Widget", SourceURL: rawURL, Availability: "out_of_stock"}, nil
	}}
	o := newTestOrchestrator(js, cs, p, nil)

	job, err := o.Submit(context.Background(), SubmitRequest{
		URLs:     []string{"https://shop.example.com/p/1"},
		Settings: model.JobSettings{ExcludeOutOfStock: true},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	js.waitTerminal(t)

	final := js.get(job.ID)
	if final.FailedScrapes != 1 || final.SuccessfulScrapes != 0 {
		t.Fatalf("expected excluded product counted as failed, got %d/%d",
			final.SuccessfulScrapes, final.FailedScrapes)
	}
	if len(cs.created) != 0 {
		t.Fatalf("excluded product must not be stored, got %d candidates", len(cs.created))
	}
}

func TestRunJob_AutoImport(t *testing.T) {
	js := newFakeJobStore()
	imp := &fakeImporter{}
	o := newTestOrchestrator(js, &fakeCandidateStore{}, okPipeline(), imp)

	_, err := o.Submit(context.Background(), SubmitRequest{
		URLs:     []string{"https://shop.example.com/p/1", "https://shop.example.com/p/2"},
		Settings: model.JobSettings{AutoImport: true},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if status := js.waitTerminal(t); status != string(jobs.StatusCompleted) {
		t.Fatalf("expected completed, got %s", status)
	}
	if len(imp.calls) != 2 {
		t.Fatalf("expected 2 auto-imports, got %d", len(imp.calls))
	}
}

func TestRunJob_AutoImportFailureDoesNotFailScrape(t *testing.T) {
	js := newFakeJobStore()
	imp := &fakeImporter{err: errors.New("duplicate product")}
	o := newTestOrchestrator(js, &fakeCandidateStore{}, okPipeline(), imp)

	job, err := o.Submit(context.Background(), SubmitRequest{
		URLs:     []string{"https://shop.example.com/p/1"},
		Settings: model.JobSettings{AutoImport: true},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if status := js.waitTerminal(t); status != string(jobs.StatusCompleted) {
		t.Fatalf("expected completed, got %s", status)
	}
	final := js.get(job.ID)
	if final.SuccessfulScrapes != 1 {
		t.Fatalf("scrape must stay successful when auto-import fails, got %d", final.SuccessfulScrapes)
	}
}

func TestRunJob_AbortsWhenTerminalMidFlight(t *testing.T) {
	js := newFakeJobStore()
	// Every status read reports the job as already failed, as if the
	// reconciler force-swept it between URLs.
	js.forceStatus = string(jobs.StatusFailed)

	var extracted int
	var mu sync.Mutex
	p := &fakePipeline{extract: func(ctx context.Context, rawURL string, hint extract.Platform, settings model.JobSettings) (*model.ScrapedProduct, error) {
		mu.Lock()
		extracted++
		mu.Unlock()
		return &model.ScrapedProduct{Title: "Widget", SourceURL: rawURL}, nil
	}}
	o := newTestOrchestrator(js, &fakeCandidateStore{}, p, nil)

	job, err := o.Submit(context.Background(), SubmitRequest{
		URLs: []string{"https://shop.example.com/p/1", "https://shop.example.com/p/2"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The worker abandons the loop before the first URL.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := extracted
		mu.Unlock()
		if n > 0 {
			t.Fatal("worker extracted a URL after the job turned terminal")
		}
		o.mu.Lock()
		_, running := o.cancels[job.ID]
		o.mu.Unlock()
		if !running {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("worker never released the job")
}

func TestRunJob_PanicFailsJob(t *testing.T) {
	js := newFakeJobStore()
	p := &fakePipeline{extract: func(ctx context.Context, rawURL string, hint extract.Platform, settings model.JobSettings) (*model.ScrapedProduct, error) {
		panic("boom")
	}}
	o := newTestOrchestrator(js, &fakeCandidateStore{}, p, nil)

	job, err := o.Submit(context.Background(), SubmitRequest{
		URLs: []string{"https://shop.example.com/p/1"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if status := js.waitTerminal(t); status != string(jobs.StatusFailed) {
		t.Fatalf("expected failed after panic, got %s", status)
	}
	final := js.get(job.ID)
	if !strings.Contains(final.ErrorMessage, "panic") {
		t.Fatalf("expected panic message, got %q", final.ErrorMessage)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completed_at set on failure")
	}
}

func TestJobPlatform(t *testing.T) {
	cases := []struct {
		declared string
		urls     []string
		want     string
	}{
		{"ebay", []string{"https://www.amazon.com/dp/B000"}, "ebay"},
		{"", []string{"https://www.amazon.com/dp/B000", "https://amazon.de/dp/B001"}, "amazon"},
		{"", []string{"https://www.amazon.com/dp/B000", "https://www.ebay.com/itm/1"}, "multi-platform"},
		{"", []string{"https://unknown-shop.example.com/p/1"}, "multi-platform"},
	}
	for _, tc := range cases {
		if got := jobPlatform(tc.declared, tc.urls); got != tc.want {
			t.Errorf("jobPlatform(%q, %v) = %q, want %q", tc.declared, tc.urls, got, tc.want)
		}
	}
}
