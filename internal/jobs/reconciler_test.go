package jobs

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

type fakeReconcileStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*model.ScrapingJob
}

func newFakeReconcileStore(jobs ...*model.ScrapingJob) *fakeReconcileStore {
	f := &fakeReconcileStore{jobs: make(map[uuid.UUID]*model.ScrapingJob)}
	for _, j := range jobs {
		f.jobs[j.ID] = j
	}
	return f
}

func (f *fakeReconcileStore) ListStaleProcessingJobs(ctx context.Context, cutoff time.Time) ([]model.ScrapingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ScrapingJob
	for _, j := range f.jobs {
		if j.Status != string(StatusProcessing) {
			continue
		}
		if cutoff.IsZero() || j.CreatedAt.Before(cutoff) {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeReconcileStore) UpdateScrapeJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if Status(j.Status).Terminal() {
		return nil
	}
	j.Status = status
	if errMsg != nil {
		j.ErrorMessage = *errMsg
	}
	if completedAt != nil {
		j.CompletedAt = completedAt
	}
	return nil
}

func processingJob(age time.Duration) *model.ScrapingJob {
	return &model.ScrapingJob{
		ID:        uuid.New(),
		Status:    string(StatusProcessing),
		CreatedAt: time.Now().UTC().Add(-age),
	}
}

func TestSweep_FailsOnlyStaleJobs(t *testing.T) {
	stale := processingJob(11 * time.Minute)
	fresh := processingJob(2 * time.Minute)
	pending := &model.ScrapingJob{ID: uuid.New(), Status: string(StatusPending), CreatedAt: time.Now().UTC().Add(-time.Hour)}
	st := newFakeReconcileStore(stale, fresh, pending)

	r := NewReconciler(st, 10*time.Minute, nil)
	fixed, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(fixed) != 1 || fixed[0] != stale.ID {
		t.Fatalf("expected only the stale job reconciled, got %v", fixed)
	}

	if got := st.jobs[stale.ID]; got.Status != string(StatusFailed) {
		t.Fatalf("stale job should be failed, got %s", got.Status)
	}
	if got := st.jobs[stale.ID]; !strings.Contains(got.ErrorMessage, "timed out") {
		t.Fatalf("expected timeout error message, got %q", got.ErrorMessage)
	}
	if got := st.jobs[stale.ID]; got.CompletedAt == nil {
		t.Fatal("expected completed_at set on reconciled job")
	}
	if got := st.jobs[fresh.ID]; got.Status != string(StatusProcessing) {
		t.Fatalf("fresh job must stay processing, got %s", got.Status)
	}
	if got := st.jobs[pending.ID]; got.Status != string(StatusPending) {
		t.Fatalf("pending job must not be touched, got %s", got.Status)
	}
}

func TestSweep_Idempotent(t *testing.T) {
	st := newFakeReconcileStore(processingJob(time.Hour))

	r := NewReconciler(st, 10*time.Minute, nil)
	if fixed, _ := r.Sweep(context.Background()); len(fixed) != 1 {
		t.Fatalf("first sweep expected 1, got %v", fixed)
	}
	if fixed, _ := r.Sweep(context.Background()); len(fixed) != 0 {
		t.Fatalf("second sweep expected 0, got %v", fixed)
	}
}

func TestForceSweep_FailsAllProcessing(t *testing.T) {
	fresh := processingJob(time.Second)
	older := processingJob(time.Hour)
	st := newFakeReconcileStore(fresh, older)

	r := NewReconciler(st, 10*time.Minute, nil)
	fixed, err := r.ForceSweep(context.Background())
	if err != nil {
		t.Fatalf("force sweep: %v", err)
	}
	if len(fixed) != 2 {
		t.Fatalf("expected 2 jobs reconciled, got %v", fixed)
	}
	for id, j := range st.jobs {
		if j.Status != string(StatusFailed) {
			t.Fatalf("job %s should be failed, got %s", id, j.Status)
		}
	}
}
