package jobs

import (
	"context"
	"testing"
	"time"
)

type fakeRetentionStore struct {
	jobCalls       []time.Time
	candidateCalls []time.Time
}

func (f *fakeRetentionStore) DeleteExpiredScrapeJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	f.jobCalls = append(f.jobCalls, cutoff)
	return 3, nil
}

func (f *fakeRetentionStore) DeleteExpiredScrapedProducts(ctx context.Context, cutoff time.Time) (int64, error) {
	f.candidateCalls = append(f.candidateCalls, cutoff)
	return 2, nil
}

func TestCleanupExpiredData(t *testing.T) {
	st := &fakeRetentionStore{}
	policy := RetentionPolicy{JobAge: 30 * 24 * time.Hour, CandidateAge: 14 * 24 * time.Hour}

	if err := CleanupExpiredData(context.Background(), st, policy, nil); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(st.jobCalls) != 1 || len(st.candidateCalls) != 1 {
		t.Fatalf("expected one call each, got %d/%d", len(st.jobCalls), len(st.candidateCalls))
	}

	// Cutoffs reflect the configured windows.
	wantJobs := time.Now().UTC().Add(-policy.JobAge)
	if diff := st.jobCalls[0].Sub(wantJobs); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("job cutoff off by %v", diff)
	}
}

func TestCleanupExpiredData_DisabledClasses(t *testing.T) {
	st := &fakeRetentionStore{}

	if err := CleanupExpiredData(context.Background(), st, RetentionPolicy{}, nil); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(st.jobCalls) != 0 || len(st.candidateCalls) != 0 {
		t.Fatal("zero policy must not delete anything")
	}
}
