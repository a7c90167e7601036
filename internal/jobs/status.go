package jobs

// Status represents the lifecycle state of a scraping job in the
// scrape_jobs table. These values must match the text values stored in
// the database (scrape_jobs.status).
//
// Transitions only move forward: pending -> processing -> completed|failed.
// Nothing ever leaves completed or failed.
//
// Centralizing these here avoids scattering string literals like
// "pending" or "completed" across packages.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a job in this status can still change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
