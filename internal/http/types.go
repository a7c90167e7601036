package http

import (
	"time"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

// ErrorResponse is the uniform error envelope for every endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ScrapeSubmitRequest is the body of POST /v1/scrape-jobs.
type ScrapeSubmitRequest struct {
	URLs     []string           `json:"urls"`
	Platform string             `json:"platform,omitempty"`
	Settings *model.JobSettings `json:"settings,omitempty"`
}

// ScrapeSubmitResponse acknowledges an accepted batch.
type ScrapeSubmitResponse struct {
	Success   bool   `json:"success"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	TotalURLs int    `json:"total_urls"`
	Message   string `json:"message,omitempty"`
}

// JobStatusResponse is the full job record as returned to callers.
type JobStatusResponse struct {
	Success bool               `json:"success"`
	Job     *model.ScrapingJob `json:"job"`
}

// JobListResponse is a page of recent jobs.
type JobListResponse struct {
	Success bool                `json:"success"`
	Jobs    []model.ScrapingJob `json:"jobs"`
}

// JobManagementRequest is the body of POST /v1/scrape-jobs/manage. Action
// is one of fix_stuck_jobs, force_fix_all_stuck_jobs, complete_job.
type JobManagementRequest struct {
	Action string `json:"action"`
	JobID  string `json:"job_id,omitempty"`
}

// JobManagementResponse reports what a management action changed.
type JobManagementResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Affected []string `json:"affected"`
}

// BulkImportRequest is the body of POST /v1/products/import.
type BulkImportRequest struct {
	ProductIDs    []string                    `json:"product_ids"`
	Modifications *BulkImportModification     `json:"modifications,omitempty"`
	PerProduct    map[string]BulkModification `json:"per_product,omitempty"`
}

// BulkImportModification is the batch-wide modification set.
type BulkImportModification struct {
	BulkModification
}

// BulkModification adjusts catalog fields during import.
type BulkModification struct {
	Category         string `json:"category,omitempty"`
	Status           string `json:"status,omitempty"`
	OverrideExisting *bool  `json:"override_existing,omitempty"`
}

// BulkItemError pairs one input id with the reason it failed.
type BulkItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkImportResponse aggregates per-item import outcomes.
type BulkImportResponse struct {
	Success  bool            `json:"success"`
	Imported []string        `json:"imported"`
	Errors   []BulkItemError `json:"errors"`
}

// BulkDeleteRequest is the body of POST /v1/products/delete.
type BulkDeleteRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// BulkDeleteResponse aggregates per-item delete outcomes.
type BulkDeleteResponse struct {
	Success bool            `json:"success"`
	Deleted []string        `json:"deleted"`
	Errors  []BulkItemError `json:"errors"`
}

// CandidateListResponse is a page of scraped product candidates.
type CandidateListResponse struct {
	Success  bool                   `json:"success"`
	Products []model.ScrapedProduct `json:"products"`
}

// CandidateResponse is a single scraped product candidate.
type CandidateResponse struct {
	Success bool                  `json:"success"`
	Product *model.ScrapedProduct `json:"product"`
}

// DeleteResponse acknowledges a single-record delete.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// healthSnapshot is the deep health-check payload.
type healthSnapshot struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Redis  string `json:"redis"`
	Rod    string `json:"rod"`
	Time   string `json:"time"`
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
