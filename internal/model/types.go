package model

import (
	"time"

	"github.com/google/uuid"
)

// JobSettings carries the recognized per-job options submitted with a batch.
// Unknown keys are dropped at decode time.
type JobSettings struct {
	AutoImport          bool   `json:"auto_import"`
	DefaultStatus       string `json:"default_status,omitempty"`
	ValidateImages      bool   `json:"validate_images"`
	MaxImages           int    `json:"max_images,omitempty"`
	ExcludeOutOfStock   bool   `json:"exclude_out_of_stock"`
	OverrideExisting    bool   `json:"override_existing"`
	DownloadImages      bool   `json:"download_images"`
	UseProfessionalAPIs *bool  `json:"use_professional_apis,omitempty"`
	UseAIEnhancement    *bool  `json:"use_ai_enhancement,omitempty"`
}

// URLResult records the outcome of one URL within a scraping job.
type URLResult struct {
	URL              string          `json:"url"`
	Status           string          `json:"status"` // success | failed
	Product          *ScrapedProduct `json:"product,omitempty"`
	Error            string          `json:"error,omitempty"`
	ScrapedAt        time.Time       `json:"scraped_at"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
}

// ScrapingJob is one submitted batch of URLs tracked as a single stateful
// record. Status values live in the jobs package.
type ScrapingJob struct {
	ID                uuid.UUID   `json:"id"`
	URLs              []string    `json:"urls"`
	Platform          string      `json:"platform,omitempty"`
	Settings          JobSettings `json:"settings"`
	Status            string      `json:"status"`
	TotalURLs         int         `json:"total_urls"`
	ProcessedURLs     int         `json:"processed_urls"`
	SuccessfulScrapes int         `json:"successful_scrapes"`
	FailedScrapes     int         `json:"failed_scrapes"`
	Results           []URLResult `json:"results"`
	ErrorMessage      string      `json:"error_message,omitempty"`
	CreatedBy         string      `json:"created_by,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`
}

// ScrapedProduct is a normalized product extracted from one URL, staged for
// review before catalog import. The job back-reference is a non-owning
// association: candidates stay addressable after their job is deleted.
type ScrapedProduct struct {
	ID             uuid.UUID  `json:"id"`
	JobID          uuid.UUID  `json:"job_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Price          float64    `json:"price"`
	OriginalPrice  float64    `json:"original_price,omitempty"`
	Currency       string     `json:"currency,omitempty"`
	Images         []string   `json:"images,omitempty"`
	Rating         float64    `json:"rating,omitempty"`
	ReviewCount    int        `json:"review_count,omitempty"`
	Brand          string     `json:"brand,omitempty"`
	Availability   string     `json:"availability,omitempty"`
	SourcePlatform string     `json:"source_platform"`
	SourceURL      string     `json:"source_url"`
	Provider       string     `json:"provider,omitempty"`
	ScrapedAt      time.Time  `json:"scraped_at"`
	ImportedAt     *time.Time `json:"imported_at,omitempty"`
}

// Product is a committed catalog product created from a candidate by the
// bulk importer.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Images      []string  `json:"images,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Category    string    `json:"category,omitempty"`
	Status      string    `json:"status"` // draft | active
	SourceURL   string    `json:"source_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
