package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
)

// Options carries the per-URL context a provider may use to bias its work.
type Options struct {
	Platform Platform
	Settings model.JobSettings
}

// Provider is one strategy for turning a product URL into a normalized
// candidate. Providers are tried in order by the pipeline; a provider's
// failure advances the chain rather than failing the URL.
type Provider interface {
	Name() string
	Extract(ctx context.Context, rawURL string, opts Options) (*model.ScrapedProduct, error)
}

// ExtractionError reports that every provider in the chain failed for one
// URL. It is recorded per-URL in job results and never fails the job.
type ExtractionError struct {
	URL      string
	Attempts []string
	Reason   string
}

func (e *ExtractionError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("extraction failed for %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("extraction failed for %s after %s: %s", e.URL, strings.Join(e.Attempts, ", "), e.Reason)
}
