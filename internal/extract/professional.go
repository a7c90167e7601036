package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/config"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/scrapeutil"
)

// ProfessionalProvider delegates extraction to a hosted platform-specific
// product API (one endpoint+key per platform in config). It is the most
// reliable provider when configured, so the pipeline tries it first.
type ProfessionalProvider struct {
	endpoints map[string]config.ProfessionalAPIConfig
	client    *http.Client
}

func NewProfessionalProvider(endpoints map[string]config.ProfessionalAPIConfig, timeout time.Duration) *ProfessionalProvider {
	return &ProfessionalProvider{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *ProfessionalProvider) Name() string { return "professional" }

// Configured reports whether an API is configured for the platform. The
// pipeline skips this provider entirely for unconfigured platforms.
func (p *ProfessionalProvider) Configured(platform Platform) bool {
	api, ok := p.endpoints[string(platform)]
	return ok && api.Endpoint != ""
}

type professionalRequest struct {
	URL string `json:"url"`
}

type professionalResponse struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Price         any      `json:"price"`
	OriginalPrice any      `json:"original_price"`
	Currency      string   `json:"currency"`
	Images        []string `json:"images"`
	Rating        any      `json:"rating"`
	ReviewCount   any      `json:"review_count"`
	Brand         string   `json:"brand"`
	Availability  string   `json:"availability"`
}

func (p *ProfessionalProvider) Extract(ctx context.Context, rawURL string, opts Options) (*model.ScrapedProduct, error) {
	api, ok := p.endpoints[string(opts.Platform)]
	if !ok || api.Endpoint == "" {
		return nil, fmt.Errorf("no professional api configured for platform %q", opts.Platform)
	}

	payload, err := json.Marshal(professionalRequest{URL: rawURL})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, api.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if api.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+api.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("professional api for %q returned status %d", opts.Platform, resp.StatusCode)
	}

	var parsed professionalResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Title == "" {
		return nil, errors.New("professional api returned no product title")
	}

	return &model.ScrapedProduct{
		Title:         parsed.Title,
		Description:   parsed.Description,
		Price:         scrapeutil.ToFloat(parsed.Price),
		OriginalPrice: scrapeutil.ToFloat(parsed.OriginalPrice),
		Currency:      parsed.Currency,
		Images:        parsed.Images,
		Rating:        scrapeutil.ToFloat(parsed.Rating),
		ReviewCount:   int(scrapeutil.ToFloat(parsed.ReviewCount)),
		Brand:         parsed.Brand,
		Availability:  scrapeutil.NormalizeAvailability(parsed.Availability),
		SourceURL:     rawURL,
	}, nil
}
