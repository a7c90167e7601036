package extract

import (
	"context"
	"errors"
	"time"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/fetch"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/llm"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/scrapeutil"
)

// productFields is the schema the model is asked to fill from the page's
// markdown rendering.
var productFields = []llm.FieldSpec{
	{Name: "title", Description: "Product title", Type: "string"},
	{Name: "description", Description: "Short product description", Type: "string"},
	{Name: "price", Description: "Current selling price as a number, no currency symbol", Type: "number"},
	{Name: "original_price", Description: "Pre-discount price as a number, if shown", Type: "number"},
	{Name: "currency", Description: "ISO currency code of the price", Type: "string"},
	{Name: "brand", Description: "Brand or manufacturer name", Type: "string"},
	{Name: "availability", Description: "Stock status: in_stock, out_of_stock, or unknown", Type: "string"},
	{Name: "rating", Description: "Average customer rating as a number", Type: "number"},
	{Name: "review_count", Description: "Number of customer reviews as a number", Type: "number"},
	{Name: "images", Description: "Product image URLs", Type: "array"},
}

// AIProvider fetches the page, renders it to markdown, and has an LLM pull
// the product fields out. It sits between the professional APIs and the
// best-effort fallback in the chain.
type AIProvider struct {
	fetcher   fetch.Fetcher
	client    llm.Client
	userAgent string
	timeout   time.Duration
}

func NewAIProvider(f fetch.Fetcher, client llm.Client, userAgent string, timeout time.Duration) *AIProvider {
	return &AIProvider{fetcher: f, client: client, userAgent: userAgent, timeout: timeout}
}

func (p *AIProvider) Name() string { return "ai" }

func (p *AIProvider) Extract(ctx context.Context, rawURL string, opts Options) (*model.ScrapedProduct, error) {
	res, err := p.fetcher.Fetch(ctx, fetch.Request{
		URL:       rawURL,
		Timeout:   p.timeout,
		UserAgent: p.userAgent,
	})
	if err != nil {
		return nil, err
	}
	if res.Markdown == "" {
		return nil, errors.New("page produced no markdown content")
	}

	out, err := p.client.ExtractFields(ctx, llm.ExtractRequest{
		URL:      rawURL,
		Markdown: res.Markdown,
		Fields:   productFields,
		Timeout:  p.timeout,
	})
	if err != nil {
		return nil, err
	}

	cand := &model.ScrapedProduct{
		Title:         scrapeutil.ToString(out.Fields["title"]),
		Description:   scrapeutil.ToString(out.Fields["description"]),
		Price:         scrapeutil.ToFloat(out.Fields["price"]),
		OriginalPrice: scrapeutil.ToFloat(out.Fields["original_price"]),
		Currency:      scrapeutil.ToString(out.Fields["currency"]),
		Brand:         scrapeutil.ToString(out.Fields["brand"]),
		Availability:  scrapeutil.NormalizeAvailability(scrapeutil.ToString(out.Fields["availability"])),
		Rating:        scrapeutil.ToFloat(out.Fields["rating"]),
		ReviewCount:   int(scrapeutil.ToFloat(out.Fields["review_count"])),
		SourceURL:     rawURL,
	}

	if imgs, ok := out.Fields["images"].([]any); ok {
		for _, item := range imgs {
			if s, ok := item.(string); ok && s != "" {
				cand.Images = append(cand.Images, s)
			}
		}
	}
	// The model sometimes misses images the page metadata has.
	if len(cand.Images) == 0 {
		if v := res.Meta["og:image"]; v != "" {
			cand.Images = []string{v}
		}
	}

	if cand.Title == "" {
		return nil, errors.New("llm extraction returned no product title")
	}
	return cand, nil
}
