package extract

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/fetch"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/scrapeutil"
)

// BasicProvider is the best-effort fallback at the end of every chain. It
// fetches the page and reads whatever structure the storefront exposes
// (JSON-LD Product blocks, OpenGraph tags, plain meta tags). It never
// returns an error: when even the fetch fails it produces a minimal
// candidate derived from the URL so the pipeline always terminates with a
// result.
type BasicProvider struct {
	fetcher   fetch.Fetcher
	robots    *fetch.RobotsGate
	userAgent string
	timeout   time.Duration
}

func NewBasicProvider(f fetch.Fetcher, robots *fetch.RobotsGate, userAgent string, timeout time.Duration) *BasicProvider {
	return &BasicProvider{fetcher: f, robots: robots, userAgent: userAgent, timeout: timeout}
}

func (p *BasicProvider) Name() string { return "basic" }

func (p *BasicProvider) Extract(ctx context.Context, rawURL string, opts Options) (*model.ScrapedProduct, error) {
	if p.robots != nil && !p.robots.Allowed(ctx, rawURL) {
		return minimalCandidate(rawURL), nil
	}

	res, err := p.fetcher.Fetch(ctx, fetch.Request{
		URL:       rawURL,
		Timeout:   p.timeout,
		UserAgent: p.userAgent,
	})
	if err != nil || res == nil {
		return minimalCandidate(rawURL), nil
	}

	cand := ParseProduct(res.HTML, res.Meta, res.URL)
	if cand.Title == "" {
		cand.Title = titleFromURL(rawURL)
	}
	return cand, nil
}

// minimalCandidate is the floor of "best effort": a candidate carrying only
// what the URL itself tells us.
func minimalCandidate(rawURL string) *model.ScrapedProduct {
	return &model.ScrapedProduct{
		Title:        titleFromURL(rawURL),
		SourceURL:    rawURL,
		Availability: "unknown",
	}
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Hostname()
	}
	parts := strings.Split(path, "/")
	slug := parts[len(parts)-1]
	slug = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(slug)
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return u.Hostname()
	}
	return slug
}

// ParseProduct extracts a normalized product from page HTML and collected
// meta tags. JSON-LD Product data wins over OpenGraph/meta values because
// storefronts keep it closer to the source of truth.
func ParseProduct(htmlStr string, meta map[string]string, pageURL string) *model.ScrapedProduct {
	cand := &model.ScrapedProduct{
		SourceURL:    pageURL,
		Availability: "unknown",
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr)); err == nil {
		doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			var raw any
			if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
				return true
			}
			if product := findJSONLDProduct(raw); product != nil {
				applyJSONLDProduct(cand, product)
				return false
			}
			return true
		})
	}

	applyMetaTags(cand, meta)
	return cand
}

// findJSONLDProduct walks a decoded JSON-LD value (object, array, or
// @graph container) looking for the first Product node.
func findJSONLDProduct(raw any) map[string]any {
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if p := findJSONLDProduct(item); p != nil {
				return p
			}
		}
	case map[string]any:
		if isJSONLDProduct(v) {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			return findJSONLDProduct(graph)
		}
	}
	return nil
}

func isJSONLDProduct(node map[string]any) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func applyJSONLDProduct(cand *model.ScrapedProduct, product map[string]any) {
	cand.Title = scrapeutil.ToString(product["name"])
	cand.Description = scrapeutil.ToString(product["description"])

	switch brand := product["brand"].(type) {
	case string:
		cand.Brand = brand
	case map[string]any:
		cand.Brand = scrapeutil.ToString(brand["name"])
	}

	switch img := product["image"].(type) {
	case string:
		cand.Images = []string{img}
	case []any:
		for _, item := range img {
			if s, ok := item.(string); ok {
				cand.Images = append(cand.Images, s)
			}
		}
	case map[string]any:
		if s := scrapeutil.ToString(img["url"]); s != "" {
			cand.Images = []string{s}
		}
	}

	if rating, ok := product["aggregateRating"].(map[string]any); ok {
		cand.Rating = scrapeutil.ToFloat(rating["ratingValue"])
		count := scrapeutil.ToFloat(rating["reviewCount"])
		if count == 0 {
			count = scrapeutil.ToFloat(rating["ratingCount"])
		}
		cand.ReviewCount = int(count)
	}

	applyJSONLDOffer(cand, product["offers"])
}

func applyJSONLDOffer(cand *model.ScrapedProduct, offers any) {
	var offer map[string]any
	switch v := offers.(type) {
	case map[string]any:
		offer = v
	case []any:
		if len(v) > 0 {
			offer, _ = v[0].(map[string]any)
		}
	}
	if offer == nil {
		return
	}

	price := scrapeutil.ToFloat(offer["price"])
	if price == 0 {
		// AggregateOffer exposes lowPrice/highPrice instead.
		price = scrapeutil.ToFloat(offer["lowPrice"])
	}
	if price == 0 {
		if spec, ok := offer["priceSpecification"].(map[string]any); ok {
			price = scrapeutil.ToFloat(spec["price"])
		}
	}
	if price > 0 {
		cand.Price = price
	}

	if cur := scrapeutil.ToString(offer["priceCurrency"]); cur != "" {
		cand.Currency = cur
	}
	if avail := scrapeutil.ToString(offer["availability"]); avail != "" {
		cand.Availability = scrapeutil.NormalizeAvailability(avail)
	}
}

// applyMetaTags fills any gaps the JSON-LD pass left using OpenGraph and
// plain meta tags.
func applyMetaTags(cand *model.ScrapedProduct, meta map[string]string) {
	if cand.Title == "" {
		if v := meta["og:title"]; v != "" {
			cand.Title = v
		} else {
			cand.Title = meta["title"]
		}
	}
	if cand.Description == "" {
		if v := meta["og:description"]; v != "" {
			cand.Description = v
		} else {
			cand.Description = meta["description"]
		}
	}
	if len(cand.Images) == 0 {
		if v := meta["og:image"]; v != "" {
			cand.Images = []string{v}
		}
	}
	if cand.Price == 0 {
		for _, key := range []string{"product:price:amount", "og:price:amount", "itemprop:price"} {
			if v := meta[key]; v != "" {
				cand.Price = scrapeutil.ParsePrice(v)
				break
			}
		}
	}
	if cand.Currency == "" {
		for _, key := range []string{"product:price:currency", "og:price:currency", "itemprop:pricecurrency"} {
			if v := meta[key]; v != "" {
				cand.Currency = v
				break
			}
		}
	}
	if cand.Availability == "" || cand.Availability == "unknown" {
		for _, key := range []string{"og:availability", "product:availability", "itemprop:availability"} {
			if v := meta[key]; v != "" {
				cand.Availability = scrapeutil.NormalizeAvailability(v)
				break
			}
		}
	}
	if cand.Brand == "" {
		cand.Brand = meta["og:site_name"]
	}
}
