package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/fetch"
)

type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, req fetch.Request) (*fetch.Result, error) {
	return nil, errors.New("connection refused")
}

func TestBasicProvider_NeverErrors(t *testing.T) {
	p := NewBasicProvider(failingFetcher{}, nil, "test-agent", time.Second)

	cand, err := p.Extract(context.Background(), "https://shop.example.com/products/red-wool-sweater", Options{})
	if err != nil {
		t.Fatalf("basic provider must not error, got %v", err)
	}
	if cand.Title != "red wool sweater" {
		t.Fatalf("expected slug-derived title, got %q", cand.Title)
	}
	if cand.SourceURL != "https://shop.example.com/products/red-wool-sweater" {
		t.Fatalf("source url missing: %q", cand.SourceURL)
	}
	if cand.Availability != "unknown" {
		t.Fatalf("expected unknown availability, got %q", cand.Availability)
	}
}

func TestTitleFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://shop.example.com/products/blue_denim+jacket", "blue denim jacket"},
		{"https://shop.example.com/", "shop.example.com"},
		{"https://shop.example.com", "shop.example.com"},
	}
	for _, tc := range cases {
		if got := titleFromURL(tc.url); got != tc.want {
			t.Errorf("titleFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestParseProduct_JSONLD(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Product",
  "name": "Wireless Mouse",
  "description": "A very quiet mouse.",
  "brand": {"@type": "Brand", "name": "Clickless"},
  "image": ["https://cdn.example.com/mouse-1.jpg", "https://cdn.example.com/mouse-2.jpg"],
  "aggregateRating": {"ratingValue": "4.6", "reviewCount": "213"},
  "offers": {
    "@type": "Offer",
    "price": "24.99",
    "priceCurrency": "USD",
    "availability": "https://schema.org/InStock"
  }
}
</script>
</head><body></body></html>`

	cand := ParseProduct(html, nil, "https://shop.example.com/p/mouse")
	if cand.Title != "Wireless Mouse" {
		t.Fatalf("title = %q", cand.Title)
	}
	if cand.Brand != "Clickless" {
		t.Fatalf("brand = %q", cand.Brand)
	}
	if cand.Price != 24.99 || cand.Currency != "USD" {
		t.Fatalf("price = %v %s", cand.Price, cand.Currency)
	}
	if cand.Availability != "in_stock" {
		t.Fatalf("availability = %q", cand.Availability)
	}
	if cand.Rating != 4.6 || cand.ReviewCount != 213 {
		t.Fatalf("rating = %v (%d)", cand.Rating, cand.ReviewCount)
	}
	if len(cand.Images) != 2 {
		t.Fatalf("images = %v", cand.Images)
	}
}

func TestParseProduct_JSONLDGraph(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@graph": [
    {"@type": "WebSite", "name": "Shop"},
    {"@type": ["Product", "Thing"], "name": "Desk Lamp",
     "offers": {"@type": "AggregateOffer", "lowPrice": "39.00", "highPrice": "59.00", "priceCurrency": "EUR"}}
  ]
}
</script>
</head><body></body></html>`

	cand := ParseProduct(html, nil, "https://shop.example.com/p/lamp")
	if cand.Title != "Desk Lamp" {
		t.Fatalf("title = %q", cand.Title)
	}
	if cand.Price != 39.00 || cand.Currency != "EUR" {
		t.Fatalf("price = %v %s", cand.Price, cand.Currency)
	}
}

func TestParseProduct_MetaFallback(t *testing.T) {
	meta := map[string]string{
		"og:title":               "Canvas Tote",
		"og:description":         "Carries things.",
		"og:image":               "https://cdn.example.com/tote.jpg",
		"product:price:amount":   "15.50",
		"product:price:currency": "GBP",
		"og:availability":        "out of stock",
		"og:site_name":           "Toteshop",
	}

	cand := ParseProduct("<html></html>", meta, "https://shop.example.com/p/tote")
	if cand.Title != "Canvas Tote" {
		t.Fatalf("title = %q", cand.Title)
	}
	if cand.Price != 15.50 || cand.Currency != "GBP" {
		t.Fatalf("price = %v %s", cand.Price, cand.Currency)
	}
	if cand.Availability != "out_of_stock" {
		t.Fatalf("availability = %q", cand.Availability)
	}
	if cand.Brand != "Toteshop" {
		t.Fatalf("brand = %q", cand.Brand)
	}
	if len(cand.Images) != 1 || cand.Images[0] != "https://cdn.example.com/tote.jpg" {
		t.Fatalf("images = %v", cand.Images)
	}
}

func TestParseProduct_JSONLDWinsOverMeta(t *testing.T) {
	html := `<script type="application/ld+json">{"@type":"Product","name":"Real Name","offers":{"price":"10.00"}}</script>`
	meta := map[string]string{"og:title": "Meta Name", "product:price:amount": "99.99"}

	cand := ParseProduct(html, meta, "https://shop.example.com/p/x")
	if cand.Title != "Real Name" {
		t.Fatalf("JSON-LD title should win, got %q", cand.Title)
	}
	if cand.Price != 10.00 {
		t.Fatalf("JSON-LD price should win, got %v", cand.Price)
	}
}

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url  string
		want Platform
	}{
		{"https://www.amazon.com/dp/B000", PlatformAmazon},
		{"https://amazon.co.uk/dp/B000", PlatformAmazon},
		{"https://www.aliexpress.com/item/1.html", PlatformAliExpress},
		{"https://www.alibaba.com/product-detail/1.html", PlatformAlibaba},
		{"https://www.ebay.com/itm/1", PlatformEbay},
		{"https://www.walmart.com/ip/1", PlatformWalmart},
		{"https://cool-store.myshopify.com/products/thing", PlatformShopify},
		{"https://unknown-shop.example.com/p/1", PlatformUnknown},
		{"not a url", PlatformUnknown},
	}
	for _, tc := range cases {
		if got := DetectPlatform(tc.url); got != tc.want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
