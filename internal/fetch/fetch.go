package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Request represents a single page fetch against a source site.
type Request struct {
	URL       string
	Headers   map[string]string
	Timeout   time.Duration
	UserAgent string
}

// Result is the raw material the extraction providers work from: the page
// HTML, a markdown rendering of it, and the meta/OpenGraph tags that
// storefronts commonly expose.
type Result struct {
	URL      string
	HTML     string
	Markdown string
	Meta     map[string]string
	Status   int
	Engine   string
}

// Fetcher retrieves one product page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// collectMeta pulls the tags relevant to product extraction out of a parsed
// document. Property-style tags (og:*, product:*) take precedence over
// name-style ones with the same key.
func collectMeta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)

	set := func(key, val string) {
		key = strings.TrimSpace(strings.ToLower(key))
		val = strings.TrimSpace(val)
		if key == "" || val == "" {
			return
		}
		if _, exists := meta[key]; !exists {
			meta[key] = val
		}
	}

	set("title", doc.Find("title").First().Text())

	doc.Find("meta[property]").Each(func(_ int, sel *goquery.Selection) {
		set(sel.AttrOr("property", ""), sel.AttrOr("content", ""))
	})
	doc.Find("meta[name]").Each(func(_ int, sel *goquery.Selection) {
		set(sel.AttrOr("name", ""), sel.AttrOr("content", ""))
	})
	doc.Find("meta[itemprop]").Each(func(_ int, sel *goquery.Selection) {
		set("itemprop:"+sel.AttrOr("itemprop", ""), sel.AttrOr("content", ""))
	})

	if canonical := doc.Find("link[rel=canonical]").AttrOr("href", ""); canonical != "" {
		set("canonical", canonical)
	}

	return meta
}
