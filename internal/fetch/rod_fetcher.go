package fetch

import (
	"context"
	"net/url"
	"strings"
	"time"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RodFetcher uses a real browser (via rod) to render JS-heavy storefronts
// (Shopify themes in particular) before extracting HTML and metadata.
type RodFetcher struct {
	BrowserURL string
	Timeout    time.Duration
}

func NewRodFetcher(browserURL string, timeout time.Duration) *RodFetcher {
	return &RodFetcher{BrowserURL: browserURL, Timeout: timeout}
}

func (r *RodFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	browser := rod.New().Context(ctx).Timeout(r.Timeout)
	if r.BrowserURL != "" {
		browser = browser.ControlURL(r.BrowserURL)
	}

	if err := browser.Connect(); err != nil {
		return nil, err
	}
	defer browser.MustClose()

	page, err := browser.Page(proto.TargetCreateTarget{URL: u.String()})
	if err != nil {
		return nil, err
	}
	defer page.MustClose()

	if err := page.WaitLoad(); err != nil {
		return nil, err
	}

	htmlStr, err := page.HTML()
	if err != nil {
		return nil, err
	}

	converter := htmlmd.NewConverter(u.Hostname(), true, nil)
	markdown, mdErr := converter.ConvertString(htmlStr)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		if mdErr != nil {
			markdown = ""
		}
		return &Result{
			URL:      u.String(),
			HTML:     htmlStr,
			Markdown: markdown,
			Meta:     map[string]string{},
			Status:   200,
			Engine:   "browser",
		}, nil
	}

	if mdErr != nil {
		markdown = doc.Text()
	}

	return &Result{
		URL:      u.String(),
		HTML:     htmlStr,
		Markdown: markdown,
		Meta:     collectMeta(doc),
		Status:   200,
		Engine:   "browser",
	}, nil
}
