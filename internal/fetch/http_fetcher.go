package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// HTTPFetcher is the default page fetcher using net/http and goquery.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	htmlStr := string(bodyBytes)

	// HTML -> Markdown rendering feeds the AI-enhanced provider's prompt.
	converter := htmlmd.NewConverter(u.Hostname(), true, nil)
	markdown, mdErr := converter.ConvertString(htmlStr)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(bodyBytes))
	if err != nil {
		// If parsing fails, still return raw HTML and status with
		// best-effort markdown.
		if mdErr != nil {
			markdown = ""
		}
		return &Result{
			URL:      u.String(),
			HTML:     htmlStr,
			Markdown: markdown,
			Meta:     map[string]string{},
			Status:   resp.StatusCode,
			Engine:   "http",
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
		Status:   resp.StatusCode,
		Engine:   "http",
	}, nil
}
