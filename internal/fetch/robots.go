package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsGate checks robots.txt before best-effort fetches. Parsed files are
// cached per host for the lifetime of the gate.
type RobotsGate struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

func NewRobotsGate(userAgent string, timeout time.Duration) *RobotsGate {
	return &RobotsGate{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the user agent may fetch rawURL. Unreachable or
// unparsable robots.txt files allow everything, matching the common
// crawler convention.
func (g *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := g.robotsFor(ctx, u)
	if data == nil {
		return true
	}

	group := data.FindGroup(g.userAgent)
	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

func (g *RobotsGate) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	g.mu.Lock()
	if data, ok := g.cache[u.Host]; ok {
		g.mu.Unlock()
		return data
	}
	g.mu.Unlock()

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	var data *robotstxt.RobotsData
	resp, err := g.client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if body, err := io.ReadAll(resp.Body); err == nil {
			data, _ = robotstxt.FromStatusAndBytes(resp.StatusCode, body)
		}
	}

	g.mu.Lock()
	g.cache[u.Host] = data
	g.mu.Unlock()
	return data
}
