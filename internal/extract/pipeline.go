package extract

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/config"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/fetch"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/llm"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/metrics"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/scrapeutil"
)

// platformScoped is implemented by providers that only serve some
// platforms; the pipeline skips them for everything else.
type platformScoped interface {
	Configured(Platform) bool
}

// Pipeline orders the extraction providers and tries each in sequence
// until one succeeds. Provider failures and timeouts advance the chain;
// the basic provider at the end never fails, so a reachable fallback
// guarantees a result.
type Pipeline struct {
	professional Provider // nil when professional APIs are disabled
	ai           Provider // nil when AI enhancement is disabled
	basic        Provider

	useProfessional bool
	useAI           bool
	timeout         time.Duration
	logger          *slog.Logger
}

// New assembles a pipeline from explicit providers. Tests use this with
// fakes; production wiring goes through NewFromConfig.
func New(professional, ai, basic Provider, timeout time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		professional:    professional,
		ai:              ai,
		basic:           basic,
		useProfessional: professional != nil,
		useAI:           ai != nil,
		timeout:         timeout,
		logger:          logger,
	}
}

// NewFromConfig builds the production pipeline: professional APIs when
// configured, the LLM-backed provider when an LLM is configured, and the
// best-effort fallback always.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Pipeline {
	fetchTimeout := time.Duration(cfg.Scraper.FetchTimeoutMs) * time.Millisecond
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	providerTimeout := time.Duration(cfg.Scraper.ProviderTimeoutMs) * time.Millisecond
	if providerTimeout <= 0 {
		providerTimeout = 45 * time.Second
	}

	var fetcher fetch.Fetcher
	if cfg.Rod.Enabled {
		fetcher = fetch.NewRodFetcher(cfg.Rod.BrowserURL, fetchTimeout)
	} else {
		fetcher = fetch.NewHTTPFetcher(fetchTimeout)
	}

	var robots *fetch.RobotsGate
	if cfg.Robots.Respect {
		robots = fetch.NewRobotsGate(cfg.Scraper.UserAgent, fetchTimeout)
	}

	p := &Pipeline{
		basic:   NewBasicProvider(fetcher, robots, cfg.Scraper.UserAgent, fetchTimeout),
		timeout: providerTimeout,
		logger:  logger,
	}

	if cfg.Providers.UseProfessionalAPIs && len(cfg.Providers.Professional) > 0 {
		p.professional = NewProfessionalProvider(cfg.Providers.Professional, providerTimeout)
		p.useProfessional = true
	}

	if cfg.Providers.UseAIEnhancement {
		client, _, _, err := llm.NewClientFromConfig(cfg)
		if err != nil {
			if logger != nil {
				logger.Warn("ai enhancement disabled", "error", err)
			}
		} else {
			p.ai = NewAIProvider(fetcher, client, cfg.Scraper.UserAgent, providerTimeout)
			p.useAI = true
		}
	}

	return p
}

// Extract runs the provider chain for one URL. The returned candidate has
// its platform, provider, and scrape timestamp filled in and the image
// settings applied.
func (p *Pipeline) Extract(ctx context.Context, rawURL string, hint Platform, settings model.JobSettings) (*model.ScrapedProduct, error) {
	platform := hint
	if platform == PlatformUnknown {
		platform = DetectPlatform(rawURL)
	}
	opts := Options{Platform: platform, Settings: settings}

	var attempts []string
	var lastErr error

	for _, prov := range p.chain(platform, settings) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		cand, err := prov.Extract(attemptCtx, rawURL, opts)
		cancel()

		if err != nil || cand == nil {
			metrics.RecordExtraction(platformLabel(platform), prov.Name(), false)
			attempts = append(attempts, prov.Name())
			lastErr = err
			if p.logger != nil {
				p.logger.Debug("provider failed", "provider", prov.Name(), "url", rawURL, "error", err)
			}
			continue
		}

		metrics.RecordExtraction(platformLabel(platform), prov.Name(), true)
		p.finish(cand, rawURL, platform, prov.Name(), settings)
		return cand, nil
	}

	reason := "all providers exhausted"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return nil, &ExtractionError{URL: rawURL, Attempts: attempts, Reason: reason}
}

// chain orders the providers for one URL: professional first when enabled
// and configured for the platform, then AI enhancement, then always the
// basic fallback. Per-job settings override the config defaults.
func (p *Pipeline) chain(platform Platform, settings model.JobSettings) []Provider {
	useProfessional := p.useProfessional
	if settings.UseProfessionalAPIs != nil {
		useProfessional = *settings.UseProfessionalAPIs && p.professional != nil
	}
	useAI := p.useAI
	if settings.UseAIEnhancement != nil {
		useAI = *settings.UseAIEnhancement && p.ai != nil
	}

	chain := make([]Provider, 0, 3)
	if useProfessional && p.professional != nil {
		if scoped, ok := p.professional.(platformScoped); !ok || scoped.Configured(platform) {
			chain = append(chain, p.professional)
		}
	}
	if useAI && p.ai != nil {
		chain = append(chain, p.ai)
	}
	chain = append(chain, p.basic)
	return chain
}

func (p *Pipeline) finish(cand *model.ScrapedProduct, rawURL string, platform Platform, provider string, settings model.JobSettings) {
	if cand.SourceURL == "" {
		cand.SourceURL = rawURL
	}
	if cand.SourcePlatform == "" {
		cand.SourcePlatform = platformLabel(platform)
	}
	cand.Provider = provider
	if cand.ScrapedAt.IsZero() {
		cand.ScrapedAt = time.Now().UTC()
	}
	if cand.Availability == "" {
		cand.Availability = "unknown"
	}

	if settings.ValidateImages {
		cand.Images = validImages(cand.Images)
	}
	cand.Images = scrapeutil.CapImages(cand.Images, settings.MaxImages)
}

func platformLabel(p Platform) string {
	if p == PlatformUnknown {
		return "generic"
	}
	return string(p)
}

// validImages drops anything that is not an absolute http(s) URL. The
// validate_images setting promises the catalog never receives relative
// paths or data URIs.
func validImages(images []string) []string {
	out := images[:0]
	for _, img := range images {
		u, err := url.Parse(img)
		if err != nil {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		out = append(out, img)
	}
	return out
}
