package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrationsDir"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	Enabled         bool   `yaml:"enabled"`
	InitialAdminKey string `yaml:"initialAdminKey"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

// ScraperConfig controls how the extraction pipeline talks to source sites.
type ScraperConfig struct {
	UserAgent           string `yaml:"userAgent"`
	FetchTimeoutMs      int    `yaml:"fetchTimeoutMs"`
	ProviderTimeoutMs   int    `yaml:"providerTimeoutMs"`
	InterRequestDelayMs int    `yaml:"interRequestDelayMs"`
	MaxBatchSize        int    `yaml:"maxBatchSize"`
}

type RobotsConfig struct {
	Respect bool `yaml:"respect"`
}

// RodConfig enables the browser-based page fetcher for JS-heavy storefronts.
type RodConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BrowserURL string `yaml:"browserURL"`
}

// ProfessionalAPIConfig describes one platform-specific extraction API
// (e.g. a hosted Amazon product API). Map keys match the detected platform
// tags: amazon, alibaba, aliexpress, ebay, walmart, shopify.
type ProfessionalAPIConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// ProvidersConfig controls which extraction providers are available and how
// they are configured.
type ProvidersConfig struct {
	UseProfessionalAPIs bool                             `yaml:"useProfessionalApis"`
	UseAIEnhancement    bool                             `yaml:"useAiEnhancement"`
	Professional        map[string]ProfessionalAPIConfig `yaml:"professional"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type LLMConfig struct {
	DefaultProvider string          `yaml:"defaultProvider"`
	OpenAI          OpenAIConfig    `yaml:"openai"`
	Anthropic       AnthropicConfig `yaml:"anthropic"`
}

// ReconcilerConfig controls the stuck-job sweep.
type ReconcilerConfig struct {
	StaleAfterMinutes    int `yaml:"staleAfterMinutes"`
	SweepIntervalMinutes int `yaml:"sweepIntervalMinutes"`
}

// JobTTLConfig controls retention for terminal scrape jobs in days.
type JobTTLConfig struct {
	DefaultDays int `yaml:"defaultDays"`
}

// CandidateTTLConfig controls retention for scraped product candidates that
// were never imported, in days.
type CandidateTTLConfig struct {
	DefaultDays int `yaml:"defaultDays"`
}

// RetentionConfig controls TTL-like deletion of old jobs and stale
// candidates so that the database does not grow without bound.
type RetentionConfig struct {
	Enabled                bool               `yaml:"enabled"`
	CleanupIntervalMinutes int                `yaml:"cleanupIntervalMinutes"`
	Jobs                   JobTTLConfig       `yaml:"jobs"`
	Candidates             CandidateTTLConfig `yaml:"candidates"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Robots     RobotsConfig     `yaml:"robots"`
	Rod        RodConfig        `yaml:"rod"`
	Providers  ProvidersConfig  `yaml:"providers"`
	LLM        LLMConfig        `yaml:"llm"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Retention  RetentionConfig  `yaml:"retention"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return &cfg
}
