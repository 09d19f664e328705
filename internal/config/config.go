package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection string"`
	RedisURL    string `long:"redis-url" env:"REDIS_URL" description:"Redis URL (optional, enables the summary cache)"`
	Port        string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	FrontendURL string `long:"frontend-url" env:"FRONTEND_URL" description:"Extra allowed CORS origin"`
	SkipMigrate bool   `long:"skip-migrate" env:"SKIP_MIGRATE" description:"Do not apply migrations on start"`

	ExaAPIKey       string `long:"exa-api-key" env:"EXA_API_KEY" description:"Exa search API key"`
	OpenAIAPIKey    string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	AnthropicAPIKey string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key"`
	LLMProvider     string `long:"llm-provider" env:"LLM_PROVIDER" default:"openai" choice:"openai" choice:"anthropic" description:"Completion provider for pipeline stages"`

	OpenRouterKey string `long:"open-router-key" env:"OPEN_ROUTER_KEY" description:"Chat API key (chat is disabled without it)"`
	ChatBaseURL   string `long:"chat-base-url" env:"CHAT_BASE_URL" default:"https://openrouter.ai/api/v1" description:"OpenAI-compatible chat endpoint"`
	ChatModel     string `long:"chat-model" env:"CHAT_MODEL" default:"google/gemini-2.5-flash" description:"Chat model id"`

	TwitterAPIKey      string `long:"twitter-api-key" env:"TWITTER_API_KEY" description:"twitterapi.io key (engagement is skipped without it)"`
	FinnhubAPIKey      string `long:"finnhub-api-key" env:"FINNHUB_API_KEY" description:"Finnhub key for supplementary news"`
	AlphaVantageAPIKey string `long:"alpha-vantage-api-key" env:"ALPHA_VANTAGE_API_KEY" description:"Alpha Vantage key for supplementary news"`
	HNRSSEnabled       bool   `long:"hn-rss" env:"HN_RSS_ENABLED" description:"Include the hnrss.org feed as a supplementary source"`

	CronSecret        string        `long:"cron-secret" env:"CRON_SECRET" description:"Shared secret for POST /cron"`
	CronIntervalHours int           `long:"cron-interval-hours" env:"CRON_INTERVAL_HOURS" default:"3" description:"Expected hours between runs"`
	RunStaleAfter     time.Duration `long:"run-stale-after" env:"RUN_STALE_AFTER" default:"15m" description:"Age after which a running run is considered dead"`

	SearchRatePerSecond float64       `long:"search-rate" env:"SEARCH_RATE_PER_SECOND" default:"5" description:"Exa requests per second"`
	SearchConcurrency   int           `long:"search-concurrency" env:"SEARCH_CONCURRENCY" default:"8" description:"Concurrent discovery queries"`
	LLMConcurrency      int           `long:"llm-concurrency" env:"LLM_CONCURRENCY" default:"4" description:"Concurrent model batches per stage"`
	SummaryCacheTTL     time.Duration `long:"summary-cache-ttl" env:"SUMMARY_CACHE_TTL" default:"10m" description:"How long GET /summary results are cached"`
}

// Load parses args on top of the environment. It returns nil, nil when
// help was requested.
func Load(args []string) (*Config, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CronIntervalHours < 1 {
		return fmt.Errorf("cron interval must be at least 1 hour, got %d", c.CronIntervalHours)
	}
	if c.SearchConcurrency < 1 || c.LLMConcurrency < 1 {
		return errors.New("concurrency limits must be positive")
	}
	if c.SearchRatePerSecond <= 0 {
		return errors.New("search rate must be positive")
	}
	return nil
}

// CompletionKey returns the API key of the selected completion provider.
func (c *Config) CompletionKey() string {
	if c.LLMProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

func (c *Config) ChatEnabled() bool {
	return c.OpenRouterKey != ""
}

func (c *Config) CronInterval() time.Duration {
	return time.Duration(c.CronIntervalHours) * time.Hour
}
