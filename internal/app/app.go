package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"sentimentwatch/db"
	"sentimentwatch/internal/cache"
	"sentimentwatch/internal/config"
	"sentimentwatch/internal/pipeline"
	"sentimentwatch/internal/repository"
	"sentimentwatch/pkg/engagement"
	"sentimentwatch/pkg/llm"
	"sentimentwatch/pkg/news"
	"sentimentwatch/pkg/notable"
	"sentimentwatch/pkg/search"

	"github.com/redis/go-redis/v9"
)

const hnQuery = "Claude OR Anthropic OR OpenAI OR ChatGPT OR Codex"

// App holds the connections and collaborators shared by every binary.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Redis    *redis.Client
	Cache    *cache.Cache
	Items    *repository.ItemRepository
	Runs     *repository.RunRepository
	Metrics  *repository.MetricRepository
	Searcher *search.ExaClient
	LLM      llm.Completer
	Pipeline *pipeline.Pipeline
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to DB: %w", err)
	}

	if !cfg.SkipMigrate {
		version, err := db.Migrate(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		slog.Info("database migrated", "version", version)
	}

	rdb, err := db.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to Redis: %w", err)
	}
	if rdb == nil {
		slog.Info("REDIS_URL not set, summary cache disabled")
	}

	table, err := notable.Default()
	if err != nil {
		conn.Close()
		return nil, err
	}

	a := &App{
		Config:   cfg,
		DB:       conn,
		Redis:    rdb,
		Cache:    cache.New(rdb),
		Items:    repository.NewItemRepository(conn),
		Runs:     repository.NewRunRepository(conn),
		Metrics:  repository.NewMetricRepository(conn),
		Searcher: search.NewExaClient(cfg.ExaAPIKey, cfg.SearchRatePerSecond),
		LLM:      newCompleter(cfg),
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Items:      a.Items,
		Runs:       a.Runs,
		Metrics:    a.Metrics,
		Searcher:   a.Searcher,
		News:       newsSources(cfg),
		Engagement: newEngagement(cfg),
		LLM:        a.LLM,
		Notable:    table,
	}, pipeline.Options{
		SearchConcurrency: cfg.SearchConcurrency,
		LLMConcurrency:    cfg.LLMConcurrency,
		RunStaleAfter:     cfg.RunStaleAfter,
	})

	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.DB.Close()
}

func newCompleter(cfg *config.Config) llm.Completer {
	if cfg.CompletionKey() == "" {
		slog.Warn("completion provider key not set, model stages will fall back to defaults", "provider", cfg.LLMProvider)
	}
	if cfg.LLMProvider == config.ProviderAnthropic {
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	}
	return llm.NewOpenAIClient(cfg.OpenAIAPIKey)
}

// newEngagement returns a nil Lookup when no key is configured.
func newEngagement(cfg *config.Config) engagement.Lookup {
	if cfg.TwitterAPIKey == "" {
		slog.Info("TWITTER_API_KEY not set, engagement enrichment disabled")
		return nil
	}
	return engagement.NewTwitterAPIClient(cfg.TwitterAPIKey)
}

func newsSources(cfg *config.Config) []news.NewsClient {
	var clients []news.NewsClient
	if cfg.FinnhubAPIKey != "" {
		clients = append(clients, news.NewFinnHubClient(cfg.FinnhubAPIKey))
	}
	if cfg.AlphaVantageAPIKey != "" {
		clients = append(clients, news.NewAlphaVantageClient(cfg.AlphaVantageAPIKey))
	}
	if cfg.HNRSSEnabled {
		clients = append(clients, news.NewHNRSSClient(hnQuery))
	}
	return clients
}
