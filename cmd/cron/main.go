package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sentimentwatch/internal/app"
	"sentimentwatch/internal/cache"
	"sentimentwatch/internal/config"
	"sentimentwatch/internal/pipeline"

	"github.com/joho/godotenv"
)

// cron runs one pipeline pass outside the HTTP server, for schedulers
// that prefer invoking a binary over POST /cron.
func main() {
	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if cfg == nil {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("error starting app: %v", err)
	}
	defer a.Close()

	stats, err := a.Pipeline.Run(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		slog.Info("another run is in progress, skipping")
		return
	}
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	if err := a.Cache.Delete(ctx, cache.SummaryKey); err != nil {
		slog.Warn("failed to invalidate summary cache", "error", err)
	}

	slog.Info("run complete",
		"run_id", stats.RunID,
		"searched", stats.TotalSearched,
		"citations", stats.UniqueCitations,
		"new", stats.ItemsNew,
		"takes", stats.TakesGenerated,
		"clusters", stats.ClustersCreated,
	)
}
