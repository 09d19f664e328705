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

// rescore clears every importance score and take, then runs the pipeline
// so the current prompts and notable table are applied to all items.
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

	stats, err := a.Pipeline.Rescore(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		log.Fatalf("a run is in progress, retry later")
	}
	if err != nil {
		slog.Error("rescore failed", "error", err)
		os.Exit(1)
	}

	if err := a.Cache.Delete(ctx, cache.SummaryKey); err != nil {
		slog.Warn("failed to invalidate summary cache", "error", err)
	}

	slog.Info("rescore complete", "run_id", stats.RunID, "takes", stats.TakesGenerated, "clusters", stats.ClustersCreated)
}
