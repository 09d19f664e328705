package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sentimentwatch/internal/app"
	"sentimentwatch/internal/config"
	"sentimentwatch/pkg/ogimage"

	"github.com/joho/godotenv"
)

const (
	engagementLimit = 2000
	imageLimit      = 500
)

// backfill fills engagement counts and preview images for items the
// regular runs missed.
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

	eng, err := a.Pipeline.EnrichEngagement(ctx, engagementLimit)
	if err != nil {
		slog.Error("engagement backfill failed", "error", err)
		os.Exit(1)
	}
	slog.Info("engagement backfill complete", "fetched", eng.Fetched, "skipped", eng.Skipped)

	img, err := a.Pipeline.BackfillImages(ctx, ogimage.NewFetcher(), imageLimit)
	if err != nil {
		slog.Error("image backfill failed", "error", err)
		os.Exit(1)
	}
	slog.Info("image backfill complete", "checked", img.Checked, "updated", img.Updated)
}
