package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"sentimentwatch/internal/model"

	"golang.org/x/sync/errgroup"
)

const backfillConcurrency = 5

type ImageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

type BackfillResult struct {
	Checked int
	Updated int
}

// BackfillImages fills image_url for non-social items from their pages'
// preview metadata. Pages that fail to load are skipped.
func (p *Pipeline) BackfillImages(ctx context.Context, fetcher ImageFetcher, limit int) (BackfillResult, error) {
	candidates, err := p.items.ListMissingImages(ctx, limit)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("list items missing images: %w", err)
	}

	var updated atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrency)

	for _, it := range candidates {
		g.Go(func() error {
			return p.backfillOne(gctx, fetcher, it, &updated)
		})
	}
	if err := g.Wait(); err != nil {
		return BackfillResult{}, err
	}

	res := BackfillResult{Checked: len(candidates), Updated: int(updated.Load())}
	slog.Info("image backfill finished", "checked", res.Checked, "updated", res.Updated)
	return res, nil
}

func (p *Pipeline) backfillOne(ctx context.Context, fetcher ImageFetcher, it model.Item, updated *atomic.Int64) error {
	image, err := fetcher.Fetch(ctx, it.URL)
	if err != nil {
		slog.Debug("no preview image", "url", it.URL, "error", err)
		return nil
	}

	if err := p.items.UpdateImage(ctx, it.ID, image); err != nil {
		return fmt.Errorf("update image %s: %w", it.ID, err)
	}
	updated.Add(1)
	return nil
}
