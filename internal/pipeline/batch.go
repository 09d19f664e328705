package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEachBatch splits items into batches of size and runs fn on up to
// limit batches at a time. batchNum starts at 1.
func forEachBatch[T any](ctx context.Context, items []T, size, limit int, fn func(ctx context.Context, batchNum int, batch []T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 0; i < len(items); i += size {
		batch := items[i:min(i+size, len(items))]
		batchNum := i/size + 1
		g.Go(func() error {
			return fn(gctx, batchNum, batch)
		})
	}

	return g.Wait()
}
