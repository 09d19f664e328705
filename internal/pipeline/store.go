package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"
)

type StoreResult struct {
	New      int
	Existing int
}

// Store inserts every citation as an item owned by runID. Re-discovered
// URLs are counted as existing and left untouched.
func (p *Pipeline) Store(ctx context.Context, runID string, citations []Citation, now time.Time) (StoreResult, error) {
	var res StoreResult

	for _, c := range citations {
		item := itemFromCitation(c, runID, now)

		inserted, err := p.items.InsertItem(ctx, &item)
		if err != nil {
			return res, fmt.Errorf("insert item %s: %w", c.URL, err)
		}

		if inserted {
			res.New++
		} else {
			res.Existing++
		}
	}

	slog.Info("stored citations", "run_id", runID, "new", res.New, "existing", res.Existing)
	return res, nil
}

func itemFromCitation(c Citation, runID string, now time.Time) model.Item {
	snippet := classify.Truncate(c.Snippet, citationSnippetLen)

	item := model.Item{
		ID:           classify.HashURL(c.URL),
		URL:          c.URL,
		Title:        c.Title,
		Snippet:      snippet,
		SourceType:   classify.SourceType(c.URL),
		Subject:      classify.Subject(c.Title, snippet),
		Sentiment:    model.SentimentNeutral,
		Author:       c.Author,
		PublishedAt:  c.PublishedAt,
		DiscoveredAt: now,
		RunID:        runID,
	}
	if c.Image != "" {
		image := c.Image
		item.ImageURL = &image
	}
	return item
}
