package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/engagement"
)

const engagementCandidateLimit = 500

type EngagementResult struct {
	Fetched int
	Skipped int
	Failed  int
}

// EnrichEngagement looks up counters for social items that were never
// checked. Every candidate ends up either filled or marked checked, so a
// tweet the service cannot resolve is not retried.
func (p *Pipeline) EnrichEngagement(ctx context.Context, limit int) (EngagementResult, error) {
	var res EngagementResult

	if p.engagement == nil {
		slog.Info("engagement lookup not configured, skipping")
		return res, nil
	}

	candidates, err := p.items.ListWithoutEngagement(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("list engagement candidates: %w", err)
	}
	if len(candidates) == 0 {
		return res, nil
	}

	byTweet := make(map[string][]string)
	var tweetIDs, unresolvable []string

	for _, it := range candidates {
		tweetID, ok := engagement.ExtractTweetID(it.URL)
		if !ok {
			unresolvable = append(unresolvable, it.ID)
			continue
		}
		if _, seen := byTweet[tweetID]; !seen {
			tweetIDs = append(tweetIDs, tweetID)
		}
		byTweet[tweetID] = append(byTweet[tweetID], it.ID)
	}

	if err := p.items.MarkEngagementChecked(ctx, unresolvable); err != nil {
		return res, fmt.Errorf("mark engagement checked: %w", err)
	}
	res.Skipped += len(unresolvable)

	for start := 0; start < len(tweetIDs); start += engagement.MaxBatch {
		batch := tweetIDs[start:min(start+engagement.MaxBatch, len(tweetIDs))]

		counts, err := p.engagement.Lookup(ctx, batch)
		if err != nil {
			slog.Warn("engagement batch failed", "batch", start/engagement.MaxBatch+1, "error", err)
			var ids []string
			for _, tweetID := range batch {
				ids = append(ids, byTweet[tweetID]...)
			}
			if err := p.items.MarkEngagementChecked(ctx, ids); err != nil {
				return res, fmt.Errorf("mark engagement checked: %w", err)
			}
			res.Failed += len(ids)
			continue
		}

		var missing []string
		for _, tweetID := range batch {
			c, ok := counts[tweetID]
			if !ok {
				missing = append(missing, byTweet[tweetID]...)
				continue
			}
			for _, itemID := range byTweet[tweetID] {
				err := p.items.UpdateEngagement(ctx, itemID, model.EngagementCounts{
					Likes:     c.Likes,
					Reshares:  c.Reshares,
					Replies:   c.Replies,
					Views:     c.Views,
					Quotes:    c.Quotes,
					Bookmarks: c.Bookmarks,
				}, c.MediaURL)
				if err != nil {
					return res, fmt.Errorf("update engagement %s: %w", itemID, err)
				}
				res.Fetched++
			}
		}

		if err := p.items.MarkEngagementChecked(ctx, missing); err != nil {
			return res, fmt.Errorf("mark engagement checked: %w", err)
		}
		res.Skipped += len(missing)
	}

	slog.Info("engagement enrichment finished", "fetched", res.Fetched, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}
