package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"
	"sentimentwatch/pkg/llm"
)

const (
	sentimentCandidateLimit = 500
	sentimentBatchSize      = 25
	sentimentSnippetLen     = 250
	maxSentimentScore       = 100
)

type sentimentResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		Sentiment      string  `json:"sentiment"`
		SentimentScore float64 `json:"sentiment_score"`
	} `json:"results"`
}

// ClassifySentiment labels every unclassified item. A failed batch writes
// neutral 0 so the items do not block later runs.
func (p *Pipeline) ClassifySentiment(ctx context.Context) (int, error) {
	candidates, err := p.items.ListUnclassified(ctx, sentimentCandidateLimit)
	if err != nil {
		return 0, fmt.Errorf("list unclassified items: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	slog.Info("classifying sentiment", "count", len(candidates))

	var positive, negative, neutral atomic.Int64
	err = forEachBatch(ctx, candidates, sentimentBatchSize, p.opts.LLMConcurrency, func(ctx context.Context, batchNum int, batch []model.Item) error {
		var resp sentimentResponse
		err := llm.CompleteJSON(ctx, p.llm, llm.CompletionRequest{
			System:      sentimentSystem,
			Prompt:      sentimentPrompt(len(batch), sentimentList(batch)),
			Temperature: 0.2,
			MaxTokens:   2000,
			Tier:        llm.TierFast,
		}, &resp)
		if err != nil {
			slog.Warn("sentiment batch failed, defaulting to neutral", "batch", batchNum, "error", err)
			resp = sentimentResponse{}
		}

		for _, r := range sentimentResults(batch, resp) {
			if err := p.items.UpdateSentiment(ctx, r.ItemID, r.Sentiment, r.Score); err != nil {
				return fmt.Errorf("update sentiment %s: %w", r.ItemID, err)
			}
			switch r.Sentiment {
			case model.SentimentPositive:
				positive.Add(1)
			case model.SentimentNegative:
				negative.Add(1)
			default:
				neutral.Add(1)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("sentiment classified", "positive", positive.Load(), "negative", negative.Load(), "neutral", neutral.Load())
	return len(candidates), nil
}

// sentimentResults returns one result per batch item, in batch order.
// Items the model skipped are neutral 0.
func sentimentResults(batch []model.Item, resp sentimentResponse) []model.SentimentResult {
	out := make([]model.SentimentResult, len(batch))
	seen := make([]bool, len(batch))

	for i, it := range batch {
		out[i] = model.SentimentResult{ItemID: it.ID, Sentiment: model.SentimentNeutral}
	}

	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(batch) || seen[r.Index] {
			continue
		}
		seen[r.Index] = true
		out[r.Index].Sentiment = validSentiment(r.Sentiment)
		out[r.Index].Score = clampScore(r.SentimentScore)
	}
	return out
}

func validSentiment(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case model.SentimentPositive, model.SentimentNegative:
		return s
	}
	return model.SentimentNeutral
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return max(-maxSentimentScore, min(maxSentimentScore, int(math.Round(v))))
}

func sentimentList(batch []model.Item) string {
	entries := make([]string, 0, len(batch))
	for i, it := range batch {
		snippet := classify.Prefix(it.Snippet, sentimentSnippetLen)
		if snippet == "" {
			snippet = "N/A"
		}
		entries = append(entries, fmt.Sprintf("[%d] Subject: %s | Source: %s\n  Title: %s\n  Snippet: %s",
			i, it.Subject, it.SourceType, it.Title, snippet))
	}
	return strings.Join(entries, "\n\n")
}
