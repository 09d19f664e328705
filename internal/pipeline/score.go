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
	"sentimentwatch/pkg/engagement"
	"sentimentwatch/pkg/llm"
)

const (
	scoreCandidateLimit = 1000
	scoreBatchSize      = 30
	scoreSnippetLen     = 350
	defaultImportance   = 5
	maxImportance       = 10
)

type scoreResponse struct {
	Scores []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"scores"`
}

// ScoreImportance scores unscored social items in batches. It returns the
// number of items that received a score.
func (p *Pipeline) ScoreImportance(ctx context.Context) (int, error) {
	candidates, err := p.items.ListUnscored(ctx, scoreCandidateLimit)
	if err != nil {
		return 0, fmt.Errorf("list unscored items: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	slog.Info("scoring items", "count", len(candidates))
	notableList := p.notable.PromptList()

	var scored atomic.Int64
	err = forEachBatch(ctx, candidates, scoreBatchSize, p.opts.LLMConcurrency, func(ctx context.Context, batchNum int, batch []model.Item) error {
		var resp scoreResponse
		err := llm.CompleteJSON(ctx, p.llm, llm.CompletionRequest{
			System:      scoreSystem,
			Prompt:      scorePrompt(notableList, len(batch), tweetList(batch, scoreSnippetLen)),
			Temperature: 0.1,
			MaxTokens:   2000,
			Tier:        llm.TierFast,
		}, &resp)

		var scores map[int]int
		if err != nil {
			slog.Warn("score batch failed, using default score", "batch", batchNum, "error", err)
			scores = fallbackScores(batch, p.notable.BoostFor)
		} else {
			scores = validScores(batch, resp, p.notable.BoostFor)
		}

		for idx, score := range scores {
			if err := p.items.UpdateImportance(ctx, batch[idx].ID, score); err != nil {
				return fmt.Errorf("update importance %s: %w", batch[idx].ID, err)
			}
		}
		scored.Add(int64(len(scores)))
		slog.Info("scored batch", "batch", batchNum, "scored", len(scores), "size", len(batch))
		return nil
	})
	if err != nil {
		return 0, err
	}

	return int(scored.Load()), nil
}

// validScores keeps in-range indices with a score in [1,10], adds the
// author boost and caps at 10. Later duplicates of an index are ignored.
func validScores(batch []model.Item, resp scoreResponse, boost func(string) int) map[int]int {
	out := make(map[int]int, len(batch))
	for _, s := range resp.Scores {
		if s.Index < 0 || s.Index >= len(batch) {
			continue
		}
		if _, dup := out[s.Index]; dup {
			continue
		}
		score := int(math.Round(s.Score))
		if score < 1 || score > maxImportance {
			continue
		}
		out[s.Index] = min(maxImportance, score+boost(batch[s.Index].Author))
	}
	return out
}

func fallbackScores(batch []model.Item, boost func(string) int) map[int]int {
	out := make(map[int]int, len(batch))
	for i, it := range batch {
		out[i] = min(maxImportance, defaultImportance+boost(it.Author))
	}
	return out
}

// tweetList renders "[j] @handle (engagement): snippet" lines.
func tweetList(items []model.Item, snippetLen int) string {
	lines := make([]string, 0, len(items))
	for j, it := range items {
		handle := classify.CleanHandle(it.Author)
		if handle == "" {
			handle = "unknown"
		}

		tag := ""
		if eng := engagement.Summary(it.Likes, it.Reshares, it.Views); eng != "" {
			tag = " (" + eng + ")"
		}

		text := classify.Prefix(it.Snippet, snippetLen)
		if text == "" {
			text = "No content"
		}

		lines = append(lines, fmt.Sprintf("[%d] @%s%s: %s", j, handle, tag, text))
	}
	return strings.Join(lines, "\n\n")
}
