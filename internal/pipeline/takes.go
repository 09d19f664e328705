package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/llm"
)

const (
	takesCandidateLimit = 500
	takesBatchSize      = 40
	takesSnippetLen     = 400
)

type takesResponse struct {
	Takes []struct {
		Index int     `json:"index"`
		Take  *string `json:"take"`
	} `json:"takes"`
}

// GenerateTakes distills high-importance social items into one-sentence
// takes and returns how many were written. Failed batches leave their
// items for the next run.
func (p *Pipeline) GenerateTakes(ctx context.Context) (int, error) {
	candidates, err := p.items.ListNeedingTakes(ctx, takesCandidateLimit)
	if err != nil {
		return 0, fmt.Errorf("list items needing takes: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	slog.Info("generating takes", "count", len(candidates))

	var written atomic.Int64
	err = forEachBatch(ctx, candidates, takesBatchSize, p.opts.LLMConcurrency, func(ctx context.Context, batchNum int, batch []model.Item) error {
		var resp takesResponse
		err := llm.CompleteJSON(ctx, p.llm, llm.CompletionRequest{
			System:      takesSystem,
			Prompt:      takesPrompt(tweetList(batch, takesSnippetLen)),
			Temperature: 0.1,
			MaxTokens:   3000,
			Tier:        llm.TierFast,
		}, &resp)
		if err != nil {
			slog.Warn("takes batch failed", "batch", batchNum, "error", err)
			return nil
		}

		for idx, take := range validTakes(len(batch), resp) {
			if err := p.items.UpdateTake(ctx, batch[idx].ID, take); err != nil {
				return fmt.Errorf("update take %s: %w", batch[idx].ID, err)
			}
			written.Add(1)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return int(written.Load()), nil
}

func validTakes(size int, resp takesResponse) map[int]string {
	out := make(map[int]string)
	for _, t := range resp.Takes {
		if t.Index < 0 || t.Index >= size || t.Take == nil {
			continue
		}
		if _, dup := out[t.Index]; dup {
			continue
		}
		if take := strings.TrimSpace(*t.Take); take != "" {
			out[t.Index] = take
		}
	}
	return out
}
