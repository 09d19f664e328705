package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"
	"sentimentwatch/pkg/llm"
)

const (
	summaryItemLimit  = 5000
	summaryPromptCap  = 300
	summarySnippetLen = 200
)

type SummarySource interface {
	ListForSummary(ctx context.Context, limit int) ([]model.Item, error)
}

// Summary is the editorial paragraph plus the counts it was written from.
// Summary is nil when there was nothing to summarize or the model failed.
type Summary struct {
	Summary        *string `json:"summary"`
	TweetCount     int     `json:"tweetCount"`
	ClaudeMentions int     `json:"claudeMentions"`
	OpenAIMentions int     `json:"openaiMentions"`
}

type Summarizer struct {
	items SummarySource
	llm   llm.Completer
}

func NewSummarizer(items SummarySource, c llm.Completer) *Summarizer {
	return &Summarizer{items: items, llm: c}
}

// Generate only returns an error when the items cannot be read.
func (s *Summarizer) Generate(ctx context.Context) (*Summary, error) {
	tweets, err := s.items.ListForSummary(ctx, summaryItemLimit)
	if err != nil {
		return nil, fmt.Errorf("list items for summary: %w", err)
	}

	res := &Summary{TweetCount: len(tweets)}
	for _, t := range tweets {
		if t.Subject == classify.SubjectClaude || t.Subject == classify.SubjectBoth {
			res.ClaudeMentions++
		}
		if t.Subject == classify.SubjectOpenAI || t.Subject == classify.SubjectBoth {
			res.OpenAIMentions++
		}
	}

	if len(tweets) == 0 {
		return res, nil
	}

	shown := tweets[:min(summaryPromptCap, len(tweets))]
	lines := make([]string, 0, len(shown))
	for _, t := range shown {
		handle := classify.CleanHandle(t.Author)
		if handle == "" {
			handle = "unknown"
		}
		lines = append(lines, fmt.Sprintf("@%s [%s]: %s", handle, t.Subject, classify.Prefix(t.Snippet, summarySnippetLen)))
	}

	var resp struct {
		Summary string `json:"summary"`
	}
	err = llm.CompleteJSON(ctx, s.llm, llm.CompletionRequest{
		System:      summarySystem,
		Prompt:      summaryPrompt(len(tweets), res.ClaudeMentions, res.OpenAIMentions, len(shown), strings.Join(lines, "\n")),
		Temperature: 0.3,
		MaxTokens:   500,
		Tier:        llm.TierFast,
	}, &resp)
	if err != nil {
		slog.Warn("summary generation failed", "error", err)
		return res, nil
	}

	if text := strings.TrimSpace(resp.Summary); text != "" {
		res.Summary = &text
	}
	return res, nil
}
