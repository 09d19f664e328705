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
	biasTextLen       = 300
	displayedTweetCap = 30
)

type biasResponse struct {
	Results []struct {
		Index int    `json:"index"`
		Bias  string `json:"bias"`
	} `json:"results"`
}

// Biaser labels short texts as leaning towards Claude, OpenAI or neither.
type Biaser struct {
	llm llm.Completer
}

func NewBiaser(c llm.Completer) *Biaser {
	return &Biaser{llm: c}
}

// Classify never fails: a failed call labels every item neutral. The
// result lists the items in input order.
func (b *Biaser) Classify(ctx context.Context, items []model.BiasInput) model.BiasResult {
	if len(items) == 0 {
		return model.BiasResult{Items: []model.BiasLabel{}}
	}

	lines := make([]string, 0, len(items))
	for i, it := range items {
		lines = append(lines, fmt.Sprintf("[%d] %s", i, classify.Prefix(it.Text, biasTextLen)))
	}

	var resp biasResponse
	err := llm.CompleteJSON(ctx, b.llm, llm.CompletionRequest{
		System:      biasSystem,
		Prompt:      biasPrompt(strings.Join(lines, "\n\n")),
		Temperature: 0.1,
		MaxTokens:   2000,
		Tier:        llm.TierFast,
	}, &resp)
	if err != nil {
		slog.Warn("bias classification failed, defaulting to neutral", "count", len(items), "error", err)
		resp = biasResponse{}
	}

	return biasResult(items, resp)
}

func biasResult(items []model.BiasInput, resp biasResponse) model.BiasResult {
	labels := make([]string, len(items))
	for i := range labels {
		labels[i] = model.BiasNeutral
	}

	seen := make([]bool, len(items))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(items) || seen[r.Index] {
			continue
		}
		seen[r.Index] = true
		switch r.Bias {
		case model.BiasClaude, model.BiasOpenAI:
			labels[r.Index] = r.Bias
		}
	}

	res := model.BiasResult{Items: make([]model.BiasLabel, len(items))}
	for i, it := range items {
		res.Items[i] = model.BiasLabel{ID: it.ID, Bias: labels[i]}
		switch labels[i] {
		case model.BiasClaude:
			res.Summary.Claude++
		case model.BiasOpenAI:
			res.Summary.OpenAI++
		default:
			res.Summary.Neutral++
		}
	}
	return res
}

// runBias classifies this run's cluster headlines together with the
// tweets the page displays.
func (p *Pipeline) runBias(ctx context.Context, clusters []model.Cluster) (model.BiasResult, error) {
	tweets, err := p.items.ListDisplayedTweets(ctx, displayedTweetCap)
	if err != nil {
		return model.BiasResult{}, fmt.Errorf("list displayed tweets: %w", err)
	}

	inputs := make([]model.BiasInput, 0, len(clusters)+len(tweets))
	for i, c := range clusters {
		inputs = append(inputs, model.BiasInput{
			ID:   fmt.Sprintf("cluster-%d", i),
			Text: c.Headline + ". " + c.Subheadline,
		})
	}
	for _, t := range tweets {
		inputs = append(inputs, model.BiasInput{
			ID:   "tweet-" + t.ID,
			Text: t.Author + ": " + t.Snippet,
		})
	}

	res := p.biaser.Classify(ctx, inputs)
	slog.Info("bias classified", "claude", res.Summary.Claude, "openai", res.Summary.OpenAI, "neutral", res.Summary.Neutral)
	return res, nil
}
