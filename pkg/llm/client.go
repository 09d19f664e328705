package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyResponse = errors.New("empty response from model")

// Tier picks between the provider's fast model and its stronger one.
type Tier int

const (
	TierFast Tier = iota
	TierSmart
)

type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Tier        Tier
	// JSON asks the provider for a JSON object when it supports it.
	JSON bool
}

// Completer is a single-turn completion provider.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}

// CompleteJSON runs req in JSON mode and decodes the cleaned reply into out.
func CompleteJSON(ctx context.Context, c Completer, req CompletionRequest, out any) error {
	req.JSON = true
	content, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}

	content = cleanJSONResponse(content)
	if content == "" {
		return fmt.Errorf("%s: %w", c.Name(), ErrEmptyResponse)
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w, content: %s", c.Name(), err, truncateForLog(content))
	}
	return nil
}

func truncateForLog(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
