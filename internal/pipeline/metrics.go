package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"sentimentwatch/pkg/classify"
)

// ComputeMetrics stores a fresh metric for each tracked subject.
func (p *Pipeline) ComputeMetrics(ctx context.Context) error {
	now := p.now()
	for _, subject := range []string{classify.SubjectClaude, classify.SubjectOpenAI} {
		m, err := p.metrics.Compute(ctx, subject, now)
		if err != nil {
			return fmt.Errorf("compute %s metric: %w", subject, err)
		}
		slog.Info("metric computed", "subject", subject, "score", m.SentimentScore, "trend", m.Trend, "items", m.TotalItems)
	}
	return nil
}
