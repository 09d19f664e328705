package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"
)

type MetricRepository struct {
	db *sql.DB
}

func NewMetricRepository(db *sql.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

// Compute aggregates the items about subject (including those about both
// subjects), derives the trend from the previous metric and stores it.
func (r *MetricRepository) Compute(ctx context.Context, subject string, now time.Time) (*model.Metric, error) {
	m := model.Metric{Subject: subject, ComputedAt: now}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE sentiment = 'positive'),
			COUNT(*) FILTER (WHERE sentiment = 'negative'),
			COUNT(*) FILTER (WHERE sentiment = 'neutral'),
			COALESCE(ROUND(AVG(sentiment_score)), 0)::int
		FROM items
		WHERE subject = $1 OR subject = $2
	`, subject, classify.SubjectBoth).Scan(&m.TotalItems, &m.PositiveCount, &m.NegativeCount, &m.NeutralCount, &m.SentimentScore)
	if err != nil {
		return nil, err
	}

	prev, err := r.Latest(ctx, subject)
	if err != nil {
		return nil, err
	}

	var prevScore *int
	if prev != nil {
		prevScore = &prev.SentimentScore
	}
	m.Trend = model.TrendFrom(m.SentimentScore, prevScore)

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO metrics(subject, computed_at, total_items, positive_count, negative_count, neutral_count, sentiment_score, trend)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, m.Subject, m.ComputedAt, m.TotalItems, m.PositiveCount, m.NegativeCount, m.NeutralCount, m.SentimentScore, m.Trend).Scan(&m.ID)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// Latest returns nil when subject has no metric yet.
func (r *MetricRepository) Latest(ctx context.Context, subject string) (*model.Metric, error) {
	var m model.Metric
	err := r.db.QueryRowContext(ctx, `
		SELECT id, subject, computed_at, total_items, positive_count, negative_count, neutral_count, sentiment_score, trend
		FROM metrics
		WHERE subject = $1
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`, subject).Scan(&m.ID, &m.Subject, &m.ComputedAt, &m.TotalItems, &m.PositiveCount, &m.NegativeCount,
		&m.NeutralCount, &m.SentimentScore, &m.Trend)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &m, nil
}
