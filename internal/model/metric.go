package model

import "time"

const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

type Metric struct {
	ID             int64
	Subject        string
	ComputedAt     time.Time
	TotalItems     int
	PositiveCount  int
	NegativeCount  int
	NeutralCount   int
	SentimentScore int
	Trend          string
}

// TrendFrom compares a new average score against the previous one.
func TrendFrom(current int, previous *int) string {
	if previous == nil {
		return TrendStable
	}
	diff := current - *previous
	switch {
	case diff > 5:
		return TrendUp
	case diff < -5:
		return TrendDown
	default:
		return TrendStable
	}
}
