package model

import "time"

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Item is one discovered document. Nil pointer fields have not been
// filled in by their pipeline stage yet.
type Item struct {
	ID              string
	URL             string
	Title           string
	Snippet         string
	SourceType      string
	Subject         string
	Sentiment       string
	SentimentScore  *int
	Author          string
	PublishedAt     *time.Time
	DiscoveredAt    time.Time
	RunID           string
	ImportanceScore int
	Take            *string
	ImageURL        *string
	Engagement
}

type Engagement struct {
	Likes               *int
	Reshares            *int
	Replies             *int
	Views               *int
	Quotes              *int
	Bookmarks           *int
	EngagementFetchedAt *time.Time
}

// EngagementCounts is what the engagement stage writes for a hit.
type EngagementCounts struct {
	Likes     int
	Reshares  int
	Replies   int
	Views     int
	Quotes    int
	Bookmarks int
}

// SentimentResult is a validated classification for one item.
type SentimentResult struct {
	ItemID    string
	Sentiment string
	Score     int
}
