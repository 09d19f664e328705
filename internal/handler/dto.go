package handler

import (
	"time"

	"sentimentwatch/internal/model"
)

type PostResponse struct {
	ID                  string  `json:"id"`
	URL                 string  `json:"url"`
	Title               string  `json:"title"`
	Snippet             string  `json:"snippet"`
	SourceType          string  `json:"source_type"`
	Subject             string  `json:"subject"`
	Sentiment           string  `json:"sentiment"`
	SentimentScore      *int    `json:"sentiment_score"`
	Author              string  `json:"author"`
	PublishedAt         *string `json:"published_at"`
	DiscoveredAt        string  `json:"discovered_at"`
	RunID               string  `json:"run_id"`
	ImportanceScore     int     `json:"importance_score"`
	Take                *string `json:"take"`
	ImageURL            *string `json:"image_url"`
	Likes               *int    `json:"likes"`
	Reshares            *int    `json:"reshares"`
	Replies             *int    `json:"replies"`
	Views               *int    `json:"views"`
	Quotes              *int    `json:"quotes"`
	Bookmarks           *int    `json:"bookmarks"`
	EngagementFetchedAt *string `json:"engagement_fetched_at"`
}

type FeedResponse struct {
	Posts   []PostResponse `json:"posts"`
	Total   int            `json:"total"`
	HasMore bool           `json:"hasMore"`
}

type MetricResponse struct {
	ID             int64  `json:"id"`
	Subject        string `json:"subject"`
	ComputedAt     string `json:"computed_at"`
	TotalItems     int    `json:"total_items"`
	PositiveCount  int    `json:"positive_count"`
	NegativeCount  int    `json:"negative_count"`
	NeutralCount   int    `json:"neutral_count"`
	SentimentScore int    `json:"sentiment_score"`
	Trend          string `json:"trend"`
}

type RunResponse struct {
	ID          string  `json:"id"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at"`
	ItemsFound  int     `json:"items_found"`
	ItemsNew    int     `json:"items_new"`
	Status      string  `json:"status"`
}

type MetricsResponse struct {
	Claude  *MetricResponse `json:"claude"`
	OpenAI  *MetricResponse `json:"openai"`
	LastRun *RunResponse    `json:"lastRun"`
}

type MonitorResponse struct {
	LastRunAt     *string      `json:"lastRunAt"`
	IntervalHours int          `json:"intervalHours"`
	LastRun       *RunResponse `json:"lastRun"`
	Status        string       `json:"status"`
	NextRunAt     string       `json:"nextRunAt"`
	Overdue       bool         `json:"overdue"`
}

type BiasRequest struct {
	Items []model.BiasInput `json:"items"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toPostResponse(it model.Item) PostResponse {
	return PostResponse{
		ID:                  it.ID,
		URL:                 it.URL,
		Title:               it.Title,
		Snippet:             it.Snippet,
		SourceType:          it.SourceType,
		Subject:             it.Subject,
		Sentiment:           it.Sentiment,
		SentimentScore:      it.SentimentScore,
		Author:              it.Author,
		PublishedAt:         formatTime(it.PublishedAt),
		DiscoveredAt:        it.DiscoveredAt.UTC().Format(time.RFC3339),
		RunID:               it.RunID,
		ImportanceScore:     it.ImportanceScore,
		Take:                it.Take,
		ImageURL:            it.ImageURL,
		Likes:               it.Likes,
		Reshares:            it.Reshares,
		Replies:             it.Replies,
		Views:               it.Views,
		Quotes:              it.Quotes,
		Bookmarks:           it.Bookmarks,
		EngagementFetchedAt: formatTime(it.EngagementFetchedAt),
	}
}

func toMetricResponse(m *model.Metric) *MetricResponse {
	if m == nil {
		return nil
	}
	return &MetricResponse{
		ID:             m.ID,
		Subject:        m.Subject,
		ComputedAt:     m.ComputedAt.UTC().Format(time.RFC3339),
		TotalItems:     m.TotalItems,
		PositiveCount:  m.PositiveCount,
		NegativeCount:  m.NegativeCount,
		NeutralCount:   m.NeutralCount,
		SentimentScore: m.SentimentScore,
		Trend:          m.Trend,
	}
}

func toRunResponse(r *model.Run) *RunResponse {
	if r == nil {
		return nil
	}
	return &RunResponse{
		ID:          r.ID,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339),
		CompletedAt: formatTime(r.CompletedAt),
		ItemsFound:  r.ItemsFound,
		ItemsNew:    r.ItemsNew,
		Status:      r.Status,
	}
}
