package model

import (
	"encoding/json"
	"time"
)

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	ItemsFound  int
	ItemsNew    int
	Summary     json.RawMessage
	Status      string
	Error       string
}

// RunSummary is the JSON blob stored on a completed run.
type RunSummary struct {
	Clusters      []Cluster  `json:"clusters"`
	TotalAnalyzed int        `json:"totalAnalyzed"`
	TotalKept     int        `json:"totalKept"`
	GeneratedAt   time.Time  `json:"generatedAt"`
	CachedBias    BiasResult `json:"cachedBias"`
	CachedSummary *string    `json:"cachedSummary"`
}

type Source struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Author   string `json:"author"`
	Domain   string `json:"domain"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Cluster struct {
	Headline    string   `json:"headline"`
	Subheadline string   `json:"subheadline"`
	Sources     []Source `json:"sources"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}
