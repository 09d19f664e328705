package news

import (
	"context"
	"time"
)

// Article is one item from a supplementary news source.
type Article struct {
	Headline    string
	Detail      string
	URL         string
	Author      string
	Publisher   string
	ImageURL    string
	PublishedAt time.Time
	Source      string
}

type NewsClient interface {
	Fetch(ctx context.Context, limit int) ([]Article, error)
	Name() string
}
