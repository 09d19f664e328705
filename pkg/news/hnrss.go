package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
)

const hnRSSURL = "https://hnrss.org/newest"

// HNRSSClient reads Hacker News submissions matching a query from hnrss.org.
type HNRSSClient struct {
	query      string
	feedURL    string
	httpClient *http.Client
}

func NewHNRSSClient(query string) *HNRSSClient {
	return &HNRSSClient{
		query:      query,
		feedURL:    hnRSSURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HNRSSClient) Name() string {
	return "HNRSS"
}

func (c *HNRSSClient) Fetch(ctx context.Context, limit int) ([]Article, error) {
	params := url.Values{"q": {c.query}}
	if limit > 0 {
		params.Set("count", fmt.Sprint(limit))
	}

	parser := gofeed.NewParser()
	parser.Client = c.httpClient

	feed, err := parser.ParseURLWithContext(c.feedURL+"?"+params.Encode(), ctx)
	if err != nil {
		return nil, fmt.Errorf("hnrss fetch: %w", err)
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}

		a := Article{
			Headline:  item.Title,
			Detail:    item.Description,
			URL:       item.Link,
			Publisher: "Hacker News",
			Source:    c.Name(),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC()
		}
		if item.Author != nil {
			a.Author = item.Author.Name
		}
		if item.Image != nil {
			a.ImageURL = item.Image.URL
		}

		articles = append(articles, a)
		if limit > 0 && len(articles) >= limit {
			break
		}
	}

	return articles, nil
}
