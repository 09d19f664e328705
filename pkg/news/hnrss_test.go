package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

const hnFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
<title>Hacker News: Newest</title>
<link>https://news.ycombinator.com/newest</link>
<description>Hacker News RSS</description>
<item>
<title>Claude Code now supports hooks</title>
<description>Article URL: https://example.com/hooks</description>
<link>https://example.com/hooks</link>
<dc:creator>pg</dc:creator>
<pubDate>Thu, 26 Feb 2026 12:00:00 +0000</pubDate>
</item>
<item>
<title>Missing link</title>
<description>no link here</description>
</item>
<item>
<title>OpenAI ships Codex update</title>
<link>https://example.com/codex</link>
</item>
</channel>
</rss>`

func TestHNRSSFetch(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(hnFeed))
	}))
	defer srv.Close()

	client := NewHNRSSClient("Claude OR OpenAI")
	client.feedURL = srv.URL

	articles, err := client.Fetch(context.Background(), 10)

	assert.Equal(t, nil, err)
	assert.Equal(t, "Claude OR OpenAI", gotQuery)
	assert.Equal(t, 2, len(articles))
	assert.Equal(t, "Claude Code now supports hooks", articles[0].Headline)
	assert.Equal(t, "https://example.com/hooks", articles[0].URL)
	assert.Equal(t, "pg", articles[0].Author)
	assert.Equal(t, 2026, articles[0].PublishedAt.Year())
	assert.Equal(t, "HNRSS", articles[1].Source)
}

func TestHNRSSFetchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(hnFeed))
	}))
	defer srv.Close()

	client := NewHNRSSClient("Claude")
	client.feedURL = srv.URL

	articles, err := client.Fetch(context.Background(), 1)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(articles))
}
