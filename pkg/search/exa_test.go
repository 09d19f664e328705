package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func newTestClient(srv *httptest.Server) *ExaClient {
	client := NewExaClient("test-key", 100)
	client.httpClient = srv.Client()
	client.httpClient.Transport = &rewriteTransport{base: srv.URL, inner: http.DefaultTransport}
	return client
}

func TestSearch(t *testing.T) {
	var got exaRequest
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"url":           "https://x.com/simonw/status/1",
					"title":         "Simon on Claude",
					"publishedDate": "2026-02-26T12:00:00.000Z",
					"author":        "simonw",
					"text":          "Claude Code refactored my repo",
					"image":         "https://pbs.twimg.com/a.jpg",
				},
				{"url": "", "title": "dropped"},
			},
		})
	}))
	defer srv.Close()

	since := time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC)
	results, err := newTestClient(srv).Search(context.Background(), Query{
		Text:           "Claude Code",
		NumResults:     10,
		Category:       "tweet",
		StartPublished: since,
	})

	assert.Equal(t, nil, err)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "Claude Code", got.Query)
	assert.Equal(t, 10, got.NumResults)
	assert.Equal(t, "auto", got.Type)
	assert.Equal(t, "tweet", got.Category)
	assert.Equal(t, "2026-02-25T00:00:00Z", got.StartPublishedDate)
	assert.Equal(t, true, got.Contents.Text)

	assert.Equal(t, 1, len(results))
	assert.Equal(t, "simonw", results[0].Author)
	assert.Equal(t, "https://pbs.twimg.com/a.jpg", results[0].Image)
	assert.NotEqual(t, nil, results[0].PublishedAt())
}

func TestSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Search(context.Background(), Query{Text: "q", NumResults: 5})
	assert.NotEqual(t, nil, err)
}

func TestSearchMissingKey(t *testing.T) {
	_, err := NewExaClient("", 1).Search(context.Background(), Query{Text: "q"})
	assert.Equal(t, true, errors.Is(err, ErrMissingAPIKey))
}

func TestPublishedAt(t *testing.T) {
	assert.Equal(t, (*time.Time)(nil), Result{}.PublishedAt())
	assert.Equal(t, (*time.Time)(nil), Result{PublishedDate: "yesterday"}.PublishedAt())

	got := Result{PublishedDate: "2026-02-26"}.PublishedAt()
	assert.Equal(t, 26, got.Day())
}

// rewriteTransport redirects all requests to a fixed base URL (test server).
type rewriteTransport struct {
	base  string
	inner http.RoundTripper
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	parsed, _ := http.NewRequest("GET", rt.base, nil)
	req2.URL.Host = parsed.URL.Host
	req2.URL.Scheme = parsed.URL.Scheme
	return rt.inner.RoundTrip(req2)
}
