package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestParseTimePublished(t *testing.T) {
	input := "20260226T075324"
	got, err := time.Parse("20060102T150405", input)

	assert.Equal(t, nil, err)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, time.February, got.Month())
	assert.Equal(t, 26, got.Day())
	assert.Equal(t, 7, got.Hour())
	assert.Equal(t, 53, got.Minute())
	assert.Equal(t, 24, got.Second())
}

func TestAlphaVantageFetch(t *testing.T) {
	var gotQuery map[string][]string

	payload := map[string]interface{}{
		"feed": []map[string]interface{}{
			{
				"title":          "Anthropic Expands Claude Enterprise Deals",
				"summary":        "Anthropic signed several enterprise customers.",
				"url":            "https://example.com/anthropic-deals",
				"source":         "Reuters",
				"authors":        []string{"Jane Doe", "John Roe"},
				"banner_image":   "https://example.com/banner.jpg",
				"time_published": "20260226T120000",
			},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	client := &AlphaVantageClient{
		apiKey:     "test-key",
		httpClient: srv.Client(),
	}
	client.httpClient.Transport = &rewriteTransport{base: srv.URL, inner: http.DefaultTransport}

	articles, err := client.Fetch(context.Background(), 5)

	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"NEWS_SENTIMENT"}, gotQuery["function"])
	assert.Equal(t, []string{"technology"}, gotQuery["topics"])
	assert.Equal(t, []string{"5"}, gotQuery["limit"])
	assert.Equal(t, 1, len(articles))

	a := articles[0]
	assert.Equal(t, "Anthropic Expands Claude Enterprise Deals", a.Headline)
	assert.Equal(t, "Anthropic signed several enterprise customers.", a.Detail)
	assert.Equal(t, "https://example.com/anthropic-deals", a.URL)
	assert.Equal(t, "Jane Doe, John Roe", a.Author)
	assert.Equal(t, "Reuters", a.Publisher)
	assert.Equal(t, "https://example.com/banner.jpg", a.ImageURL)
	assert.Equal(t, "AlphaVantage", a.Source)
	assert.NotEqual(t, time.Time{}, a.PublishedAt)
}

func TestAlphaVantageFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := &AlphaVantageClient{apiKey: "k", httpClient: srv.Client()}
	client.httpClient.Transport = &rewriteTransport{base: srv.URL, inner: http.DefaultTransport}

	_, err := client.Fetch(context.Background(), 5)
	assert.NotEqual(t, nil, err)
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
