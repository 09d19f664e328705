package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var ErrMissingAPIKey = errors.New("exa api key not set")

const exaSearchURL = "https://api.exa.ai/search"

type Query struct {
	Text           string
	NumResults     int
	Category       string
	IncludeDomains []string
	StartPublished time.Time
}

type Result struct {
	URL           string
	Title         string
	Text          string
	Author        string
	Image         string
	PublishedDate string
}

// PublishedAt parses the result's date, returning nil when absent or malformed.
func (r Result) PublishedAt() *time.Time {
	if r.PublishedDate == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, r.PublishedDate); err == nil {
			return &t
		}
	}
	return nil
}

type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

type ExaClient struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewExaClient builds a client allowing perSecond requests with a small burst.
func NewExaClient(apiKey string, perSecond float64) *ExaClient {
	if perSecond <= 0 {
		perSecond = 5
	}
	return &ExaClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
	}
}

type exaRequest struct {
	Query              string      `json:"query"`
	NumResults         int         `json:"numResults"`
	Type               string      `json:"type"`
	Category           string      `json:"category,omitempty"`
	IncludeDomains     []string    `json:"includeDomains,omitempty"`
	StartPublishedDate string      `json:"startPublishedDate,omitempty"`
	Contents           exaContents `json:"contents"`
}

type exaContents struct {
	Text bool `json:"text"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

type exaResult struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	PublishedDate string `json:"publishedDate"`
	Author        string `json:"author"`
	Text          string `json:"text"`
	Image         string `json:"image"`
}

func (c *ExaClient) Search(ctx context.Context, q Query) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("exa rate limiter: %w", err)
	}

	body := exaRequest{
		Query:          q.Text,
		NumResults:     q.NumResults,
		Type:           "auto",
		Category:       q.Category,
		IncludeDomains: q.IncludeDomains,
		Contents:       exaContents{Text: true},
	}
	if !q.StartPublished.IsZero() {
		body.StartPublishedDate = q.StartPublished.UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("exa encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, exaSearchURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("exa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exa search: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var raw exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("exa decode: %w", err)
	}

	results := make([]Result, 0, len(raw.Results))
	for _, r := range raw.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{
			URL:           r.URL,
			Title:         r.Title,
			Text:          r.Text,
			Author:        r.Author,
			Image:         r.Image,
			PublishedDate: r.PublishedDate,
		})
	}

	return results, nil
}
