package ogimage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var ErrNotFound = errors.New("no preview image")

const maxPageBytes = 2 << 20

var metaSelectors = []string{
	`meta[property="og:image"]`,
	`meta[property="og:image:url"]`,
	`meta[name="twitter:image"]`,
	`meta[name="twitter:image:src"]`,
}

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  "Mozilla/5.0 (compatible; sentimentwatch/1.0)",
	}
}

// Fetch downloads pageURL and returns its preview image as an absolute URL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("ogimage request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ogimage fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ogimage fetch: status %d", resp.StatusCode)
	}

	return Extract(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL)
}

// Extract finds the first preview image declared in an HTML document.
// Relative image paths are resolved against base when it is non-nil.
func Extract(r io.Reader, base *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("ogimage parse: %w", err)
	}

	for _, sel := range metaSelectors {
		content, ok := doc.Find(sel).First().Attr("content")
		content = strings.TrimSpace(content)
		if !ok || content == "" {
			continue
		}

		ref, err := url.Parse(content)
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			continue
		}
		return ref.String(), nil
	}

	return "", ErrNotFound
}
