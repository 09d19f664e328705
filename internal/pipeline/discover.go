package pipeline

import (
	"context"
	"log/slog"
	"time"

	"sentimentwatch/pkg/classify"
	"sentimentwatch/pkg/news"

	"golang.org/x/sync/errgroup"
)

const (
	citationSnippetLen = 500
	newsFetchLimit     = 50
)

// Citation is one discovered document before it is stored.
type Citation struct {
	URL         string
	Title       string
	Snippet     string
	Author      string
	Image       string
	PublishedAt *time.Time
}

type DiscoveryResult struct {
	Citations     []Citation
	TotalSearched int
}

// Discover runs the query battery and the supplementary news sources
// concurrently, then dedupes by normalized URL and drops denylisted URLs.
// Failed queries contribute nothing.
func (p *Pipeline) Discover(ctx context.Context) (*DiscoveryResult, error) {
	since := startOfYesterday(p.now())

	perQuery := make([][]Citation, len(battery))
	perSource := make([][]Citation, len(p.news))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.SearchConcurrency)

	for i, spec := range battery {
		g.Go(func() error {
			results, err := p.searcher.Search(gctx, spec.toQuery(since))
			if err != nil {
				slog.Warn("search query failed", "query", spec.text, "error", err)
				return nil
			}
			cites := make([]Citation, 0, len(results))
			for _, r := range results {
				cites = append(cites, Citation{
					URL:         r.URL,
					Title:       r.Title,
					Snippet:     classify.Prefix(r.Text, citationSnippetLen),
					Author:      r.Author,
					Image:       r.Image,
					PublishedAt: r.PublishedAt(),
				})
			}
			perQuery[i] = cites
			return nil
		})
	}

	for i, client := range p.news {
		g.Go(func() error {
			articles, err := client.Fetch(gctx, newsFetchLimit)
			if err != nil {
				slog.Warn("news source failed", "source", client.Name(), "error", err)
				return nil
			}
			perSource[i] = fromArticles(articles)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var raw []Citation
	for _, c := range perQuery {
		raw = append(raw, c...)
	}
	for _, c := range perSource {
		raw = append(raw, c...)
	}

	unique := dedupe(raw)
	slog.Info("discovery finished", "raw", len(raw), "unique", len(unique))

	return &DiscoveryResult{Citations: unique, TotalSearched: len(raw)}, nil
}

// fromArticles keeps only the articles that mention a tracked subject.
func fromArticles(articles []news.Article) []Citation {
	var cites []Citation
	for _, a := range articles {
		if !classify.Mentions(a.Headline + " " + a.Detail) {
			continue
		}
		c := Citation{
			URL:     a.URL,
			Title:   a.Headline,
			Snippet: classify.Prefix(a.Detail, citationSnippetLen),
			Author:  a.Author,
			Image:   a.ImageURL,
		}
		if c.Author == "" {
			c.Author = a.Publisher
		}
		if !a.PublishedAt.IsZero() {
			t := a.PublishedAt
			c.PublishedAt = &t
		}
		cites = append(cites, c)
	}
	return cites
}

// dedupe keeps the first citation per normalized URL and drops denylisted
// and empty URLs.
func dedupe(raw []Citation) []Citation {
	seen := make(map[string]struct{}, len(raw))
	var out []Citation
	for _, c := range raw {
		key := classify.NormalizeURL(c.URL)
		if key == "" || isDenied(c.URL) {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
