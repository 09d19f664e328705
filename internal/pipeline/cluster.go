package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"
	"sentimentwatch/pkg/llm"
)

const (
	maxClusterTweets   = 200
	maxClusterArticles = 50
	minClusters        = 10
	maxClusters        = 15
	fallbackSources    = 50
	clusterSnippetLen  = 200

	fallbackHeadline    = "Today's Coverage of Claude vs OpenAI"
	fallbackSubheadline = "All sources from the latest scan."
)

type rawCluster struct {
	Headline      string `json:"headline"`
	Subheadline   string `json:"subheadline"`
	SourceIndices []int  `json:"source_indices"`
}

type clusterResponse struct {
	Clusters []rawCluster `json:"clusters"`
}

type ClusterResult struct {
	Clusters  []model.Cluster
	TotalKept int
}

// Cluster groups the top distilled tweets and this run's non-social
// citations into headline clusters. Every source lands in exactly one
// cluster.
func (p *Pipeline) Cluster(ctx context.Context, citations []Citation) (*ClusterResult, error) {
	tweets, err := p.items.ListTopWithTakes(ctx, maxClusterTweets)
	if err != nil {
		return nil, fmt.Errorf("list top items with takes: %w", err)
	}

	sources := clusterSources(tweets, citations)
	res := &ClusterResult{TotalKept: len(sources)}
	if len(sources) == 0 {
		return res, nil
	}

	target := targetClusterCount(len(sources))
	slog.Info("clustering sources", "count", len(sources), "target", target)

	var resp clusterResponse
	err = llm.CompleteJSON(ctx, p.llm, llm.CompletionRequest{
		System:      clusterSystem,
		Prompt:      clusterPrompt(len(sources), target, sourceList(sources)),
		Temperature: 0.3,
		MaxTokens:   12000,
		Tier:        llm.TierSmart,
	}, &resp)
	if err != nil {
		slog.Error("clustering failed, using fallback cluster", "error", err)
		res.Clusters = []model.Cluster{fallbackCluster(sources)}
		return res, nil
	}

	res.Clusters = assignClusters(sources, resp.Clusters)
	return res, nil
}

func clusterSources(tweets []model.Item, citations []Citation) []model.Source {
	var sources []model.Source

	for _, t := range tweets {
		if t.Take == nil {
			continue
		}
		s := model.Source{
			URL:    t.URL,
			Title:  *t.Take,
			Author: classify.CleanHandle(t.Author),
			Domain: classify.Domain(t.URL),
		}
		if t.ImageURL != nil {
			s.ImageURL = *t.ImageURL
		}
		sources = append(sources, s)
	}

	var articles int
	for _, c := range citations {
		if articles == maxClusterArticles {
			break
		}
		if classify.SourceType(c.URL) == classify.SourceSocial {
			continue
		}
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		sources = append(sources, model.Source{
			URL:      c.URL,
			Title:    title,
			Snippet:  c.Snippet,
			Author:   c.Author,
			Domain:   classify.Domain(c.URL),
			ImageURL: c.Image,
		})
		articles++
	}

	return sources
}

func targetClusterCount(k int) int {
	return max(minClusters, min(maxClusters, k/6))
}

func sourceList(sources []model.Source) string {
	entries := make([]string, 0, len(sources))
	for i, s := range sources {
		handle := s.Author
		if handle == "" {
			handle = "unknown"
		}
		entry := fmt.Sprintf("[%d] %s | @%s\n%s", i, s.Domain, strings.TrimLeft(handle, "@"), s.Title)
		if s.Snippet != "" {
			entry += "\n" + classify.Prefix(s.Snippet, clusterSnippetLen)
		}
		entries = append(entries, entry)
	}
	return strings.Join(entries, "\n\n")
}

func fallbackCluster(sources []model.Source) model.Cluster {
	c := model.Cluster{
		Headline:    fallbackHeadline,
		Subheadline: fallbackSubheadline,
		Sources:     sources[:min(fallbackSources, len(sources))],
	}
	c.ImageURL = heroImage(c.Sources)
	return c
}

// assignClusters turns the model's partition into clusters covering every
// source index exactly once. Out-of-range and repeated indices are
// dropped, omitted indices are placed by word overlap with the cluster
// text, and clusters left empty are removed.
func assignClusters(sources []model.Source, raw []rawCluster) []model.Cluster {
	k := len(sources)
	if k == 0 {
		return nil
	}

	if len(raw) == 0 {
		all := make([]int, k)
		for i := range all {
			all[i] = i
		}
		raw = []rawCluster{{Headline: fallbackHeadline, Subheadline: fallbackSubheadline, SourceIndices: all}}
	}

	claimed := make([]bool, k)
	members := make([][]int, len(raw))
	for ci, rc := range raw {
		for _, idx := range rc.SourceIndices {
			if idx < 0 || idx >= k || claimed[idx] {
				continue
			}
			claimed[idx] = true
			members[ci] = append(members[ci], idx)
		}
	}

	avg := int(math.Ceil(float64(k) / float64(len(raw))))
	clusterWords := make([]map[string]struct{}, len(raw))
	for ci, rc := range raw {
		clusterWords[ci] = significantWords(rc.Headline + " " + rc.Subheadline)
	}

	for idx := 0; idx < k; idx++ {
		if claimed[idx] {
			continue
		}
		itemWords := significantWords(sources[idx].Title + " " + sources[idx].Snippet)

		best, bestScore := 0, math.MinInt
		for ci := range raw {
			score := overlap(clusterWords[ci], itemWords)
			switch size := len(members[ci]); {
			case size > 2*avg:
				score -= 3
			case size > avg:
				score--
			}
			if score > bestScore {
				best, bestScore = ci, score
			}
		}
		members[best] = append(members[best], idx)
		claimed[idx] = true
	}

	var clusters []model.Cluster
	for ci, rc := range raw {
		if len(members[ci]) == 0 {
			continue
		}
		c := model.Cluster{Headline: rc.Headline, Subheadline: rc.Subheadline}
		for _, idx := range members[ci] {
			c.Sources = append(c.Sources, sources[idx])
		}
		c.ImageURL = heroImage(c.Sources)
		clusters = append(clusters, c)
	}
	return clusters
}

// significantWords returns the distinct lowercased words longer than three
// characters, with surrounding punctuation trimmed.
func significantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(w)) > 3 {
			words[w] = struct{}{}
		}
	}
	return words
}

func overlap(clusterWords, itemWords map[string]struct{}) int {
	n := 0
	for w := range clusterWords {
		if _, ok := itemWords[w]; ok {
			n++
		}
	}
	return n
}

func heroImage(sources []model.Source) string {
	for _, s := range sources {
		if s.ImageURL != "" {
			return s.ImageURL
		}
	}
	return ""
}
