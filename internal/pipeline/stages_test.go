package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"
	"sentimentwatch/pkg/engagement"
	"sentimentwatch/pkg/news"
	"sentimentwatch/pkg/notable"

	"github.com/go-playground/assert/v2"
)

func newsArticles() []news.Article {
	return []news.Article{
		{Headline: "Anthropic raises again", Detail: "Claude maker", URL: "https://reuters.com/a", Publisher: "Reuters", PublishedAt: fixedNow},
		{Headline: "Fed holds rates", Detail: "markets flat", URL: "https://reuters.com/b"},
	}
}

func TestValidScores(t *testing.T) {
	batch := []model.Item{{Author: "@karpathy"}, {Author: "nobody"}, {Author: "nobody"}}
	boost := func(handle string) int {
		if handle == "@karpathy" {
			return 4
		}
		return 0
	}

	var resp scoreResponse
	err := json.Unmarshal([]byte(`{"scores":[
		{"index":0,"score":8},
		{"index":1,"score":6.6},
		{"index":1,"score":2},
		{"index":7,"score":5},
		{"index":2,"score":11}
	]}`), &resp)
	assert.Equal(t, nil, err)

	got := validScores(batch, resp, boost)

	assert.Equal(t, map[int]int{0: 10, 1: 7}, got)
}

func TestFallbackScores(t *testing.T) {
	table, err := notable.New([]notable.Account{{Handle: "sama", Name: "Sam Altman", Tier: 1}})
	assert.Equal(t, nil, err)

	got := fallbackScores([]model.Item{{Author: "@sama"}, {Author: "someone"}}, table.BoostFor)

	assert.Equal(t, map[int]int{0: 9, 1: 5}, got)
}

func TestScoreImportanceAppliesBoost(t *testing.T) {
	items := newMemStore()
	items.add(model.Item{ID: "a", SourceType: classify.SourceSocial, Snippet: "Claude", Author: "@sama"})
	table, _ := notable.New([]notable.Account{{Handle: "sama", Name: "Sam Altman", Tier: 1}})

	p := New(Deps{
		Items:   items,
		LLM:     &fakeCompleter{replies: map[string]string{scoreSystem: `{"scores":[{"index":0,"score":9}]}`}},
		Notable: table,
	}, Options{})

	n, err := p.ScoreImportance(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, maxImportance, items.get("a").ImportanceScore)
}

func TestGenerateTakes(t *testing.T) {
	items := newMemStore()
	items.add(model.Item{ID: "a", SourceType: classify.SourceSocial, Snippet: "Claude Code rewrote my app", ImportanceScore: 8})
	items.add(model.Item{ID: "b", SourceType: classify.SourceSocial, Snippet: "gm", ImportanceScore: 7})

	reply := "```json\n{\"takes\":[{\"index\":0,\"take\":\"Claude Code rewrote an app.\"},{\"index\":1,\"take\":null}]}\n```"
	p := New(Deps{Items: items, LLM: &fakeCompleter{replies: map[string]string{takesSystem: reply}}}, Options{})

	n, err := p.GenerateTakes(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Claude Code rewrote an app.", *items.get("a").Take)
	assert.Equal(t, (*string)(nil), items.get("b").Take)
}

func TestAssignClustersCoversEverySource(t *testing.T) {
	sources := []model.Source{
		{URL: "u0", Title: "Claude Opus launch reactions"},
		{URL: "u1", Title: "Opus benchmarks"},
		{URL: "u2", Title: "Codex pricing", ImageURL: "https://img/2.png"},
		{URL: "u3", Title: "Codex pricing complaints"},
		{URL: "u4", Title: "random thing"},
		{URL: "u5", Title: "Opus launch day"},
	}
	raw := []rawCluster{
		{Headline: "Claude Opus launch", SourceIndices: []int{0, 1, 1, 9}},
		{Headline: "Codex pricing update", SourceIndices: []int{1, 2, -1}},
		{Headline: "Nothing here", SourceIndices: nil},
	}

	got := assignClusters(sources, raw)

	assert.Equal(t, 2, len(got))

	seen := map[string]int{}
	for _, c := range got {
		for _, s := range c.Sources {
			seen[s.URL]++
		}
	}
	assert.Equal(t, len(sources), len(seen))
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}

	var urls []string
	for _, s := range got[0].Sources {
		urls = append(urls, s.URL)
	}
	assert.Equal(t, []string{"u0", "u1", "u4", "u5"}, urls)
	assert.Equal(t, 2, len(got[1].Sources))
	assert.Equal(t, "https://img/2.png", got[1].ImageURL)
}

func TestAssignClustersWithoutModelClusters(t *testing.T) {
	sources := []model.Source{{URL: "a"}, {URL: "b"}, {URL: "c"}}

	got := assignClusters(sources, nil)

	assert.Equal(t, 1, len(got))
	assert.Equal(t, 3, len(got[0].Sources))
}

func TestTargetClusterCount(t *testing.T) {
	assert.Equal(t, 10, targetClusterCount(6))
	assert.Equal(t, 12, targetClusterCount(72))
	assert.Equal(t, 15, targetClusterCount(250))
}

func TestClusterSourcesCapsArticles(t *testing.T) {
	take := "Codex is fast now"
	tweets := []model.Item{{URL: "https://x.com/a/status/1", Take: &take, Author: "@a"}}

	var citations []Citation
	citations = append(citations, Citation{URL: "https://x.com/b/status/2", Title: "social skipped"})
	for i := 0; i < 60; i++ {
		citations = append(citations, Citation{URL: "https://example.com/p", Title: ""})
	}

	got := clusterSources(tweets, citations)

	assert.Equal(t, 1+maxClusterArticles, len(got))
	assert.Equal(t, take, got[0].Title)
	assert.Equal(t, "a", got[0].Author)
	assert.Equal(t, "Untitled", got[1].Title)
}

func TestSentimentResults(t *testing.T) {
	batch := []model.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

	var resp sentimentResponse
	err := json.Unmarshal([]byte(`{"results":[
		{"index":0,"sentiment":"positive","sentiment_score":250},
		{"index":1,"sentiment":"NEGATIVE","sentiment_score":-300},
		{"index":1,"sentiment":"positive","sentiment_score":10},
		{"index":2,"sentiment":"mixed","sentiment_score":40},
		{"index":9,"sentiment":"positive","sentiment_score":50}
	]}`), &resp)
	assert.Equal(t, nil, err)

	got := sentimentResults(batch, resp)

	assert.Equal(t, []model.SentimentResult{
		{ItemID: "a", Sentiment: "positive", Score: 100},
		{ItemID: "b", Sentiment: "negative", Score: -100},
		{ItemID: "c", Sentiment: "neutral", Score: 40},
		{ItemID: "d", Sentiment: "neutral", Score: 0},
	}, got)
}

func TestClassifySentimentFailureIsNeutral(t *testing.T) {
	items := newMemStore()
	items.add(model.Item{ID: "a", Snippet: "Claude is down again"})
	p := New(Deps{Items: items, LLM: &fakeCompleter{}}, Options{})

	n, err := p.ClassifySentiment(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, n)
	got := items.get("a")
	assert.Equal(t, model.SentimentNeutral, got.Sentiment)
	assert.Equal(t, 0, *got.SentimentScore)
}

func TestEnrichEngagement(t *testing.T) {
	items := newMemStore()
	items.add(model.Item{ID: "a", URL: "https://x.com/dev/status/111", SourceType: classify.SourceSocial})
	items.add(model.Item{ID: "b", URL: "https://twitter.com/dev/status/111?s=20", SourceType: classify.SourceSocial})
	items.add(model.Item{ID: "c", URL: "https://x.com/dev", SourceType: classify.SourceSocial})
	items.add(model.Item{ID: "d", URL: "https://x.com/dev/status/222", SourceType: classify.SourceSocial})

	lookup := &fakeLookup{counts: map[string]engagement.Counts{
		"111": {Likes: 300, Views: 12000, MediaURL: "https://pbs/1.jpg"},
	}}
	p := New(Deps{Items: items, Engagement: lookup}, Options{})

	res, err := p.EnrichEngagement(context.Background(), 100)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, EngagementResult{Fetched: 2, Skipped: 2}, res)
	assert.Equal(t, 300, *items.get("b").Likes)
	assert.Equal(t, "https://pbs/1.jpg", *items.get("a").ImageURL)
	assert.Equal(t, (*int)(nil), items.get("c").Likes)

	for _, id := range []string{"a", "b", "c", "d"} {
		assert.NotEqual(t, (*time.Time)(nil), items.get(id).EngagementFetchedAt)
	}
}

func TestEnrichEngagementFailedBatchMarksChecked(t *testing.T) {
	items := newMemStore()
	items.add(model.Item{ID: "a", URL: "https://x.com/dev/status/111", SourceType: classify.SourceSocial})
	p := New(Deps{Items: items, Engagement: &fakeLookup{err: errFake}}, Options{})

	res, err := p.EnrichEngagement(context.Background(), 100)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"a"}, items.checked)
}

func TestBiasClassifyFillsMissing(t *testing.T) {
	reply := `{"results":[{"index":0,"bias":"claude"},{"index":1,"bias":"weird"},{"index":0,"bias":"openai"},{"index":5,"bias":"openai"},{"index":2,"bias":"openai"}]}`
	b := NewBiaser(&fakeCompleter{replies: map[string]string{biasSystem: reply}})

	got := b.Classify(context.Background(), []model.BiasInput{
		{ID: "cluster-0", Text: "Opus tops the charts"},
		{ID: "cluster-1", Text: "Both labs ship"},
		{ID: "tweet-9", Text: "codex is great"},
		{ID: "tweet-10", Text: "meh"},
	})

	assert.Equal(t, []model.BiasLabel{
		{ID: "cluster-0", Bias: "claude"},
		{ID: "cluster-1", Bias: "neutral"},
		{ID: "tweet-9", Bias: "openai"},
		{ID: "tweet-10", Bias: "neutral"},
	}, got.Items)
	assert.Equal(t, model.BiasTally{Claude: 1, OpenAI: 1, Neutral: 2}, got.Summary)
}

func TestBiasClassifyFailure(t *testing.T) {
	got := NewBiaser(&fakeCompleter{}).Classify(context.Background(), []model.BiasInput{{ID: "x", Text: "t"}})

	assert.Equal(t, []model.BiasLabel{{ID: "x", Bias: "neutral"}}, got.Items)
	assert.Equal(t, 1, got.Summary.Neutral)
}

func TestSummarizer(t *testing.T) {
	items := newMemStore()
	items.add(model.Item{ID: "a", SourceType: classify.SourceSocial, Snippet: "Claude rocks", Subject: classify.SubjectClaude})
	items.add(model.Item{ID: "b", SourceType: classify.SourceSocial, Snippet: "both are fine", Subject: classify.SubjectBoth})
	items.add(model.Item{ID: "c", SourceType: classify.SourceSocial, Snippet: "Codex rocks", Subject: classify.SubjectOpenAI})

	s := NewSummarizer(items, &fakeCompleter{replies: map[string]string{summarySystem: `{"summary":"  Builders lean Claude.  "}`}})

	got, err := s.Generate(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 3, got.TweetCount)
	assert.Equal(t, 2, got.ClaudeMentions)
	assert.Equal(t, 2, got.OpenAIMentions)
	assert.Equal(t, "Builders lean Claude.", *got.Summary)
}

func TestSummarizerEmpty(t *testing.T) {
	completer := &fakeCompleter{}
	got, err := NewSummarizer(newMemStore(), completer).Generate(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, (*string)(nil), got.Summary)
	assert.Equal(t, 0, completer.calls)
}

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if img, ok := f[pageURL]; ok {
		return img, nil
	}
	return "", errFake
}

func TestBackfillImages(t *testing.T) {
	items := newMemStore()
	items.add(model.Item{ID: "a", URL: "https://blog.example.com/a", SourceType: classify.SourceBlog})
	items.add(model.Item{ID: "b", URL: "https://blog.example.com/b", SourceType: classify.SourceBlog})
	items.add(model.Item{ID: "c", URL: "https://x.com/a/status/1", SourceType: classify.SourceSocial})
	p := New(Deps{Items: items}, Options{})

	res, err := p.BackfillImages(context.Background(), fakeFetcher{"https://blog.example.com/a": "https://img/a.png"}, 10)

	assert.Equal(t, nil, err)
	assert.Equal(t, BackfillResult{Checked: 2, Updated: 1}, res)
	assert.Equal(t, "https://img/a.png", *items.get("a").ImageURL)
	assert.Equal(t, (*string)(nil), items.get("b").ImageURL)
}
