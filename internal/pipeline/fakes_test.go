package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"
	"sentimentwatch/pkg/engagement"
	"sentimentwatch/pkg/llm"
	"sentimentwatch/pkg/search"
)

var errFake = errors.New("fake failure")

type memStore struct {
	mu        sync.Mutex
	items     map[string]*model.Item
	order     []string
	insertErr error
	checked   []string
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]*model.Item)}
}

func (m *memStore) add(it model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = &it
	m.order = append(m.order, it.ID)
}

func (m *memStore) get(id string) model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[id]
}

func (m *memStore) list(limit int, keep func(*model.Item) bool) []model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Item
	for _, id := range m.order {
		if len(out) == limit {
			break
		}
		if it := m.items[id]; keep(it) {
			out = append(out, *it)
		}
	}
	return out
}

func (m *memStore) update(id string, fn func(*model.Item)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok {
		fn(it)
	}
}

func (m *memStore) InsertItem(ctx context.Context, item *model.Item) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; ok {
		return false, nil
	}
	for _, it := range m.items {
		if it.URL == item.URL {
			return false, nil
		}
	}
	cp := *item
	m.items[item.ID] = &cp
	m.order = append(m.order, item.ID)
	return true, nil
}

func isSocial(it *model.Item) bool {
	return it.SourceType == classify.SourceSocial
}

func (m *memStore) ListWithoutEngagement(ctx context.Context, limit int) ([]model.Item, error) {
	return m.list(limit, func(it *model.Item) bool {
		return isSocial(it) && it.EngagementFetchedAt == nil
	}), nil
}

func (m *memStore) UpdateEngagement(ctx context.Context, id string, c model.EngagementCounts, imageURL string) error {
	now := time.Now()
	m.update(id, func(it *model.Item) {
		it.Likes, it.Reshares, it.Replies = &c.Likes, &c.Reshares, &c.Replies
		it.Views, it.Quotes, it.Bookmarks = &c.Views, &c.Quotes, &c.Bookmarks
		it.EngagementFetchedAt = &now
		if it.ImageURL == nil && imageURL != "" {
			it.ImageURL = &imageURL
		}
	})
	return nil
}

func (m *memStore) MarkEngagementChecked(ctx context.Context, ids []string) error {
	now := time.Now()
	for _, id := range ids {
		m.update(id, func(it *model.Item) { it.EngagementFetchedAt = &now })
	}
	m.mu.Lock()
	m.checked = append(m.checked, ids...)
	m.mu.Unlock()
	return nil
}

func (m *memStore) ListMissingImages(ctx context.Context, limit int) ([]model.Item, error) {
	return m.list(limit, func(it *model.Item) bool {
		return !isSocial(it) && (it.ImageURL == nil || *it.ImageURL == "")
	}), nil
}

func (m *memStore) UpdateImage(ctx context.Context, id, imageURL string) error {
	m.update(id, func(it *model.Item) { it.ImageURL = &imageURL })
	return nil
}

func (m *memStore) ListUnscored(ctx context.Context, limit int) ([]model.Item, error) {
	return m.list(limit, func(it *model.Item) bool {
		return isSocial(it) && it.Snippet != "" && it.ImportanceScore == 0
	}), nil
}

func (m *memStore) UpdateImportance(ctx context.Context, id string, score int) error {
	m.update(id, func(it *model.Item) { it.ImportanceScore = score })
	return nil
}

func (m *memStore) ListNeedingTakes(ctx context.Context, limit int) ([]model.Item, error) {
	return m.list(limit, func(it *model.Item) bool {
		return isSocial(it) && it.Snippet != "" && it.ImportanceScore >= 6 && it.Take == nil &&
			(it.Views == nil || *it.Views >= 5000)
	}), nil
}

func (m *memStore) UpdateTake(ctx context.Context, id, take string) error {
	m.update(id, func(it *model.Item) { it.Take = &take })
	return nil
}

func (m *memStore) ListTopWithTakes(ctx context.Context, limit int) ([]model.Item, error) {
	return m.list(limit, func(it *model.Item) bool {
		return isSocial(it) && it.Take != nil
	}), nil
}

func (m *memStore) ListUnclassified(ctx context.Context, limit int) ([]model.Item, error) {
	return m.list(limit, func(it *model.Item) bool { return it.SentimentScore == nil }), nil
}

func (m *memStore) UpdateSentiment(ctx context.Context, id, sentiment string, score int) error {
	m.update(id, func(it *model.Item) {
		it.Sentiment = sentiment
		it.SentimentScore = &score
	})
	return nil
}

func (m *memStore) ListDisplayedTweets(ctx context.Context, limit int) ([]model.Item, error) {
	return m.list(limit, func(it *model.Item) bool {
		return isSocial(it) && it.Take != nil
	}), nil
}

func (m *memStore) ListForSummary(ctx context.Context, limit int) ([]model.Item, error) {
	return m.list(limit, func(it *model.Item) bool {
		return isSocial(it) && it.Snippet != ""
	}), nil
}

func (m *memStore) ResetScores(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, it := range m.items {
		if isSocial(it) {
			it.ImportanceScore = 0
			it.Take = nil
			n++
		}
	}
	return n, nil
}

type fakeRuns struct {
	mu        sync.Mutex
	running   string
	completed []string
	failed    map[string]string
	summaries map[string][]byte
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{failed: make(map[string]string), summaries: make(map[string][]byte)}
}

func (f *fakeRuns) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRuns) Claim(ctx context.Context, id string, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running != "" {
		return ErrRunInProgress
	}
	f.running = id
	return nil
}

func (f *fakeRuns) Complete(ctx context.Context, id string, itemsFound, itemsNew int, summary []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = ""
	f.completed = append(f.completed, id)
	f.summaries[id] = summary
	return nil
}

func (f *fakeRuns) Fail(ctx context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = ""
	f.failed[id] = reason
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeMetrics) Compute(ctx context.Context, subject string, now time.Time) (*model.Metric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return &model.Metric{Subject: subject, ComputedAt: now, Trend: model.TrendStable}, nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	results []search.Result
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, q search.Query) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results, nil
}

// fakeCompleter answers by system prompt. Prompts without a reply fail.
type fakeCompleter struct {
	mu      sync.Mutex
	replies map[string]string
	calls   int
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	reply, ok := f.replies[req.System]
	if !ok {
		return "", errFake
	}
	return reply, nil
}

func (f *fakeCompleter) Name() string {
	return "fake"
}

type fakeLookup struct {
	counts map[string]engagement.Counts
	err    error
	calls  int
}

func (f *fakeLookup) Lookup(ctx context.Context, tweetIDs []string) (map[string]engagement.Counts, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]engagement.Counts)
	for _, id := range tweetIDs {
		if c, ok := f.counts[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(items *memStore, runs *fakeRuns, searcher *fakeSearcher, completer *fakeCompleter) *Pipeline {
	return New(Deps{
		Items:    items,
		Runs:     runs,
		Metrics:  &fakeMetrics{},
		Searcher: searcher,
		LLM:      completer,
		Now:      func() time.Time { return fixedNow },
	}, Options{SearchConcurrency: 2, LLMConcurrency: 2})
}
