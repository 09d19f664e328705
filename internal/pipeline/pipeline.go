package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/internal/repository"
	"sentimentwatch/pkg/engagement"
	"sentimentwatch/pkg/llm"
	"sentimentwatch/pkg/news"
	"sentimentwatch/pkg/notable"
	"sentimentwatch/pkg/search"

	"github.com/google/uuid"
)

var ErrRunInProgress = repository.ErrRunInProgress

type ItemStore interface {
	InsertItem(ctx context.Context, item *model.Item) (bool, error)
	ListWithoutEngagement(ctx context.Context, limit int) ([]model.Item, error)
	UpdateEngagement(ctx context.Context, id string, counts model.EngagementCounts, imageURL string) error
	MarkEngagementChecked(ctx context.Context, ids []string) error
	ListMissingImages(ctx context.Context, limit int) ([]model.Item, error)
	UpdateImage(ctx context.Context, id, imageURL string) error
	ListUnscored(ctx context.Context, limit int) ([]model.Item, error)
	UpdateImportance(ctx context.Context, id string, score int) error
	ListNeedingTakes(ctx context.Context, limit int) ([]model.Item, error)
	UpdateTake(ctx context.Context, id, take string) error
	ListTopWithTakes(ctx context.Context, limit int) ([]model.Item, error)
	ListUnclassified(ctx context.Context, limit int) ([]model.Item, error)
	UpdateSentiment(ctx context.Context, id, sentiment string, score int) error
	ListDisplayedTweets(ctx context.Context, limit int) ([]model.Item, error)
	ListForSummary(ctx context.Context, limit int) ([]model.Item, error)
	ResetScores(ctx context.Context) (int64, error)
}

type RunStore interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
	Claim(ctx context.Context, id string, startedAt time.Time) error
	Complete(ctx context.Context, id string, itemsFound, itemsNew int, summary []byte) error
	Fail(ctx context.Context, id, reason string) error
}

type MetricStore interface {
	Compute(ctx context.Context, subject string, now time.Time) (*model.Metric, error)
}

type Options struct {
	SearchConcurrency int
	LLMConcurrency    int
	RunStaleAfter     time.Duration
}

// Deps are the collaborators of a run. Engagement may be nil, in which
// case enrichment is skipped.
type Deps struct {
	Items      ItemStore
	Runs       RunStore
	Metrics    MetricStore
	Searcher   search.Searcher
	News       []news.NewsClient
	Engagement engagement.Lookup
	LLM        llm.Completer
	Notable    *notable.Table
	Now        func() time.Time
}

type Pipeline struct {
	items      ItemStore
	runs       RunStore
	metrics    MetricStore
	searcher   search.Searcher
	news       []news.NewsClient
	engagement engagement.Lookup
	llm        llm.Completer
	notable    *notable.Table
	biaser     *Biaser
	summarizer *Summarizer
	now        func() time.Time
	opts       Options
}

func New(d Deps, opts Options) *Pipeline {
	if opts.SearchConcurrency < 1 {
		opts.SearchConcurrency = 8
	}
	if opts.LLMConcurrency < 1 {
		opts.LLMConcurrency = 4
	}
	if opts.RunStaleAfter <= 0 {
		opts.RunStaleAfter = 15 * time.Minute
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		items:      d.Items,
		runs:       d.Runs,
		metrics:    d.Metrics,
		searcher:   d.Searcher,
		news:       d.News,
		engagement: d.Engagement,
		llm:        d.LLM,
		notable:    d.Notable,
		biaser:     NewBiaser(d.LLM),
		summarizer: NewSummarizer(d.Items, d.LLM),
		now:        now,
		opts:       opts,
	}
}

type RunStats struct {
	RunID           string `json:"runId"`
	TotalSearched   int    `json:"totalSearched"`
	UniqueCitations int    `json:"uniqueCitations"`
	ItemsNew        int    `json:"itemsNew"`
	TakesGenerated  int    `json:"takesGenerated"`
	ClustersCreated int    `json:"clustersCreated"`
	SourcesUsed     int    `json:"sourcesUsed"`
}

// Run executes one full pipeline run. It returns ErrRunInProgress when
// another run holds the running slot.
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	return p.run(ctx, false)
}

// Rescore clears importance scores and takes of social items inside a
// claimed run, then runs the pipeline so everything is scored again.
func (p *Pipeline) Rescore(ctx context.Context) (*RunStats, error) {
	return p.run(ctx, true)
}

func (p *Pipeline) run(ctx context.Context, reset bool) (*RunStats, error) {
	startedAt := p.now()

	expired, err := p.runs.ExpireStale(ctx, startedAt.Add(-p.opts.RunStaleAfter))
	if err != nil {
		return nil, fmt.Errorf("expire stale runs: %w", err)
	}
	if expired > 0 {
		slog.Warn("expired stale runs", "count", expired)
	}

	runID := uuid.NewString()
	if err := p.runs.Claim(ctx, runID, startedAt); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			return nil, ErrRunInProgress
		}
		return nil, fmt.Errorf("claim run: %w", err)
	}

	slog.Info("run started", "run_id", runID, "rescore", reset)

	stats, err := p.execute(ctx, runID, startedAt, reset)
	if err != nil {
		slog.Error("run failed", "run_id", runID, "error", err)
		if ferr := p.runs.Fail(context.WithoutCancel(ctx), runID, err.Error()); ferr != nil {
			slog.Error("error marking run failed", "run_id", runID, "error", ferr)
		}
		return nil, err
	}

	slog.Info("run completed", "run_id", runID, "clusters", stats.ClustersCreated, "sources", stats.SourcesUsed)
	return stats, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string, startedAt time.Time, reset bool) (*RunStats, error) {
	if reset {
		n, err := p.items.ResetScores(ctx)
		if err != nil {
			return nil, fmt.Errorf("reset scores: %w", err)
		}
		slog.Info("reset scores", "run_id", runID, "count", n)
	}

	discovered, err := p.Discover(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := p.Store(ctx, runID, discovered.Citations, startedAt)
	if err != nil {
		return nil, err
	}

	if _, err := p.EnrichEngagement(ctx, engagementCandidateLimit); err != nil {
		return nil, err
	}

	if _, err := p.ScoreImportance(ctx); err != nil {
		return nil, err
	}

	takes, err := p.GenerateTakes(ctx)
	if err != nil {
		return nil, err
	}

	clustered, err := p.Cluster(ctx, discovered.Citations)
	if err != nil {
		return nil, err
	}

	if _, err := p.ClassifySentiment(ctx); err != nil {
		return nil, err
	}

	if err := p.ComputeMetrics(ctx); err != nil {
		return nil, err
	}

	bias, err := p.runBias(ctx, clustered.Clusters)
	if err != nil {
		return nil, err
	}

	summary, err := p.summarizer.Generate(ctx)
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(model.RunSummary{
		Clusters:      clustered.Clusters,
		TotalAnalyzed: discovered.TotalSearched,
		TotalKept:     clustered.TotalKept,
		GeneratedAt:   p.now().UTC(),
		CachedBias:    bias,
		CachedSummary: summary.Summary,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run summary: %w", err)
	}

	if err := p.runs.Complete(ctx, runID, discovered.TotalSearched, stored.New, blob); err != nil {
		return nil, fmt.Errorf("complete run: %w", err)
	}

	return &RunStats{
		RunID:           runID,
		TotalSearched:   discovered.TotalSearched,
		UniqueCitations: len(discovered.Citations),
		ItemsNew:        stored.New,
		TakesGenerated:  takes,
		ClustersCreated: len(clustered.Clusters),
		SourcesUsed:     clustered.TotalKept,
	}, nil
}
