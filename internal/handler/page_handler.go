package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"
	"sentimentwatch/pkg/engagement"

	"github.com/gin-gonic/gin"
)

const (
	pageTweetLimit  = 30
	headToHeadLimit = 12
	useCaseLimit    = 8
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"engagement": func(it model.Item) string {
		return engagement.Summary(it.Likes, it.Reshares, it.Views)
	},
	"handle": classify.CleanHandle,
	"when": func(t *time.Time) string {
		if t == nil {
			return "never"
		}
		return t.UTC().Format("Jan 2, 15:04 MST")
	},
}).ParseFS(templateFS, "templates/page.html"))

type PageStore interface {
	ListDisplayedTweets(ctx context.Context, limit int) ([]model.Item, error)
	HeadToHead(ctx context.Context, limit int) ([]model.Item, error)
	UseCases(ctx context.Context, subject string, limit int) ([]model.Item, error)
	ImageURLsFor(ctx context.Context, urls []string) (map[string]string, error)
	CountAll(ctx context.Context) (int, error)
}

type PageHandler struct {
	items   PageStore
	runs    RunReader
	metrics MetricStore
}

func NewPageHandler(items PageStore, runs RunReader, metrics MetricStore) *PageHandler {
	return &PageHandler{items: items, runs: runs, metrics: metrics}
}

type pageData struct {
	Clusters       []model.Cluster
	TotalAnalyzed  int
	TotalKept      int
	LastUpdated    *time.Time
	Bias           map[string]string
	BiasTally      model.BiasTally
	Summary        *string
	Claude         *model.Metric
	OpenAI         *model.Metric
	Tweets         []model.Item
	HeadToHead     []model.Item
	ClaudeUseCases []model.Item
	OpenAIUseCases []model.Item
}

func (h *PageHandler) GetPage(c *gin.Context) {
	data, err := h.load(c.Request.Context())
	if err != nil {
		slog.Error("error loading page", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		slog.Error("error rendering page", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Render error"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *PageHandler) load(ctx context.Context) (*pageData, error) {
	data := &pageData{Bias: map[string]string{}}

	run, err := h.runs.LatestCompleted(ctx)
	if err != nil {
		return nil, err
	}

	if run != nil {
		data.LastUpdated = run.CompletedAt

		var summary model.RunSummary
		if len(run.Summary) > 0 {
			if err := json.Unmarshal(run.Summary, &summary); err != nil {
				slog.Warn("unreadable run summary", "run_id", run.ID, "error", err)
			}
		}

		data.Clusters = summary.Clusters
		data.TotalKept = summary.TotalKept
		data.Summary = summary.CachedSummary
		data.BiasTally = summary.CachedBias.Summary
		for _, b := range summary.CachedBias.Items {
			data.Bias[b.ID] = b.Bias
		}
	}

	if len(data.Clusters) > 0 {
		var urls []string
		for _, cl := range data.Clusters {
			for _, s := range cl.Sources {
				urls = append(urls, s.URL)
			}
		}
		images, err := h.items.ImageURLsFor(ctx, urls)
		if err != nil {
			return nil, err
		}
		hydrateImages(data.Clusters, images)
	}

	if data.TotalAnalyzed, err = h.items.CountAll(ctx); err != nil {
		return nil, err
	}
	if data.Tweets, err = h.items.ListDisplayedTweets(ctx, pageTweetLimit); err != nil {
		return nil, err
	}
	if data.HeadToHead, err = h.items.HeadToHead(ctx, headToHeadLimit); err != nil {
		return nil, err
	}
	if data.ClaudeUseCases, err = h.items.UseCases(ctx, classify.SubjectClaude, useCaseLimit); err != nil {
		return nil, err
	}
	if data.OpenAIUseCases, err = h.items.UseCases(ctx, classify.SubjectOpenAI, useCaseLimit); err != nil {
		return nil, err
	}
	if data.Claude, err = h.metrics.Latest(ctx, classify.SubjectClaude); err != nil {
		return nil, err
	}
	if data.OpenAI, err = h.metrics.Latest(ctx, classify.SubjectOpenAI); err != nil {
		return nil, err
	}

	return data, nil
}

// hydrateImages fills missing source and cluster images from stored items.
func hydrateImages(clusters []model.Cluster, images map[string]string) {
	for i := range clusters {
		cl := &clusters[i]
		for j := range cl.Sources {
			if cl.Sources[j].ImageURL == "" {
				cl.Sources[j].ImageURL = images[cl.Sources[j].URL]
			}
		}
		if cl.ImageURL != "" {
			continue
		}
		for _, s := range cl.Sources {
			if s.ImageURL != "" {
				cl.ImageURL = s.ImageURL
				break
			}
		}
	}
}
