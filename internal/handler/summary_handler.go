package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sentimentwatch/internal/cache"
	"sentimentwatch/internal/pipeline"

	"github.com/gin-gonic/gin"
)

type SummaryGenerator interface {
	Generate(ctx context.Context) (*pipeline.Summary, error)
}

type SummaryCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type SummaryHandler struct {
	generator SummaryGenerator
	cache     SummaryCache
	ttl       time.Duration
}

func NewSummaryHandler(generator SummaryGenerator, cache SummaryCache, ttl time.Duration) *SummaryHandler {
	return &SummaryHandler{generator: generator, cache: cache, ttl: ttl}
}

// GetSummary never fails: read errors produce an empty summary with a null
// paragraph.
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	ctx := c.Request.Context()

	var cached pipeline.Summary
	hit, err := h.cache.GetJSON(ctx, cache.SummaryKey, &cached)
	if err != nil {
		slog.Warn("summary cache read failed", "error", err)
	}
	if hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	summary, err := h.generator.Generate(ctx)
	if err != nil {
		slog.Error("error generating summary", "error", err)
		c.JSON(http.StatusOK, pipeline.Summary{})
		return
	}

	if summary.Summary != nil {
		if err := h.cache.SetJSON(ctx, cache.SummaryKey, summary, h.ttl); err != nil {
			slog.Warn("summary cache write failed", "error", err)
		}
	}

	c.JSON(http.StatusOK, summary)
}
