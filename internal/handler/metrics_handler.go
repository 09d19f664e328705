package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"

	"github.com/gin-gonic/gin"
)

const (
	monitorActive   = "active"
	monitorNeverRun = "never_run"
)

type MetricStore interface {
	Latest(ctx context.Context, subject string) (*model.Metric, error)
}

type RunReader interface {
	LatestCompleted(ctx context.Context) (*model.Run, error)
}

type MetricsHandler struct {
	metrics  MetricStore
	runs     RunReader
	interval time.Duration
	now      func() time.Time
}

func NewMetricsHandler(metrics MetricStore, runs RunReader, interval time.Duration) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, runs: runs, interval: interval, now: time.Now}
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	ctx := c.Request.Context()

	claude, err := h.metrics.Latest(ctx, classify.SubjectClaude)
	if err != nil {
		slog.Error("error fetching claude metric", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	openai, err := h.metrics.Latest(ctx, classify.SubjectOpenAI)
	if err != nil {
		slog.Error("error fetching openai metric", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	lastRun, err := h.runs.LatestCompleted(ctx)
	if err != nil {
		slog.Error("error fetching last run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, MetricsResponse{
		Claude:  toMetricResponse(claude),
		OpenAI:  toMetricResponse(openai),
		LastRun: toRunResponse(lastRun),
	})
}

// GetMonitor reports when the last run finished and when the next one is
// due. With no completed run the next run is due now.
func (h *MetricsHandler) GetMonitor(c *gin.Context) {
	lastRun, err := h.runs.LatestCompleted(c.Request.Context())
	if err != nil {
		slog.Error("error fetching last run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	now := h.now()
	res := MonitorResponse{
		IntervalHours: int(h.interval / time.Hour),
		LastRun:       toRunResponse(lastRun),
		Status:        monitorNeverRun,
	}

	next := now
	if lastRun != nil {
		res.Status = monitorActive
		if lastRun.CompletedAt != nil {
			res.LastRunAt = formatTime(lastRun.CompletedAt)
			next = lastRun.CompletedAt.Add(h.interval)
		}
	}

	res.NextRunAt = next.UTC().Format(time.RFC3339)
	res.Overdue = !next.After(now)

	c.JSON(http.StatusOK, res)
}
