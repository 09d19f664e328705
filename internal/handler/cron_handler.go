package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"sentimentwatch/internal/cache"
	"sentimentwatch/internal/pipeline"

	"github.com/gin-gonic/gin"
)

type Runner interface {
	Run(ctx context.Context) (*pipeline.RunStats, error)
}

type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

type CronHandler struct {
	runner Runner
	cache  CacheInvalidator
	secret string
}

func NewCronHandler(runner Runner, cache CacheInvalidator, secret string) *CronHandler {
	return &CronHandler{runner: runner, cache: cache, secret: secret}
}

type CronResponse struct {
	Success bool `json:"success"`
	*pipeline.RunStats
}

func (h *CronHandler) PostCron(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()

	stats, err := h.runner.Run(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "A run is already in progress"})
		return
	}
	if err != nil {
		slog.Error("cron run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cron run failed", "details": err.Error()})
		return
	}

	if err := h.cache.Delete(ctx, cache.SummaryKey); err != nil {
		slog.Warn("summary cache invalidation failed", "error", err)
	}

	c.JSON(http.StatusOK, CronResponse{Success: true, RunStats: stats})
}

// authorized accepts the secret from the x-cron-secret header or the
// secret query parameter. An unset secret rejects every caller.
func (h *CronHandler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		return false
	}
	got := c.GetHeader("x-cron-secret")
	if got == "" {
		got = c.Query("secret")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
