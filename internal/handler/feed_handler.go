package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/internal/repository"

	"github.com/gin-gonic/gin"
)

type FeedStore interface {
	GetFeed(ctx context.Context, q repository.FeedQuery) ([]model.Item, error)
	CountFeed(ctx context.Context, q repository.FeedQuery) (int, error)
	Ping(ctx context.Context) error
}

type FeedHandler struct {
	repository FeedStore
}

func NewFeedHandler(repository FeedStore) *FeedHandler {
	return &FeedHandler{repository: repository}
}

func (h *FeedHandler) GetFeed(c *gin.Context) {
	q := repository.FeedQuery{
		Filter: repository.ParseFeedFilter(c.Query("filter")),
		Limit:  getQueryLimit(c),
		Offset: getQueryOffset(c),
	}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			slog.Warn("invalid since parameter", "value", raw, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since timestamp"})
			return
		}
		q.Since = &since
	}

	ctx := c.Request.Context()

	items, err := h.repository.GetFeed(ctx, q)
	if err != nil {
		slog.Error("error fetching feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total, err := h.repository.CountFeed(ctx, q)
	if err != nil {
		slog.Error("error fetching feed total", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	posts := make([]PostResponse, 0, len(items))
	for _, it := range items {
		posts = append(posts, toPostResponse(it))
	}

	c.JSON(http.StatusOK, FeedResponse{
		Posts:   posts,
		Total:   total,
		HasMore: q.Offset+len(posts) < total,
	})
}

func (h *FeedHandler) GetHealth(c *gin.Context) {
	if err := h.repository.Ping(c.Request.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

func getQueryInt(name string, defaultValue int, c *gin.Context) int {
	paramLimit := c.Query(name)

	if paramLimit == "" {
		return defaultValue
	}

	parsedValue, err := strconv.Atoi(paramLimit)
	if err != nil {
		slog.Warn("invalid query parameter, using default", "param", name, "value", paramLimit, "error", err)
		return defaultValue
	}

	return parsedValue
}

func getQueryLimit(c *gin.Context) int {
	const (
		defaultLimit = 50
		maxLimit     = 100
	)

	limit := getQueryInt("limit", defaultLimit, c)
	if limit < 1 {
		slog.Warn("invalid query parameter, using default", "param", "limit", "value", limit, "default", defaultLimit)
		return defaultLimit
	}

	if limit > maxLimit {
		slog.Warn("query parameter exceeds max, clamping", "param", "limit", "value", limit, "max", maxLimit)
		return maxLimit
	}

	return limit
}

func getQueryOffset(c *gin.Context) int {
	offset := getQueryInt("offset", 0, c)
	if offset < 0 {
		slog.Warn("invalid query parameter, using default", "param", "offset", "value", offset, "default", 0)
		return 0
	}
	return offset
}
