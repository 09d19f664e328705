package handler

import (
	"context"
	"log/slog"
	"net/http"

	"sentimentwatch/internal/model"

	"github.com/gin-gonic/gin"
)

type BiasClassifier interface {
	Classify(ctx context.Context, items []model.BiasInput) model.BiasResult
}

type BiasHandler struct {
	classifier BiasClassifier
}

func NewBiasHandler(classifier BiasClassifier) *BiasHandler {
	return &BiasHandler{classifier: classifier}
}

func (h *BiasHandler) PostBias(c *gin.Context) {
	var req BiasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("invalid bias request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	c.JSON(http.StatusOK, h.classifier.Classify(c.Request.Context(), req.Items))
}
