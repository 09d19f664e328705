package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"sentimentwatch/internal/chat"

	"github.com/gin-gonic/gin"
)

type Responder interface {
	Respond(ctx context.Context, req chat.Request, emit chat.Emit) error
}

type ChatHandler struct {
	assistant Responder
}

// NewChatHandler accepts a nil assistant; chat then answers 503.
func NewChatHandler(assistant Responder) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

func (h *ChatHandler) PostChat(c *gin.Context) {
	if h.assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chat is not configured"})
		return
	}

	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	emit := func(event string, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.SSEvent(event, data)
		c.Writer.Flush()
		return nil
	}

	if err := h.assistant.Respond(ctx, req, emit); err != nil {
		slog.Info("chat stream ended early", "error", err)
	}
}
