package handler

import (
	"context"
	"log/slog"
)

// Publisher enqueues a job body onto the durable work queue.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, messageID string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Publisher Publisher
	Queue     string
}

// MessageHandler handles message enqueue HTTP requests
type MessageHandler struct {
	logger    *slog.Logger
	publisher Publisher
	queue     string
}

// NewMessageHandler creates a new MessageHandler instance
func NewMessageHandler(deps *Dependencies) *MessageHandler {
	return &MessageHandler{
		logger:    deps.Logger,
		publisher: deps.Publisher,
		queue:     deps.Queue,
	}
}
