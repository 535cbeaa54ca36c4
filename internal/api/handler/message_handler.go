package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phamtq/msg-delivery/internal/api/dto"
	"github.com/phamtq/msg-delivery/internal/delivery/domain"
)

// EnqueueMessage handles POST /api/v1/messages
// Validates the job description and publishes it onto the work queue.
func (h *MessageHandler) EnqueueMessage(c *gin.Context) {
	var req dto.EnqueueMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	kind := domain.Kind(req.Type)
	if kind != domain.KindText && kind != domain.KindMedia {
		h.logger.Error("Invalid message type", slog.String("type", req.Type))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "type must be \"text\" or \"media\"",
		})
		return
	}

	job := domain.Job{
		To:   req.To,
		Type: kind,
		Msg:  req.Msg,
	}
	if req.Options != nil && req.Options.Caption != "" {
		job.Options = &domain.Options{Caption: req.Options.Caption}
	}

	body, err := json.Marshal(&job)
	if err != nil {
		h.logger.Error("Failed to encode job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to encode job",
		})
		return
	}

	messageID := uuid.New().String()

	if err := h.publisher.PublishWithRetry(c.Request.Context(), body, messageID); err != nil {
		h.logger.Error("Failed to enqueue message",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to enqueue message",
		})
		return
	}

	h.logger.Info("Message enqueued",
		slog.String("message_id", messageID),
		slog.String("to", job.To),
		slog.String("type", string(job.Type)),
	)

	c.JSON(http.StatusAccepted, dto.EnqueueMessageResponse{
		MessageID: messageID,
		Queue:     h.queue,
	})
}
