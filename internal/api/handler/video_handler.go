package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Osama092/ThreadGen-Backend/internal/api/dto"
	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
)

// GenerateVideo handles POST /api/v1/videos
// Validates the API key and thread, races the generation worker against the
// configured deadline, and answers synchronously when the worker is fast
// enough or 202 Accepted when it is not.
func (h *Handler) GenerateVideo(c *gin.Context) {
	var req dto.GenerateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx := c.Request.Context()

	keyDoc, err := h.store.GetAPIKey(ctx, req.APIKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid apiKey"})
			return
		}
		h.logger.Error("Failed to look up api key", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	threadDoc, err := h.store.GetThreadByName(ctx, req.ThreadName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threadName"})
			return
		}
		h.logger.Error("Failed to look up thread", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if threadDoc.UserID != keyDoc.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this thread"})
		return
	}

	if threadDoc.Status == model.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thread is still pending"})
		return
	}

	// Usage allowance from the billing API; the check fails open so a
	// billing outage never blocks generation.
	if user, uerr := h.store.GetUserByID(ctx, keyDoc.UserID); uerr == nil {
		allowance := h.billing.VideoAllowance(ctx, user.Email)
		if allowance > 0 && keyDoc.NUses >= allowance {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Usage limit reached for this api key"})
			return
		}
	}

	payload := map[string]interface{}{
		"user":    keyDoc.UserID,
		"thread":  threadDoc.ThreadID,
		"ttsText": req.TTSText,
		"source":  "video_player",
	}

	outcome, err := h.dispatcher.Submit(ctx, dispatch.QueueGenerate, payload, h.dispatch.GenerateTimeout)
	if err != nil {
		if errors.Is(err, dispatch.ErrBrokerUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Generation service unavailable"})
			return
		}
		h.logger.Error("Failed to submit generation job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	record := &model.Request{
		RequestID:     uuid.New().String(),
		UserID:        keyDoc.UserID,
		ThreadName:    req.ThreadName,
		TTSText:       req.TTSText,
		CorrelationID: outcome.CorrelationID,
		Status:        model.StatusPending,
		CreatedAt:     time.Now(),
	}

	if !outcome.Completed {
		// The completion listener owns this record's terminal transition.
		if err := h.store.CreateRequest(ctx, record); err != nil {
			h.logger.Error("Failed to record pending request", slog.Any("error", err))
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":    "processing",
			"message":   "Video generation started. This may take some time.",
			"requestId": record.RequestID,
		})
		return
	}

	reply := outcome.Reply
	if !reply.IsSuccess() {
		record.Status = model.StatusFailed
		if msg, ok := reply["error"].(string); ok {
			record.Error = msg
		}
		if err := h.store.CreateRequest(ctx, record); err != nil {
			h.logger.Error("Failed to record failed request", slog.Any("error", err))
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"status": "failed",
			"error":  record.Error,
		})
		return
	}

	record.Status = model.StatusReady
	if url, ok := reply["video_url"].(string); ok {
		record.VideoURL = url
	}
	if err := h.store.CreateRequest(ctx, record); err != nil {
		h.logger.Error("Failed to record completed request", slog.Any("error", err))
	}
	if err := h.store.IncrementKeyUses(ctx, req.APIKey, 1); err != nil {
		h.logger.Error("Failed to increment key uses", slog.Any("error", err))
	}

	response := gin.H{"requestId": record.RequestID}
	for k, v := range reply {
		response[k] = v
	}
	c.JSON(http.StatusOK, response)
}
