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

// AddThread handles POST /api/v1/threads
// Creates the thread record as pending and dispatches processing to the
// thread worker; the thread completion listener flips the status later.
func (h *Handler) AddThread(c *gin.Context) {
	var req dto.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx := c.Request.Context()

	if _, err := h.store.GetUserThread(ctx, req.ThreadName, req.UserID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A thread with this name already exists"})
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("Failed to check thread name", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	thread := &model.Thread{
		ThreadID:      uuid.New().String(),
		UserID:        req.UserID,
		ThreadName:    req.ThreadName,
		Description:   req.Description,
		TTSText:       req.TTSText,
		Color:         req.Color,
		SmartPause:    req.SmartPause,
		Subtitle:      req.Subtitle,
		FastProgress:  req.FastProgress,
		CorrelationID: uuid.New().String(),
		Status:        model.StatusPending,
		CreatedAt:     time.Now(),
	}
	if err := h.store.CreateThread(ctx, thread); err != nil {
		h.logger.Error("Failed to create thread", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	payload := map[string]interface{}{
		"threadId":     thread.ThreadID,
		"userId":       thread.UserID,
		"userName":     req.UserName,
		"threadName":   thread.ThreadName,
		"ttsText":      thread.TTSText,
		"color":        thread.Color,
		"smartPause":   thread.SmartPause,
		"subtitle":     thread.Subtitle,
		"fastProgress": thread.FastProgress,
	}
	if err := h.dispatcher.Publish(ctx, dispatch.QueueThread, payload, thread.CorrelationID, h.dispatch.ThreadCompletionQueue); err != nil {
		h.logger.Error("Failed to dispatch thread job",
			slog.String("thread_id", thread.ThreadID),
			slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Thread processing unavailable"})
		return
	}

	c.JSON(http.StatusCreated, dto.CreateThreadResponse{
		Message:       "Thread creation started",
		ThreadID:      thread.ThreadID,
		CorrelationID: thread.CorrelationID,
		Status:        thread.Status,
	})
}

// ListThreads handles GET /api/v1/threads/user/:userId
func (h *Handler) ListThreads(c *gin.Context) {
	userID := c.Param("userId")

	threads, err := h.store.ListThreadsByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list threads", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	out := make([]dto.ThreadDTO, 0, len(threads))
	for _, t := range threads {
		out = append(out, dto.ThreadDTO{
			ThreadID:    t.ThreadID,
			UserID:      t.UserID,
			ThreadName:  t.ThreadName,
			Description: t.Description,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"threads": out})
}

// GetTranscript handles POST /api/v1/threads/transcript
// Submits the uploaded media to the transcription worker and waits for the
// extracted text.
func (h *Handler) GetTranscript(c *gin.Context) {
	var req dto.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx := c.Request.Context()

	payload := map[string]interface{}{
		"userId":     req.UserID,
		"userName":   req.UserName,
		"threadName": req.ThreadName,
		"videoPath":  req.VideoPath,
		"configPath": req.ConfigPath,
	}

	outcome, err := h.dispatcher.Submit(ctx, dispatch.QueueTranscript, payload, h.dispatch.TranscriptTimeout)
	if err != nil {
		if errors.Is(err, dispatch.ErrBrokerUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Transcription service unavailable"})
			return
		}
		h.logger.Error("Failed to submit transcript job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !outcome.Completed {
		c.JSON(http.StatusAccepted, gin.H{
			"status":        "processing",
			"correlationId": outcome.CorrelationID,
		})
		return
	}

	reply := outcome.Reply
	if !reply.IsSuccess() {
		c.JSON(http.StatusBadGateway, gin.H{"status": "failed", "error": reply["error"]})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"transcript": reply["transcript"],
	})
}
