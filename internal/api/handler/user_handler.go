package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Osama092/ThreadGen-Backend/internal/api/dto"
	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
	"github.com/Osama092/ThreadGen-Backend/internal/dispatch"
)

// AddUser handles POST /api/v1/users
// Upsert semantics: registering an already known user returns the existing
// record instead of an error so the frontend can call it on every login.
func (h *Handler) AddUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx := c.Request.Context()

	if existing, err := h.store.GetUserByID(ctx, req.UserID); err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "User already exists", "user": existing})
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("Failed to look up user", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := &model.User{
		UserID:    req.UserID,
		UserName:  req.UserName,
		Email:     req.Email,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		h.logger.Error("Failed to create user", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created", "user": user})
}

// GetUser handles GET /api/v1/users/:userId
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to get user", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// AddKPIs handles POST /api/v1/users/kpis
// Increments the per-user usage counters shown on the dashboard.
func (h *Handler) AddKPIs(c *gin.Context) {
	var req dto.AddKPIsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if err := h.store.AddKPIs(c.Request.Context(), req.UserID, req.TTSUsed, req.VideosWatched); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to add kpis", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "KPIs updated"})
}

// GetKPIs handles GET /api/v1/users/:userId/kpis
func (h *Handler) GetKPIs(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to get user", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tts_used":       user.TTSUsed,
		"videos_watched": user.VideosWatch,
	})
}

// CloneVoice handles POST /api/v1/users/voice
// Dispatches the cloning job and waits briefly; slow clones keep running and
// the cloning completion listener marks the user when the worker reports in.
func (h *Handler) CloneVoice(c *gin.Context) {
	var req dto.CloneVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx := c.Request.Context()

	user, err := h.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to look up user", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if user.VoiceCloned {
		c.JSON(http.StatusConflict, gin.H{"error": "Voice already cloned for this user"})
		return
	}

	payload := map[string]interface{}{
		"userId":    req.UserID,
		"userName":  req.UserName,
		"audioPath": req.AudioPath,
	}

	outcome, err := h.dispatcher.Submit(ctx, dispatch.QueueCloning, payload, h.dispatch.CloningTimeout)
	if err != nil {
		if errors.Is(err, dispatch.ErrBrokerUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Voice cloning unavailable"})
			return
		}
		h.logger.Error("Failed to submit cloning job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !outcome.Completed {
		c.JSON(http.StatusAccepted, gin.H{
			"status":        "processing",
			"message":       "Voice cloning started. This may take some time.",
			"correlationId": outcome.CorrelationID,
		})
		return
	}

	reply := outcome.Reply
	if !reply.IsSuccess() {
		c.JSON(http.StatusBadGateway, gin.H{"status": "failed", "error": reply["error"]})
		return
	}

	if _, err := h.store.SetVoiceCloned(ctx, req.UserID, true); err != nil {
		h.logger.Error("Failed to mark voice cloned", slog.Any("error", err))
	}
	h.hub.Publish(req.UserID, gin.H{"type": "voice_cloned", "userId": req.UserID})

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Voice cloned"})
}
