package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
)

// PlayerConfig handles GET /api/v1/player/config?apiKey=...&threadName=...
// Returns the embeddable player settings stored on the thread.
func (h *Handler) PlayerConfig(c *gin.Context) {
	apiKey := c.Query("apiKey")
	threadName := c.Query("threadName")
	if apiKey == "" || threadName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "apiKey and threadName are required"})
		return
	}

	ctx := c.Request.Context()

	keyDoc, err := h.store.GetAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid apiKey"})
			return
		}
		h.logger.Error("Failed to look up api key", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	thread, err := h.store.GetUserThread(ctx, threadName, keyDoc.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threadName"})
			return
		}
		h.logger.Error("Failed to look up thread", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if thread.Status != model.StatusReady {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thread is not ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"threadName":   thread.ThreadName,
		"color":        thread.Color,
		"smartPause":   thread.SmartPause,
		"subtitle":     thread.Subtitle,
		"fastProgress": thread.FastProgress,
	})
}
