package handler

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Osama092/ThreadGen-Backend/internal/api/dto"
	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
)

const (
	keyLength   = 32
	keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

func randomKey() string {
	buf := make([]byte, keyLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyAlphabet))))
		if err != nil {
			panic(err)
		}
		buf[i] = keyAlphabet[n.Int64()]
	}
	return string(buf)
}

// CreateKey handles POST /api/v1/keys
// Key material is generated server side and retried on collision until the
// value is unique.
func (h *Handler) CreateKey(c *gin.Context) {
	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	key, err := h.store.GenerateUniqueKey(c.Request.Context(), req.UserID, req.KeyName, randomKey)
	if err != nil {
		h.logger.Error("Failed to create api key", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"api_key":  key.APIKey,
		"key_name": key.KeyName,
		"user_id":  key.UserID,
	})
}

// ListKeys handles GET /api/v1/keys/user/:userId
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.store.ListAPIKeysByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.logger.Error("Failed to list api keys", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RenameKey handles PATCH /api/v1/keys/:apiKey
func (h *Handler) RenameKey(c *gin.Context) {
	var req dto.RenameKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if err := h.store.RenameAPIKey(c.Request.Context(), c.Param("apiKey"), req.KeyName); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
			return
		}
		h.logger.Error("Failed to rename api key", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Key renamed"})
}

// DeleteKey handles DELETE /api/v1/keys/:apiKey
func (h *Handler) DeleteKey(c *gin.Context) {
	if err := h.store.DeleteAPIKey(c.Request.Context(), c.Param("apiKey")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
			return
		}
		h.logger.Error("Failed to delete api key", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Key deleted"})
}
