package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Osama092/ThreadGen-Backend/internal/api/dto"
	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListRequests handles GET /api/v1/requests
// Cursor based pagination, newest first. The returned next_cursor is opaque
// to clients.
func (h *Handler) ListRequests(c *gin.Context) {
	var q dto.ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}
	if q.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	cursor, err := DecodeRequestCursor(q.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	rows, err := h.store.ListRequests(c.Request.Context(), storage.RequestFilter{
		UserID:   q.UserID,
		Status:   q.Status,
		PageSize: pageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list requests", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var nextCursor string
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor, err = EncodeRequestCursor(&storage.RequestCursor{
			CreatedAt: last.CreatedAt,
			RequestID: last.RequestID,
		})
		if err != nil {
			h.logger.Error("Failed to encode cursor", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	out := make([]dto.RequestDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.RequestDTO{
			RequestID:     r.RequestID,
			UserID:        r.UserID,
			ThreadName:    r.ThreadName,
			TTSText:       r.TTSText,
			CorrelationID: r.CorrelationID,
			Status:        r.Status,
			VideoURL:      r.VideoURL,
			Error:         r.Error,
			CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, dto.ListRequestsResponse{Requests: out, NextCursor: nextCursor})
}

// AddRequest handles POST /api/v1/requests
// Dashboard-originated record; inserted directly as ready and pushed to the
// user's live stream.
func (h *Handler) AddRequest(c *gin.Context) {
	var req dto.AddRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	record := &model.Request{
		RequestID:     uuid.New().String(),
		UserID:        req.UserID,
		ThreadName:    req.ThreadName,
		TTSText:       req.TTSText,
		CorrelationID: uuid.New().String(),
		Status:        model.StatusReady,
		CreatedAt:     time.Now(),
	}
	if err := h.store.CreateRequest(c.Request.Context(), record); err != nil {
		h.logger.Error("Failed to create request", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.hub.Publish(req.UserID, gin.H{
		"type":      "request_added",
		"requestId": record.RequestID,
		"status":    record.Status,
	})

	c.JSON(http.StatusCreated, gin.H{"request_id": record.RequestID})
}
