package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Subscribe handles GET /subscribe?userId=...
// Holds the connection open and streams hub events as SSE frames. A
// reconnect with the same userId replaces the previous stream.
func (h *Handler) Subscribe(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	sub := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(sub)

	c.SSEvent("message", gin.H{"type": "connected", "userId": userID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.Ch:
			if !ok {
				return false
			}
			c.SSEvent("message", event.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
