package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Osama092/ThreadGen-Backend/internal/billing"
)

// GetSubscription handles GET /api/v1/billing/subscription/:email
// Thin proxy over the payment provider so the bearer token never reaches
// the frontend.
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.billing.SubscriptionByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, billing.ErrBillingUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Billing provider unavailable"})
			return
		}
		h.logger.Error("Failed to fetch subscription", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No subscription found"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// GetTransactions handles GET /api/v1/billing/transactions/:email
func (h *Handler) GetTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	sub, err := h.billing.SubscriptionByEmail(ctx, c.Param("email"))
	if err != nil {
		if errors.Is(err, billing.ErrBillingUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Billing provider unavailable"})
			return
		}
		h.logger.Error("Failed to fetch subscription", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No subscription found"})
		return
	}

	txns, err := h.billing.Transactions(ctx, sub.CustomerID, sub.ID)
	if err != nil {
		h.logger.Error("Failed to fetch transactions", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Billing provider unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// CancelSubscription handles POST /api/v1/billing/subscriptions/:subscriptionId/cancel
func (h *Handler) CancelSubscription(c *gin.Context) {
	raw, err := h.billing.CancelSubscription(c.Request.Context(), c.Param("subscriptionId"))
	if err != nil {
		h.logger.Error("Failed to cancel subscription", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Billing provider unavailable"})
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// UpdatePaymentMethod handles POST /api/v1/billing/payment/:subscriptionId
// Returns the provider transaction used by the frontend checkout to swap the
// card on file.
func (h *Handler) UpdatePaymentMethod(c *gin.Context) {
	raw, err := h.billing.UpdatePaymentTransaction(c.Request.Context(), c.Param("subscriptionId"))
	if err != nil {
		h.logger.Error("Failed to fetch payment update transaction", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Billing provider unavailable"})
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}
