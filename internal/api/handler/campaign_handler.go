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

// AddCampaign handles POST /api/v1/campaigns
// Creates the campaign and its items as pending, then fans one generation
// job per TTS text out to the generate queue. Replies are routed to the
// campaign completion queue rather than a per-request reply queue, so the
// handler never waits.
func (h *Handler) AddCampaign(c *gin.Context) {
	var req dto.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if len(req.TTSTextList) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tts_text_list must not be empty"})
		return
	}

	ctx := c.Request.Context()

	keyDoc, err := h.store.GetUserAPIKey(ctx, req.APIKey, req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid apikey for this user"})
			return
		}
		h.logger.Error("Failed to look up api key", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	threadDoc, err := h.store.GetUserThread(ctx, req.ThreadName, req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid thread_name"})
			return
		}
		h.logger.Error("Failed to look up thread", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if threadDoc.Status != model.StatusReady {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thread is not ready"})
		return
	}

	exists, err := h.store.CampaignNameExists(ctx, req.UserID, req.CampaignName)
	if err != nil {
		h.logger.Error("Failed to check campaign name", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "A campaign with this name already exists"})
		return
	}

	campaign := &model.Campaign{
		CampaignID:  uuid.New().String(),
		UserID:      req.UserID,
		Name:        req.CampaignName,
		Description: req.CampaignDescription,
		UsedThread:  req.ThreadName,
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
	}
	items := make([]model.CampaignItem, 0, len(req.TTSTextList))
	for _, text := range req.TTSTextList {
		items = append(items, model.CampaignItem{
			CampaignID: campaign.CampaignID,
			TTSText:    text,
			Status:     model.StatusPending,
		})
	}

	if err := h.store.CreateCampaign(ctx, campaign, items); err != nil {
		h.logger.Error("Failed to create campaign", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	dispatched := 0
	for _, item := range items {
		payload := map[string]interface{}{
			"user":       keyDoc.UserID,
			"thread":     threadDoc.ThreadID,
			"ttsText":    item.TTSText,
			"campaignId": campaign.CampaignID,
			"source":     "campaign",
		}
		if err := h.dispatcher.Publish(ctx, dispatch.QueueGenerate, payload, uuid.New().String(), h.dispatch.CampaignCompletionQueue); err != nil {
			h.logger.Error("Failed to dispatch campaign item",
				slog.String("campaign_id", campaign.CampaignID),
				slog.Any("error", err))
			continue
		}
		dispatched++
	}

	c.JSON(http.StatusCreated, gin.H{
		"campaign_id": campaign.CampaignID,
		"status":      campaign.Status,
		"dispatched":  dispatched,
		"total":       len(items),
	})
}

// ListCampaigns handles GET /api/v1/campaigns/user/:userId
func (h *Handler) ListCampaigns(c *gin.Context) {
	userID := c.Param("userId")
	ctx := c.Request.Context()

	campaigns, err := h.store.ListCampaignsByUser(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to list campaigns", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	out := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, cam := range campaigns {
		items, err := h.store.ListCampaignItems(ctx, cam.CampaignID)
		if err != nil {
			h.logger.Error("Failed to list campaign items",
				slog.String("campaign_id", cam.CampaignID),
				slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		out = append(out, toCampaignDTO(&cam, items))
	}

	c.JSON(http.StatusOK, gin.H{"campaigns": out})
}

// GetCampaign handles GET /api/v1/campaigns/user/:userId/:campaignId
func (h *Handler) GetCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	campaign, err := h.store.GetCampaign(ctx, c.Param("campaignId"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		h.logger.Error("Failed to get campaign", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if campaign.UserID != c.Param("userId") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}

	items, err := h.store.ListCampaignItems(ctx, campaign.CampaignID)
	if err != nil {
		h.logger.Error("Failed to list campaign items", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, toCampaignDTO(campaign, items))
}

// UpdateCampaign handles PUT /api/v1/campaigns/:campaignId
// Only the name and description are editable; item state belongs to the
// completion listener.
func (h *Handler) UpdateCampaign(c *gin.Context) {
	var req dto.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx := c.Request.Context()
	campaignID := c.Param("campaignId")

	if _, err := h.store.GetCampaign(ctx, campaignID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		h.logger.Error("Failed to get campaign", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := h.store.UpdateCampaign(ctx, campaignID, req.CampaignName, req.CampaignDescription); err != nil {
		h.logger.Error("Failed to update campaign", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign updated"})
}

func toCampaignDTO(cam *model.Campaign, items []model.CampaignItem) dto.CampaignDTO {
	itemDTOs := make([]dto.CampaignItemDTO, 0, len(items))
	for _, item := range items {
		itemDTOs = append(itemDTOs, dto.CampaignItemDTO{
			Text:     item.TTSText,
			Status:   item.Status,
			VideoURL: item.VideoURL,
			Error:    item.Error,
		})
	}
	return dto.CampaignDTO{
		CampaignID:  cam.CampaignID,
		UserID:      cam.UserID,
		Name:        cam.Name,
		Description: cam.Description,
		UsedThread:  cam.UsedThread,
		Status:      cam.Status,
		Items:       itemDTOs,
		CreatedAt:   cam.CreatedAt.Format(time.RFC3339),
	}
}
