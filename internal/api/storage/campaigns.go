package storage

import (
	"context"
	"fmt"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
)

// CampaignNameExists backs the per-user campaign name uniqueness check
// (case-insensitive, matching the original behavior).
func (s *Storage) CampaignNameExists(ctx context.Context, userID, name string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM campaigns
			WHERE user_id = $1 AND LOWER(campaign_name) = LOWER($2)
		)
	`

	if err := s.db.GetContext(ctx, &exists, query, userID, name); err != nil {
		return false, fmt.Errorf("failed to check campaign name: %w", err)
	}
	return exists, nil
}

// CreateCampaign inserts the campaign and its pending item list in one
// transaction.
func (s *Storage) CreateCampaign(ctx context.Context, campaign *model.Campaign, items []model.CampaignItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO campaigns (
			campaign_id, user_id, campaign_name, campaign_description,
			used_thread, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		campaign.CampaignID,
		campaign.UserID,
		campaign.Name,
		campaign.Description,
		campaign.UsedThread,
		campaign.Status,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO campaign_items (campaign_id, tts_text, status, video_url, error)
			VALUES ($1, $2, $3, $4, $5)
		`,
			campaign.CampaignID,
			item.TTSText,
			item.Status,
			item.VideoURL,
			item.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to create campaign item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit campaign: %w", err)
	}
	return nil
}

func (s *Storage) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	var campaign model.Campaign
	query := `
		SELECT
			campaign_id, user_id, campaign_name, campaign_description,
			used_thread, status, created_at, updated_at
		FROM campaigns
		WHERE campaign_id = $1
	`

	if err := s.db.GetContext(ctx, &campaign, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", notFound(err))
	}
	return &campaign, nil
}

func (s *Storage) ListCampaignsByUser(ctx context.Context, userID string) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	query := `
		SELECT
			campaign_id, user_id, campaign_name, campaign_description,
			used_thread, status, created_at, updated_at
		FROM campaigns
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	if err := s.db.SelectContext(ctx, &campaigns, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

func (s *Storage) ListCampaignItems(ctx context.Context, campaignID string) ([]model.CampaignItem, error) {
	var items []model.CampaignItem
	query := `
		SELECT campaign_id, tts_text, status, video_url, error
		FROM campaign_items
		WHERE campaign_id = $1
		ORDER BY tts_text
	`

	if err := s.db.SelectContext(ctx, &items, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to list campaign items: %w", err)
	}
	return items, nil
}

// UpdateCampaignItem applies a targeted field set keyed on the item's text,
// so a redelivered completion message is a no-op the second time.
func (s *Storage) UpdateCampaignItem(ctx context.Context, campaignID, ttsText, status, videoURL, itemErr string) (bool, error) {
	query := `
		UPDATE campaign_items
		SET status = $3, video_url = $4, error = $5
		WHERE campaign_id = $1 AND tts_text = $2
	`

	res, err := s.db.ExecContext(ctx, query, campaignID, ttsText, status, videoURL, itemErr)
	if err != nil {
		return false, fmt.Errorf("failed to update campaign item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

func (s *Storage) UpdateCampaignStatus(ctx context.Context, campaignID, status string) error {
	query := `
		UPDATE campaigns
		SET status = $2, updated_at = NOW()
		WHERE campaign_id = $1 AND status <> $2
	`

	if _, err := s.db.ExecContext(ctx, query, campaignID, status); err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	return nil
}

// RecomputeCampaignStatus derives the aggregate status from the item rows
// and persists it only when it changed.
func (s *Storage) RecomputeCampaignStatus(ctx context.Context, campaignID string) (string, error) {
	items, err := s.ListCampaignItems(ctx, campaignID)
	if err != nil {
		return "", err
	}

	status := model.ComputeCampaignStatus(items)

	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return "", err
	}
	if campaign.Status != status {
		if err := s.UpdateCampaignStatus(ctx, campaignID, status); err != nil {
			return "", err
		}
	}
	return status, nil
}

func (s *Storage) UpdateCampaign(ctx context.Context, campaignID, name, description string) error {
	query := `
		UPDATE campaigns
		SET campaign_name = $2, campaign_description = $3, updated_at = NOW()
		WHERE campaign_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, campaignID, name, description)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update campaign: %w", ErrNotFound)
	}
	return nil
}
