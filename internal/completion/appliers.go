package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
)

// Store is the slice of the document store the appliers write through. The
// completion path is the only writer of these status transitions after
// record creation.
type Store interface {
	UpdateRequestByCorrelation(ctx context.Context, correlationID, status, videoURL, reqErr string) (bool, error)
	UpdateThreadStatusByCorrelation(ctx context.Context, correlationID, status string) (bool, error)
	SetVoiceCloned(ctx context.Context, userID string, cloned bool) (bool, error)
	UpdateCampaignItem(ctx context.Context, campaignID, ttsText, status, videoURL, itemErr string) (bool, error)
	RecomputeCampaignStatus(ctx context.Context, campaignID string) (string, error)
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
}

// Notifier pushes a payload to a connected SSE subscriber. Delivery is
// best-effort; a false return only means the subscriber is gone.
type Notifier interface {
	Publish(identity string, payload interface{}) bool
}

// VideoApplier records the terminal outcome of an API-key video generation
// job on the request record.
type VideoApplier struct {
	Store    Store
	Notifier Notifier
	Logger   *slog.Logger
}

func (a *VideoApplier) Name() string { return "video" }

func (a *VideoApplier) Apply(ctx context.Context, msg *Message) error {
	if msg.CorrelationID == "" {
		return errors.New("video completion missing correlation id")
	}

	status := model.StatusReady
	videoURL := msg.VideoURL
	reqErr := ""
	if !msg.IsSuccess() {
		status = model.StatusFailed
		videoURL = ""
		reqErr = msg.Error
		if reqErr == "" {
			reqErr = "unknown error"
		}
	}

	matched, err := a.Store.UpdateRequestByCorrelation(ctx, msg.CorrelationID, status, videoURL, reqErr)
	if err != nil {
		return err
	}
	if !matched {
		a.Logger.Warn("No request found for completion message",
			slog.String("correlation_id", msg.CorrelationID),
		)
		return nil
	}

	if a.Notifier != nil && msg.UserID != "" {
		a.Notifier.Publish(msg.UserID, map[string]interface{}{
			"type":           "request",
			"correlation_id": msg.CorrelationID,
			"status":         status,
			"video_url":      videoURL,
		})
	}
	return nil
}

// ThreadApplier flips a thread's status once its build or transcription job
// finishes.
type ThreadApplier struct {
	Store    Store
	Notifier Notifier
	Logger   *slog.Logger
}

func (a *ThreadApplier) Name() string { return "thread" }

func (a *ThreadApplier) Apply(ctx context.Context, msg *Message) error {
	if msg.CorrelationID == "" {
		return errors.New("thread completion missing correlation id")
	}

	status := model.StatusReady
	if !msg.IsSuccess() {
		status = model.StatusFailed
	}

	matched, err := a.Store.UpdateThreadStatusByCorrelation(ctx, msg.CorrelationID, status)
	if err != nil {
		return err
	}
	if !matched {
		a.Logger.Warn("No thread found for completion message",
			slog.String("correlation_id", msg.CorrelationID),
		)
		return nil
	}

	if a.Notifier != nil && msg.UserID != "" {
		a.Notifier.Publish(msg.UserID, map[string]interface{}{
			"type":           "thread",
			"correlation_id": msg.CorrelationID,
			"status":         status,
		})
	}
	return nil
}

// CloneApplier marks a user's voice model ready after a cloning job
// succeeds. Non-success outcomes carry no record transition; the user simply
// stays un-cloned.
type CloneApplier struct {
	Store    Store
	Notifier Notifier
	Logger   *slog.Logger
}

func (a *CloneApplier) Name() string { return "clone" }

func (a *CloneApplier) Apply(ctx context.Context, msg *Message) error {
	if !msg.IsSuccess() {
		a.Logger.Info("Voice cloning reported failure",
			slog.String("user_id", msg.UserID),
			slog.String("error", msg.Error),
		)
		return nil
	}

	if msg.UserID == "" {
		return errors.New("cloning completion missing user_id")
	}

	matched, err := a.Store.SetVoiceCloned(ctx, msg.UserID, true)
	if err != nil {
		return err
	}
	if !matched {
		a.Logger.Warn("No user found for cloning completion",
			slog.String("user_id", msg.UserID),
		)
		return nil
	}

	if a.Notifier != nil {
		a.Notifier.Publish(msg.UserID, map[string]interface{}{
			"type":         "voice_clone",
			"voice_cloned": true,
		})
	}
	return nil
}

// CampaignApplier updates one campaign item by its text, then recomputes the
// campaign's aggregate status and persists it only when it changed.
type CampaignApplier struct {
	Store    Store
	Notifier Notifier
	Logger   *slog.Logger
}

func (a *CampaignApplier) Name() string { return "campaign" }

func (a *CampaignApplier) Apply(ctx context.Context, msg *Message) error {
	if msg.CampaignID == "" || msg.TTSText == "" {
		return fmt.Errorf("campaign completion missing identifiers: campaignId=%q ttsText=%q", msg.CampaignID, msg.TTSText)
	}

	status := model.StatusReady
	videoURL := msg.VideoURL
	itemErr := ""
	if !msg.IsSuccess() {
		status = model.StatusFailed
		videoURL = ""
		itemErr = msg.Error
		if itemErr == "" {
			itemErr = "unknown error"
		}
	}

	matched, err := a.Store.UpdateCampaignItem(ctx, msg.CampaignID, msg.TTSText, status, videoURL, itemErr)
	if err != nil {
		return err
	}
	if !matched {
		a.Logger.Warn("No campaign item found for completion message",
			slog.String("campaign_id", msg.CampaignID),
		)
		return nil
	}

	aggregate, err := a.Store.RecomputeCampaignStatus(ctx, msg.CampaignID)
	if err != nil {
		return err
	}

	if a.Notifier != nil {
		campaign, err := a.Store.GetCampaign(ctx, msg.CampaignID)
		if err == nil {
			a.Notifier.Publish(campaign.UserID, map[string]interface{}{
				"type":        "campaign",
				"campaign_id": msg.CampaignID,
				"status":      aggregate,
			})
		}
	}
	return nil
}
