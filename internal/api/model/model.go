package model

import "time"

// Statuses shared by threads, campaign items, and campaigns.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusFailed  = "failed"
	StatusPartial = "partial"
)

type User struct {
	UserID      string    `db:"user_id"`
	UserName    string    `db:"user_name"`
	Email       string    `db:"email"`
	VoiceCloned bool      `db:"voice_cloned"`
	TTSUsed     int       `db:"tts_used"`
	VideosWatch int       `db:"videos_watched"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type APIKey struct {
	APIKey    string    `db:"api_key"`
	UserID    string    `db:"user_id"`
	KeyName   string    `db:"key_name"`
	NUses     int       `db:"n_uses"`
	CreatedAt time.Time `db:"created_at"`
}

// Thread is the "flow" record: a reusable video template built by the thread
// worker. Status transitions pending -> ready|failed via the completion
// listener, never from the HTTP layer.
type Thread struct {
	ThreadID      string    `db:"thread_id"`
	UserID        string    `db:"user_id"`
	ThreadName    string    `db:"thread_name"`
	Description   string    `db:"description"`
	TTSText       string    `db:"tts_text"`
	Color         string    `db:"color"`
	SmartPause    bool      `db:"smart_pause"`
	Subtitle      bool      `db:"subtitle"`
	FastProgress  bool      `db:"fast_progress"`
	CorrelationID string    `db:"correlation_id"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type Campaign struct {
	CampaignID  string    `db:"campaign_id"`
	UserID      string    `db:"user_id"`
	Name        string    `db:"campaign_name"`
	Description string    `db:"campaign_description"`
	UsedThread  string    `db:"used_thread"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CampaignItem is one TTS text inside a campaign. Items are updated by the
// campaign completion listener keyed on (campaign_id, tts_text) so a
// redelivered completion message is a no-op the second time.
type CampaignItem struct {
	CampaignID string `db:"campaign_id"`
	TTSText    string `db:"tts_text"`
	Status     string `db:"status"`
	VideoURL   string `db:"video_url"`
	Error      string `db:"error"`
}

type Request struct {
	RequestID     string    `db:"request_id"`
	UserID        string    `db:"user_id"`
	ThreadName    string    `db:"thread_name"`
	TTSText       string    `db:"tts_text"`
	CorrelationID string    `db:"correlation_id"`
	Status        string    `db:"status"`
	VideoURL      string    `db:"video_url"`
	Error         string    `db:"error"`
	CreatedAt     time.Time `db:"created_at"`
}

// ComputeCampaignStatus derives a campaign's aggregate status from its item
// statuses: all ready -> ready; everything terminal with a mix -> partial
// (some ready) or failed (none ready); otherwise the campaign stays pending.
func ComputeCampaignStatus(items []CampaignItem) string {
	if len(items) == 0 {
		return StatusPending
	}

	ready, failed := 0, 0
	for _, item := range items {
		switch item.Status {
		case StatusReady:
			ready++
		case StatusFailed:
			failed++
		}
	}

	switch {
	case ready == len(items):
		return StatusReady
	case ready+failed == len(items) && ready > 0:
		return StatusPartial
	case ready+failed == len(items):
		return StatusFailed
	case failed > 0 && ready > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}
