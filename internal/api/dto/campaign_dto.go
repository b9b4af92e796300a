package dto

type CreateCampaignRequest struct {
	CampaignName        string   `json:"campaign_name" binding:"required"`
	CampaignDescription string   `json:"campaign_description" binding:"required"`
	UserID              string   `json:"user_id" binding:"required"`
	ThreadName          string   `json:"thread_name" binding:"required"`
	TTSTextList         []string `json:"tts_text_list" binding:"required"`
	APIKey              string   `json:"apikey" binding:"required"`
}

type UpdateCampaignRequest struct {
	CampaignName        string `json:"campaign_name" binding:"required"`
	CampaignDescription string `json:"campaign_description" binding:"required"`
}

type CampaignItemDTO struct {
	Text     string `json:"text"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error,omitempty"`
}

type CampaignDTO struct {
	CampaignID  string            `json:"campaign_id"`
	UserID      string            `json:"user_id"`
	Name        string            `json:"campaign_name"`
	Description string            `json:"campaign_description"`
	UsedThread  string            `json:"used_thread"`
	Status      string            `json:"status"`
	Items       []CampaignItemDTO `json:"tts_text_list"`
	CreatedAt   string            `json:"created_at"`
}
