package dto

type GenerateVideoRequest struct {
	APIKey     string `json:"apiKey" binding:"required"`
	ThreadName string `json:"threadName" binding:"required"`
	TTSText    string `json:"ttsText" binding:"required"`
}

type CreateUserRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	UserName string `json:"user_name" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type AddKPIsRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	TTSUsed       int    `json:"tts_used"`
	VideosWatched int    `json:"videos_watched"`
}

type CloneVoiceRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	UserName  string `json:"user_name" binding:"required"`
	AudioPath string `json:"audio_path" binding:"required"`
}

type CreateKeyRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	KeyName string `json:"key_name"`
}

type RenameKeyRequest struct {
	KeyName string `json:"key_name" binding:"required"`
}

type AddRequestRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	ThreadName string `json:"thread_name"`
	TTSText    string `json:"tts_text"`
}

type ListRequestsQuery struct {
	UserID   string `form:"user_id"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type RequestDTO struct {
	RequestID     string `json:"request_id"`
	UserID        string `json:"user_id"`
	ThreadName    string `json:"thread_name"`
	TTSText       string `json:"tts_text"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	VideoURL      string `json:"video_url,omitempty"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type ListRequestsResponse struct {
	Requests   []RequestDTO `json:"requests"`
	NextCursor string       `json:"next_cursor,omitempty"`
}
