package dto

type CreateThreadRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	UserName     string `json:"user_name" binding:"required"`
	ThreadName   string `json:"thread_name" binding:"required"`
	Description  string `json:"description" binding:"required"`
	TTSText      string `json:"tts_text" binding:"required"`
	Color        string `json:"color" binding:"required"`
	SmartPause   bool   `json:"smart_pause"`
	Subtitle     bool   `json:"subtitle"`
	FastProgress bool   `json:"fast_progress"`
}

type CreateThreadResponse struct {
	Message       string `json:"message"`
	ThreadID      string `json:"thread_id"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
}

type TranscriptRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	UserName   string `json:"user_name" binding:"required"`
	ThreadName string `json:"thread_name" binding:"required"`
	VideoPath  string `json:"video_path"`
	ConfigPath string `json:"config_path"`
}

type ThreadDTO struct {
	ThreadID    string `json:"thread_id"`
	UserID      string `json:"user_id"`
	ThreadName  string `json:"thread_name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}
