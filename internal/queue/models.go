package queue

import (
	"time"

	"sportscast/internal/service"
	"sportscast/pkg/model"
)

// QueryTask is one query waiting to be processed by a worker. Voice
// tasks carry either a Telegram file ID or an S3 audio key; text tasks
// carry the text directly and skip recognition.
type QueryTask struct {
	TaskID            string            `json:"task_id"`
	Source            model.QuerySource `json:"source"`
	ChatID            int64             `json:"chat_id,omitempty"`
	TelegramMessageID int64             `json:"telegram_message_id,omitempty"`
	FileID            string            `json:"file_id,omitempty"`
	AudioKey          string            `json:"audio_key,omitempty"`
	MimeType          string            `json:"mime_type,omitempty"`
	Text              string            `json:"text,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// IsVoice reports whether the task needs speech recognition first.
func (t *QueryTask) IsVoice() bool {
	return t.Text == "" && (t.FileID != "" || t.AudioKey != "")
}

// QueryResult carries a finished query back to the server for
// websocket delivery.
type QueryResult struct {
	TaskID   string                `json:"task_id"`
	Source   model.QuerySource     `json:"source"`
	Text     string                `json:"text,omitempty"`
	Response service.QueryResponse `json:"response"`
}
