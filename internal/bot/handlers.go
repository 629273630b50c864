package bot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"

	"sportscast/internal/queue"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

func (b *Bot) handleVoice(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Voice == nil {
		return c.Reply("错误：未找到语音消息")
	}

	if !b.isActive(msg.Chat.ID) {
		logger.Info("Ignoring voice message from inactive chat",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID))

		return nil
	}

	if err := c.Reply("正在处理..."); err != nil {
		logger.Error("Failed to send processing message", zap.Error(err))
	}

	record := &model.QueryRecord{
		ID:     uuid.New().String(),
		Source: model.SourceTelegram,
		ChatID: msg.Chat.ID,
		Status: model.QueryStatusQueued,
		Meta: model.JSONB{
			"telegram_message_id": msg.ID,
			"voice_duration":      msg.Voice.Duration,
			"file_size":           msg.Voice.FileSize,
			"mime_type":           msg.Voice.MIME,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	task := &queue.QueryTask{
		TaskID:            record.ID,
		Source:            model.SourceTelegram,
		ChatID:            msg.Chat.ID,
		TelegramMessageID: int64(msg.ID),
		FileID:            msg.Voice.FileID,
		MimeType:          msg.Voice.MIME,
		CreatedAt:         record.CreatedAt,
	}

	return b.enqueue(c, record, task)
}

// handleText treats any plain message as a text query, skipping the
// recognition step.
func (b *Bot) handleText(c tele.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return nil
	}

	if !b.isActive(msg.Chat.ID) {
		logger.Info("Ignoring text message from inactive chat",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID))

		return nil
	}

	record := &model.QueryRecord{
		ID:     uuid.New().String(),
		Source: model.SourceTelegram,
		ChatID: msg.Chat.ID,
		Status: model.QueryStatusQueued,
		Text:   text,
		Meta: model.JSONB{
			"telegram_message_id": msg.ID,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	task := &queue.QueryTask{
		TaskID:            record.ID,
		Source:            model.SourceTelegram,
		ChatID:            msg.Chat.ID,
		TelegramMessageID: int64(msg.ID),
		Text:              text,
		CreatedAt:         record.CreatedAt,
	}

	return b.enqueue(c, record, task)
}

func (b *Bot) enqueue(c tele.Context, record *model.QueryRecord, task *queue.QueryTask) error {
	ctx := context.Background()
	if err := b.storage.CreateQuery(ctx, record); err != nil {
		logger.Error("Failed to create query record in database",
			zap.Error(err),
			zap.String("task_id", record.ID))
		return c.Reply("保存查询失败，请稍后重试")
	}

	logger.Info("Query record created in database",
		zap.String("task_id", record.ID),
		zap.Int64("chat_id", record.ChatID))

	if b.q != nil {
		if err := b.q.PublishTask(task); err != nil {
			logger.Error("Failed to publish task to queue",
				zap.Error(err),
				zap.String("task_id", record.ID))
			return c.Reply("查询任务入队失败，请稍后重试")
		}

		logger.Info("Task published to queue",
			zap.String("task_id", record.ID))
	}

	return nil
}
