package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"

	"sportscast/internal/queue"
	"sportscast/internal/service"
	"sportscast/pkg/cache"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

// Database is the subset of the query history store the worker needs.
type Database interface {
	GetQueryByID(ctx context.Context, id string) (*model.QueryRecord, error)
	UpdateQuery(ctx context.Context, record *model.QueryRecord) error
}

// AudioStore archives and serves voice recordings.
type AudioStore interface {
	UploadFile(ctx context.Context, key string, body io.Reader, contentType string) error
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	GenerateKey(taskID, extension string) string
}

// Recognizer transcribes audio to text.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// ResultPublisher delivers finished web queries back to the server.
type ResultPublisher interface {
	PublishResult(result *queue.QueryResult) error
}

type Processor struct {
	db         Database
	s3         AudioStore
	recognizer Recognizer
	svc        *service.Service
	results    ResultPublisher
	cache      cache.Cache
	bot        *tele.Bot
	httpClient *http.Client
}

// NewProcessor creates a new worker processor. The bot may be nil when
// Telegram delivery is disabled.
func NewProcessor(
	db Database,
	s3 AudioStore,
	recognizer Recognizer,
	svc *service.Service,
	results ResultPublisher,
	redisCache cache.Cache,
	bot *tele.Bot,
) *Processor {
	return &Processor{
		db:         db,
		s3:         s3,
		recognizer: recognizer,
		svc:        svc,
		results:    results,
		cache:      redisCache,
		bot:        bot,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ProcessTask processes one query task from the queue.
func (p *Processor) ProcessTask(taskData []byte) error {
	var task queue.QueryTask
	if err := json.Unmarshal(taskData, &task); err != nil {
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	logger.Info("Processing query task",
		zap.String("task_id", task.TaskID),
		zap.String("source", string(task.Source)))

	ctx := context.Background()

	record, err := p.db.GetQueryByID(ctx, task.TaskID)
	if err != nil {
		return fmt.Errorf("failed to get query record: %w", err)
	}

	record.SetInProgress()
	if err := p.db.UpdateQuery(ctx, record); err != nil {
		logger.Error("Failed to update query status", zap.Error(err))
	}

	text := task.Text
	if task.IsVoice() {
		text, err = p.transcribe(ctx, &task, record)
		if err != nil {
			return err
		}
		if text == "" {
			// Unusable audio will not improve on redelivery.
			return nil
		}
	}

	resp := p.svc.ProcessText(ctx, text)

	if resp.Success {
		record.SetDone(resp.Query, resp.CacheKey)
	} else {
		record.SetRejected(resp.Error)
		record.Text = text
	}
	if err := p.db.UpdateQuery(ctx, record); err != nil {
		logger.Error("Failed to update query record", zap.Error(err))
	}

	p.deliver(ctx, &task, text, resp)

	logger.Info("Task completed",
		zap.String("task_id", task.TaskID),
		zap.Bool("success", resp.Success))

	return nil
}

// transcribe resolves the audio of a voice task and runs recognition.
// It returns an empty text (and nil error) when the audio is unusable,
// after marking the record failed and notifying the user.
func (p *Processor) transcribe(ctx context.Context, task *queue.QueryTask, record *model.QueryRecord) (string, error) {
	var (
		audio []byte
		err   error
	)

	switch {
	case task.FileID != "":
		audio, err = p.downloadTelegramFile(task.FileID)
		if err != nil {
			p.failRecord(ctx, record, fmt.Sprintf("Failed to download file: %v", err))
			return "", err
		}

		// Archive the recording so the task can be replayed later.
		key := p.s3.GenerateKey(task.TaskID, extensionFor(task.MimeType))
		if err := p.s3.UploadFile(ctx, key, bytes.NewReader(audio), task.MimeType); err != nil {
			logger.Error("Failed to archive recording", zap.Error(err))
		} else {
			task.AudioKey = key
		}

	case task.AudioKey != "":
		audio, err = p.s3.DownloadFile(ctx, task.AudioKey)
		if err != nil {
			p.failRecord(ctx, record, fmt.Sprintf("Failed to download recording: %v", err))
			return "", err
		}

	default:
		p.failRecord(ctx, record, "voice task carries no audio reference")
		return "", nil
	}

	text, err := p.recognizer.Recognize(ctx, audio, task.MimeType)
	if err != nil {
		p.failRecord(ctx, record, fmt.Sprintf("Recognition failed: %v", err))
		p.deliver(ctx, task, "", service.QueryResponse{
			Success: false,
			Error:   "语音识别失败，请重试",
		})
		return "", nil
	}

	logger.Info("Voice task transcribed",
		zap.String("task_id", task.TaskID),
		zap.String("text", text))

	return text, nil
}

// deliver routes the response back to where the query came from.
func (p *Processor) deliver(ctx context.Context, task *queue.QueryTask, text string, resp service.QueryResponse) {
	switch task.Source {
	case model.SourceTelegram:
		if p.bot == nil {
			logger.Warn("Telegram delivery requested but bot is not configured",
				zap.String("task_id", task.TaskID))
			return
		}
		if err := p.sendTelegramReply(task, formatReply(text, resp)); err != nil {
			logger.Error("Failed to send result to user", zap.Error(err))
		}

	case model.SourceWeb:
		result := &queue.QueryResult{
			TaskID:   task.TaskID,
			Source:   task.Source,
			Text:     text,
			Response: resp,
		}
		if p.results != nil {
			if err := p.results.PublishResult(result); err != nil {
				logger.Error("Failed to publish result", zap.Error(err))
			}
		}
		if p.cache != nil {
			key := cache.TaskResultCacheKey(task.TaskID)
			if err := p.cache.SetWithTTL(ctx, key, result, time.Hour); err != nil {
				logger.Error("Failed to cache task result", zap.Error(err))
			}
		}
	}
}

// downloadTelegramFile downloads a voice recording from Telegram
func (p *Processor) downloadTelegramFile(fileID string) ([]byte, error) {
	file, err := p.bot.FileByID(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	fileURL := p.bot.URL + "/file/bot" + p.bot.Token + "/" + file.FilePath

	resp, err := p.httpClient.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	return data, nil
}

func (p *Processor) sendTelegramReply(task *queue.QueryTask, text string) error {
	chat := &tele.Chat{ID: task.ChatID}

	_, err := p.bot.Send(chat, text, &tele.SendOptions{
		ReplyTo: &tele.Message{ID: int(task.TelegramMessageID)},
	})

	return err
}

func (p *Processor) failRecord(ctx context.Context, record *model.QueryRecord, errorMsg string) {
	logger.Error("Task processing error",
		zap.String("task_id", record.ID),
		zap.String("error", errorMsg))

	record.SetFailed(errorMsg)
	if err := p.db.UpdateQuery(ctx, record); err != nil {
		logger.Error("Failed to update query record", zap.Error(err))
	}
}

// formatReply renders a response as a short chat message.
func formatReply(text string, resp service.QueryResponse) string {
	if !resp.Success {
		msg := resp.Error
		if resp.Suggestion != "" {
			msg += "\n" + resp.Suggestion
		}
		return msg
	}

	header := fmt.Sprintf("识别结果: %s", text)
	if resp.Query != nil {
		header += fmt.Sprintf("\n查询: %s / %s", resp.Query.Domain, resp.Query.Intent)
	}

	if !resp.Data.Success() {
		errText, _ := resp.Data["error"].(string)
		return header + "\n查询失败: " + errText
	}

	body, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil || len(body) > 3500 {
		return header + "\n查询成功，结果已缓存"
	}
	return header + "\n" + string(body)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
