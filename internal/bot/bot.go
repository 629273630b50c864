package bot

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v4"

	"go.uber.org/zap"

	"sportscast/internal/config"
	"sportscast/internal/queue"
	"sportscast/pkg/cache"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

type QueuePublisher interface {
	Publish(queueName string, body []byte) error
	PublishTask(task *queue.QueryTask) error
}

// Storage is the subset of the query history store the bot needs.
type Storage interface {
	CreateQuery(ctx context.Context, record *model.QueryRecord) error
}

type Bot struct {
	cfg     *config.Config
	tb      *tele.Bot
	q       QueuePublisher
	storage Storage
	cache   cache.Cache
}

func NewBot(cfg *config.Config, db Storage, q QueuePublisher, redisCache cache.Cache) (*Bot, error) {
	logger.Info("Starting bot initialization")

	pref := tele.Settings{
		Token: cfg.Telegram.Token,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
		},
	}

	if pref.Token == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN environment variable is required")
		return nil, nil
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
		return nil, err
	}

	logger.Info("Bot created successfully")

	bot := &Bot{
		cfg:     cfg,
		tb:      tb,
		storage: db,
		q:       q,
		cache:   redisCache,
	}

	bot.registerHandlers()
	return bot, nil
}

// Telebot exposes the underlying bot for the worker's file downloads
// and reply delivery.
func (b *Bot) Telebot() *tele.Bot {
	return b.tb
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/stop", b.handleStop)
	b.tb.Handle(tele.OnVoice, b.handleVoice)
	b.tb.Handle(tele.OnText, b.handleText)
}

// handleStart enables query processing for this chat
func (b *Bot) handleStart(c tele.Context) error {
	chatID := c.Chat().ID
	ctx := context.Background()

	key := cache.ChatActiveCacheKey(chatID)
	if err := b.cache.SetWithTTL(ctx, key, "true", 30*24*time.Hour); err != nil {
		logger.Error("Failed to save chat active state to cache", zap.Error(err))
	}

	logger.Info("Bot activated for chat",
		zap.Int64("chat_id", chatID))

	return c.Send("体育查询助手已启动！\n发送语音或文字提问，例如：'查询F1积分榜'或'湖人队赛程'")
}

// handleStop disables query processing for this chat
func (b *Bot) handleStop(c tele.Context) error {
	chatID := c.Chat().ID
	ctx := context.Background()

	key := cache.ChatActiveCacheKey(chatID)
	if err := b.cache.Delete(ctx, key); err != nil {
		logger.Error("Failed to delete chat active state from cache", zap.Error(err))
	}

	logger.Info("Bot deactivated for chat",
		zap.Int64("chat_id", chatID))

	return c.Send("助手已停止。\n发送 /start 恢复查询")
}

// isActive reports whether the bot is enabled for this chat
func (b *Bot) isActive(chatID int64) bool {
	ctx := context.Background()
	key := cache.ChatActiveCacheKey(chatID)

	var value string
	err := b.cache.Get(ctx, key, &value)
	if err != nil {
		// Missing key means the chat never sent /start
		return false
	}

	return value == "true"
}

func (b *Bot) Start() {
	b.tb.Start()
	logger.Info("Bot started")
}

func (b *Bot) Stop() {
	b.tb.Stop()
	logger.Info("Bot stopped")
}
