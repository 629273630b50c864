package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"

	"sportscast/internal/config"
	"sportscast/internal/querycache"
	"sportscast/internal/queue"
	"sportscast/internal/service"
	"sportscast/internal/speech"
	"sportscast/internal/sports"
	"sportscast/internal/storage"
	"sportscast/internal/worker"
	"sportscast/pkg/cache"
	"sportscast/pkg/logger"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Initialize logger
	debug := true
	if err := logger.Init(debug); err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting sportscast worker service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
		return
	}

	// Connect to database
	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN environment variable is required")
		return
	}

	db, err := storage.NewPostgresStorage(cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
		return
	}
	defer db.Close()

	logger.Info("Database connection established")

	// Initialize S3 storage
	s3Storage, err := storage.NewS3Storage(
		cfg.S3.Endpoint,
		cfg.S3.AccessKey,
		cfg.S3.SecretKey,
		cfg.S3.Bucket,
	)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		return
	}

	logger.Info("S3 storage initialized")

	// Initialize Redis cache
	redisCache, err := cache.NewRedisCache(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		24*time.Hour,
	)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
		return
	}
	defer redisCache.Close()

	logger.Info("Redis cache connection established")

	// Initialize speech recognition client
	recognizer := speech.NewClient(cfg.Recognizer.Endpoint, cfg.Recognizer.Model)

	logger.Info("Speech recognition client initialized")

	// Initialize Telegram bot for file downloads and replies
	var bot *tele.Bot
	if cfg.Telegram.Token != "" {
		botSettings := tele.Settings{
			Token: cfg.Telegram.Token,
			Poller: &tele.LongPoller{
				Timeout: 10 * time.Second,
			},
		}

		bot, err = tele.NewBot(botSettings)
		if err != nil {
			logger.Fatal("Failed to create Telegram bot", zap.Error(err))
			return
		}

		logger.Info("Telegram bot initialized")
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, Telegram delivery disabled")
	}

	// Connect to RabbitMQ
	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		return
	}
	defer rabbitMQ.Close()

	logger.Info("RabbitMQ connection established")

	// Build query service on top of the result cache and data clients
	store := querycache.Open(cfg.Cache.Path, time.Duration(cfg.Cache.MaxAgeDays)*24*time.Hour)
	svc := service.New(
		store,
		sports.NewF1Client(redisCache),
		sports.NewFootballClient(cfg.Football.Token, redisCache),
		sports.NewNBAClient(redisCache),
	)

	processor := worker.NewProcessor(db, s3Storage, recognizer, svc, rabbitMQ, redisCache, bot)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		go func(n int) {
			logger.Info("Starting queue consumer", zap.Int("consumer", n))
			if err := rabbitMQ.Consume(queue.QueueNameQueries, processor.ProcessTask); err != nil {
				logger.Error("Failed to consume messages", zap.Error(err))
				cancel()
			}
		}(i)
	}

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Worker service shutdown complete")
}
