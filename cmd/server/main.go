package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sportscast/internal/config"
	"sportscast/internal/querycache"
	"sportscast/internal/queue"
	"sportscast/internal/server"
	"sportscast/internal/service"
	"sportscast/internal/sports"
	"sportscast/internal/storage"
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

	logger.Info("Starting sportscast web server")

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

	// Initialize S3 storage for uploaded audio
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

	// Initialize Redis cache for upstream API responses
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

	srv := server.New(cfg, svc, db, s3Storage, rabbitMQ, redisCache)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Broadcast worker results to websocket clients
	go func() {
		logger.Info("Starting results consumer")
		if err := rabbitMQ.Consume(queue.QueueNameResults, srv.HandleResultMessage); err != nil {
			logger.Error("Failed to consume results", zap.Error(err))
			cancel()
		}
	}()

	// Start HTTP server
	go func() {
		if err := srv.Listen(); err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	logger.Info("Web server shutdown complete")
}
