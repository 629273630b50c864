package server

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"sportscast/internal/config"
	"sportscast/internal/queue"
	"sportscast/internal/service"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

// Storage is the subset of the query history store the server needs.
type Storage interface {
	CreateQuery(ctx context.Context, record *model.QueryRecord) error
	RecentQueries(ctx context.Context, limit int) ([]*model.QueryRecord, error)
}

// AudioStore archives uploaded recordings for the worker to pick up.
type AudioStore interface {
	UploadFile(ctx context.Context, key string, body io.Reader, contentType string) error
	GenerateKey(taskID, extension string) string
}

// TaskPublisher enqueues voice tasks for asynchronous processing.
type TaskPublisher interface {
	PublishTask(task *queue.QueryTask) error
}

// ResponseCacheInvalidator drops cached upstream API responses by key
// pattern. May be nil when no response cache is configured.
type ResponseCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type Server struct {
	cfg       *config.Config
	app       *fiber.App
	svc       *service.Service
	storage   Storage
	s3        AudioStore
	q         TaskPublisher
	responses ResponseCacheInvalidator
	hub       *Hub
}

func New(cfg *config.Config, svc *service.Service, db Storage, s3 AudioStore, q TaskPublisher, responses ResponseCacheInvalidator) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "sportscast",
		ServerHeader:          "sportscast",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	s := &Server{
		cfg:       cfg,
		app:       app,
		svc:       svc,
		storage:   db,
		s3:        s3,
		q:         q,
		responses: responses,
		hub:       NewHub(),
	}

	s.registerRoutes()
	go s.hub.Run()

	return s
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	api.Get("/voice/status", s.handleVoiceStatus)
	api.Post("/voice/parse", s.handleParse)
	api.Post("/query/text", s.handleTextQuery)
	api.Post("/query/voice", s.handleVoiceQuery)

	api.Get("/cache/options/:domain/:type", s.handleCacheOptions)
	api.Get("/cache/result/:domain/:key", s.handleCacheResult)
	api.Post("/cache/clear", s.handleCacheClear)

	api.Get("/f1/schedule", s.handleF1Schedule)
	api.Get("/f1/driver-standings/:year", s.handleF1DriverStandings)
	api.Get("/f1/constructor-standings/:year", s.handleF1ConstructorStandings)

	api.Get("/football/standings/:league_id", s.handleFootballStandings)
	api.Get("/football/today-matches", s.handleFootballTodayMatches)
	api.Get("/football/live-matches", s.handleFootballLiveMatches)

	api.Get("/nba/teams", s.handleNBATeams)
	api.Get("/nba/standings", s.handleNBAStandings)
	api.Get("/nba/team-schedule/:team", s.handleNBATeamSchedule)
	api.Get("/nba/players/:team", s.handleNBATeamPlayers)

	api.Get("/history", s.handleHistory)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app.Get("/ws/updates", websocket.New(func(c *websocket.Conn) {
		s.hub.AddClient(c)
	}))
}

// HandleResultMessage consumes one finished query from the results
// queue and broadcasts it to websocket clients.
func (s *Server) HandleResultMessage(body []byte) error {
	var result queue.QueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		logger.Error("Failed to unmarshal query result", zap.Error(err))
		// Malformed messages would loop forever on requeue.
		return nil
	}

	event, err := json.Marshal(fiber.Map{
		"event": "query_result",
		"data":  result,
	})
	if err != nil {
		return err
	}

	s.hub.Broadcast(event)

	logger.Debug("Query result broadcast",
		zap.String("task_id", result.TaskID),
		zap.Int("clients", s.hub.ClientCount()))

	return nil
}

func (s *Server) Listen() error {
	logger.Info("Starting HTTP server", zap.String("addr", s.cfg.Server.Addr))
	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
