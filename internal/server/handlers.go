package server

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sportscast/internal/queue"
	"sportscast/internal/service"
	"sportscast/internal/sports"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

func (s *Server) handleVoiceStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ready":     true,
		"timestamp": time.Now().Format(time.RFC3339Nano),
	})
}

type textRequest struct {
	Text string `json:"text"`
}

// handleParse runs the parser only, without executing the query.
func (s *Server) handleParse(c *fiber.Ctx) error {
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(fiber.Map{"success": false, "error": "invalid request body"})
	}

	if req.Text == "" {
		return c.JSON(fiber.Map{"success": false, "error": "文本不能为空"})
	}

	desc := s.svc.Parse(req.Text)
	return c.JSON(fiber.Map{"success": true, "result": desc})
}

// handleTextQuery runs the full pipeline synchronously.
func (s *Server) handleTextQuery(c *fiber.Ctx) error {
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(fiber.Map{"success": false, "error": "invalid request body"})
	}

	if req.Text == "" {
		return c.JSON(fiber.Map{"success": false, "error": "文本不能为空"})
	}

	resp := s.svc.ProcessText(c.Context(), req.Text)

	if resp.Success && resp.Query != nil {
		s.recordHistory(c, req.Text, resp)
	}

	return c.JSON(resp)
}

// handleVoiceQuery accepts an audio upload and enqueues it for the
// worker. The response carries the task id to watch on /ws/updates.
func (s *Server) handleVoiceQuery(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(fiber.Map{"success": false, "error": "音频文件不能为空"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(fiber.Map{"success": false, "error": "failed to open upload"})
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return c.JSON(fiber.Map{"success": false, "error": "failed to read upload"})
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	taskID := uuid.New().String()

	key := s.s3.GenerateKey(taskID, extensionFor(mimeType))
	if err := s.s3.UploadFile(c.Context(), key, bytes.NewReader(audio), mimeType); err != nil {
		logger.Error("Failed to store uploaded audio",
			zap.Error(err),
			zap.String("task_id", taskID))
		return c.JSON(fiber.Map{"success": false, "error": "failed to store audio"})
	}

	record := &model.QueryRecord{
		ID:     taskID,
		Source: model.SourceWeb,
		Status: model.QueryStatusQueued,
		Meta: model.JSONB{
			"audio_key": key,
			"file_size": fileHeader.Size,
			"mime_type": mimeType,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.storage.CreateQuery(c.Context(), record); err != nil {
		logger.Error("Failed to create query record",
			zap.Error(err),
			zap.String("task_id", taskID))
		return c.JSON(fiber.Map{"success": false, "error": "failed to record query"})
	}

	task := &queue.QueryTask{
		TaskID:    taskID,
		Source:    model.SourceWeb,
		AudioKey:  key,
		MimeType:  mimeType,
		CreatedAt: record.CreatedAt,
	}
	if err := s.q.PublishTask(task); err != nil {
		logger.Error("Failed to publish voice task",
			zap.Error(err),
			zap.String("task_id", taskID))
		return c.JSON(fiber.Map{"success": false, "error": "failed to enqueue task"})
	}

	logger.Info("Voice query enqueued",
		zap.String("task_id", taskID),
		zap.Int64("file_size", fileHeader.Size))

	return c.JSON(fiber.Map{"success": true, "task_id": taskID})
}

func (s *Server) handleCacheOptions(c *fiber.Ctx) error {
	domain := model.Domain(c.Params("domain"))
	queryType := model.Intent(c.Params("type"))

	if !domain.Valid() {
		return c.JSON(fiber.Map{"success": false, "error": fmt.Sprintf("unknown domain: %s", domain)})
	}

	options := s.svc.Store().Options(domain, queryType)
	return c.JSON(fiber.Map{
		"success":    true,
		"sport":      domain,
		"query_type": queryType,
		"options":    options,
		"count":      len(options),
	})
}

func (s *Server) handleCacheResult(c *fiber.Ctx) error {
	domain := model.Domain(c.Params("domain"))
	key := c.Params("key")

	if !domain.Valid() {
		return c.JSON(fiber.Map{"success": false, "error": fmt.Sprintf("unknown domain: %s", domain)})
	}

	entry, ok := s.svc.Store().Get(domain, key)
	if !ok {
		return c.JSON(fiber.Map{"success": false, "error": "未找到缓存结果"})
	}

	return c.JSON(fiber.Map{"success": true, "result": entry})
}

func (s *Server) handleCacheClear(c *fiber.Ctx) error {
	var req struct {
		Domain string `json:"domain"`
	}
	// An empty body clears everything.
	_ = c.BodyParser(&req)

	if req.Domain == "" {
		if err := s.svc.Store().ClearAll(); err != nil {
			return c.JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		s.invalidateResponses(c, []string{"api:*"})
		return c.JSON(fiber.Map{"success": true, "message": "缓存已清理"})
	}

	domain := model.Domain(req.Domain)
	if !domain.Valid() {
		return c.JSON(fiber.Map{"success": false, "error": fmt.Sprintf("unknown domain: %s", domain)})
	}

	if err := s.svc.Store().Clear(domain); err != nil {
		return c.JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	s.invalidateResponses(c, sports.ResponseCachePatterns(domain))
	return c.JSON(fiber.Map{"success": true, "message": fmt.Sprintf("缓存已清理（%s）", domain)})
}

// invalidateResponses drops cached upstream responses so a clear is
// not immediately repopulated from stale data.
func (s *Server) invalidateResponses(c *fiber.Ctx, patterns []string) {
	if s.responses == nil {
		return
	}
	for _, pattern := range patterns {
		if err := s.responses.DeleteByPattern(c.Context(), pattern); err != nil {
			logger.Error("Failed to drop cached responses",
				zap.String("pattern", pattern),
				zap.Error(err))
		}
	}
}

func (s *Server) handleF1Schedule(c *fiber.Ctx) error {
	return c.JSON(s.svc.F1().CurrentSchedule(c.Context()))
}

func (s *Server) handleF1DriverStandings(c *fiber.Ctx) error {
	year, err := c.ParamsInt("year")
	if err != nil {
		return c.JSON(model.Failure("invalid year"))
	}
	return c.JSON(s.svc.F1().DriverStandings(c.Context(), year))
}

func (s *Server) handleF1ConstructorStandings(c *fiber.Ctx) error {
	year, err := c.ParamsInt("year")
	if err != nil {
		return c.JSON(model.Failure("invalid year"))
	}
	return c.JSON(s.svc.F1().ConstructorStandings(c.Context(), year))
}

func (s *Server) handleFootballStandings(c *fiber.Ctx) error {
	leagueID, err := c.ParamsInt("league_id")
	if err != nil {
		return c.JSON(model.Failure("invalid league id"))
	}
	return c.JSON(s.svc.Football().Standings(c.Context(), leagueID, nil))
}

func (s *Server) handleFootballTodayMatches(c *fiber.Ctx) error {
	return c.JSON(s.svc.Football().TodayMatches(c.Context()))
}

func (s *Server) handleFootballLiveMatches(c *fiber.Ctx) error {
	return c.JSON(s.svc.Football().LiveMatches(c.Context()))
}

func (s *Server) handleNBATeams(c *fiber.Ctx) error {
	return c.JSON(s.svc.NBA().Teams(c.Context()))
}

func (s *Server) handleNBAStandings(c *fiber.Ctx) error {
	return c.JSON(s.svc.NBA().LeagueStandings(c.Context()))
}

func (s *Server) handleNBATeamSchedule(c *fiber.Ctx) error {
	return c.JSON(s.svc.NBA().TeamSchedule(c.Context(), c.Params("team")))
}

func (s *Server) handleNBATeamPlayers(c *fiber.Ctx) error {
	return c.JSON(s.svc.NBA().TeamPlayers(c.Context(), c.Params("team")))
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	records, err := s.storage.RecentQueries(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.JSON(fiber.Map{"success": false, "error": "failed to load history"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"history": records,
		"count":   len(records),
	})
}

// recordHistory keeps a row for synchronously answered text queries so
// they show up in /api/history alongside worker-processed ones.
func (s *Server) recordHistory(c *fiber.Ctx, text string, resp service.QueryResponse) {
	record := &model.QueryRecord{
		ID:        uuid.New().String(),
		Source:    model.SourceWeb,
		Status:    model.QueryStatusQueued,
		Text:      text,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	record.SetDone(resp.Query, resp.CacheKey)

	if err := s.storage.CreateQuery(c.Context(), record); err != nil {
		logger.Error("Failed to record text query", zap.Error(err))
	}
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
