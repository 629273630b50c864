package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sportscast/internal/config"
	"sportscast/internal/querycache"
	"sportscast/internal/queue"
	"sportscast/internal/service"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	m.Run()
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateQuery(ctx context.Context, record *model.QueryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStorage) RecentQueries(ctx context.Context, limit int) ([]*model.QueryRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QueryRecord), args.Error(1)
}

type MockAudioStore struct {
	mock.Mock
}

func (m *MockAudioStore) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockAudioStore) GenerateKey(taskID, extension string) string {
	args := m.Called(taskID, extension)
	return args.String(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTask(task *queue.QueryTask) error {
	args := m.Called(task)
	return args.Error(0)
}

type MockF1 struct {
	mock.Mock
}

func (m *MockF1) CurrentSchedule(ctx context.Context) model.Payload {
	args := m.Called(ctx)
	return args.Get(0).(model.Payload)
}

func (m *MockF1) DriverStandings(ctx context.Context, year int) model.Payload {
	args := m.Called(ctx, year)
	return args.Get(0).(model.Payload)
}

func (m *MockF1) ConstructorStandings(ctx context.Context, year int) model.Payload {
	args := m.Called(ctx, year)
	return args.Get(0).(model.Payload)
}

func (m *MockF1) RaceResults(ctx context.Context, year, round int) model.Payload {
	args := m.Called(ctx, year, round)
	return args.Get(0).(model.Payload)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}

type serverFixture struct {
	server    *Server
	storage   *MockStorage
	s3        *MockAudioStore
	q         *MockPublisher
	f1        *MockF1
	responses *MockInvalidator
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()

	f := &serverFixture{
		storage:   new(MockStorage),
		s3:        new(MockAudioStore),
		q:         new(MockPublisher),
		f1:        new(MockF1),
		responses: new(MockInvalidator),
	}

	store := querycache.Open(filepath.Join(t.TempDir(), "cache.json"), querycache.DefaultMaxAge)
	svc := service.New(store, f.f1, nil, nil)

	cfg := &config.Config{}
	cfg.Server.Addr = ":0"

	f.server = New(cfg, svc, f.storage, f.s3, f.q, f.responses)
	return f
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestServer_VoiceStatus(t *testing.T) {
	f := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/voice/status", nil)
	resp, err := f.server.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ready"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestServer_ParseQuery(t *testing.T) {
	f := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/voice/parse",
		strings.NewReader(`{"text": "查询F1积分榜"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])

	result := body["result"].(map[string]interface{})
	assert.Equal(t, "motorsport", result["domain"])
	assert.Equal(t, "standings", result["intent"])
}

func TestServer_ParseQueryEmptyText(t *testing.T) {
	f := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/voice/parse",
		strings.NewReader(`{"text": ""}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "文本不能为空", body["error"])
}

func TestServer_TextQuery(t *testing.T) {
	f := newTestServer(t)

	f.f1.On("DriverStandings", mock.Anything, 2023).
		Return(model.Payload{"success": true, "year": 2023})
	f.storage.On("CreateQuery", mock.Anything, mock.AnythingOfType("*model.QueryRecord")).
		Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query/text",
		strings.NewReader(`{"text": "查询F1积分榜"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "standings", body["cache_key"])

	f.f1.AssertExpectations(t)
	f.storage.AssertExpectations(t)
}

func TestServer_TextQueryRejected(t *testing.T) {
	f := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/query/text",
		strings.NewReader(`{"text": "今天天气怎么样"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "无法理解查询意图", body["error"])
	assert.NotEmpty(t, body["suggestion"])

	// Rejected queries are not recorded.
	f.storage.AssertNotCalled(t, "CreateQuery", mock.Anything, mock.Anything)
}

func TestServer_VoiceQueryUpload(t *testing.T) {
	f := newTestServer(t)

	f.s3.On("GenerateKey", mock.AnythingOfType("string"), ".ogg").
		Return("audio/2026/08/28/upload.ogg")
	f.s3.On("UploadFile", mock.Anything, "audio/2026/08/28/upload.ogg", mock.Anything, "audio/ogg").
		Return(nil)
	f.storage.On("CreateQuery", mock.Anything, mock.AnythingOfType("*model.QueryRecord")).
		Return(nil)
	f.q.On("PublishTask", mock.AnythingOfType("*queue.QueryTask")).Return(nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="audio"; filename="query.ogg"`)
	header.Set("Content-Type", "audio/ogg")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("ogg-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/query/voice", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["task_id"])

	task := f.q.Calls[0].Arguments.Get(0).(*queue.QueryTask)
	assert.Equal(t, model.SourceWeb, task.Source)
	assert.Equal(t, "audio/2026/08/28/upload.ogg", task.AudioKey)
	assert.True(t, task.IsVoice())

	f.s3.AssertExpectations(t)
	f.storage.AssertExpectations(t)
	f.q.AssertExpectations(t)
}

func TestServer_VoiceQueryMissingFile(t *testing.T) {
	f := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/query/voice", nil)
	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "音频文件不能为空", body["error"])
}

func TestServer_CacheRoutes(t *testing.T) {
	f := newTestServer(t)

	store := f.server.svc.Store()
	key, err := store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2021)},
		model.Payload{"success": true}, "英超积分榜")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/cache/options/football/standings", nil)
	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["count"])

	req = httptest.NewRequest(http.MethodGet, "/api/cache/result/football/"+key, nil)
	resp, err = f.server.app.Test(req)
	require.NoError(t, err)

	body = decodeBody(t, resp)
	assert.Equal(t, true, body["success"])

	req = httptest.NewRequest(http.MethodGet, "/api/cache/result/football/no_such_key", nil)
	resp, err = f.server.app.Test(req)
	require.NoError(t, err)

	body = decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "未找到缓存结果", body["error"])

	f.responses.On("DeleteByPattern", mock.Anything, "api:football-data:*").Return(nil)

	req = httptest.NewRequest(http.MethodPost, "/api/cache/clear",
		strings.NewReader(`{"domain": "football"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = f.server.app.Test(req)
	require.NoError(t, err)

	body = decodeBody(t, resp)
	assert.Equal(t, true, body["success"])

	_, ok := store.Get(model.DomainFootball, key)
	assert.False(t, ok)

	f.responses.AssertExpectations(t)
}

func TestServer_CacheClearAllDropsResponses(t *testing.T) {
	f := newTestServer(t)

	f.responses.On("DeleteByPattern", mock.Anything, "api:*").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil)
	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])

	f.responses.AssertExpectations(t)
}

func TestServer_CacheOptionsUnknownDomain(t *testing.T) {
	f := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cache/options/cricket/standings", nil)
	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "unknown domain")
}

func TestServer_F1DirectRoute(t *testing.T) {
	f := newTestServer(t)

	f.f1.On("DriverStandings", mock.Anything, 2024).
		Return(model.Payload{"success": true, "year": 2024})

	req := httptest.NewRequest(http.MethodGet, "/api/f1/driver-standings/2024", nil)
	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2024), body["year"])

	f.f1.AssertExpectations(t)
}

func TestServer_History(t *testing.T) {
	f := newTestServer(t)

	records := []*model.QueryRecord{
		{ID: "q-1", Source: model.SourceWeb, Status: model.QueryStatusDone},
		{ID: "q-2", Source: model.SourceTelegram, Status: model.QueryStatusRejected},
	}
	f.storage.On("RecentQueries", mock.Anything, 5).Return(records, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil)
	resp, err := f.server.app.Test(req)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])

	f.storage.AssertExpectations(t)
}

func TestServer_HandleResultMessage(t *testing.T) {
	f := newTestServer(t)

	result := queue.QueryResult{
		TaskID: "task-1",
		Source: model.SourceWeb,
		Text:   "查询F1积分榜",
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)

	// No clients connected; the broadcast must still be consumed.
	require.NoError(t, f.server.HandleResultMessage(data))

	// Malformed payloads are dropped, not requeued.
	require.NoError(t, f.server.HandleResultMessage([]byte("not json")))
}

func intPtr(v int) *int { return &v }
