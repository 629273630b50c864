package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sportscast/internal/querycache"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

func TestMain(m *testing.M) {
	if err := logger.Init(true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type MockF1API struct {
	mock.Mock
}

func (m *MockF1API) CurrentSchedule(ctx context.Context) model.Payload {
	args := m.Called(ctx)
	return args.Get(0).(model.Payload)
}

func (m *MockF1API) DriverStandings(ctx context.Context, year int) model.Payload {
	args := m.Called(ctx, year)
	return args.Get(0).(model.Payload)
}

func (m *MockF1API) ConstructorStandings(ctx context.Context, year int) model.Payload {
	args := m.Called(ctx, year)
	return args.Get(0).(model.Payload)
}

func (m *MockF1API) RaceResults(ctx context.Context, year, round int) model.Payload {
	args := m.Called(ctx, year, round)
	return args.Get(0).(model.Payload)
}

type MockFootballAPI struct {
	mock.Mock
}

func (m *MockFootballAPI) TodayMatches(ctx context.Context) model.Payload {
	args := m.Called(ctx)
	return args.Get(0).(model.Payload)
}

func (m *MockFootballAPI) LiveMatches(ctx context.Context) model.Payload {
	args := m.Called(ctx)
	return args.Get(0).(model.Payload)
}

func (m *MockFootballAPI) Standings(ctx context.Context, leagueID int, season *int) model.Payload {
	args := m.Called(ctx, leagueID, season)
	return args.Get(0).(model.Payload)
}

func (m *MockFootballAPI) TopScorers(ctx context.Context, leagueID int, season *int) model.Payload {
	args := m.Called(ctx, leagueID, season)
	return args.Get(0).(model.Payload)
}

type MockNBAAPI struct {
	mock.Mock
}

func (m *MockNBAAPI) Teams(ctx context.Context) model.Payload {
	args := m.Called(ctx)
	return args.Get(0).(model.Payload)
}

func (m *MockNBAAPI) LeagueStandings(ctx context.Context) model.Payload {
	args := m.Called(ctx)
	return args.Get(0).(model.Payload)
}

func (m *MockNBAAPI) TeamSchedule(ctx context.Context, teamName string) model.Payload {
	args := m.Called(ctx, teamName)
	return args.Get(0).(model.Payload)
}

func (m *MockNBAAPI) TeamPlayers(ctx context.Context, teamName string) model.Payload {
	args := m.Called(ctx, teamName)
	return args.Get(0).(model.Payload)
}

func (m *MockNBAAPI) PlayerStats(ctx context.Context, playerName, season string) model.Payload {
	args := m.Called(ctx, playerName, season)
	return args.Get(0).(model.Payload)
}

func newTestService(t *testing.T) (*Service, *MockF1API, *MockFootballAPI, *MockNBAAPI) {
	t.Helper()
	store := querycache.Open(filepath.Join(t.TempDir(), "query_cache.json"), querycache.DefaultMaxAge)
	f1 := new(MockF1API)
	football := new(MockFootballAPI)
	nba := new(MockNBAAPI)
	return New(store, f1, football, nba), f1, football, nba
}

func TestService_RejectsLowConfidence(t *testing.T) {
	svc, f1, football, nba := newTestService(t)

	resp := svc.ProcessText(context.Background(), "随便说点什么")
	assert.False(t, resp.Success)
	assert.Equal(t, "无法理解查询意图", resp.Error)
	assert.NotEmpty(t, resp.Suggestion)

	// Nothing is fetched and nothing is cached for rejected queries.
	f1.AssertNotCalled(t, "DriverStandings", mock.Anything, mock.Anything)
	football.AssertNotCalled(t, "TodayMatches", mock.Anything)
	nba.AssertNotCalled(t, "Teams", mock.Anything)
	assert.Empty(t, svc.Store().Options(model.DomainFootball, model.IntentStandings))
}

func TestService_IntentWithoutDomain(t *testing.T) {
	svc, f1, football, nba := newTestService(t)

	// "排名" scores an intent and the year scores a parameter, which
	// clears the confidence threshold with no domain recognized. The
	// query is accepted but no client can serve it.
	resp := svc.ProcessText(context.Background(), "排名2023年")
	require.True(t, resp.Success)
	require.NotNil(t, resp.Query)
	assert.Empty(t, resp.Query.Domain)
	assert.Equal(t, model.IntentStandings, resp.Query.Intent)

	assert.False(t, resp.Data.Success())
	assert.Contains(t, resp.Data["error"], "unsupported domain")
	assert.Empty(t, resp.CacheKey)

	f1.AssertNotCalled(t, "DriverStandings", mock.Anything, mock.Anything)
	football.AssertNotCalled(t, "Standings", mock.Anything, mock.Anything, mock.Anything)
	nba.AssertNotCalled(t, "LeagueStandings", mock.Anything)
}

func TestService_F1DriverStandings(t *testing.T) {
	svc, f1, _, _ := newTestService(t)
	ctx := context.Background()

	f1.On("DriverStandings", ctx, 2023).Return(model.Payload{"success": true, "year": 2023})

	resp := svc.ProcessText(ctx, "查询f1车手积分榜")
	require.True(t, resp.Success)
	assert.Equal(t, model.DomainMotorsport, resp.Query.Domain)
	assert.Equal(t, model.IntentStandings, resp.Query.Intent)
	assert.Equal(t, "standings", resp.CacheKey)
	assert.True(t, resp.Data.Success())

	f1.AssertExpectations(t)
}

func TestService_F1YearAndRound(t *testing.T) {
	svc, f1, _, _ := newTestService(t)
	ctx := context.Background()

	f1.On("RaceResults", ctx, 2022, 5).Return(model.Payload{"success": true})

	resp := svc.ProcessText(ctx, "2022年f1第5轮比赛结果")
	require.True(t, resp.Success)
	assert.Equal(t, "results_year_2022_round_5", resp.CacheKey)

	f1.AssertExpectations(t)
}

func TestService_FootballStandingsDefaultLeague(t *testing.T) {
	svc, _, football, _ := newTestService(t)
	ctx := context.Background()

	// No league mentioned: the Premier League is the default.
	football.On("Standings", ctx, 2021, (*int)(nil)).Return(model.Payload{"success": true})

	resp := svc.ProcessText(ctx, "足球联赛排名")
	require.True(t, resp.Success)

	football.AssertExpectations(t)
}

func TestService_BasketballScheduleDefaultTeam(t *testing.T) {
	svc, _, _, nba := newTestService(t)
	ctx := context.Background()

	nba.On("TeamSchedule", ctx, "Warriors").Return(model.Payload{"success": true})

	resp := svc.ProcessText(ctx, "勇士队的赛程")
	require.True(t, resp.Success)
	assert.Equal(t, "schedule_team_Warriors", resp.CacheKey)

	nba.AssertExpectations(t)
}

func TestService_PlayerStatsSeasonFormat(t *testing.T) {
	svc, _, _, nba := newTestService(t)
	ctx := context.Background()

	nba.On("PlayerStats", ctx, "Stephen Curry", "2023-24").Return(model.Payload{"success": true})

	resp := svc.ProcessText(ctx, "库里2023年的场均得分数据")
	require.True(t, resp.Success)

	nba.AssertExpectations(t)
}

func TestService_UpstreamFailureStillCached(t *testing.T) {
	svc, f1, _, _ := newTestService(t)
	ctx := context.Background()

	f1.On("DriverStandings", ctx, 2023).Return(model.Failure("upstream down"))

	resp := svc.ProcessText(ctx, "查询f1车手积分榜")
	require.True(t, resp.Success)
	assert.False(t, resp.Data.Success())

	entry, ok := svc.Store().Get(model.DomainMotorsport, resp.CacheKey)
	require.True(t, ok)
	assert.False(t, entry.Success)
}

func TestNBASeasonFormat(t *testing.T) {
	year := 2023
	assert.Equal(t, "2023-24", nbaSeason(&year))

	year = 1999
	assert.Equal(t, "1999-00", nbaSeason(&year))

	assert.Equal(t, "", nbaSeason(nil))
}
