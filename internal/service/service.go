// Package service runs the query pipeline: parse the text, fetch the
// data from the right upstream client and store the outcome in the
// result cache.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sportscast/internal/intent"
	"sportscast/internal/querycache"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

// ConfidenceThreshold is the minimum parse confidence for a query to
// be executed at all.
const ConfidenceThreshold = 0.3

const (
	defaultF1Year    = 2023
	defaultF1Round   = 1
	defaultLeagueID  = 2021 // Premier League
	defaultNBATeam   = "Lakers"
	rejectSuggestion = "请尝试说得更清楚，例如：'查询F1积分榜'或'湖人队赛程'"
)

// F1API fetches Formula 1 data.
type F1API interface {
	CurrentSchedule(ctx context.Context) model.Payload
	DriverStandings(ctx context.Context, year int) model.Payload
	ConstructorStandings(ctx context.Context, year int) model.Payload
	RaceResults(ctx context.Context, year, round int) model.Payload
}

// FootballAPI fetches football data.
type FootballAPI interface {
	TodayMatches(ctx context.Context) model.Payload
	LiveMatches(ctx context.Context) model.Payload
	Standings(ctx context.Context, leagueID int, season *int) model.Payload
	TopScorers(ctx context.Context, leagueID int, season *int) model.Payload
}

// NBAAPI fetches basketball data.
type NBAAPI interface {
	Teams(ctx context.Context) model.Payload
	LeagueStandings(ctx context.Context) model.Payload
	TeamSchedule(ctx context.Context, teamName string) model.Payload
	TeamPlayers(ctx context.Context, teamName string) model.Payload
	PlayerStats(ctx context.Context, playerName, season string) model.Payload
}

// QueryResponse is the final answer of one processed query.
type QueryResponse struct {
	Success    bool                   `json:"success"`
	Text       string                 `json:"text"`
	Error      string                 `json:"error,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Query      *model.QueryDescriptor `json:"query_info,omitempty"`
	Data       model.Payload          `json:"data,omitempty"`
	CacheKey   string                 `json:"cache_key,omitempty"`
	Timestamp  string                 `json:"timestamp,omitempty"`
}

// Service executes parsed queries against the sports data clients.
type Service struct {
	parser   *intent.Parser
	store    *querycache.Store
	f1       F1API
	football FootballAPI
	nba      NBAAPI
}

func New(store *querycache.Store, f1 F1API, football FootballAPI, nba NBAAPI) *Service {
	return &Service{
		parser:   intent.NewParser(),
		store:    store,
		f1:       f1,
		football: football,
		nba:      nba,
	}
}

// Parse exposes the parser for callers that only want the descriptor.
func (s *Service) Parse(text string) model.QueryDescriptor {
	return s.parser.Parse(text)
}

// Store exposes the result cache for read side handlers.
func (s *Service) Store() *querycache.Store {
	return s.store
}

// F1, Football and NBA expose the data clients for the direct data
// routes, which bypass parsing and caching.
func (s *Service) F1() F1API             { return s.f1 }
func (s *Service) Football() FootballAPI { return s.football }
func (s *Service) NBA() NBAAPI           { return s.nba }

// ProcessText runs the full pipeline for one query text. Upstream
// failures still produce a response and a cache entry, only a query
// below the confidence threshold is rejected outright.
func (s *Service) ProcessText(ctx context.Context, text string) QueryResponse {
	desc := s.parser.Parse(text)

	if desc.Confidence < ConfidenceThreshold {
		logger.Info("Rejected low confidence query",
			zap.String("text", text),
			zap.Float64("confidence", desc.Confidence))
		return QueryResponse{
			Success:    false,
			Text:       text,
			Error:      "无法理解查询意图",
			Suggestion: rejectSuggestion,
		}
	}

	payload := s.dispatch(ctx, desc)

	cacheKey, err := s.store.Put(desc.Domain, desc.Intent, desc.Params, payload, desc.OriginalText)
	if err != nil {
		logger.Error("Failed to cache query result", zap.Error(err))
	}

	return QueryResponse{
		Success:   true,
		Text:      text,
		Query:     &desc,
		Data:      payload,
		CacheKey:  cacheKey,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}
}

func (s *Service) dispatch(ctx context.Context, desc model.QueryDescriptor) model.Payload {
	logger.Info("Executing query",
		zap.String("domain", string(desc.Domain)),
		zap.String("intent", string(desc.Intent)))

	switch desc.Domain {
	case model.DomainMotorsport:
		return s.queryMotorsport(ctx, desc.Intent, desc.Params)
	case model.DomainFootball:
		return s.queryFootball(ctx, desc.Intent, desc.Params)
	case model.DomainBasketball:
		return s.queryBasketball(ctx, desc.Intent, desc.Params)
	}
	return model.Failure(fmt.Sprintf("unsupported domain: %s", desc.Domain))
}

func (s *Service) queryMotorsport(ctx context.Context, in model.Intent, params model.QueryParams) model.Payload {
	year := defaultF1Year
	if params.Year != nil {
		year = *params.Year
	}

	switch in {
	case model.IntentStandings:
		return s.f1.DriverStandings(ctx, year)
	case model.IntentTeams:
		return s.f1.ConstructorStandings(ctx, year)
	case model.IntentResults:
		round := defaultF1Round
		if params.Round != nil {
			round = *params.Round
		}
		return s.f1.RaceResults(ctx, year, round)
	default:
		return s.f1.CurrentSchedule(ctx)
	}
}

func (s *Service) queryFootball(ctx context.Context, in model.Intent, params model.QueryParams) model.Payload {
	leagueID := defaultLeagueID
	if params.LeagueID != nil {
		leagueID = *params.LeagueID
	}

	switch in {
	case model.IntentStandings:
		return s.football.Standings(ctx, leagueID, params.Year)
	case model.IntentTopScorers:
		return s.football.TopScorers(ctx, leagueID, params.Year)
	case model.IntentLive:
		return s.football.LiveMatches(ctx)
	default:
		// Schedule, today and anything else fall back to today's
		// matches.
		return s.football.TodayMatches(ctx)
	}
}

func (s *Service) queryBasketball(ctx context.Context, in model.Intent, params model.QueryParams) model.Payload {
	switch in {
	case model.IntentTeams:
		return s.nba.Teams(ctx)
	case model.IntentStandings:
		return s.nba.LeagueStandings(ctx)
	case model.IntentSchedule:
		team := defaultNBATeam
		if params.Team != "" {
			team = params.Team
		}
		return s.nba.TeamSchedule(ctx, team)
	case model.IntentPlayers:
		if params.Player != "" {
			return model.Payload{
				"success": true,
				"player":  params.Player,
				"message": fmt.Sprintf("查询球员: %s", params.Player),
			}
		}
		if params.Team != "" {
			return s.nba.TeamPlayers(ctx, params.Team)
		}
		return model.Failure("请指定球队或球员名称")
	case model.IntentPlayerStats:
		if params.Player == "" {
			return model.Failure("请指定球员名称")
		}
		return s.nba.PlayerStats(ctx, params.Player, nbaSeason(params.Year))
	default:
		return s.nba.Teams(ctx)
	}
}

// nbaSeason formats a start year as the "2023-24" season string the
// stats API expects. An absent year means the current season.
func nbaSeason(year *int) string {
	if year == nil {
		return ""
	}
	return fmt.Sprintf("%d-%02d", *year, (*year+1)%100)
}
