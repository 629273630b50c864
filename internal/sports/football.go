package sports

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"sportscast/pkg/cache"
	"sportscast/pkg/model"
)

const footballBaseURL = "https://api.football-data.org/v4"

// FootballClient reads matches, standings and scorer tables from the
// football-data.org v4 API. The free tier only serves the current
// season, so historic season requests are rejected up front.
type FootballClient struct {
	api *apiClient
}

func NewFootballClient(token string, responseCache cache.Cache) *FootballClient {
	headers := map[string]string{"X-Auth-Token": token}
	return &FootballClient{
		api: newAPIClient("football-data", footballBaseURL, headers, 10, responseCache),
	}
}

type fdTeam struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
}

type fdCompetition struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
	Type string `json:"type"`
}

type fdSeason struct {
	ID              int    `json:"id"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	CurrentMatchday int    `json:"currentMatchday"`
}

type fdScore struct {
	Winner   string `json:"winner"`
	Duration string `json:"duration"`
	FullTime struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"fullTime"`
	HalfTime struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"halfTime"`
}

type fdMatchesResponse struct {
	Matches []struct {
		ID          int           `json:"id"`
		UTCDate     string        `json:"utcDate"`
		Status      string        `json:"status"`
		Matchday    int           `json:"matchday"`
		Stage       string        `json:"stage"`
		HomeTeam    fdTeam        `json:"homeTeam"`
		AwayTeam    fdTeam        `json:"awayTeam"`
		Score       fdScore       `json:"score"`
		Competition fdCompetition `json:"competition"`
	} `json:"matches"`
}

type fdStandingsResponse struct {
	Competition fdCompetition `json:"competition"`
	Season      fdSeason      `json:"season"`
	Standings   []struct {
		Stage string `json:"stage"`
		Type  string `json:"type"`
		Table []struct {
			Position       int    `json:"position"`
			Team           fdTeam `json:"team"`
			PlayedGames    int    `json:"playedGames"`
			Form           string `json:"form"`
			Won            int    `json:"won"`
			Draw           int    `json:"draw"`
			Lost           int    `json:"lost"`
			Points         int    `json:"points"`
			GoalsFor       int    `json:"goalsFor"`
			GoalsAgainst   int    `json:"goalsAgainst"`
			GoalDifference int    `json:"goalDifference"`
		} `json:"table"`
	} `json:"standings"`
}

type fdScorersResponse struct {
	Competition fdCompetition `json:"competition"`
	Season      fdSeason      `json:"season"`
	Scorers     []struct {
		Player struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Nationality string `json:"nationality"`
			Position    string `json:"position"`
		} `json:"player"`
		Team      fdTeam `json:"team"`
		Goals     int    `json:"goals"`
		Assists   *int   `json:"assists"`
		Penalties *int   `json:"penalties"`
	} `json:"scorers"`
}

func (c *FootballClient) matches(ctx context.Context, query url.Values) model.Payload {
	var resp fdMatchesResponse
	if err := c.api.getJSON(ctx, "/matches", query, &resp); err != nil {
		return model.Failure(err.Error())
	}

	matches := make([]map[string]interface{}, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, map[string]interface{}{
			"id":       m.ID,
			"utc_date": m.UTCDate,
			"status":   m.Status,
			"matchday": m.Matchday,
			"stage":    m.Stage,
			"home_team": map[string]interface{}{
				"id":         m.HomeTeam.ID,
				"name":       m.HomeTeam.Name,
				"short_name": m.HomeTeam.ShortName,
				"tla":        m.HomeTeam.TLA,
			},
			"away_team": map[string]interface{}{
				"id":         m.AwayTeam.ID,
				"name":       m.AwayTeam.Name,
				"short_name": m.AwayTeam.ShortName,
				"tla":        m.AwayTeam.TLA,
			},
			"score": map[string]interface{}{
				"winner":    m.Score.Winner,
				"full_time": map[string]interface{}{"home": m.Score.FullTime.Home, "away": m.Score.FullTime.Away},
				"half_time": map[string]interface{}{"home": m.Score.HalfTime.Home, "away": m.Score.HalfTime.Away},
			},
			"competition": map[string]interface{}{
				"id":   m.Competition.ID,
				"name": m.Competition.Name,
				"code": m.Competition.Code,
			},
		})
	}

	return model.Payload{
		"success":     true,
		"total_count": len(matches),
		"matches":     matches,
	}
}

// TodayMatches returns all matches played today across competitions.
func (c *FootballClient) TodayMatches(ctx context.Context) model.Payload {
	today := time.Now().Format("2006-01-02")
	query := url.Values{}
	query.Set("dateFrom", today)
	query.Set("dateTo", today)
	return c.matches(ctx, query)
}

// LiveMatches returns matches currently in play.
func (c *FootballClient) LiveMatches(ctx context.Context) model.Payload {
	query := url.Values{}
	query.Set("status", "IN_PLAY")
	return c.matches(ctx, query)
}

// Standings returns the current league table of one competition.
// Season is accepted for symmetry but only the current season is
// available on the free tier.
func (c *FootballClient) Standings(ctx context.Context, leagueID int, season *int) model.Payload {
	if payload, ok := rejectHistoricSeason(season); ok {
		return payload
	}

	var resp fdStandingsResponse
	if err := c.api.getJSON(ctx, fmt.Sprintf("/competitions/%d/standings", leagueID), nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	standings := make([]map[string]interface{}, 0, len(resp.Standings))
	for _, standing := range resp.Standings {
		table := make([]map[string]interface{}, 0, len(standing.Table))
		for _, entry := range standing.Table {
			table = append(table, map[string]interface{}{
				"position": entry.Position,
				"team": map[string]interface{}{
					"id":         entry.Team.ID,
					"name":       entry.Team.Name,
					"short_name": entry.Team.ShortName,
					"tla":        entry.Team.TLA,
				},
				"played_games":    entry.PlayedGames,
				"form":            entry.Form,
				"won":             entry.Won,
				"draw":            entry.Draw,
				"lost":            entry.Lost,
				"points":          entry.Points,
				"goals_for":       entry.GoalsFor,
				"goals_against":   entry.GoalsAgainst,
				"goal_difference": entry.GoalDifference,
			})
		}
		standings = append(standings, map[string]interface{}{
			"stage": standing.Stage,
			"type":  standing.Type,
			"table": table,
		})
	}

	return model.Payload{
		"success": true,
		"competition": map[string]interface{}{
			"id":   resp.Competition.ID,
			"name": resp.Competition.Name,
			"code": resp.Competition.Code,
		},
		"season": map[string]interface{}{
			"id":               resp.Season.ID,
			"start_date":       resp.Season.StartDate,
			"end_date":         resp.Season.EndDate,
			"current_matchday": resp.Season.CurrentMatchday,
		},
		"standings": standings,
	}
}

// TopScorers returns the scorer table of one competition.
func (c *FootballClient) TopScorers(ctx context.Context, leagueID int, season *int) model.Payload {
	if payload, ok := rejectHistoricSeason(season); ok {
		return payload
	}

	var resp fdScorersResponse
	if err := c.api.getJSON(ctx, fmt.Sprintf("/competitions/%d/scorers", leagueID), nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	scorers := make([]map[string]interface{}, 0, len(resp.Scorers))
	for _, s := range resp.Scorers {
		scorers = append(scorers, map[string]interface{}{
			"player": map[string]interface{}{
				"id":          s.Player.ID,
				"name":        s.Player.Name,
				"nationality": s.Player.Nationality,
				"position":    s.Player.Position,
			},
			"team": map[string]interface{}{
				"id":         s.Team.ID,
				"name":       s.Team.Name,
				"short_name": s.Team.ShortName,
				"tla":        s.Team.TLA,
			},
			"goals":     s.Goals,
			"assists":   s.Assists,
			"penalties": s.Penalties,
		})
	}

	return model.Payload{
		"success":     true,
		"total_count": len(scorers),
		"scorers":     scorers,
	}
}

// rejectHistoricSeason reports whether the requested season is outside
// the free tier and returns the explanatory payload when it is.
func rejectHistoricSeason(season *int) (model.Payload, bool) {
	if season == nil || *season == time.Now().Year() {
		return nil, false
	}
	return model.Payload{
		"success":    false,
		"error":      "historic season data requires a paid subscription, only the current season is available",
		"suggestion": "query the current season or upgrade the subscription",
	}, true
}
