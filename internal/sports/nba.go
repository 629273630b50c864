package sports

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sportscast/pkg/cache"
	"sportscast/pkg/model"
)

const (
	espnBaseURL     = "https://site.api.espn.com/apis/site/v2/sports/basketball/nba"
	nbaStatsBaseURL = "https://stats.nba.com/stats"
)

// nbaStatsHeaders mimic a browser session, stats.nba.com rejects bare
// clients.
var nbaStatsHeaders = map[string]string{
	"User-Agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	"Referer":            "https://www.nba.com/",
	"x-nba-stats-origin": "stats",
	"x-nba-stats-token":  "true",
}

// NBAClient reads team and game data from the ESPN site API and per
// player statistics from stats.nba.com.
type NBAClient struct {
	espn  *apiClient
	stats *apiClient
}

func NewNBAClient(responseCache cache.Cache) *NBAClient {
	return &NBAClient{
		espn:  newAPIClient("espn", espnBaseURL, nil, 60, responseCache),
		stats: newAPIClient("nba-stats", nbaStatsBaseURL, nbaStatsHeaders, 60, responseCache),
	}
}

type espnTeamInfo struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Abbreviation string `json:"abbreviation"`
	Logo         string `json:"logo"`
}

type espnTeamsResponse struct {
	Sports []struct {
		Leagues []struct {
			Teams []struct {
				Team espnTeamInfo `json:"team"`
			} `json:"teams"`
		} `json:"leagues"`
	} `json:"sports"`
}

type espnStandingsResponse struct {
	Children []struct {
		Name      string `json:"name"`
		Standings struct {
			Entries []struct {
				Team  espnTeamInfo `json:"team"`
				Stats []struct {
					Name  string  `json:"name"`
					Value float64 `json:"value"`
				} `json:"stats"`
			} `json:"entries"`
		} `json:"standings"`
	} `json:"children"`
}

type espnScheduleResponse struct {
	Team   espnTeamInfo `json:"team"`
	Events []struct {
		ID        string `json:"id"`
		Date      string `json:"date"`
		Name      string `json:"name"`
		ShortName string `json:"shortName"`
		Status    struct {
			Period int `json:"period"`
			Type   struct {
				Name      string `json:"name"`
				Detail    string `json:"detail"`
				Completed bool   `json:"completed"`
			} `json:"type"`
		} `json:"status"`
		Competitions []struct {
			Venue struct {
				FullName string `json:"fullName"`
				Address  struct {
					City  string `json:"city"`
					State string `json:"state"`
				} `json:"address"`
			} `json:"venue"`
			Competitors []struct {
				Team     espnTeamInfo `json:"team"`
				HomeAway string       `json:"homeAway"`
				Winner   bool         `json:"winner"`
				Score    struct {
					DisplayValue string `json:"displayValue"`
				} `json:"score"`
			} `json:"competitors"`
		} `json:"competitions"`
	} `json:"events"`
}

type espnRosterResponse struct {
	Team     espnTeamInfo `json:"team"`
	Athletes []struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Position    struct {
			Abbreviation string `json:"abbreviation"`
		} `json:"position"`
		Jersey string `json:"jersey"`
		Height string `json:"displayHeight"`
		Weight string `json:"displayWeight"`
		Age    int    `json:"age"`
	} `json:"athletes"`
}

// nbaStatsResponse is the tabular resultSets shape every stats.nba.com
// endpoint shares.
type nbaStatsResponse struct {
	ResultSets []struct {
		Name    string          `json:"name"`
		Headers []string        `json:"headers"`
		RowSet  [][]interface{} `json:"rowSet"`
	} `json:"resultSets"`
}

func (r *nbaStatsResponse) rows(name string) []map[string]interface{} {
	for _, set := range r.ResultSets {
		if set.Name != name {
			continue
		}
		rows := make([]map[string]interface{}, 0, len(set.RowSet))
		for _, raw := range set.RowSet {
			row := make(map[string]interface{}, len(set.Headers))
			for i, header := range set.Headers {
				if i < len(raw) {
					row[header] = raw[i]
				}
			}
			rows = append(rows, row)
		}
		return rows
	}
	return nil
}

// Teams lists all NBA teams.
func (c *NBAClient) Teams(ctx context.Context) model.Payload {
	var resp espnTeamsResponse
	if err := c.espn.getJSON(ctx, "/teams", nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	teams := make([]map[string]interface{}, 0)
	for _, sport := range resp.Sports {
		for _, league := range sport.Leagues {
			for _, entry := range league.Teams {
				teams = append(teams, map[string]interface{}{
					"id":           entry.Team.ID,
					"full_name":    entry.Team.DisplayName,
					"abbreviation": entry.Team.Abbreviation,
					"nickname":     entry.Team.Name,
					"city":         entry.Team.Location,
					"logo":         entry.Team.Logo,
				})
			}
		}
	}

	return model.Payload{
		"success":     true,
		"source":      "ESPN_API",
		"total_count": len(teams),
		"teams":       teams,
	}
}

// LeagueStandings returns the conference standings.
func (c *NBAClient) LeagueStandings(ctx context.Context) model.Payload {
	var resp espnStandingsResponse
	if err := c.espn.getJSON(ctx, "/standings", nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	standings := make([]map[string]interface{}, 0)
	for _, conference := range resp.Children {
		for _, entry := range conference.Standings.Entries {
			var wins, losses, winPct float64
			for _, stat := range entry.Stats {
				switch stat.Name {
				case "wins":
					wins = stat.Value
				case "losses":
					losses = stat.Value
				case "winPercent":
					winPct = stat.Value
				}
			}
			standings = append(standings, map[string]interface{}{
				"team_id":        entry.Team.ID,
				"team_name":      entry.Team.DisplayName,
				"conference":     conference.Name,
				"wins":           int(wins),
				"losses":         int(losses),
				"win_percentage": winPct,
			})
		}
	}

	return model.Payload{
		"success":   true,
		"source":    "ESPN_API",
		"standings": standings,
	}
}

// TeamSchedule returns the schedule of one team, resolved by name in
// any supported format.
func (c *NBAClient) TeamSchedule(ctx context.Context, teamName string) model.Payload {
	team, err := lookupNBATeam(teamName)
	if err != nil {
		return model.Failure(err.Error())
	}

	var resp espnScheduleResponse
	if err := c.espn.getJSON(ctx, fmt.Sprintf("/teams/%d/schedule", team.ESPNID), nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	games := make([]map[string]interface{}, 0, len(resp.Events))
	for _, event := range resp.Events {
		game := map[string]interface{}{
			"id":         event.ID,
			"date":       event.Date,
			"name":       event.Name,
			"short_name": event.ShortName,
			"status": map[string]interface{}{
				"period":    event.Status.Period,
				"type":      event.Status.Type.Name,
				"detail":    event.Status.Type.Detail,
				"completed": event.Status.Type.Completed,
			},
		}

		teams := make([]map[string]interface{}, 0, 2)
		if len(event.Competitions) > 0 {
			competition := event.Competitions[0]
			game["venue"] = map[string]interface{}{
				"name":  competition.Venue.FullName,
				"city":  competition.Venue.Address.City,
				"state": competition.Venue.Address.State,
			}
			for _, competitor := range competition.Competitors {
				teams = append(teams, map[string]interface{}{
					"id":           competitor.Team.ID,
					"name":         competitor.Team.DisplayName,
					"abbreviation": competitor.Team.Abbreviation,
					"score":        competitor.Score.DisplayValue,
					"home_away":    competitor.HomeAway,
					"winner":       competitor.Winner,
				})
			}
		}
		game["teams"] = teams
		games = append(games, game)
	}

	return model.Payload{
		"success": true,
		"source":  "ESPN_API",
		"team": map[string]interface{}{
			"id":           resp.Team.ID,
			"name":         resp.Team.DisplayName,
			"abbreviation": resp.Team.Abbreviation,
		},
		"queried_team": map[string]interface{}{
			"input_name": teamName,
			"espn_id":    team.ESPNID,
			"full_name":  team.FullName,
		},
		"total_count": len(games),
		"schedule":    games,
	}
}

// TeamPlayers returns the roster of one team.
func (c *NBAClient) TeamPlayers(ctx context.Context, teamName string) model.Payload {
	team, err := lookupNBATeam(teamName)
	if err != nil {
		return model.Failure(err.Error())
	}

	var resp espnRosterResponse
	if err := c.espn.getJSON(ctx, fmt.Sprintf("/teams/%d/roster", team.ESPNID), nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	players := make([]map[string]interface{}, 0, len(resp.Athletes))
	for _, athlete := range resp.Athletes {
		players = append(players, map[string]interface{}{
			"id":       athlete.ID,
			"name":     athlete.DisplayName,
			"position": athlete.Position.Abbreviation,
			"jersey":   athlete.Jersey,
			"height":   athlete.Height,
			"weight":   athlete.Weight,
			"age":      athlete.Age,
		})
	}

	return model.Payload{
		"success":     true,
		"source":      "ESPN_API",
		"team_name":   team.FullName,
		"total_count": len(players),
		"players":     players,
	}
}

// PlayerStats looks a player up by name on stats.nba.com and returns
// their per game career averages. Season is optional, formatted like
// "2023-24".
func (c *NBAClient) PlayerStats(ctx context.Context, playerName string, season string) model.Payload {
	playerID, fullName, err := c.findPlayer(ctx, playerName)
	if err != nil {
		return model.Failure(err.Error())
	}

	query := url.Values{}
	query.Set("PlayerID", playerID)
	query.Set("PerMode", "PerGame")

	var resp nbaStatsResponse
	if err := c.stats.getJSON(ctx, "/playercareerstats", query, &resp); err != nil {
		return model.Failure(err.Error())
	}

	seasons := resp.rows("SeasonTotalsRegularSeason")
	if season != "" {
		filtered := seasons[:0]
		for _, row := range seasons {
			if id, _ := row["SEASON_ID"].(string); id == season {
				filtered = append(filtered, row)
			}
		}
		seasons = filtered
	}

	return model.Payload{
		"success": true,
		"source":  "stats.nba.com",
		"player_info": map[string]interface{}{
			"id":        playerID,
			"full_name": fullName,
		},
		"season":  season,
		"seasons": seasons,
		"career":  resp.rows("CareerTotalsRegularSeason"),
	}
}

// findPlayer resolves a player name to the stats.nba.com player ID,
// falling back to a case insensitive substring match.
func (c *NBAClient) findPlayer(ctx context.Context, name string) (string, string, error) {
	query := url.Values{}
	query.Set("LeagueID", "00")
	query.Set("IsOnlyCurrentSeason", "1")
	query.Set("Season", currentNBASeason())

	var resp nbaStatsResponse
	if err := c.stats.getJSON(ctx, "/commonallplayers", query, &resp); err != nil {
		return "", "", err
	}

	needle := strings.ToLower(name)
	for _, row := range resp.rows("CommonAllPlayers") {
		fullName, _ := row["DISPLAY_FIRST_LAST"].(string)
		if strings.Contains(strings.ToLower(fullName), needle) {
			id, _ := row["PERSON_ID"].(float64)
			return fmt.Sprintf("%.0f", id), fullName, nil
		}
	}
	return "", "", fmt.Errorf("player %q not found", name)
}

// currentNBASeason formats the running season, which spans the year
// boundary, as "2025-26".
func currentNBASeason() string {
	now := time.Now()
	start := now.Year()
	if now.Month() < time.October {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}
