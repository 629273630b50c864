package sports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sportscast/pkg/cache"
	"sportscast/pkg/model"
)

const ergastBaseURL = "http://ergast.com/api/f1"

// F1Client reads Formula 1 schedules, standings and results from the
// Ergast API.
type F1Client struct {
	api *apiClient
}

func NewF1Client(responseCache cache.Cache) *F1Client {
	return &F1Client{
		api: newAPIClient("ergast", ergastBaseURL, nil, 60, responseCache),
	}
}

// Ergast encodes every numeric field as a string.

type ergastResponse struct {
	MRData struct {
		StandingsTable struct {
			StandingsLists []struct {
				Season          string `json:"season"`
				Round           string `json:"round"`
				DriverStandings []struct {
					Position string `json:"position"`
					Points   string `json:"points"`
					Wins     string `json:"wins"`
					Driver   struct {
						DriverID    string `json:"driverId"`
						Code        string `json:"code"`
						GivenName   string `json:"givenName"`
						FamilyName  string `json:"familyName"`
						Nationality string `json:"nationality"`
					} `json:"Driver"`
					Constructors []struct {
						ConstructorID string `json:"constructorId"`
						Name          string `json:"name"`
						Nationality   string `json:"nationality"`
					} `json:"Constructors"`
				} `json:"DriverStandings"`
				ConstructorStandings []struct {
					Position    string `json:"position"`
					Points      string `json:"points"`
					Wins        string `json:"wins"`
					Constructor struct {
						ConstructorID string `json:"constructorId"`
						Name          string `json:"name"`
						Nationality   string `json:"nationality"`
					} `json:"Constructor"`
				} `json:"ConstructorStandings"`
			} `json:"StandingsLists"`
		} `json:"StandingsTable"`
		RaceTable struct {
			Races []struct {
				Season   string `json:"season"`
				Round    string `json:"round"`
				RaceName string `json:"raceName"`
				Date     string `json:"date"`
				Time     string `json:"time"`
				Circuit  struct {
					CircuitName string `json:"circuitName"`
					Location    struct {
						Locality string `json:"locality"`
						Country  string `json:"country"`
					} `json:"Location"`
				} `json:"Circuit"`
				Results []struct {
					Position string `json:"position"`
					Points   string `json:"points"`
					Grid     string `json:"grid"`
					Laps     string `json:"laps"`
					Status   string `json:"status"`
					Driver   struct {
						GivenName  string `json:"givenName"`
						FamilyName string `json:"familyName"`
					} `json:"Driver"`
					Constructor struct {
						Name string `json:"name"`
					} `json:"Constructor"`
				} `json:"Results"`
			} `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

// CurrentSchedule returns the race calendar of the current season.
func (c *F1Client) CurrentSchedule(ctx context.Context) model.Payload {
	year := time.Now().Year()

	var resp ergastResponse
	if err := c.api.getJSON(ctx, fmt.Sprintf("/%d.json", year), nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	events := make([]map[string]interface{}, 0, len(resp.MRData.RaceTable.Races))
	for _, race := range resp.MRData.RaceTable.Races {
		events = append(events, map[string]interface{}{
			"round_number": safeInt(race.Round),
			"event_name":   race.RaceName,
			"location":     race.Circuit.Location.Locality,
			"country":      race.Circuit.Location.Country,
			"event_date":   race.Date,
		})
	}

	return model.Payload{
		"success":      true,
		"year":         year,
		"total_events": len(events),
		"events":       events,
	}
}

// DriverStandings returns the driver championship table after the most
// recent round of the given season.
func (c *F1Client) DriverStandings(ctx context.Context, year int) model.Payload {
	var resp ergastResponse
	if err := c.api.getJSON(ctx, fmt.Sprintf("/%d/driverStandings.json", year), nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	lists := resp.MRData.StandingsTable.StandingsLists
	drivers := make([]map[string]interface{}, 0)
	if len(lists) > 0 {
		for _, standing := range lists[len(lists)-1].DriverStandings {
			team := ""
			if len(standing.Constructors) > 0 {
				team = standing.Constructors[0].Name
			}
			drivers = append(drivers, map[string]interface{}{
				"position":    safeInt(standing.Position),
				"points":      safeFloat(standing.Points),
				"wins":        safeInt(standing.Wins),
				"driver_id":   standing.Driver.DriverID,
				"driver_code": standing.Driver.Code,
				"driver_name": strings.TrimSpace(standing.Driver.GivenName + " " + standing.Driver.FamilyName),
				"nationality": standing.Driver.Nationality,
				"team_name":   team,
			})
		}
	}

	return model.Payload{
		"success":       true,
		"year":          year,
		"total_drivers": len(drivers),
		"standings":     drivers,
		"source":        "Ergast API",
	}
}

// ConstructorStandings returns the constructor championship table of
// the given season.
func (c *F1Client) ConstructorStandings(ctx context.Context, year int) model.Payload {
	var resp ergastResponse
	if err := c.api.getJSON(ctx, fmt.Sprintf("/%d/constructorStandings.json", year), nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	lists := resp.MRData.StandingsTable.StandingsLists
	teams := make([]map[string]interface{}, 0)
	if len(lists) > 0 {
		for _, standing := range lists[len(lists)-1].ConstructorStandings {
			teams = append(teams, map[string]interface{}{
				"position":    safeInt(standing.Position),
				"points":      safeFloat(standing.Points),
				"wins":        safeInt(standing.Wins),
				"team_id":     standing.Constructor.ConstructorID,
				"team_name":   standing.Constructor.Name,
				"nationality": standing.Constructor.Nationality,
			})
		}
	}

	return model.Payload{
		"success":     true,
		"year":        year,
		"total_teams": len(teams),
		"standings":   teams,
		"source":      "Ergast API",
	}
}

// RaceResults returns the classification of one race.
func (c *F1Client) RaceResults(ctx context.Context, year, round int) model.Payload {
	var resp ergastResponse
	if err := c.api.getJSON(ctx, fmt.Sprintf("/%d/%d/results.json", year, round), nil, &resp); err != nil {
		return model.Failure(err.Error())
	}

	races := resp.MRData.RaceTable.Races
	if len(races) == 0 {
		return model.Failure(fmt.Sprintf("no results for %d round %d", year, round))
	}

	race := races[0]
	results := make([]map[string]interface{}, 0, len(race.Results))
	for _, r := range race.Results {
		results = append(results, map[string]interface{}{
			"position":    safeInt(r.Position),
			"points":      safeFloat(r.Points),
			"grid":        safeInt(r.Grid),
			"laps":        safeInt(r.Laps),
			"status":      r.Status,
			"driver_name": strings.TrimSpace(r.Driver.GivenName + " " + r.Driver.FamilyName),
			"team_name":   r.Constructor.Name,
		})
	}

	return model.Payload{
		"success":   true,
		"year":      year,
		"round":     round,
		"race_name": race.RaceName,
		"circuit":   race.Circuit.CircuitName,
		"date":      race.Date,
		"results":   results,
	}
}

func safeInt(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func safeFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}
