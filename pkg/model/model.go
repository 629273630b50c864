package model

// Domain identifies one of the supported sports data categories.
type Domain string

const (
	DomainMotorsport Domain = "motorsport"
	DomainFootball   Domain = "football"
	DomainBasketball Domain = "basketball"
)

// Domains lists all supported domains in their canonical order.
var Domains = []Domain{DomainMotorsport, DomainFootball, DomainBasketball}

// Valid reports whether d is one of the supported domains.
func (d Domain) Valid() bool {
	switch d {
	case DomainMotorsport, DomainFootball, DomainBasketball:
		return true
	}
	return false
}

// Intent is the category of question being asked.
type Intent string

const (
	IntentSchedule    Intent = "schedule"
	IntentStandings   Intent = "standings"
	IntentResults     Intent = "results"
	IntentTeams       Intent = "teams"
	IntentPlayers     Intent = "players"
	IntentToday       Intent = "today"
	IntentLive        Intent = "live"
	IntentTopScorers  Intent = "top_scorers"
	IntentPlayerStats Intent = "player_stats"
)

// QueryParams holds the parameters extracted from a query text.
// A field is considered absent when nil (LeagueID, Year, Round) or
// empty (Team, Player).
type QueryParams struct {
	LeagueID *int   `json:"league_id,omitempty"`
	Team     string `json:"team,omitempty"`
	Player   string `json:"player,omitempty"`
	Year     *int   `json:"year,omitempty"`
	Round    *int   `json:"round,omitempty"`
}

// Empty reports whether no parameter was extracted.
func (p QueryParams) Empty() bool {
	return p.LeagueID == nil && p.Team == "" && p.Player == "" && p.Year == nil && p.Round == nil
}

// QueryDescriptor is the structured result of parsing a query text.
// It is created fresh per parse call and immutable once returned.
type QueryDescriptor struct {
	Domain       Domain      `json:"domain,omitempty"`
	Intent       Intent      `json:"intent,omitempty"`
	Params       QueryParams `json:"parameters"`
	Confidence   float64     `json:"confidence"`
	OriginalText string      `json:"original_text"`
}

// Payload is the opaque result envelope returned by a sports data
// source. The only field the core ever inspects is "success".
type Payload map[string]interface{}

// Success reports whether the payload carries success=true.
func (p Payload) Success() bool {
	ok, _ := p["success"].(bool)
	return ok
}

// Failure builds an error payload in the envelope shape the data
// sources use.
func Failure(msg string) Payload {
	return Payload{"success": false, "error": msg}
}

// CacheEntry is a stored query result, owned by the result cache.
type CacheEntry struct {
	QueryType    Intent      `json:"query_type"`
	Params       QueryParams `json:"parameters"`
	Result       Payload     `json:"result_data"`
	OriginalText string      `json:"original_text"`
	Timestamp    string      `json:"timestamp"`
	Success      bool        `json:"success"`
}

// Option is a presentable summary of one cached, successful result,
// used to populate UI selection controls.
type Option struct {
	Value        interface{} `json:"value"`
	Label        string      `json:"label"`
	CacheKey     string      `json:"cache_key"`
	OriginalText string      `json:"original_text"`
	Timestamp    string      `json:"timestamp"`
}
