package sports

import (
	"fmt"
	"strings"
)

type nbaTeam struct {
	ESPNID       int
	FullName     string
	Nickname     string
	Abbreviation string
}

// nbaTeams is the ESPN team ID table. Lookups accept full names,
// nicknames and abbreviations.
var nbaTeams = []nbaTeam{
	{1, "Atlanta Hawks", "Hawks", "ATL"},
	{2, "Boston Celtics", "Celtics", "BOS"},
	{17, "Brooklyn Nets", "Nets", "BKN"},
	{30, "Charlotte Hornets", "Hornets", "CHA"},
	{4, "Chicago Bulls", "Bulls", "CHI"},
	{5, "Cleveland Cavaliers", "Cavaliers", "CLE"},
	{8, "Detroit Pistons", "Pistons", "DET"},
	{11, "Indiana Pacers", "Pacers", "IND"},
	{14, "Miami Heat", "Heat", "MIA"},
	{15, "Milwaukee Bucks", "Bucks", "MIL"},
	{18, "New York Knicks", "Knicks", "NYK"},
	{19, "Orlando Magic", "Magic", "ORL"},
	{20, "Philadelphia 76ers", "76ers", "PHI"},
	{28, "Toronto Raptors", "Raptors", "TOR"},
	{27, "Washington Wizards", "Wizards", "WAS"},
	{7, "Denver Nuggets", "Nuggets", "DEN"},
	{16, "Minnesota Timberwolves", "Timberwolves", "MIN"},
	{25, "Oklahoma City Thunder", "Thunder", "OKC"},
	{22, "Portland Trail Blazers", "Trail Blazers", "POR"},
	{26, "Utah Jazz", "Jazz", "UTA"},
	{9, "Golden State Warriors", "Warriors", "GSW"},
	{12, "Los Angeles Clippers", "Clippers", "LAC"},
	{13, "Los Angeles Lakers", "Lakers", "LAL"},
	{21, "Phoenix Suns", "Suns", "PHX"},
	{23, "Sacramento Kings", "Kings", "SAC"},
	{6, "Dallas Mavericks", "Mavericks", "DAL"},
	{10, "Houston Rockets", "Rockets", "HOU"},
	{29, "Memphis Grizzlies", "Grizzlies", "MEM"},
	{3, "New Orleans Pelicans", "Pelicans", "NOP"},
	{24, "San Antonio Spurs", "Spurs", "SAS"},
}

// lookupNBATeam resolves a team name in any supported format to its
// table entry.
func lookupNBATeam(name string) (nbaTeam, error) {
	needle := strings.TrimSpace(name)
	for _, team := range nbaTeams {
		if strings.EqualFold(needle, team.FullName) ||
			strings.EqualFold(needle, team.Nickname) ||
			strings.EqualFold(needle, team.Abbreviation) {
			return team, nil
		}
	}
	return nbaTeam{}, fmt.Errorf("unknown team %q", name)
}
