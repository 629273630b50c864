package intent

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

func TestMain(m *testing.M) {
	if err := logger.Init(true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestParser_DomainAndIntent(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name       string
		text       string
		domain     model.Domain
		intent     model.Intent
		confidence float64
	}{
		{
			name:       "f1 driver standings",
			text:       "查询f1车手积分榜",
			domain:     model.DomainMotorsport,
			intent:     model.IntentStandings,
			confidence: 0.9,
		},
		{
			name:       "f1 constructor standings",
			text:       "f1车队积分榜",
			domain:     model.DomainMotorsport,
			intent:     model.IntentTeams,
			confidence: 0.9,
		},
		{
			name:       "premier league table",
			text:       "英超积分榜",
			domain:     model.DomainFootball,
			intent:     model.IntentStandings,
			confidence: 1.0,
		},
		{
			name:       "lakers schedule",
			text:       "湖人队的赛程",
			domain:     model.DomainBasketball,
			intent:     model.IntentSchedule,
			confidence: 1.0,
		},
		{
			name:       "football today",
			text:       "今天的足球比赛",
			domain:     model.DomainFootball,
			intent:     model.IntentToday,
			confidence: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := p.Parse(tt.text)
			assert.Equal(t, tt.domain, desc.Domain)
			assert.Equal(t, tt.intent, desc.Intent)
			assert.InDelta(t, tt.confidence, desc.Confidence, 0.001)
		})
	}
}

func TestParser_Unrecognized(t *testing.T) {
	p := NewParser()

	desc := p.Parse("随便说点什么")
	assert.Empty(t, desc.Domain)
	assert.Empty(t, desc.Intent)
	assert.True(t, desc.Params.Empty())
	assert.Zero(t, desc.Confidence)
	assert.Equal(t, "随便说点什么", desc.OriginalText)
}

func TestParser_PlayerOverride(t *testing.T) {
	p := NewParser()

	desc := p.Parse("库里的场均得分")
	assert.Equal(t, model.DomainBasketball, desc.Domain)
	assert.Equal(t, model.IntentPlayerStats, desc.Intent)
	assert.Equal(t, "Stephen Curry", desc.Params.Player)
	// 0.3 domain + 0.8 override floor is superseded by the override,
	// then 0.4 for the extracted player.
	assert.InDelta(t, 1.2, desc.Confidence, 0.001)

	desc = p.Parse("詹姆斯在哪个球队")
	assert.Equal(t, model.DomainBasketball, desc.Domain)
	assert.Equal(t, model.IntentPlayers, desc.Intent)
	assert.Equal(t, "LeBron James", desc.Params.Player)
}

func TestParser_TopScorerOverride(t *testing.T) {
	p := NewParser()

	desc := p.Parse("西甲进球最多的球员")
	assert.Equal(t, model.DomainFootball, desc.Domain)
	assert.Equal(t, model.IntentTopScorers, desc.Intent)
	require.NotNil(t, desc.Params.LeagueID)
	assert.Equal(t, 2014, *desc.Params.LeagueID)
}

func TestParser_ExtractYearAndRound(t *testing.T) {
	p := NewParser()

	desc := p.Parse("2023年f1比赛结果")
	assert.Equal(t, model.DomainMotorsport, desc.Domain)
	assert.Equal(t, model.IntentResults, desc.Intent)
	require.NotNil(t, desc.Params.Year)
	assert.Equal(t, 2023, *desc.Params.Year)

	desc = p.Parse("2023年f1第5轮比赛结果")
	require.NotNil(t, desc.Params.Round)
	assert.Equal(t, 5, *desc.Params.Round)
}

func TestParser_LeagueAliases(t *testing.T) {
	p := NewParser()

	leagues := map[string]int{
		"英超": 2021,
		"西甲": 2014,
		"德甲": 2002,
		"意甲": 2019,
		"法甲": 2015,
	}
	for cn, id := range leagues {
		desc := p.Parse(cn + "积分榜")
		require.NotNil(t, desc.Params.LeagueID, cn)
		assert.Equal(t, id, *desc.Params.LeagueID, cn)
	}
}

func TestParser_TeamAliases(t *testing.T) {
	p := NewParser()

	for _, text := range []string{"湖人的赛程", "湖人队的赛程", "洛杉矶湖人的赛程"} {
		desc := p.Parse(text)
		assert.Equal(t, "Lakers", desc.Params.Team, text)
	}

	desc := p.Parse("勇士队的球员名单")
	assert.Equal(t, model.DomainBasketball, desc.Domain)
	assert.Equal(t, model.IntentPlayers, desc.Intent)
	assert.Equal(t, "Warriors", desc.Params.Team)
}

func TestParser_CaseAndWhitespace(t *testing.T) {
	p := NewParser()

	desc := p.Parse("  F1车手积分榜  ")
	assert.Equal(t, model.DomainMotorsport, desc.Domain)
	assert.Equal(t, "f1车手积分榜", desc.OriginalText)
}
