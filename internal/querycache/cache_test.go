package querycache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

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

func openTestStore(t *testing.T) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "query_cache.json"), DefaultMaxAge)
}

func intPtr(v int) *int { return &v }

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name      string
		queryType model.Intent
		params    model.QueryParams
		want      string
	}{
		{
			name:      "no parameters",
			queryType: model.IntentStandings,
			params:    model.QueryParams{},
			want:      "standings",
		},
		{
			name:      "league only",
			queryType: model.IntentStandings,
			params:    model.QueryParams{LeagueID: intPtr(2021)},
			want:      "standings_league_id_2021",
		},
		{
			name:      "team only",
			queryType: model.IntentSchedule,
			params:    model.QueryParams{Team: "Lakers"},
			want:      "schedule_team_Lakers",
		},
		{
			name:      "fixed parameter order",
			queryType: model.IntentResults,
			params: model.QueryParams{
				Round:    intPtr(5),
				Year:     intPtr(2023),
				Team:     "Warriors",
				LeagueID: intPtr(2021),
			},
			want: "results_league_id_2021_team_Warriors_year_2023_round_5",
		},
		{
			name:      "player is not part of the key",
			queryType: model.IntentPlayerStats,
			params:    model.QueryParams{Player: "Stephen Curry"},
			want:      "player_stats",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildKey(tt.queryType, tt.params))
		})
	}
}

func TestStore_PutAndGet(t *testing.T) {
	store := openTestStore(t)

	params := model.QueryParams{LeagueID: intPtr(2021)}
	result := model.Payload{"success": true, "data": "table"}

	key, err := store.Put(model.DomainFootball, model.IntentStandings, params, result, "英超积分榜")
	require.NoError(t, err)
	assert.Equal(t, "standings_league_id_2021", key)

	entry, ok := store.Get(model.DomainFootball, key)
	require.True(t, ok)
	assert.Equal(t, model.IntentStandings, entry.QueryType)
	assert.Equal(t, "英超积分榜", entry.OriginalText)
	assert.True(t, entry.Success)

	_, ok = store.Get(model.DomainBasketball, key)
	assert.False(t, ok)
}

func TestStore_PutOverwritesSameKey(t *testing.T) {
	store := openTestStore(t)

	params := model.QueryParams{Team: "Lakers"}

	_, err := store.Put(model.DomainBasketball, model.IntentSchedule, params,
		model.Payload{"success": false, "error": "timeout"}, "湖人赛程")
	require.NoError(t, err)

	key, err := store.Put(model.DomainBasketball, model.IntentSchedule, params,
		model.Payload{"success": true}, "湖人队的赛程")
	require.NoError(t, err)

	entry, ok := store.Get(model.DomainBasketball, key)
	require.True(t, ok)
	assert.True(t, entry.Success)
	assert.Equal(t, "湖人队的赛程", entry.OriginalText)
}

func TestStore_PutFailureRecorded(t *testing.T) {
	store := openTestStore(t)

	key, err := store.Put(model.DomainMotorsport, model.IntentStandings, model.QueryParams{},
		model.Failure("upstream down"), "f1车手积分榜")
	require.NoError(t, err)

	entry, ok := store.Get(model.DomainMotorsport, key)
	require.True(t, ok)
	assert.False(t, entry.Success)
}

func TestStore_UnknownDomain(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Put(model.Domain("cricket"), model.IntentStandings, model.QueryParams{},
		model.Payload{"success": true}, "text")
	assert.Error(t, err)

	assert.Error(t, store.Clear(model.Domain("cricket")))
}

func TestStore_UnwritablePathStillServes(t *testing.T) {
	// A regular file where the cache directory should be makes every
	// flush fail. The store must keep answering from memory and keep
	// handing out real keys.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := Open(filepath.Join(blocker, "query_cache.json"), DefaultMaxAge)

	key, err := store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2021)},
		model.Payload{"success": true}, "英超积分榜")
	require.NoError(t, err)
	assert.Equal(t, "standings_league_id_2021", key)

	entry, ok := store.Get(model.DomainFootball, key)
	require.True(t, ok)
	assert.True(t, entry.Success)

	require.NoError(t, store.Clear(model.DomainFootball))
	_, ok = store.Get(model.DomainFootball, key)
	assert.False(t, ok)

	require.NoError(t, store.ClearAll())
}

func TestStore_ReloadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_cache.json")

	store := Open(path, DefaultMaxAge)
	key, err := store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2014)}, model.Payload{"success": true}, "西甲积分榜")
	require.NoError(t, err)

	reloaded := Open(path, DefaultMaxAge)
	entry, ok := reloaded.Get(model.DomainFootball, key)
	require.True(t, ok)
	assert.Equal(t, "西甲积分榜", entry.OriginalText)
}

func TestStore_ExpiredEntriesDroppedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_cache.json")

	store := Open(path, DefaultMaxAge)
	freshKey, err := store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2021)}, model.Payload{"success": true}, "英超积分榜")
	require.NoError(t, err)

	// Rewrite the file with one stale and one unparseable timestamp.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	football := doc["football"].(map[string]interface{})
	fresh := football[freshKey].(map[string]interface{})

	stale := map[string]interface{}{}
	for k, v := range fresh {
		stale[k] = v
	}
	stale["timestamp"] = time.Now().Add(-8 * 24 * time.Hour).Format(time.RFC3339Nano)
	football["stale_key"] = stale

	broken := map[string]interface{}{}
	for k, v := range fresh {
		broken[k] = v
	}
	broken["timestamp"] = "not-a-timestamp"
	football["broken_key"] = broken

	raw, err = json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	reloaded := Open(path, DefaultMaxAge)

	_, ok := reloaded.Get(model.DomainFootball, freshKey)
	assert.True(t, ok)
	_, ok = reloaded.Get(model.DomainFootball, "stale_key")
	assert.False(t, ok)
	_, ok = reloaded.Get(model.DomainFootball, "broken_key")
	assert.False(t, ok)
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := Open(path, DefaultMaxAge)
	assert.Empty(t, store.Options(model.DomainFootball, model.IntentStandings))

	// The store must still accept writes afterwards.
	_, err := store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2021)}, model.Payload{"success": true}, "英超积分榜")
	assert.NoError(t, err)
}

func TestStore_Options(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2021)}, model.Payload{"success": true}, "英超积分榜")
	require.NoError(t, err)

	_, err = store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2014)}, model.Payload{"success": true}, "西甲积分榜")
	require.NoError(t, err)

	// Failed results never become options.
	_, err = store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2002)}, model.Failure("boom"), "德甲积分榜")
	require.NoError(t, err)

	// An entry without a league cannot be labelled and is skipped.
	_, err = store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{}, model.Payload{"success": true}, "积分榜")
	require.NoError(t, err)

	options := store.Options(model.DomainFootball, model.IntentStandings)
	require.Len(t, options, 2)

	// Most recent first.
	assert.Equal(t, 2014, options[0].Value)
	assert.Equal(t, "La Liga", options[0].Label)
	assert.Equal(t, 2021, options[1].Value)
	assert.Equal(t, "Premier League", options[1].Label)
}

func TestStore_OptionsBasketballSchedule(t *testing.T) {
	store := openTestStore(t)

	key, err := store.Put(model.DomainBasketball, model.IntentSchedule,
		model.QueryParams{Team: "Lakers"}, model.Payload{"success": true}, "湖人队的赛程")
	require.NoError(t, err)

	options := store.Options(model.DomainBasketball, model.IntentSchedule)
	require.Len(t, options, 1)
	assert.Equal(t, "Lakers", options[0].Value)
	assert.Equal(t, "Lakers schedule", options[0].Label)
	assert.Equal(t, key, options[0].CacheKey)
}

func TestStore_OptionsMotorsportStandings(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Put(model.DomainMotorsport, model.IntentStandings,
		model.QueryParams{Year: intPtr(2023)}, model.Payload{"success": true}, "2023年f1车手积分榜")
	require.NoError(t, err)

	// No year recorded: the label falls back to the current year.
	_, err = store.Put(model.DomainMotorsport, model.IntentStandings,
		model.QueryParams{}, model.Payload{"success": true}, "f1车手积分榜")
	require.NoError(t, err)

	options := store.Options(model.DomainMotorsport, model.IntentStandings)
	require.Len(t, options, 2)

	year := strconv.Itoa(time.Now().Year())
	assert.Equal(t, "f1_"+year, options[0].Value)
	assert.Equal(t, year+" driver standings", options[0].Label)
	assert.Equal(t, "f1_2023", options[1].Value)
	assert.Equal(t, "2023 driver standings", options[1].Label)
}

func TestStore_ClearDomain(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2021)}, model.Payload{"success": true}, "英超积分榜")
	require.NoError(t, err)
	key, err := store.Put(model.DomainBasketball, model.IntentSchedule,
		model.QueryParams{Team: "Lakers"}, model.Payload{"success": true}, "湖人队的赛程")
	require.NoError(t, err)

	require.NoError(t, store.Clear(model.DomainFootball))
	assert.Empty(t, store.Options(model.DomainFootball, model.IntentStandings))

	// Other domains are untouched.
	_, ok := store.Get(model.DomainBasketball, key)
	assert.True(t, ok)

	// Clearing twice leaves the same empty state.
	require.NoError(t, store.Clear(model.DomainFootball))
	assert.Empty(t, store.Options(model.DomainFootball, model.IntentStandings))
}

func TestStore_ClearAll(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Put(model.DomainFootball, model.IntentStandings,
		model.QueryParams{LeagueID: intPtr(2021)}, model.Payload{"success": true}, "英超积分榜")
	require.NoError(t, err)

	require.NoError(t, store.ClearAll())
	for _, domain := range model.Domains {
		snap := store.Snapshot()[string(domain)].(map[string]model.CacheEntry)
		assert.Empty(t, snap, string(domain))
	}
}

func TestLeagueName(t *testing.T) {
	assert.Equal(t, "Premier League", LeagueName(2021))
	assert.Equal(t, "Bundesliga", LeagueName(2002))
	assert.Equal(t, "League 9999", LeagueName(9999))
}
