package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/cache"
	"github.com/pable/rinkstats/internal/leaderboard"
	"github.com/pable/rinkstats/internal/model"
	"github.com/pable/rinkstats/internal/notify"
)

// fakeEngine records the arguments of the last call.
type fakeEngine struct {
	err         error
	lastOpts    model.FilterOptions
	lastLB      leaderboard.Options
	lastCompare []string
	invalidated []string
}

func (f *fakeEngine) GetPlayerStats(_ context.Context, playerID, teamID, season string, opts model.FilterOptions) (model.PlayerStatsComplete, error) {
	f.lastOpts = opts
	if f.err != nil {
		return model.PlayerStatsComplete{}, f.err
	}
	return model.PlayerStatsComplete{
		Player: model.Player{ID: playerID},
		Base:   model.BasePlayerStats{PlayerID: playerID, TeamID: teamID, Season: season, Goals: 3},
	}, nil
}

func (f *fakeEngine) GetTeamStats(_ context.Context, teamID, season string) (model.TeamStats, error) {
	if f.err != nil {
		return model.TeamStats{}, f.err
	}
	return model.TeamStats{TeamID: teamID, Season: season, GoalsFor: 10}, nil
}

func (f *fakeEngine) GetGameStats(_ context.Context, teamID, _, gameID string) (model.GameSummary, error) {
	if f.err != nil {
		return model.GameSummary{}, f.err
	}
	return model.GameSummary{Game: model.GameResult{ID: gameID}, TeamID: teamID}, nil
}

func (f *fakeEngine) CreateLeaderboard(_ context.Context, teamID, season, category string, opts leaderboard.Options) (leaderboard.Leaderboard, error) {
	f.lastLB = opts
	if f.err != nil {
		return leaderboard.Leaderboard{}, f.err
	}
	return leaderboard.Leaderboard{TeamID: teamID, Season: season, Category: category}, nil
}

func (f *fakeEngine) ComparePlayersDetailed(_ context.Context, playerIDs []string, _, _ string, _ []string) (leaderboard.Comparison, error) {
	f.lastCompare = playerIDs
	if f.err != nil {
		return leaderboard.Comparison{}, f.err
	}
	return leaderboard.Comparison{PlayerIDs: playerIDs}, nil
}

func (f *fakeEngine) Invalidate(_, _, gameID string, playerIDs []string) int {
	f.invalidated = append([]string{gameID}, playerIDs...)
	return 4
}

func (f *fakeEngine) LeaderboardOptions() leaderboard.Options {
	return leaderboard.Options{MinGamesPlayed: 5}
}

func (f *fakeEngine) CacheStats() cache.Stats { return cache.Stats{Capacity: 10} }

type fakePlayers struct{}

func (fakePlayers) PlayersInGame(context.Context, string) ([]string, error) {
	return []string{"p1", "p2"}, nil
}

type fakePublisher struct{ got []notify.Notice }

func (p *fakePublisher) Publish(_ context.Context, n notify.Notice) error {
	p.got = append(p.got, n)
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const base = "/api/v1/teams/TOR/seasons/2024-25"

func TestHealthAndMetrics(t *testing.T) {
	s := NewServer(&fakeEngine{}, Options{})

	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("unexpected body: %v", body)
	}

	if rec := do(t, s, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
}

func TestPlayerStats(t *testing.T) {
	eng := &fakeEngine{}
	s := NewServer(eng, Options{})

	rec := do(t, s, http.MethodGet, base+"/players/p1?from=2024-10-01&to=2024-10-31&strength=powerplay&venue=home&opponent=BOS&opponent=MTL", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var got model.PlayerStatsComplete
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Base.Goals != 3 || got.Base.TeamID != "TOR" {
		t.Errorf("unexpected body: %+v", got.Base)
	}

	o := eng.lastOpts
	if o.Strength != model.SituationPowerPlay || o.Venue != model.VenueHome || len(o.Opponents) != 2 {
		t.Errorf("unexpected options: %+v", o)
	}
	if o.DateRange == nil || !o.DateRange.Contains(time.Date(2024, 10, 31, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("date range should include the whole last day: %+v", o.DateRange)
	}
}

func TestPlayerStats_BadQuery(t *testing.T) {
	s := NewServer(&fakeEngine{}, Options{})
	for _, q := range []string{"?from=yesterday", "?strength=4on3", "?from=2024-10-05&to=2024-10-01"} {
		rec := do(t, s, http.MethodGet, base+"/players/p1"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.NotFound("player p9 not found"), http.StatusNotFound, "not_found"},
		{apperr.Validation("bad"), http.StatusBadRequest, "validation"},
		{apperr.Wrap(apperr.CodeTimeout, "aggregate", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{apperr.Computation("inconsistent"), http.StatusInternalServerError, "computation"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, c := range cases {
		s := NewServer(&fakeEngine{err: c.err}, Options{})
		rec := do(t, s, http.MethodGet, base, "")
		if rec.Code != c.status {
			t.Errorf("%v: status = %d, want %d", c.err, rec.Code, c.status)
			continue
		}
		var body ErrorResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Code != c.code {
			t.Errorf("%v: code = %q, want %q", c.err, body.Code, c.code)
		}
		if c.status == http.StatusInternalServerError && strings.Contains(body.Message, "fire") {
			t.Errorf("internal error details leaked: %q", body.Message)
		}
	}
}

func TestLeaderboardParams(t *testing.T) {
	eng := &fakeEngine{}
	s := NewServer(eng, Options{})

	rec := do(t, s, http.MethodGet, base+"/leaderboards/points?position=F&limit=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if eng.lastLB.Position != "F" || eng.lastLB.Limit != 3 || eng.lastLB.MinGamesPlayed != 5 {
		t.Errorf("unexpected options: %+v", eng.lastLB)
	}

	do(t, s, http.MethodGet, base+"/leaderboards/points?minGames=0", "")
	if eng.lastLB.MinGamesPlayed != 0 {
		t.Errorf("explicit minGames=0 should override default, got %d", eng.lastLB.MinGamesPlayed)
	}

	if rec := do(t, s, http.MethodGet, base+"/leaderboards/points?limit=ten", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCompare(t *testing.T) {
	eng := &fakeEngine{}
	s := NewServer(eng, Options{})

	rec := do(t, s, http.MethodPost, base+"/compare", `{"playerIds":["p1","p2"],"categories":["goals"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(eng.lastCompare) != 2 {
		t.Errorf("lastCompare = %v", eng.lastCompare)
	}
	if rec := do(t, s, http.MethodPost, base+"/compare", `{"playerIds":`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestInvalidate(t *testing.T) {
	eng := &fakeEngine{}
	pub := &fakePublisher{}
	s := NewServer(eng, Options{Players: fakePlayers{}, Publisher: pub})

	rec := do(t, s, http.MethodPost, base+"/games/g7/invalidate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(eng.invalidated) != 3 || eng.invalidated[0] != "g7" {
		t.Errorf("invalidated = %v, want game plus looked-up players", eng.invalidated)
	}
	if len(pub.got) != 1 || pub.got[0].GameID != "g7" || pub.got[0].TeamID != "TOR" {
		t.Errorf("published = %+v", pub.got)
	}

	do(t, s, http.MethodPost, base+"/games/g8/invalidate", `{"playerIds":["p9"]}`)
	if len(eng.invalidated) != 2 || eng.invalidated[1] != "p9" {
		t.Errorf("explicit players should be used, got %v", eng.invalidated)
	}
}
