package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pable/rinkstats/internal/leaderboard"
	"github.com/pable/rinkstats/internal/model"
)

func TestPrintPlayer(t *testing.T) {
	fo := 55.5
	s := model.PlayerStatsComplete{
		Player:   model.Player{ID: "p1", Name: "Auston", JerseyNumber: 34, Position: model.PositionCenter},
		Base:     model.BasePlayerStats{TeamID: "TOR", Season: "2024-25", GamesPlayed: 2, Goals: 3, Points: 4, PlusMinus: -2},
		Skater:   &model.SkaterStats{TimeOnIceSeconds: 1230},
		Derived:  model.DerivedStats{FaceoffPct: &fo},
		Advanced: &model.AdvancedMetrics{},
	}
	var buf bytes.Buffer
	PrintPlayer(&buf, s)
	out := buf.String()
	for _, want := range []string{"Auston (#34, C)", "-2", "20:30", "55.50%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "SV%") {
		t.Error("skater output should not include goalie columns")
	}
}

func TestPrintGoalie(t *testing.T) {
	s := model.PlayerStatsComplete{
		Player:  model.Player{ID: "g1", Name: "Joseph", Position: model.PositionGoaltender},
		Goalie:  &model.GoalieStats{GamesPlayed: 1, Wins: 1, ShotsAgainst: 30, Saves: 28},
		Derived: model.DerivedStats{SavePct: 93.33},
	}
	var buf bytes.Buffer
	PrintPlayer(&buf, s)
	if !strings.Contains(buf.String(), "93.33%") {
		t.Errorf("missing save percentage:\n%s", buf.String())
	}
}

func TestPrintLeaderboardAndComparison(t *testing.T) {
	lb := leaderboard.Leaderboard{
		TeamID: "TOR", Season: "2024-25", Label: "Points", Order: "desc", Eligible: 2,
		Entries: []leaderboard.Entry{
			{PlayerID: "p1", Name: "Auston", Display: "9", Rank: 1, Percentile: 100},
			{PlayerID: "p2", Name: "Mitch", Display: "7", Rank: 2, Percentile: 50},
		},
	}
	var buf bytes.Buffer
	PrintLeaderboard(&buf, lb)
	if !strings.Contains(buf.String(), "Mitch") || !strings.Contains(buf.String(), "50.0") {
		t.Errorf("unexpected leaderboard output:\n%s", buf.String())
	}

	cmp := leaderboard.Comparison{
		TeamID: "TOR", Season: "2024-25",
		PlayerIDs:        []string{"p1", "p2"},
		Categories:       []string{"points"},
		Rankings:         map[string][]leaderboard.Entry{"points": lb.Entries},
		TeamAverages:     map[string]float64{"points": 8},
		PositionAverages: map[string]map[string]float64{"points": {"F": 8}},
		Insights:         []leaderboard.Insight{{Message: "Auston leads Points"}},
	}
	buf.Reset()
	PrintComparison(&buf, cmp)
	out := buf.String()
	for _, want := range []string{"9 (#1)", "8.00", "Auston leads Points"} {
		if !strings.Contains(out, want) {
			t.Errorf("comparison missing %q:\n%s", want, out)
		}
	}
}

func TestPrintGames(t *testing.T) {
	var buf bytes.Buffer
	PrintGames(&buf, []model.GameResult{{
		ID: "g1", Season: "2024-25", Date: time.Date(2024, 10, 9, 0, 0, 0, 0, time.UTC),
		HomeTeamID: "TOR", AwayTeamID: "MTL", HomeScore: 3, AwayScore: 2, Overtime: true,
		Status: model.GameStatusCompleted,
	}})
	if !strings.Contains(buf.String(), "2-3 (OT)") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	PrintRows(&buf, []string{"id", "name"}, [][]string{{"TOR", "Toronto"}, {"BOS", "Boston"}})
	out := buf.String()
	for _, want := range []string{"Toronto", "BOS", "(2 rows)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintRows(&buf, []string{"id"}, nil)
	if got := buf.String(); got != "(no rows)\n" {
		t.Errorf("empty result = %q", got)
	}
}
