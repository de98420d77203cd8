package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/model"
)

const (
	tor = "TOR"
	bos = "BOS"
	mtl = "MTL"
)

var evSeq int

// ev builds a raw event with a unique ID.
func ev(gameID, playerID, teamID string, typ model.EventType, details string) model.RawEvent {
	evSeq++
	return model.RawEvent{
		ID:       fmt.Sprintf("e%d", evSeq),
		GameID:   gameID,
		PlayerID: playerID,
		TeamID:   teamID,
		Type:     typ,
		Details:  json.RawMessage(details),
	}
}

// game builds a completed game result.
func game(id, home, away string, hs, as int, date time.Time) model.GameResult {
	return model.GameResult{
		ID: id, Season: "2024-25", Date: date,
		HomeTeamID: home, AwayTeamID: away,
		HomeScore: hs, AwayScore: as,
		Status: model.GameStatusCompleted,
	}
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 19, 0, 0, 0, time.UTC)
}

func newAgg() *Aggregator { return New(zap.NewNop()) }

func player(id string, pos model.Position) model.Player {
	return model.Player{ID: id, Name: id, Position: pos}
}

func TestPlayer_TwoGameScenario(t *testing.T) {
	games := []model.GameResult{
		game("g1", tor, bos, 3, 1, day(10, 10)),
		game("g2", mtl, tor, 2, 4, day(10, 12)),
	}
	events := []model.RawEvent{
		ev("g1", "p1", tor, model.EventGoal, `{"period":1,"strength":"even","shotType":"wrist"}`),
		ev("g2", "p1", tor, model.EventAssist, `{"period":2,"strength":"powerplay"}`),
	}
	out, err := newAgg().Player(context.Background(), PlayerInput{
		Player: player("p1", model.PositionCenter), TeamID: tor, Season: "2024-25",
		Games: games, Events: events,
	})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	b := out.Base
	if b.GamesPlayed != 2 || b.Goals != 1 || b.Assists != 1 || b.Points != 2 {
		t.Errorf("unexpected base stats: %+v", b)
	}
	if out.Derived.PowerPlayPoints != 1 {
		t.Errorf("PowerPlayPoints = %d, want 1", out.Derived.PowerPlayPoints)
	}
	if out.Skater == nil || out.Skater.EvenStrengthGoals != 1 || out.Skater.PowerPlayAssists != 1 {
		t.Errorf("unexpected skater stats: %+v", out.Skater)
	}
	if out.Goalie != nil {
		t.Error("center should not carry goalie stats")
	}
}

func TestPlayer_EmptyIsZero(t *testing.T) {
	out, err := newAgg().Player(context.Background(), PlayerInput{
		Player: player("p1", model.PositionDefense), TeamID: tor, Season: "2024-25",
	})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if out.Base.GamesPlayed != 0 || out.Base.Points != 0 || out.Derived.PointsPerGame != 0 {
		t.Errorf("expected zero stats, got %+v", out.Base)
	}
	if out.Advanced == nil || out.Advanced.TimeOnIceKnown {
		t.Errorf("expected unknown TOI, got %+v", out.Advanced)
	}
}

func TestPlayer_IdempotentAndOrderIndependent(t *testing.T) {
	games := []model.GameResult{
		game("g1", tor, bos, 3, 1, day(10, 10)),
		game("g2", mtl, tor, 2, 4, day(10, 12)),
	}
	events := []model.RawEvent{
		ev("g1", "p1", tor, model.EventGoal, `{"strength":"even","location":"slot","onIce":["p1"]}`),
		ev("g1", "p1", tor, model.EventShot, `{"onGoal":true,"shotType":"slap","location":"far"}`),
		ev("g1", "p1", tor, model.EventFaceoff, `{"won":true,"zone":"offensive"}`),
		ev("g2", "p1", tor, model.EventFaceoff, `{"won":false}`),
		ev("g2", "p1", tor, model.EventShift, `{"duration":"01:15","startZone":"defensive"}`),
		ev("g2", "p1", tor, model.EventPenalty, `{"minutes":2,"infraction":"hooking"}`),
		ev("g2", "x9", mtl, model.EventGoal, `{"strength":"even","onIce":["p1","x9"]}`),
	}
	in := PlayerInput{Player: player("p1", model.PositionCenter), TeamID: tor, Season: "2024-25", Games: games, Events: events}

	a := newAgg()
	first, err := a.Player(context.Background(), in)
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	second, err := a.Player(context.Background(), in)
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated aggregation differs:\n%+v\n%+v", first, second)
	}

	reversed := make([]model.RawEvent, len(events))
	for i, e := range events {
		reversed[len(events)-1-i] = e
	}
	in.Events = reversed
	third, err := a.Player(context.Background(), in)
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if !reflect.DeepEqual(first, third) {
		t.Errorf("aggregation depends on event order:\n%+v\n%+v", first, third)
	}
	if first.Derived.FaceoffPct == nil || *first.Derived.FaceoffPct != 50 {
		t.Errorf("FaceoffPct = %v, want 50", first.Derived.FaceoffPct)
	}
}

func TestPlayer_DuplicateEventsFoldOnce(t *testing.T) {
	games := []model.GameResult{game("g1", tor, bos, 1, 0, day(10, 10))}
	goal := ev("g1", "p1", tor, model.EventGoal, `{"onIce":["p1"]}`)
	out, err := newAgg().Player(context.Background(), PlayerInput{
		Player: player("p1", model.PositionLeftWing), TeamID: tor, Games: games,
		Events: []model.RawEvent{goal, goal},
	})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if out.Base.Goals != 1 || out.Base.PlusMinus != 1 {
		t.Errorf("goal counted twice: %+v", out.Base)
	}
}

func TestPlusMinus(t *testing.T) {
	games := []model.GameResult{game("g1", tor, bos, 3, 3, day(10, 10))}
	events := []model.RawEvent{
		// Even-strength goal for, on ice: +1.
		ev("g1", "p2", tor, model.EventGoal, `{"strength":"even","onIce":["p1","p2"]}`),
		// Shorthanded goal for, on ice: +1.
		ev("g1", "p2", tor, model.EventGoal, `{"strength":"shorthanded","onIce":["p1"]}`),
		// Power-play goal for: ignored.
		ev("g1", "p2", tor, model.EventGoal, `{"strength":"powerplay","onIce":["p1"]}`),
		// Even-strength goal against, on ice: -1.
		ev("g1", "b1", bos, model.EventGoal, `{"strength":"even","onIce":["p1","b1"]}`),
		// Opponent power-play goal: ignored.
		ev("g1", "b1", bos, model.EventGoal, `{"strength":"powerplay","onIce":["p1"]}`),
		// Not on ice: ignored.
		ev("g1", "b1", bos, model.EventGoal, `{"strength":"even","onIce":["p3"]}`),
	}
	out, err := newAgg().Player(context.Background(), PlayerInput{
		Player: player("p1", model.PositionDefense), TeamID: tor, Games: games, Events: events,
	})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if out.Base.PlusMinus != 1 {
		t.Errorf("PlusMinus = %d, want 1", out.Base.PlusMinus)
	}
	if out.Base.GamesPlayed != 0 {
		t.Errorf("plus/minus alone should not count a game played, got %d", out.Base.GamesPlayed)
	}
}

func TestPlayer_MalformedEventsAreSkipped(t *testing.T) {
	games := []model.GameResult{game("g1", tor, bos, 2, 1, day(10, 10))}
	events := []model.RawEvent{
		ev("g1", "p1", tor, model.EventGoal, `{"strength":"even"}`),
		ev("g1", "p1", tor, model.EventGoal, `{"strength":"six-on-four"}`),
		ev("g1", "p1", tor, model.EventShift, `{"duration":"99"}`),
		ev("g1", "p1", tor, model.EventAssist, `{}`),
	}
	out, err := newAgg().Player(context.Background(), PlayerInput{
		Player: player("p1", model.PositionRightWing), TeamID: tor, Games: games, Events: events,
	})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if out.SkippedEvents != 2 {
		t.Errorf("SkippedEvents = %d, want 2", out.SkippedEvents)
	}
	if out.Base.Points != 2 {
		t.Errorf("Points = %d, want 2", out.Base.Points)
	}
}

func TestPlayer_Timeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	games := []model.GameResult{game("g1", tor, bos, 2, 1, day(10, 10))}
	events := []model.RawEvent{ev("g1", "p1", tor, model.EventGoal, `{}`)}
	_, err := newAgg().Player(ctx, PlayerInput{
		Player: player("p1", model.PositionCenter), TeamID: tor, Games: games, Events: events,
	})
	if !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestPlayer_Filters(t *testing.T) {
	games := []model.GameResult{
		game("g1", tor, bos, 3, 1, day(10, 10)),
		game("g2", mtl, tor, 2, 4, day(10, 20)),
		game("g3", tor, mtl, 1, 0, day(11, 5)),
	}
	events := []model.RawEvent{
		ev("g1", "p1", tor, model.EventGoal, `{"strength":"even"}`),
		ev("g2", "p1", tor, model.EventGoal, `{"strength":"powerplay"}`),
		ev("g3", "p1", tor, model.EventShot, `{"onGoal":true}`),
		// Game not in the completed set.
		ev("g4", "p1", tor, model.EventGoal, `{}`),
	}
	cases := []struct {
		name  string
		opts  model.FilterOptions
		gp    int
		goals int
		shots int
	}{
		{"all", model.FilterOptions{}, 3, 2, 3},
		{"powerplay", model.FilterOptions{Strength: model.SituationPowerPlay}, 1, 1, 1},
		{"even", model.FilterOptions{Strength: model.SituationEven}, 2, 1, 2},
		{"away", model.FilterOptions{Venue: model.VenueAway}, 1, 1, 1},
		{"home", model.FilterOptions{Venue: model.VenueHome}, 2, 1, 2},
		{"vs mtl", model.FilterOptions{Opponents: []string{mtl}}, 2, 1, 2},
		{"since oct 15", model.FilterOptions{DateRange: &model.DateRange{From: day(10, 15)}}, 2, 1, 2},
		{"through oct 31", model.FilterOptions{DateRange: &model.DateRange{To: day(10, 31)}}, 2, 2, 2},
	}
	a := newAgg()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := a.Player(context.Background(), PlayerInput{
				Player: player("p1", model.PositionLeftWing), TeamID: tor, Games: games, Events: events, Options: c.opts,
			})
			if err != nil {
				t.Fatalf("Player: %v", err)
			}
			if out.Base.GamesPlayed != c.gp || out.Base.Goals != c.goals || out.Base.Shots != c.shots {
				t.Errorf("gp=%d goals=%d shots=%d, want %d/%d/%d",
					out.Base.GamesPlayed, out.Base.Goals, out.Base.Shots, c.gp, c.goals, c.shots)
			}
		})
	}

	_, err := a.Player(context.Background(), PlayerInput{
		Player: player("p1", model.PositionLeftWing), TeamID: tor, Games: games, Events: events,
		Options: model.FilterOptions{Venue: "neutral"},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for bad venue, got %v", err)
	}
}

func TestPlayer_Goaltender(t *testing.T) {
	g2 := game("g2", mtl, tor, 3, 2, day(10, 12))
	g2.Overtime = true
	games := []model.GameResult{game("g1", tor, bos, 3, 0, day(10, 10)), g2}
	events := []model.RawEvent{
		ev("g1", "g30", tor, model.EventSave, `{}`),
		ev("g1", "g30", tor, model.EventSave, `{"shotType":"slap"}`),
		ev("g1", "g30", tor, model.EventShift, `{"duration":"20:00"}`),
		ev("g2", "g30", tor, model.EventGoalAgainst, `{}`),
		ev("g2", "g30", tor, model.EventGoalAgainst, `{}`),
		ev("g2", "g30", tor, model.EventGoalAgainst, `{"period":4}`),
		ev("g2", "g30", tor, model.EventSave, `{}`),
		ev("g2", "g30", tor, model.EventShift, `{"duration":"20:00"}`),
	}
	out, err := newAgg().Player(context.Background(), PlayerInput{
		Player: player("g30", model.PositionGoaltender), TeamID: tor, Games: games, Events: events,
	})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	g := out.Goalie
	if g == nil {
		t.Fatal("expected goalie stats")
	}
	if g.GamesPlayed != 2 || g.ShotsAgainst != 6 || g.Saves != 3 || g.GoalsAgainst != 3 {
		t.Errorf("unexpected totals: %+v", g)
	}
	if g.Wins != 1 || g.Losses != 0 || g.OvertimeLosses != 1 || g.Shutouts != 1 {
		t.Errorf("unexpected decisions: %+v", g)
	}
	if g.Saves > g.ShotsAgainst || g.Decisions() > g.GamesPlayed {
		t.Errorf("goalie totals inconsistent: %+v", g)
	}
	if out.Derived.SavePct != 50 || out.Derived.GoalsAgainstAverage != 4.5 {
		t.Errorf("SavePct=%v GAA=%v", out.Derived.SavePct, out.Derived.GoalsAgainstAverage)
	}
	if out.Skater != nil || out.Advanced != nil {
		t.Error("goalie should not carry skater stats")
	}
}

func TestPlayer_PositionCapabilities(t *testing.T) {
	games := []model.GameResult{game("g1", tor, bos, 1, 0, day(10, 10))}
	events := []model.RawEvent{
		ev("g1", "p1", tor, model.EventBlockedShot, `{"shooterId":"b1"}`),
		ev("g1", "p1", tor, model.EventShift, `{"duration":"00:50","startZone":"offensive"}`),
	}
	a := newAgg()

	d, err := a.Player(context.Background(), PlayerInput{Player: player("p1", model.PositionDefense), TeamID: tor, Games: games, Events: events})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if d.Skater.BlockedShots != 1 || d.Skater.FaceoffPct != nil {
		t.Errorf("defense: %+v", d.Skater)
	}
	if d.Advanced.ZoneStartPct != 100 || !d.Advanced.TimeOnIceKnown {
		t.Errorf("advanced: %+v", d.Advanced)
	}

	f, err := a.Player(context.Background(), PlayerInput{Player: player("p1", model.PositionCenter), TeamID: tor, Games: games, Events: events})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if f.Skater.BlockedShots != 0 {
		t.Errorf("forwards do not track blocked shots: %+v", f.Skater)
	}
	if f.Skater.FaceoffPct != nil {
		t.Error("faceoff pct should stay undefined with no faceoffs taken")
	}
}

func TestTeam(t *testing.T) {
	g2 := game("g2", mtl, tor, 3, 2, day(10, 12))
	g2.Overtime = true
	scheduled := game("g4", tor, mtl, 0, 0, day(12, 1))
	scheduled.Status = model.GameStatusScheduled
	games := []model.GameResult{
		game("g1", tor, bos, 3, 1, day(10, 10)),
		g2,
		game("g3", tor, bos, 2, 4, day(10, 14)),
		scheduled,
	}
	events := []model.RawEvent{
		ev("g1", "b1", bos, model.EventPenalty, `{"minutes":2}`),
		ev("g1", "p1", tor, model.EventGoal, `{"strength":"powerplay"}`),
		ev("g1", "p1", tor, model.EventShot, `{"onGoal":true}`),
		ev("g1", "p1", tor, model.EventShot, `{"onGoal":false}`),
		ev("g3", "p2", tor, model.EventPenalty, `{"minutes":2}`),
		ev("g3", "b1", bos, model.EventGoal, `{"strength":"powerplay"}`),
		ev("g4", "p1", tor, model.EventGoal, `{}`),
	}
	ts, err := newAgg().Team(context.Background(), tor, "2024-25", games, events)
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if ts.GamesPlayed != 3 || ts.Record != (model.Record{Wins: 1, Losses: 1, OvertimeLosses: 1}) {
		t.Errorf("record: gp=%d %+v", ts.GamesPlayed, ts.Record)
	}
	if ts.HomeRecord != (model.Record{Wins: 1, Losses: 1}) || ts.AwayRecord != (model.Record{OvertimeLosses: 1}) {
		t.Errorf("home %+v away %+v", ts.HomeRecord, ts.AwayRecord)
	}
	if ts.Points != 3 || ts.PointsPct != 50 {
		t.Errorf("points=%d pct=%v", ts.Points, ts.PointsPct)
	}
	if ts.GoalsFor != 7 || ts.GoalsAgainst != 8 || ts.GoalDifferential != -1 {
		t.Errorf("goals: %d-%d diff %d", ts.GoalsFor, ts.GoalsAgainst, ts.GoalDifferential)
	}
	if ts.ShotsFor != 2 || ts.ShotsAgainst != 1 {
		t.Errorf("shots: %d-%d", ts.ShotsFor, ts.ShotsAgainst)
	}
	if ts.PowerPlayOpportunities != 1 || ts.PowerPlayPct != 100 {
		t.Errorf("PP: %d opp, %v%%", ts.PowerPlayOpportunities, ts.PowerPlayPct)
	}
	if ts.TimesShorthanded != 1 || ts.PowerPlayGoalsAgainst != 1 || ts.PenaltyKillPct != 0 {
		t.Errorf("PK: %d times, %d against, %v%%", ts.TimesShorthanded, ts.PowerPlayGoalsAgainst, ts.PenaltyKillPct)
	}
	if ts.PenaltyMinutes != 2 {
		t.Errorf("PIM = %d", ts.PenaltyMinutes)
	}
}

func TestTeam_NoGames(t *testing.T) {
	ts, err := newAgg().Team(context.Background(), tor, "2024-25", nil, nil)
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if ts.GamesPlayed != 0 || ts.GoalsForPerGame != 0 || ts.PenaltyKillPct != 100 {
		t.Errorf("unexpected empty team stats: %+v", ts)
	}
}

func TestGameSummary(t *testing.T) {
	g := game("g1", tor, bos, 1, 0, day(10, 10))
	roster := []model.Player{
		player("p3", model.PositionCenter),
		player("p2", model.PositionDefense),
		player("p1", model.PositionCenter),
	}
	events := []model.RawEvent{
		ev("g1", "p2", tor, model.EventAssist, `{}`),
		ev("g1", "p1", tor, model.EventGoal, `{"onIce":["p1","p2"]}`),
		ev("g1", "b1", bos, model.EventShot, `{"onGoal":true}`),
	}
	sum, err := newAgg().GameSummary(context.Background(), tor, g, roster, events)
	if err != nil {
		t.Fatalf("GameSummary: %v", err)
	}
	if len(sum.Players) != 2 {
		t.Fatalf("expected 2 players with events, got %d", len(sum.Players))
	}
	if sum.Players[0].PlayerID != "p1" || sum.Players[1].PlayerID != "p2" {
		t.Errorf("unexpected order: %s, %s", sum.Players[0].PlayerID, sum.Players[1].PlayerID)
	}
	if sum.Players[1].PlusMinus != 1 || sum.Players[1].GamesPlayed != 1 {
		t.Errorf("p2: %+v", sum.Players[1])
	}
}
