package aggregator

import (
	"context"
	"sort"
	"time"

	"github.com/pable/rinkstats/internal/metrics"
	"github.com/pable/rinkstats/internal/model"
)

// Team aggregates a team's completed games for a season. events are the
// events of those games for both sides; scores and decisions come from the
// game results alone.
func (a *Aggregator) Team(ctx context.Context, teamID, season string, games []model.GameResult, events []model.RawEvent) (model.TeamStats, error) {
	defer observe("team", time.Now())

	decoded, skipped, err := a.decode(ctx, events)
	if err != nil {
		return model.TeamStats{}, err
	}
	f := NewFilter(teamID, model.FilterOptions{}, games)

	ts := model.TeamStats{TeamID: teamID, Season: season, SkippedEvents: skipped}
	for _, g := range f.Games() {
		ts.GamesPlayed++
		gf, ga := g.ScoreFor(teamID), g.ScoreAgainst(teamID)
		ts.GoalsFor += gf
		ts.GoalsAgainst += ga

		rec := &ts.AwayRecord
		if g.IsHome(teamID) {
			rec = &ts.HomeRecord
		}
		switch g.Decision(teamID) {
		case model.DecisionWin:
			ts.Record.Wins++
			rec.Wins++
		case model.DecisionLoss:
			ts.Record.Losses++
			rec.Losses++
		case model.DecisionOvertimeLoss:
			ts.Record.OvertimeLosses++
			rec.OvertimeLosses++
		}
	}

	for i := range decoded {
		if i%ctxCheckEvery == 0 {
			if err := checkDeadline(ctx); err != nil {
				return model.TeamStats{}, err
			}
		}
		ev := &decoded[i]
		if _, ok := f.Game(ev.GameID); !ok {
			continue
		}
		ours := ev.TeamID == teamID
		switch d := ev.Details.(type) {
		case model.GoalDetails:
			if ours {
				ts.ShotsFor++
			} else {
				ts.ShotsAgainst++
			}
			if d.Strength == model.StrengthPowerPlay {
				if ours {
					ts.PowerPlayGoals++
				} else {
					ts.PowerPlayGoalsAgainst++
				}
			}
		case model.ShotDetails:
			if !d.OnGoal {
				continue
			}
			if ours {
				ts.ShotsFor++
			} else {
				ts.ShotsAgainst++
			}
		case model.PenaltyDetails:
			if d.Minutes == 0 {
				continue
			}
			if ours {
				ts.PenaltyMinutes += d.Minutes
				ts.TimesShorthanded++
			} else {
				ts.PowerPlayOpportunities++
			}
		}
	}

	if err := metrics.TeamRates(&ts); err != nil {
		return model.TeamStats{}, err
	}
	return ts, nil
}

// GameSummary folds base stats for every roster player with events in one
// game. Players are ordered by points, then goals, then player ID.
func (a *Aggregator) GameSummary(ctx context.Context, teamID string, game model.GameResult, roster []model.Player, events []model.RawEvent) (model.GameSummary, error) {
	defer observe("game", time.Now())

	decoded, _, err := a.decode(ctx, events)
	if err != nil {
		return model.GameSummary{}, err
	}
	f := NewFilter(teamID, model.FilterOptions{}, []model.GameResult{game})

	out := model.GameSummary{Game: game, TeamID: teamID, Players: []model.BasePlayerStats{}}
	for _, p := range roster {
		own, goals := split(decoded, f, p.ID, teamID)
		if len(own) == 0 {
			continue
		}
		base, err := fold(ctx, p.ID, teamID, game.Season, own, goals)
		if err != nil {
			return model.GameSummary{}, err
		}
		out.Players = append(out.Players, base)
	}
	sort.Slice(out.Players, func(i, j int) bool {
		pi, pj := out.Players[i], out.Players[j]
		if pi.Points != pj.Points {
			return pi.Points > pj.Points
		}
		if pi.Goals != pj.Goals {
			return pi.Goals > pj.Goals
		}
		return pi.PlayerID < pj.PlayerID
	})
	return out, nil
}
