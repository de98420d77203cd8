package aggregator

import (
	"sort"

	"github.com/pable/rinkstats/internal/metrics"
	"github.com/pable/rinkstats/internal/model"
)

// Capabilities selects which position-specific counters the accumulator
// keeps.
type Capabilities struct {
	TracksFaceoffs     bool
	TracksBlockedShots bool
	TracksGoaltending  bool
}

// CapabilitiesFor returns the capability set of a position.
func CapabilitiesFor(p model.Position) Capabilities {
	switch {
	case p.IsForward():
		return Capabilities{TracksFaceoffs: true}
	case p == model.PositionDefense:
		return Capabilities{TracksBlockedShots: true}
	case p == model.PositionGoaltender:
		return Capabilities{TracksGoaltending: true}
	}
	return Capabilities{}
}

// accumulateSkater re-scans the player's events for skater fields and returns
// the shot samples that feed expected goals.
func accumulateSkater(events []*model.GameEvent, base *model.BasePlayerStats, pos model.Position, caps Capabilities) (model.SkaterStats, []metrics.ShotSample) {
	s := model.SkaterStats{Position: pos}
	var shots []metrics.ShotSample

	for _, ev := range events {
		switch d := ev.Details.(type) {
		case model.GoalDetails:
			switch d.Strength {
			case model.StrengthPowerPlay:
				s.PowerPlayGoals++
			case model.StrengthShortHanded:
				s.ShortHandedGoals++
			default:
				s.EvenStrengthGoals++
			}
			if d.GameWinning {
				s.GameWinningGoals++
			}
			if d.Overtime {
				s.OvertimeGoals++
			}
			shots = append(shots, metrics.ShotSample{ShotType: d.ShotType, Location: d.Location, Strength: d.Strength})
		case model.AssistDetails:
			switch d.Strength {
			case model.StrengthPowerPlay:
				s.PowerPlayAssists++
			case model.StrengthShortHanded:
				s.ShortHandedAssists++
			}
			if d.AssistType == model.AssistSecondary {
				s.SecondaryAssists++
			} else {
				s.PrimaryAssists++
			}
		case model.ShotDetails:
			if !d.OnGoal {
				s.MissedShots++
			}
			shots = append(shots, metrics.ShotSample{ShotType: d.ShotType, Location: d.Location, Strength: d.Strength})
		case model.ShiftDetails:
			s.Shifts++
			s.TimeOnIceSeconds += d.DurationSeconds
			switch d.StartZone {
			case model.ZoneOffensive:
				s.OffensiveZoneStarts++
			case model.ZoneNeutral:
				s.NeutralZoneStarts++
			case model.ZoneDefensive:
				s.DefensiveZoneStarts++
			}
		}
	}

	if caps.TracksFaceoffs {
		// Inputs are non-negative counters, so the error is always nil.
		if v, ok, _ := metrics.FaceoffPercentage(base.FaceoffsWon, base.FaceoffsLost); ok {
			s.FaceoffPct = &v
		}
	}
	if caps.TracksBlockedShots {
		s.BlockedShots = base.Blocked
	}
	return s, shots
}

// goalieMachine keeps one record per game and closes each game against its
// final score.
type goalieMachine struct {
	games map[string]*model.GoalieGame
}

func (m *goalieMachine) game(id string) *model.GoalieGame {
	g, ok := m.games[id]
	if !ok {
		g = &model.GoalieGame{GameID: id}
		m.games[id] = g
	}
	return g
}

func (m *goalieMachine) observe(ev *model.GameEvent) {
	switch d := ev.Details.(type) {
	case model.GoaltendingDetails:
		g := m.game(ev.GameID)
		g.ShotsAgainst++
		if d.Kind() == model.EventSave {
			g.Saves++
		} else {
			g.GoalsAgainst++
		}
	case model.ShiftDetails:
		m.game(ev.GameID).TimeOnIceSeconds += d.DurationSeconds
	default:
		// Any other event still marks the game as played.
		m.game(ev.GameID)
	}
}

// close classifies every game and sums the totals. The decision depends only
// on the recorded final score.
func (m *goalieMachine) close(f *Filter, teamID string) model.GoalieStats {
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out model.GoalieStats
	for _, id := range ids {
		g := m.games[id]
		if res, ok := f.Game(id); ok {
			g.Decision = res.Decision(teamID)
		}
		g.Shutout = g.GoalsAgainst == 0 && g.ShotsAgainst > 0

		out.GamesPlayed++
		out.TimeOnIceSeconds += g.TimeOnIceSeconds
		out.ShotsAgainst += g.ShotsAgainst
		out.Saves += g.Saves
		out.GoalsAgainst += g.GoalsAgainst
		if g.Shutout {
			out.Shutouts++
		}
		switch g.Decision {
		case model.DecisionWin:
			out.Wins++
		case model.DecisionLoss:
			out.Losses++
		case model.DecisionOvertimeLoss:
			out.OvertimeLosses++
		}
		out.Games = append(out.Games, *g)
	}
	return out
}

func accumulateGoalie(events []*model.GameEvent, f *Filter, teamID string) model.GoalieStats {
	m := &goalieMachine{games: make(map[string]*model.GoalieGame)}
	for _, ev := range events {
		m.observe(ev)
	}
	return m.close(f, teamID)
}
