// Package aggregator folds game events into per-player, per-team and per-game
// statistics. Folding is order independent: events may arrive in any order
// and produce bit-identical results.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/metrics"
	"github.com/pable/rinkstats/internal/model"
)

// ctxCheckEvery is how many events are folded between deadline checks.
const ctxCheckEvery = 256

var (
	skippedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rinkstats_skipped_events_total",
		Help: "Malformed events skipped during aggregation",
	})
	aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rinkstats_aggregation_duration_seconds",
		Help:    "Time spent aggregating events",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// Aggregator folds events into statistics. It holds no per-call state and is
// safe for concurrent use.
type Aggregator struct {
	log *zap.Logger
}

// New returns an Aggregator that logs skipped events to log.
func New(log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{log: log}
}

// PlayerInput is everything needed to aggregate one player.
type PlayerInput struct {
	Player  model.Player
	TeamID  string
	Season  string
	Options model.FilterOptions
	// Games are the team's games for the season; only completed ones count.
	Games []model.GameResult
	// Events holds the player's own events plus every goal event of the
	// team's games, which drive plus/minus. Events repeated by ID are folded
	// once.
	Events []model.RawEvent
}

// Player computes the complete statistics for one player. An empty event set
// yields all-zero statistics.
func (a *Aggregator) Player(ctx context.Context, in PlayerInput) (model.PlayerStatsComplete, error) {
	defer observe("player", time.Now())

	if err := in.Options.Validate(); err != nil {
		return model.PlayerStatsComplete{}, err
	}
	events, skipped, err := a.decode(ctx, in.Events)
	if err != nil {
		return model.PlayerStatsComplete{}, err
	}

	f := NewFilter(in.TeamID, in.Options, in.Games)
	own, goals := split(events, f, in.Player.ID, in.TeamID)

	base, err := fold(ctx, in.Player.ID, in.TeamID, in.Season, own, goals)
	if err != nil {
		return model.PlayerStatsComplete{}, err
	}

	out := model.PlayerStatsComplete{
		Player:        in.Player,
		Base:          base,
		SkippedEvents: skipped,
	}
	caps := CapabilitiesFor(in.Player.Position)
	if caps.TracksGoaltending {
		g := accumulateGoalie(own, f, in.TeamID)
		out.Goalie = &g
	} else {
		s, shots := accumulateSkater(own, &out.Base, in.Player.Position, caps)
		out.Skater = &s
		adv := metrics.Advanced(&out.Base, &s, shots)
		out.Advanced = &adv
	}

	out.Derived, err = metrics.Derive(&out.Base, out.Skater, out.Goalie)
	if err != nil {
		return model.PlayerStatsComplete{}, fmt.Errorf("player %s: %w", in.Player.ID, err)
	}
	return out, nil
}

// decode parses raw events, dropping duplicates and skipping malformed ones.
func (a *Aggregator) decode(ctx context.Context, raws []model.RawEvent) ([]model.GameEvent, int, error) {
	seen := make(map[string]bool, len(raws))
	out := make([]model.GameEvent, 0, len(raws))
	skipped := 0
	for i, r := range raws {
		if i%ctxCheckEvery == 0 {
			if err := checkDeadline(ctx); err != nil {
				return nil, 0, err
			}
		}
		if r.ID != "" {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
		}
		ev, err := model.Decode(r)
		if err != nil {
			skipped++
			skippedEvents.Inc()
			a.log.Warn("skipping malformed event",
				zap.String("event_id", r.ID),
				zap.String("game_id", r.GameID),
				zap.String("type", string(r.Type)),
				zap.Error(err))
			continue
		}
		out = append(out, ev)
	}
	return out, skipped, nil
}

// split returns the player's own filtered events and every filtered goal.
func split(events []model.GameEvent, f *Filter, playerID, teamID string) (own, goals []*model.GameEvent) {
	for i := range events {
		ev := &events[i]
		if !f.Event(ev) {
			continue
		}
		if ev.PlayerID == playerID && ev.TeamID == teamID {
			own = append(own, ev)
		}
		if ev.Type == model.EventGoal {
			goals = append(goals, ev)
		}
	}
	return own, goals
}

// fold accumulates base counters from the player's events and plus/minus
// from goals.
func fold(ctx context.Context, playerID, teamID, season string, own, goals []*model.GameEvent) (model.BasePlayerStats, error) {
	s := model.BasePlayerStats{PlayerID: playerID, TeamID: teamID, Season: season}
	games := make(map[string]struct{})

	for i, ev := range own {
		if i%ctxCheckEvery == 0 {
			if err := checkDeadline(ctx); err != nil {
				return model.BasePlayerStats{}, err
			}
		}
		games[ev.GameID] = struct{}{}

		switch d := ev.Details.(type) {
		case model.GoalDetails:
			s.Goals++
			s.Shots++
			s.ShotsOnGoal++
		case model.AssistDetails:
			s.Assists++
		case model.ShotDetails:
			s.Shots++
			if d.OnGoal {
				s.ShotsOnGoal++
			}
		case model.BlockedShotDetails:
			s.Blocked++
		case model.PenaltyDetails:
			s.PenaltyMinutes += d.Minutes
		case model.FaceoffDetails:
			if d.Won {
				s.FaceoffsWon++
			} else {
				s.FaceoffsLost++
			}
		case model.PlayDetails:
			switch d.Kind() {
			case model.EventHit:
				s.Hits++
			case model.EventGiveaway:
				s.Giveaways++
			case model.EventTakeaway:
				s.Takeaways++
			}
		}
	}
	s.GamesPlayed = len(games)

	pts, err := metrics.CalculatePoints(s.Goals, s.Assists)
	if err != nil {
		return model.BasePlayerStats{}, apperr.Wrap(apperr.CodeComputation, "points", err)
	}
	s.Points = pts
	s.PlusMinus = plusMinus(playerID, teamID, goals)
	return s, nil
}

// plusMinus credits goals scored at even strength or shorthanded, and only to
// players listed on ice. Power-play goals never count.
func plusMinus(playerID, teamID string, goals []*model.GameEvent) int {
	pm := 0
	for _, ev := range goals {
		d, ok := ev.Details.(model.GoalDetails)
		if !ok || d.Strength == model.StrengthPowerPlay {
			continue
		}
		if !onIce(d.OnIce, playerID) {
			continue
		}
		if ev.TeamID == teamID {
			pm++
		} else {
			pm--
		}
	}
	return pm
}

func onIce(ids []string, playerID string) bool {
	for _, id := range ids {
		if id == playerID {
			return true
		}
	}
	return false
}

// checkDeadline turns an expired context into a timeout error so callers
// never see partially folded statistics.
func checkDeadline(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.CodeTimeout, "aggregation deadline exceeded", err)
	default:
		return fmt.Errorf("aggregate: %w", err)
	}
}

func observe(kind string, start time.Time) {
	aggregationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
