package aggregator

import (
	"sort"

	"github.com/pable/rinkstats/internal/model"
)

// Filter applies FilterOptions from one team's perspective. Games absent from
// the games map are treated as not completed and never pass.
type Filter struct {
	teamID string
	opts   model.FilterOptions
	games  map[string]*model.GameResult
	opps   map[string]bool
}

// NewFilter builds a filter for teamID over the given completed games.
func NewFilter(teamID string, opts model.FilterOptions, games []model.GameResult) *Filter {
	f := &Filter{
		teamID: teamID,
		opts:   opts,
		games:  make(map[string]*model.GameResult, len(games)),
	}
	for i := range games {
		if games[i].Completed() {
			f.games[games[i].ID] = &games[i]
		}
	}
	if len(opts.Opponents) > 0 {
		f.opps = make(map[string]bool, len(opts.Opponents))
		for _, o := range opts.Opponents {
			f.opps[o] = true
		}
	}
	return f
}

// Game returns the game result for id when it passes the game-level
// predicates: date range, venue and opponent.
func (f *Filter) Game(id string) (*model.GameResult, bool) {
	g, ok := f.games[id]
	if !ok || !g.Involves(f.teamID) {
		return nil, false
	}
	if r := f.opts.DateRange; r != nil && !r.Contains(g.Date) {
		return nil, false
	}
	switch f.opts.Venue {
	case model.VenueHome:
		if !g.IsHome(f.teamID) {
			return nil, false
		}
	case model.VenueAway:
		if g.IsHome(f.teamID) {
			return nil, false
		}
	}
	if f.opps != nil && !f.opps[g.Opponent(f.teamID)] {
		return nil, false
	}
	return g, true
}

// Strength returns the event's manpower situation seen from the filter's
// team.
func (f *Filter) Strength(ev *model.GameEvent) model.Strength {
	s := ev.Strength()
	if ev.TeamID != f.teamID {
		return s.Invert()
	}
	return s
}

// Event reports whether ev passes every predicate.
func (f *Filter) Event(ev *model.GameEvent) bool {
	if _, ok := f.Game(ev.GameID); !ok {
		return false
	}
	return f.opts.Strength.Matches(f.Strength(ev))
}

// Games returns the games passing the game-level predicates, oldest first.
func (f *Filter) Games() []*model.GameResult {
	out := make([]*model.GameResult, 0, len(f.games))
	for id := range f.games {
		if g, ok := f.Game(id); ok {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
