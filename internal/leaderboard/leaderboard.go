// Package leaderboard ranks a team's players by a catalog statistic and
// compares small groups of players against the team.
package leaderboard

import (
	"fmt"
	"sort"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/metrics"
	"github.com/pable/rinkstats/internal/model"
)

// DefaultMinGamesPlayed excludes players with too small a sample.
const DefaultMinGamesPlayed = 5

// Options narrow a leaderboard.
type Options struct {
	// Position is a position code (C, LW, RW, D, G), a group (F, D, G) or
	// empty for everyone.
	Position       string
	MinGamesPlayed int
	// Limit caps the returned entries; 0 returns all.
	Limit int
}

// DefaultOptions returns options with the default games-played threshold.
func DefaultOptions() Options {
	return Options{MinGamesPlayed: DefaultMinGamesPlayed}
}

// Validate rejects out-of-range options.
func (o Options) Validate() error {
	if o.MinGamesPlayed < 0 {
		return apperr.Validation("minGamesPlayed must be >= 0, got %d", o.MinGamesPlayed)
	}
	if o.Limit < 0 {
		return apperr.Validation("limit must be >= 0, got %d", o.Limit)
	}
	switch o.Position {
	case "", "F", "D", "G", "C", "LW", "RW":
	default:
		return apperr.Validation("unknown position %q", o.Position)
	}
	return nil
}

// Hash identifies the options inside a cache key.
func (o Options) Hash() string {
	return fmt.Sprintf("pos=%s,min=%d,limit=%d", o.Position, o.MinGamesPlayed, o.Limit)
}

func (o Options) matches(p model.Position) bool {
	return o.Position == "" || o.Position == p.Group() || o.Position == string(p)
}

// Entry is one ranked player.
type Entry struct {
	PlayerID    string         `json:"playerId"`
	Name        string         `json:"name"`
	Position    model.Position `json:"position"`
	GamesPlayed int            `json:"gamesPlayed"`
	Value       float64        `json:"value"`
	Display     string         `json:"display"`
	Rank        int            `json:"rank"`
	Percentile  float64        `json:"percentile"`
}

// Leaderboard is a ranked list for one category.
type Leaderboard struct {
	TeamID   string  `json:"teamId"`
	Season   string  `json:"season"`
	Category string  `json:"category"`
	Label    string  `json:"label"`
	Order    string  `json:"order"`
	Eligible int     `json:"eligible"`
	Entries  []Entry `json:"entries"`
}

// Build ranks the eligible players. Ranks run 1..N without gaps; equal
// values are ordered by player ID so output is stable across runs.
// Percentiles are computed over all N eligible players before Limit applies.
func Build(teamID, season string, stats []model.PlayerStatsComplete, desc metrics.Descriptor, opts Options) Leaderboard {
	entries := rank(stats, desc, opts)
	lb := Leaderboard{
		TeamID:   teamID,
		Season:   season,
		Category: desc.Key,
		Label:    desc.Label,
		Order:    order(desc),
		Eligible: len(entries),
		Entries:  entries,
	}
	if opts.Limit > 0 && len(lb.Entries) > opts.Limit {
		lb.Entries = lb.Entries[:opts.Limit]
	}
	return lb
}

func order(desc metrics.Descriptor) string {
	if desc.Direction == metrics.LowerIsBetter {
		return "asc"
	}
	return "desc"
}

func rank(stats []model.PlayerStatsComplete, desc metrics.Descriptor, opts Options) []Entry {
	entries := make([]Entry, 0, len(stats))
	for i := range stats {
		s := &stats[i]
		if !opts.matches(s.Player.Position) || s.Base.GamesPlayed < opts.MinGamesPlayed {
			continue
		}
		v, ok := desc.Extract(s)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			PlayerID:    s.Player.ID,
			Name:        s.Player.Name,
			Position:    s.Player.Position,
			GamesPlayed: s.Base.GamesPlayed,
			Value:       v,
			Display:     desc.FormatValue(v),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Value != b.Value {
			return desc.Better(a.Value, b.Value)
		}
		return a.PlayerID < b.PlayerID
	})

	n := len(entries)
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Percentile = Percentile(i+1, n)
	}
	return entries
}

// Percentile returns (n - rank + 1) / n * 100 rounded to two decimals.
func Percentile(rank, n int) float64 {
	if n <= 0 {
		return 0
	}
	return metrics.Round2(float64(n-rank+1) / float64(n) * 100)
}
