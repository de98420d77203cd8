package leaderboard

import (
	"fmt"
	"strings"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/metrics"
	"github.com/pable/rinkstats/internal/model"
)

const (
	MinCompared = 2
	MaxCompared = 6
	// topPercentile is the team percentile at or above which a compared
	// player earns an insight.
	topPercentile = 90
)

// InsightKind classifies an insight.
type InsightKind string

const (
	InsightLeader    InsightKind = "leader"
	InsightTopDecile InsightKind = "top_decile"
)

// Insight is a notable fact surfaced by a comparison.
type Insight struct {
	Kind     InsightKind `json:"kind"`
	Category string      `json:"category"`
	PlayerID string      `json:"playerId"`
	Message  string      `json:"message"`
}

// Comparison is the head-to-head view of 2 to 6 players. Rankings hold the
// compared players per category, ordered by their team rank; Rank and
// Percentile are team-wide.
type Comparison struct {
	TeamID           string                        `json:"teamId"`
	Season           string                        `json:"season"`
	PlayerIDs        []string                      `json:"playerIds"`
	Categories       []string                      `json:"categories"`
	Rankings         map[string][]Entry            `json:"rankings"`
	TeamAverages     map[string]float64            `json:"teamAverages"`
	PositionAverages map[string]map[string]float64 `json:"positionAverages"`
	Insights         []Insight                     `json:"insights"`
}

// ValidateComparison checks the player set and categories, returning the
// categories to use.
func ValidateComparison(playerIDs, categories []string) ([]string, error) {
	if n := len(playerIDs); n < MinCompared || n > MaxCompared {
		return nil, apperr.Validation("comparison needs %d to %d players, got %d", MinCompared, MaxCompared, n)
	}
	seen := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		if id == "" {
			return nil, apperr.Validation("empty player id")
		}
		if seen[id] {
			return nil, apperr.Validation("player %s listed twice", id)
		}
		seen[id] = true
	}
	if len(categories) == 0 {
		return metrics.DefaultComparisonCategories, nil
	}
	for _, c := range categories {
		if _, ok := metrics.Lookup(c); !ok {
			return nil, apperr.Validation("unknown category %q", c)
		}
	}
	return categories, nil
}

// Compare ranks the given players against the whole roster in each
// category. roster must contain every compared player.
func Compare(teamID, season string, roster []model.PlayerStatsComplete, playerIDs, categories []string) (Comparison, error) {
	categories, err := ValidateComparison(playerIDs, categories)
	if err != nil {
		return Comparison{}, err
	}
	byID := make(map[string]*model.PlayerStatsComplete, len(roster))
	for i := range roster {
		byID[roster[i].Player.ID] = &roster[i]
	}
	compared := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		if _, ok := byID[id]; !ok {
			return Comparison{}, apperr.NotFound("player %s is not on %s's %s roster", id, teamID, season)
		}
		compared[id] = true
	}

	out := Comparison{
		TeamID:           teamID,
		Season:           season,
		PlayerIDs:        append([]string(nil), playerIDs...),
		Categories:       append([]string(nil), categories...),
		Rankings:         make(map[string][]Entry, len(categories)),
		TeamAverages:     make(map[string]float64, len(categories)),
		PositionAverages: make(map[string]map[string]float64, len(categories)),
		Insights:         []Insight{},
	}

	for _, cat := range categories {
		desc, _ := metrics.Lookup(cat)
		team := rank(roster, desc, Options{})

		out.TeamAverages[cat] = average(team, func(Entry) bool { return true })
		groups := make(map[string]float64)
		for _, g := range []string{"F", "D", "G"} {
			if avg, ok := groupAverage(team, g); ok {
				groups[g] = avg
			}
		}
		out.PositionAverages[cat] = groups

		var picked []Entry
		for _, e := range team {
			if compared[e.PlayerID] {
				picked = append(picked, e)
			}
		}
		out.Rankings[cat] = picked
		out.Insights = append(out.Insights, insights(desc, picked)...)
	}
	return out, nil
}

func insights(desc metrics.Descriptor, picked []Entry) []Insight {
	if len(picked) == 0 {
		return nil
	}
	lead := picked[0]
	out := []Insight{{
		Kind:     InsightLeader,
		Category: desc.Key,
		PlayerID: lead.PlayerID,
		Message:  fmt.Sprintf("%s leads the comparison in %s (%s)", lead.Name, desc.Label, lead.Display),
	}}
	for _, e := range picked {
		if e.Percentile >= topPercentile {
			out = append(out, Insight{
				Kind:     InsightTopDecile,
				Category: desc.Key,
				PlayerID: e.PlayerID,
				Message:  fmt.Sprintf("%s is in the team's top 10%% for %s (rank %d)", e.Name, desc.Label, e.Rank),
			})
		}
	}
	return out
}

func average(entries []Entry, keep func(Entry) bool) float64 {
	var sum float64
	n := 0
	for _, e := range entries {
		if keep(e) {
			sum += e.Value
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return metrics.Round2(sum / float64(n))
}

func groupAverage(entries []Entry, group string) (float64, bool) {
	keep := func(e Entry) bool { return e.Position.Group() == group }
	for _, e := range entries {
		if keep(e) {
			return average(entries, keep), true
		}
	}
	return 0, false
}

// CategoriesHash identifies a comparison's categories inside a cache key.
func CategoriesHash(categories []string) string {
	return strings.Join(categories, ",")
}
