package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/pable/rinkstats/internal/gametime"
	"github.com/pable/rinkstats/internal/model"
)

// Direction tells rankers which end of a statistic is better.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// Style selects how a value is rendered.
type Style int

const (
	StyleCount Style = iota
	StyleSigned
	StyleDecimal
	StylePercent
	StyleClock
)

// Applies restricts a statistic to a position group.
type Applies int

const (
	AppliesAll Applies = iota
	AppliesSkaters
	AppliesGoalies
)

// Descriptor describes one rankable statistic.
type Descriptor struct {
	Key       string
	Label     string
	Direction Direction
	Style     Style
	Applies   Applies
	// MinSample is the minimum Sample() for a value to be ranked.
	MinSample int
	Sample    func(*model.PlayerStatsComplete) int
	Value     func(*model.PlayerStatsComplete) (float64, bool)
}

// Better reports whether a ranks ahead of b.
func (d Descriptor) Better(a, b float64) bool {
	if d.Direction == LowerIsBetter {
		return a < b
	}
	return a > b
}

// AppliesTo reports whether the statistic is meaningful for pos.
func (d Descriptor) AppliesTo(pos model.Position) bool {
	switch d.Applies {
	case AppliesSkaters:
		return pos != model.PositionGoaltender
	case AppliesGoalies:
		return pos == model.PositionGoaltender
	}
	return true
}

// Extract returns the player's value and whether it is rankable: defined,
// applicable to the player's position, and backed by enough sample.
func (d Descriptor) Extract(s *model.PlayerStatsComplete) (float64, bool) {
	if !d.AppliesTo(s.Player.Position) {
		return 0, false
	}
	if d.Sample != nil && d.Sample(s) < d.MinSample {
		return 0, false
	}
	return d.Value(s)
}

// FormatValue renders v in the descriptor's style.
func (d Descriptor) FormatValue(v float64) string {
	switch d.Style {
	case StyleCount:
		return fmt.Sprintf("%d", int(math.Round(v)))
	case StyleSigned:
		return fmt.Sprintf("%+d", int(math.Round(v)))
	case StylePercent:
		return fmt.Sprintf("%.2f%%", v)
	case StyleClock:
		s, err := gametime.SecondsToTime(int(math.Round(v)))
		if err != nil {
			return "—"
		}
		return s
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func count(f func(*model.PlayerStatsComplete) int) func(*model.PlayerStatsComplete) (float64, bool) {
	return func(s *model.PlayerStatsComplete) (float64, bool) { return float64(f(s)), true }
}

func goalieValue(f func(*model.GoalieStats, *model.DerivedStats) float64) func(*model.PlayerStatsComplete) (float64, bool) {
	return func(s *model.PlayerStatsComplete) (float64, bool) {
		if s.Goalie == nil {
			return 0, false
		}
		return f(s.Goalie, &s.Derived), true
	}
}

func advancedValue(f func(*model.AdvancedMetrics) float64, needTOI bool) func(*model.PlayerStatsComplete) (float64, bool) {
	return func(s *model.PlayerStatsComplete) (float64, bool) {
		if s.Advanced == nil || (needTOI && !s.Advanced.TimeOnIceKnown) {
			return 0, false
		}
		return f(s.Advanced), true
	}
}

var catalog = []Descriptor{
	{Key: "goals", Label: "Goals", Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.Goals })},
	{Key: "assists", Label: "Assists", Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.Assists })},
	{Key: "points", Label: "Points", Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.Points })},
	{Key: "plus_minus", Label: "+/-", Style: StyleSigned, Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.PlusMinus })},
	{Key: "penalty_minutes", Label: "PIM", Direction: LowerIsBetter, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.PenaltyMinutes })},
	{Key: "shots", Label: "Shots", Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.ShotsOnGoal })},
	{
		Key: "shooting_pct", Label: "Shooting %", Style: StylePercent, Applies: AppliesSkaters, MinSample: 1,
		Sample: func(s *model.PlayerStatsComplete) int { return s.Base.ShotsOnGoal },
		Value:  func(s *model.PlayerStatsComplete) (float64, bool) { return s.Derived.ShootingPct, true },
	},
	{
		Key: "faceoff_pct", Label: "Faceoff %", Style: StylePercent, Applies: AppliesSkaters, MinSample: 1,
		Sample: func(s *model.PlayerStatsComplete) int { return s.Base.TotalFaceoffs() },
		Value: func(s *model.PlayerStatsComplete) (float64, bool) {
			if s.Derived.FaceoffPct == nil {
				return 0, false
			}
			return *s.Derived.FaceoffPct, true
		},
	},
	{Key: "hits", Label: "Hits", Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.Hits })},
	{Key: "blocked", Label: "Blocked", Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.Blocked })},
	{Key: "giveaways", Label: "Giveaways", Direction: LowerIsBetter, Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.Giveaways })},
	{Key: "takeaways", Label: "Takeaways", Applies: AppliesSkaters, Value: count(func(s *model.PlayerStatsComplete) int { return s.Base.Takeaways })},
	{
		Key: "points_per_game", Label: "P/GP", Style: StyleDecimal, Applies: AppliesSkaters,
		Value: func(s *model.PlayerStatsComplete) (float64, bool) { return s.Derived.PointsPerGame, true },
	},
	{
		Key: "toi_per_game", Label: "TOI/GP", Style: StyleClock, Applies: AppliesSkaters,
		MinSample: 1,
		Sample: func(s *model.PlayerStatsComplete) int {
			if s.Skater == nil {
				return 0
			}
			return s.Skater.TimeOnIceSeconds
		},
		Value: func(s *model.PlayerStatsComplete) (float64, bool) {
			if s.Skater == nil {
				return 0, false
			}
			return s.Derived.TimeOnIcePerGame, true
		},
	},
	{
		Key: "points_per_60", Label: "P/60", Style: StyleDecimal, Applies: AppliesSkaters,
		Value: advancedValue(func(a *model.AdvancedMetrics) float64 { return a.PointsPer60 }, true),
	},
	{
		Key: "expected_goals", Label: "xG", Style: StyleDecimal, Applies: AppliesSkaters,
		Value: advancedValue(func(a *model.AdvancedMetrics) float64 { return a.ExpectedGoals }, false),
	},
	{
		Key: "save_pct", Label: "Save %", Style: StylePercent, Applies: AppliesGoalies, MinSample: 1,
		Sample: func(s *model.PlayerStatsComplete) int {
			if s.Goalie == nil {
				return 0
			}
			return s.Goalie.ShotsAgainst
		},
		Value: goalieValue(func(_ *model.GoalieStats, d *model.DerivedStats) float64 { return d.SavePct }),
	},
	{
		Key: "goals_against_average", Label: "GAA", Direction: LowerIsBetter, Style: StyleDecimal, Applies: AppliesGoalies, MinSample: 1,
		Sample: func(s *model.PlayerStatsComplete) int {
			if s.Goalie == nil {
				return 0
			}
			return s.Goalie.TimeOnIceSeconds
		},
		Value: goalieValue(func(_ *model.GoalieStats, d *model.DerivedStats) float64 { return d.GoalsAgainstAverage }),
	},
	{Key: "wins", Label: "Wins", Applies: AppliesGoalies, Value: goalieValue(func(g *model.GoalieStats, _ *model.DerivedStats) float64 { return float64(g.Wins) })},
	{Key: "shutouts", Label: "Shutouts", Applies: AppliesGoalies, Value: goalieValue(func(g *model.GoalieStats, _ *model.DerivedStats) float64 { return float64(g.Shutouts) })},
}

var catalogIndex = func() map[string]Descriptor {
	idx := make(map[string]Descriptor, len(catalog))
	for _, d := range catalog {
		idx[d.Key] = d
	}
	return idx
}()

// DefaultComparisonCategories are used when a comparison names none.
var DefaultComparisonCategories = []string{"goals", "assists", "points", "plus_minus", "shooting_pct", "points_per_game"}

// Lookup returns the descriptor for key.
func Lookup(key string) (Descriptor, bool) {
	d, ok := catalogIndex[key]
	return d, ok
}

// Keys returns every catalog key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for _, d := range catalog {
		keys = append(keys, d.Key)
	}
	sort.Strings(keys)
	return keys
}
