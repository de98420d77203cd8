// Package metrics holds the pure calculators that turn aggregated counters
// into rates and percentages, plus the statistic catalog shared with the
// leaderboard.
//
// Every rate returns a defined default instead of dividing by zero, and every
// percentage is rounded to two decimals.
package metrics

import (
	"math"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/model"
)

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func pct(num, den int) float64 {
	return Round2(float64(num) / float64(den) * 100)
}

func nonNegative(name string, vals ...int) error {
	for _, v := range vals {
		if v < 0 {
			return apperr.Validation("%s: negative input %d", name, v)
		}
	}
	return nil
}

// CalculatePoints returns goals + assists.
func CalculatePoints(goals, assists int) (int, error) {
	if err := nonNegative("points", goals, assists); err != nil {
		return 0, err
	}
	return goals + assists, nil
}

// ShootingPercentage returns goals / shots as a percentage; 0 with no shots.
func ShootingPercentage(goals, shots int) (float64, error) {
	if err := nonNegative("shooting percentage", goals, shots); err != nil {
		return 0, err
	}
	if shots == 0 {
		return 0, nil
	}
	if goals > shots {
		return 0, apperr.Validation("shooting percentage: goals %d exceed shots %d", goals, shots)
	}
	return pct(goals, shots), nil
}

// SavePercentage returns saves / shots against as a percentage; 0 with no
// shots against.
func SavePercentage(saves, shotsAgainst int) (float64, error) {
	if err := nonNegative("save percentage", saves, shotsAgainst); err != nil {
		return 0, err
	}
	if shotsAgainst == 0 {
		return 0, nil
	}
	if saves > shotsAgainst {
		return 0, apperr.Validation("save percentage: saves %d exceed shots against %d", saves, shotsAgainst)
	}
	return pct(saves, shotsAgainst), nil
}

// GoalsAgainstAverage returns goals against per 60 minutes played.
func GoalsAgainstAverage(goalsAgainst, toiSeconds int) (float64, error) {
	if err := nonNegative("goals against average", goalsAgainst, toiSeconds); err != nil {
		return 0, err
	}
	if toiSeconds == 0 {
		return 0, nil
	}
	return Round2(float64(goalsAgainst) * 3600 / float64(toiSeconds)), nil
}

// FaceoffPercentage returns won / taken as a percentage. ok is false when no
// faceoffs were taken, which is distinct from losing all of them.
func FaceoffPercentage(won, lost int) (value float64, ok bool, err error) {
	if err := nonNegative("faceoff percentage", won, lost); err != nil {
		return 0, false, err
	}
	if won+lost == 0 {
		return 0, false, nil
	}
	return pct(won, won+lost), true, nil
}

// PerGame returns count / games; 0 with no games. count may be negative
// (plus/minus).
func PerGame(count, games int) (float64, error) {
	if err := nonNegative("per game", games); err != nil {
		return 0, err
	}
	if games == 0 {
		return 0, nil
	}
	return Round2(float64(count) / float64(games)), nil
}

// PowerPlayPercentage returns power-play goals / opportunities; 0 with none.
func PowerPlayPercentage(goals, opportunities int) (float64, error) {
	if err := nonNegative("power play percentage", goals, opportunities); err != nil {
		return 0, err
	}
	if opportunities == 0 {
		return 0, nil
	}
	return pct(goals, opportunities), nil
}

// PenaltyKillPercentage returns the share of shorthanded situations killed
// off; 100 when the team was never shorthanded.
func PenaltyKillPercentage(goalsAgainst, timesShorthanded int) (float64, error) {
	if err := nonNegative("penalty kill percentage", goalsAgainst, timesShorthanded); err != nil {
		return 0, err
	}
	if timesShorthanded == 0 {
		return 100, nil
	}
	killed := timesShorthanded - goalsAgainst
	if killed < 0 {
		killed = 0
	}
	return pct(killed, timesShorthanded), nil
}

// WinPercentage returns wins / games; 0 with no games.
func WinPercentage(wins, games int) (float64, error) {
	if err := nonNegative("win percentage", wins, games); err != nil {
		return 0, err
	}
	if games == 0 {
		return 0, nil
	}
	return pct(wins, games), nil
}

// Derive computes DerivedStats. Exactly one of skater and goalie is expected
// to be non-nil; both may be nil for a player with unknown position.
func Derive(base *model.BasePlayerStats, skater *model.SkaterStats, goalie *model.GoalieStats) (model.DerivedStats, error) {
	var d model.DerivedStats
	var err error
	gp := base.GamesPlayed

	if d.PointsPerGame, err = PerGame(base.Points, gp); err != nil {
		return d, derr(err)
	}
	if d.GoalsPerGame, err = PerGame(base.Goals, gp); err != nil {
		return d, derr(err)
	}
	if d.AssistsPerGame, err = PerGame(base.Assists, gp); err != nil {
		return d, derr(err)
	}
	if d.PenaltyMinutesPerGame, err = PerGame(base.PenaltyMinutes, gp); err != nil {
		return d, derr(err)
	}
	if d.ShootingPct, err = ShootingPercentage(base.Goals, base.ShotsOnGoal); err != nil {
		return d, derr(err)
	}

	if skater != nil {
		if skater.FaceoffPct != nil {
			v := *skater.FaceoffPct
			d.FaceoffPct = &v
		}
		if d.TimeOnIcePerGame, err = PerGame(skater.TimeOnIceSeconds, gp); err != nil {
			return d, derr(err)
		}
		d.PowerPlayPoints = skater.PowerPlayPoints()
		d.ShortHandedPoints = skater.ShortHandedPoints()
	}

	if goalie != nil {
		if d.SavePct, err = SavePercentage(goalie.Saves, goalie.ShotsAgainst); err != nil {
			return d, derr(err)
		}
		if d.GoalsAgainstAverage, err = GoalsAgainstAverage(goalie.GoalsAgainst, goalie.TimeOnIceSeconds); err != nil {
			return d, derr(err)
		}
		if d.WinPct, err = WinPercentage(goalie.Wins, goalie.GamesPlayed); err != nil {
			return d, derr(err)
		}
		if d.TimeOnIcePerGame, err = PerGame(goalie.TimeOnIceSeconds, goalie.GamesPlayed); err != nil {
			return d, derr(err)
		}
	}
	return d, nil
}

// Counters that reach Derive were produced by aggregation, so a validation
// failure here means inconsistent input data.
func derr(err error) error {
	return apperr.Wrap(apperr.CodeComputation, "derive stats", err)
}

// TeamRates fills the per-game and special-teams percentages of ts from its
// counters.
func TeamRates(ts *model.TeamStats) error {
	var err error
	ts.GoalDifferential = ts.GoalsFor - ts.GoalsAgainst
	ts.Points = ts.Record.StandingsPoints()
	if ts.GoalsForPerGame, err = PerGame(ts.GoalsFor, ts.GamesPlayed); err != nil {
		return err
	}
	if ts.GoalsAgainstPerGame, err = PerGame(ts.GoalsAgainst, ts.GamesPlayed); err != nil {
		return err
	}
	if ts.PowerPlayPct, err = PowerPlayPercentage(ts.PowerPlayGoals, ts.PowerPlayOpportunities); err != nil {
		return err
	}
	if ts.PenaltyKillPct, err = PenaltyKillPercentage(ts.PowerPlayGoalsAgainst, ts.TimesShorthanded); err != nil {
		return err
	}
	if ts.GamesPlayed > 0 {
		ts.PointsPct = pct(ts.Points, 2*ts.GamesPlayed)
	}
	return nil
}
