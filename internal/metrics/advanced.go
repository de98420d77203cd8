package metrics

import (
	"strings"

	"github.com/pable/rinkstats/internal/model"
)

// ShotSample is the per-shot input of the expected-goals heuristic.
type ShotSample struct {
	ShotType string
	Location model.ShotLocation
	Strength model.Strength
}

const defaultShotProbability = 0.08

var shotTypeProbability = map[string]float64{
	"wrist":    0.08,
	"slap":     0.06,
	"snap":     0.09,
	"tip":      0.15,
	"wrap":     0.12,
	"backhand": 0.05,
}

var locationFactor = map[model.ShotLocation]float64{
	model.LocationSlot:  2.5,
	model.LocationClose: 1.8,
	model.LocationFar:   0.6,
}

var strengthFactor = map[model.Strength]float64{
	model.StrengthPowerPlay:   1.3,
	model.StrengthShortHanded: 0.7,
}

// ShotProbability returns the heuristic goal probability of one shot, capped
// at 1.0. This is a fixed lookup table, not a fitted model.
func ShotProbability(s ShotSample) float64 {
	p, ok := shotTypeProbability[strings.ToLower(s.ShotType)]
	if !ok {
		p = defaultShotProbability
	}
	if f, ok := locationFactor[s.Location]; ok {
		p *= f
	}
	if f, ok := strengthFactor[s.Strength]; ok {
		p *= f
	}
	if p > 1 {
		p = 1
	}
	return p
}

// ExpectedGoals sums ShotProbability over shots.
func ExpectedGoals(shots []ShotSample) float64 {
	var sum float64
	for _, s := range shots {
		sum += ShotProbability(s)
	}
	return Round2(sum)
}

// Per60 normalises count to a 60-minute rate; 0 without time on ice.
func Per60(count, toiSeconds int) float64 {
	if toiSeconds <= 0 {
		return 0
	}
	minutes := float64(toiSeconds) / 60
	return Round2(float64(count) / minutes * 60)
}

// ZoneStartPercentage returns offensive-zone starts as a share of offensive
// plus defensive starts; neutral and on-the-fly starts are ignored.
func ZoneStartPercentage(offensive, defensive int) float64 {
	if offensive+defensive <= 0 {
		return 0
	}
	return pct(offensive, offensive+defensive)
}

// PrimaryAssistPercentage returns primary assists as a share of all assists.
func PrimaryAssistPercentage(primary, assists int) float64 {
	if assists <= 0 {
		return 0
	}
	return pct(primary, assists)
}

// TakeawayGiveawayPercentage is a possession proxy: takeaways as a share of
// all puck-possession changes the player was credited with.
func TakeawayGiveawayPercentage(takeaways, giveaways int) float64 {
	if takeaways+giveaways <= 0 {
		return 0
	}
	return pct(takeaways, takeaways+giveaways)
}

// Advanced computes AdvancedMetrics for a skater.
func Advanced(base *model.BasePlayerStats, skater *model.SkaterStats, shots []ShotSample) model.AdvancedMetrics {
	toi := skater.TimeOnIceSeconds
	xg := ExpectedGoals(shots)
	return model.AdvancedMetrics{
		GoalsPer60:          Per60(base.Goals, toi),
		AssistsPer60:        Per60(base.Assists, toi),
		PointsPer60:         Per60(base.Points, toi),
		ShotsPer60:          Per60(base.ShotsOnGoal, toi),
		ShotAttemptsPer60:   Per60(base.Shots, toi),
		BlocksPer60:         Per60(skater.BlockedShots, toi),
		ZoneStartPct:        ZoneStartPercentage(skater.OffensiveZoneStarts, skater.DefensiveZoneStarts),
		ExpectedGoals:       xg,
		GoalsDifference:     Round2(float64(base.Goals) - xg),
		PrimaryAssistPct:    PrimaryAssistPercentage(skater.PrimaryAssists, base.Assists),
		TakeawayGiveawayPct: TakeawayGiveawayPercentage(base.Takeaways, base.Giveaways),
		TimeOnIceKnown:      toi > 0,
	}
}
