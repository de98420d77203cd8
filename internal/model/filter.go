package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/pable/rinkstats/internal/apperr"
)

// SituationalStrength selects events by manpower situation from the player's
// team perspective.
type SituationalStrength string

const (
	SituationAll         SituationalStrength = "all"
	SituationEven        SituationalStrength = "even"
	SituationPowerPlay   SituationalStrength = "powerplay"
	SituationPenaltyKill SituationalStrength = "penalty_kill"
)

// Matches reports whether an event at strength s (own perspective) passes.
func (f SituationalStrength) Matches(s Strength) bool {
	switch f {
	case "", SituationAll:
		return true
	case SituationEven:
		return s == StrengthEven
	case SituationPowerPlay:
		return s == StrengthPowerPlay
	case SituationPenaltyKill:
		return s == StrengthShortHanded
	}
	return false
}

// Venue restricts aggregation to home or away games.
type Venue string

const (
	VenueAny  Venue = ""
	VenueHome Venue = "home"
	VenueAway Venue = "away"
)

// DateRange is an inclusive time window.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t lies inside the range. A zero bound is open.
func (r *DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// FilterOptions are the optional predicates applied before aggregation. All
// predicates combine with AND semantics.
type FilterOptions struct {
	DateRange *DateRange          `json:"dateRange,omitempty"`
	Strength  SituationalStrength `json:"situationalStrength,omitempty"`
	Venue     Venue               `json:"homeAwayOnly,omitempty"`
	Opponents []string            `json:"opponentFilter,omitempty"`
}

// Validate rejects malformed filters.
func (o FilterOptions) Validate() error {
	switch o.Strength {
	case "", SituationAll, SituationEven, SituationPowerPlay, SituationPenaltyKill:
	default:
		return apperr.Validation("unknown situational strength %q", o.Strength)
	}
	switch o.Venue {
	case VenueAny, VenueHome, VenueAway:
	default:
		return apperr.Validation("unknown venue %q", o.Venue)
	}
	if r := o.DateRange; r != nil && !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return apperr.Validation("date range ends before it starts")
	}
	for _, opp := range o.Opponents {
		if opp == "" {
			return apperr.Validation("empty opponent id")
		}
	}
	return nil
}

// Hash returns a deterministic digest of the options so differently filtered
// queries for the same entity never share a cache key. Equivalent options
// (opponent order, "all" vs empty strength) hash identically.
func (o FilterOptions) Hash() string {
	canon := o
	if canon.Strength == SituationAll {
		canon.Strength = ""
	}
	if len(canon.Opponents) > 0 {
		opps := append([]string(nil), canon.Opponents...)
		sort.Strings(opps)
		canon.Opponents = opps
	}
	if r := canon.DateRange; r != nil {
		canon.DateRange = &DateRange{From: r.From.UTC(), To: r.To.UTC()}
		if r.From.IsZero() && r.To.IsZero() {
			canon.DateRange = nil
		}
	}
	b, _ := json.Marshal(canon)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// EventQuery is the Event Store filter. Only events of completed games are
// returned.
type EventQuery struct {
	PlayerID   string
	TeamID     string
	Season     string
	GameIDs    []string
	EventTypes []EventType
	DateRange  *DateRange
}

// Scope identifies the slice of the event store a cached value depends on.
type Scope struct {
	TeamID string
	Season string
	GameID string
}
