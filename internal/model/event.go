package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/gametime"
)

// EventType identifies the kind of a game event and selects its detail record.
type EventType string

const (
	EventGoal        EventType = "goal"
	EventAssist      EventType = "assist"
	EventShot        EventType = "shot"
	EventBlockedShot EventType = "blocked_shot"
	EventPenalty     EventType = "penalty"
	EventFaceoff     EventType = "faceoff"
	EventHit         EventType = "hit"
	EventGiveaway    EventType = "giveaway"
	EventTakeaway    EventType = "takeaway"
	EventShift       EventType = "shift"
	EventSave        EventType = "save"
	EventGoalAgainst EventType = "goal_against"
)

// Strength is the manpower situation from the perspective of the event's team.
type Strength string

const (
	StrengthEven        Strength = "even"
	StrengthPowerPlay   Strength = "powerplay"
	StrengthShortHanded Strength = "shorthanded"
)

// Invert returns the same situation seen from the opposing bench.
func (s Strength) Invert() Strength {
	switch s {
	case StrengthPowerPlay:
		return StrengthShortHanded
	case StrengthShortHanded:
		return StrengthPowerPlay
	default:
		return s
	}
}

// ShotLocation buckets where a shot was taken from.
type ShotLocation string

const (
	LocationSlot  ShotLocation = "slot"
	LocationClose ShotLocation = "close"
	LocationFar   ShotLocation = "far"
)

// RinkZone is a zone relative to the acting team.
type RinkZone string

const (
	ZoneOffensive RinkZone = "offensive"
	ZoneNeutral   RinkZone = "neutral"
	ZoneDefensive RinkZone = "defensive"
	ZoneOnTheFly  RinkZone = "on_the_fly"
)

// AssistType distinguishes primary from secondary assists.
type AssistType string

const (
	AssistPrimary   AssistType = "primary"
	AssistSecondary AssistType = "secondary"
)

// Situation is carried by every detail record.
type Situation struct {
	Period   int      `json:"period"`
	Strength Strength `json:"strength"`
}

// Context returns the situation itself; embedding types inherit it.
func (s Situation) Context() Situation { return s }

// Details is the tagged union of per-type event payloads.
type Details interface {
	Kind() EventType
	Context() Situation
}

type GoalDetails struct {
	Situation
	ShotType    string       `json:"shotType"`
	Location    ShotLocation `json:"location"`
	GameWinning bool         `json:"gameWinning"`
	Overtime    bool         `json:"overtime"`
	EmptyNet    bool         `json:"emptyNet"`
	GoalieID    string       `json:"goalieId"`
	// OnIce lists skaters of both teams on the ice when the goal was scored.
	OnIce []string `json:"onIce"`
}

type AssistDetails struct {
	Situation
	AssistType  AssistType `json:"assistType"`
	GoalEventID string     `json:"goalEventId"`
}

type ShotDetails struct {
	Situation
	ShotType string       `json:"shotType"`
	Location ShotLocation `json:"location"`
	OnGoal   bool         `json:"onGoal"`
	GoalieID string       `json:"goalieId"`
}

type BlockedShotDetails struct {
	Situation
	ShooterID string `json:"shooterId"`
}

type PenaltyDetails struct {
	Situation
	Minutes    int    `json:"minutes"`
	Infraction string `json:"infraction"`
}

type FaceoffDetails struct {
	Situation
	Won  bool     `json:"won"`
	Zone RinkZone `json:"zone"`
}

// PlayDetails covers hits, giveaways and takeaways.
type PlayDetails struct {
	Situation
	Zone RinkZone `json:"zone"`
	kind EventType
}

type ShiftDetails struct {
	Situation
	DurationSeconds int
	StartZone       RinkZone
}

// GoaltendingDetails covers saves and goals against, credited to the goalie.
type GoaltendingDetails struct {
	Situation
	ShotType  string       `json:"shotType"`
	Location  ShotLocation `json:"location"`
	ShooterID string       `json:"shooterId"`
	kind      EventType
}

func (GoalDetails) Kind() EventType { return EventGoal }
func (AssistDetails) Kind() EventType { return EventAssist }
func (ShotDetails) Kind() EventType { return EventShot }
func (BlockedShotDetails) Kind() EventType { return EventBlockedShot }
func (PenaltyDetails) Kind() EventType { return EventPenalty }
func (FaceoffDetails) Kind() EventType { return EventFaceoff }
func (d PlayDetails) Kind() EventType { return d.kind }
func (ShiftDetails) Kind() EventType { return EventShift }
func (d GoaltendingDetails) Kind() EventType { return d.kind }

// RawEvent is an event as stored, with an undecoded detail payload.
type RawEvent struct {
	ID         string          `json:"id"`
	GameID     string          `json:"gameId"`
	PlayerID   string          `json:"playerId"`
	TeamID     string          `json:"teamId"`
	Type       EventType       `json:"eventType"`
	Details    json.RawMessage `json:"eventDetails"`
	Timestamp  time.Time       `json:"timestamp"`
	ModifiedAt time.Time       `json:"-"`
}

// GameEvent is a decoded, immutable game event.
type GameEvent struct {
	ID        string
	GameID    string
	PlayerID  string
	TeamID    string
	Type      EventType
	Details   Details
	Timestamp time.Time
}

// Strength returns the event's manpower situation.
func (e *GameEvent) Strength() Strength {
	return e.Details.Context().Strength
}

// Decode parses raw's detail payload into its typed record. Malformed
// payloads return a computation error; callers skip such events.
func Decode(raw RawEvent) (GameEvent, error) {
	ev := GameEvent{
		ID:        raw.ID,
		GameID:    raw.GameID,
		PlayerID:  raw.PlayerID,
		TeamID:    raw.TeamID,
		Type:      raw.Type,
		Timestamp: raw.Timestamp,
	}
	d, err := decodeDetails(raw.Type, raw.Details)
	if err != nil {
		return GameEvent{}, apperr.Wrap(apperr.CodeComputation, fmt.Sprintf("decode event %s (%s)", raw.ID, raw.Type), err)
	}
	ev.Details = d
	return ev, nil
}

func decodeDetails(t EventType, payload json.RawMessage) (Details, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	switch t {
	case EventGoal:
		var d GoalDetails
		if err := unmarshal(payload, &d); err != nil {
			return nil, err
		}
		if err := checkLocation(d.Location); err != nil {
			return nil, err
		}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	case EventAssist:
		var d AssistDetails
		if err := unmarshal(payload, &d); err != nil {
			return nil, err
		}
		switch d.AssistType {
		case "":
			d.AssistType = AssistPrimary
		case AssistPrimary, AssistSecondary:
		default:
			return nil, fmt.Errorf("unknown assist type %q", d.AssistType)
		}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	case EventShot:
		var d ShotDetails
		if err := unmarshal(payload, &d); err != nil {
			return nil, err
		}
		if err := checkLocation(d.Location); err != nil {
			return nil, err
		}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	case EventBlockedShot:
		var d BlockedShotDetails
		if err := unmarshal(payload, &d); err != nil {
			return nil, err
		}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	case EventPenalty:
		var d PenaltyDetails
		if err := unmarshal(payload, &d); err != nil {
			return nil, err
		}
		if d.Minutes < 0 {
			return nil, fmt.Errorf("negative penalty minutes %d", d.Minutes)
		}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	case EventFaceoff:
		var d FaceoffDetails
		if err := unmarshal(payload, &d); err != nil {
			return nil, err
		}
		if err := checkZone(d.Zone, false); err != nil {
			return nil, err
		}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	case EventHit, EventGiveaway, EventTakeaway:
		d := PlayDetails{kind: t}
		if err := unmarshal(payload, &d); err != nil {
			return nil, err
		}
		if err := checkZone(d.Zone, false); err != nil {
			return nil, err
		}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	case EventShift:
		var wire struct {
			Situation
			Duration  string   `json:"duration"`
			StartZone RinkZone `json:"startZone"`
		}
		if err := unmarshal(payload, &wire); err != nil {
			return nil, err
		}
		secs, err := gametime.TimeToSeconds(wire.Duration)
		if err != nil {
			return nil, err
		}
		if err := checkZone(wire.StartZone, true); err != nil {
			return nil, err
		}
		d := ShiftDetails{Situation: wire.Situation, DurationSeconds: secs, StartZone: wire.StartZone}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	case EventSave, EventGoalAgainst:
		d := GoaltendingDetails{kind: t}
		if err := unmarshal(payload, &d); err != nil {
			return nil, err
		}
		if err := checkLocation(d.Location); err != nil {
			return nil, err
		}
		if err := normalize(&d.Situation); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}

func unmarshal(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("unmarshal details: %w", err)
	}
	return nil
}

func normalize(s *Situation) error {
	switch s.Strength {
	case "":
		s.Strength = StrengthEven
	case StrengthEven, StrengthPowerPlay, StrengthShortHanded:
	default:
		return fmt.Errorf("unknown strength %q", s.Strength)
	}
	if s.Period < 0 {
		return fmt.Errorf("negative period %d", s.Period)
	}
	return nil
}

func checkLocation(l ShotLocation) error {
	switch l {
	case "", LocationSlot, LocationClose, LocationFar:
		return nil
	}
	return fmt.Errorf("unknown shot location %q", l)
}

func checkZone(z RinkZone, allowOnTheFly bool) error {
	switch z {
	case "", ZoneOffensive, ZoneNeutral, ZoneDefensive:
		return nil
	case ZoneOnTheFly:
		if allowOnTheFly {
			return nil
		}
	}
	return fmt.Errorf("unknown zone %q", z)
}
