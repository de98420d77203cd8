package cache

import (
	"sort"
	"strings"
	"time"

	"github.com/pable/rinkstats/internal/model"
)

// Kind is the entity type of a cached value.
type Kind string

const (
	KindPlayer      Kind = "player"
	KindTeam        Kind = "team"
	KindGame        Kind = "game"
	KindLeaderboard Kind = "leaderboard"
	KindComparison  Kind = "comparison"
	// KindRoster holds season-long aggregates over a whole roster.
	KindRoster Kind = "roster"
)

// Key identifies a cached value. IDs holds the entity identifiers: a player
// ID, a game ID, a leaderboard category or the compared player IDs.
type Key struct {
	Kind        Kind
	TeamID      string
	Season      string
	IDs         []string
	OptionsHash string
}

// PlayerKey keys one player's statistics under a filter hash.
func PlayerKey(teamID, season, playerID, optionsHash string) Key {
	return Key{Kind: KindPlayer, TeamID: teamID, Season: season, IDs: []string{playerID}, OptionsHash: optionsHash}
}

// TeamKey keys a team's season statistics.
func TeamKey(teamID, season string) Key {
	return Key{Kind: KindTeam, TeamID: teamID, Season: season}
}

// GameKey keys a per-game summary.
func GameKey(teamID, season, gameID string) Key {
	return Key{Kind: KindGame, TeamID: teamID, Season: season, IDs: []string{gameID}}
}

// RosterKey keys the season aggregate of every rostered player.
func RosterKey(teamID, season string) Key {
	return Key{Kind: KindRoster, TeamID: teamID, Season: season}
}

// LeaderboardKey keys a leaderboard; optionsHash covers position, minimum
// games and limit.
func LeaderboardKey(teamID, season, category, optionsHash string) Key {
	return Key{Kind: KindLeaderboard, TeamID: teamID, Season: season, IDs: []string{category}, OptionsHash: optionsHash}
}

// ComparisonKey keys a multi-player comparison. The player set is sorted, so
// the same players in any order share one entry.
func ComparisonKey(teamID, season string, playerIDs []string, optionsHash string) Key {
	ids := append([]string(nil), playerIDs...)
	sort.Strings(ids)
	return Key{Kind: KindComparison, TeamID: teamID, Season: season, IDs: ids, OptionsHash: optionsHash}
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, ",", `\,`)

// String renders the composite key, e.g. "player|TOR|2024-25|p1|ab12".
// Separators inside field values are backslash-escaped.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	b.WriteByte('|')
	keyEscaper.WriteString(&b, k.TeamID)
	b.WriteByte('|')
	keyEscaper.WriteString(&b, k.Season)
	b.WriteByte('|')
	for i, id := range k.IDs {
		if i > 0 {
			b.WriteByte(',')
		}
		keyEscaper.WriteString(&b, id)
	}
	b.WriteByte('|')
	keyEscaper.WriteString(&b, k.OptionsHash)
	return b.String()
}

// Scope returns the slice of the event store the value depends on.
func (k Key) Scope() model.Scope {
	s := model.Scope{TeamID: k.TeamID, Season: k.Season}
	if k.Kind == KindGame && len(k.IDs) > 0 {
		s.GameID = k.IDs[0]
	}
	return s
}

func (k Key) firstID() string {
	if len(k.IDs) == 0 {
		return ""
	}
	return k.IDs[0]
}

// TTLs are the per-category lifetimes.
type TTLs struct {
	Player      time.Duration
	Team        time.Duration
	Leaderboard time.Duration
	Season      time.Duration
}

// DefaultTTLs returns 5/10/15/60 minutes.
func DefaultTTLs() TTLs {
	return TTLs{
		Player:      5 * time.Minute,
		Team:        10 * time.Minute,
		Leaderboard: 15 * time.Minute,
		Season:      60 * time.Minute,
	}
}

// For returns the lifetime of a kind. Game summaries live as long as team
// stats and comparisons as long as leaderboards.
func (t TTLs) For(k Kind) time.Duration {
	switch k {
	case KindPlayer:
		return t.Player
	case KindTeam, KindGame:
		return t.Team
	case KindLeaderboard, KindComparison:
		return t.Leaderboard
	case KindRoster:
		return t.Season
	}
	return t.Player
}
