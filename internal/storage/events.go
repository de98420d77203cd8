package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pable/rinkstats/internal/model"
)

// InsertEvents bulk-inserts events in a transaction. Re-inserting an event ID
// replaces it. Every written row is stamped with the current time so cached
// statistics covering it become stale.
func (db *DB) InsertEvents(events []model.RawEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO events(id, game_id, player_id, team_id, event_type, details, occurred_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := db.now().UnixNano()
	for _, e := range events {
		details := string(e.Details)
		if details == "" {
			details = "{}"
		}
		if _, err := stmt.Exec(e.ID, e.GameID, e.PlayerID, e.TeamID, string(e.Type),
			details, unixNano(e.Timestamp), now); err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// QueryEvents returns events of completed games matching q, ordered by
// occurrence time then ID.
func (db *DB) QueryEvents(ctx context.Context, q model.EventQuery) ([]model.RawEvent, error) {
	var where []string
	var args []any

	where = append(where, `g.status = ?`)
	args = append(args, model.GameStatusCompleted)
	if q.Season != "" {
		where = append(where, `g.season = ?`)
		args = append(args, q.Season)
	}
	if q.PlayerID != "" {
		where = append(where, `e.player_id = ?`)
		args = append(args, q.PlayerID)
	}
	if q.TeamID != "" {
		where = append(where, `e.team_id = ?`)
		args = append(args, q.TeamID)
	}
	if len(q.GameIDs) > 0 {
		where = append(where, `e.game_id IN (`+placeholders(len(q.GameIDs))+`)`)
		for _, id := range q.GameIDs {
			args = append(args, id)
		}
	}
	if len(q.EventTypes) > 0 {
		where = append(where, `e.event_type IN (`+placeholders(len(q.EventTypes))+`)`)
		for _, t := range q.EventTypes {
			args = append(args, string(t))
		}
	}
	if r := q.DateRange; r != nil {
		if !r.From.IsZero() {
			where = append(where, `g.game_date >= ?`)
			args = append(args, formatDate(r.From))
		}
		if !r.To.IsZero() {
			where = append(where, `g.game_date <= ?`)
			args = append(args, formatDate(r.To))
		}
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT e.id, e.game_id, e.player_id, e.team_id, e.event_type, e.details, e.occurred_at, e.modified_at
		FROM events e JOIN games g ON g.id = e.game_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY e.occurred_at, e.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.RawEvent
	for rows.Next() {
		var e model.RawEvent
		var typ, details string
		var occurred, modified int64
		if err := rows.Scan(&e.ID, &e.GameID, &e.PlayerID, &e.TeamID, &typ, &details, &occurred, &modified); err != nil {
			return nil, err
		}
		e.Type = model.EventType(typ)
		e.Details = []byte(details)
		e.Timestamp = fromUnixNano(occurred)
		e.ModifiedAt = fromUnixNano(modified)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastModified returns the newest modification time of any game or event in
// the scope. A scope with a GameID covers that game only; otherwise every
// game of the team in the season. Empty scopes return the zero time.
func (db *DB) LastModified(ctx context.Context, scope model.Scope) (time.Time, error) {
	gameFilter := `g.season = ? AND (g.home_team_id = ? OR g.away_team_id = ?)`
	args := []any{scope.Season, scope.TeamID, scope.TeamID}
	if scope.GameID != "" {
		gameFilter = `g.id = ?`
		args = []any{scope.GameID}
	}
	query := `
		SELECT MAX(m) FROM (
			SELECT MAX(g.modified_at) AS m FROM games g WHERE ` + gameFilter + `
			UNION ALL
			SELECT MAX(e.modified_at) AS m FROM events e JOIN games g ON g.id = e.game_id WHERE ` + gameFilter + `
		)`
	var latest sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, query, append(args, args...)...).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("last modified: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return fromUnixNano(latest.Int64), nil
}

// PlayersInGame returns the distinct player IDs referenced by a game's
// events, including skaters listed on ice for goals. Goal payloads that do
// not parse contribute only their scorer.
func (db *DB) PlayersInGame(ctx context.Context, gameID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT player_id, event_type, details FROM events WHERE game_id = ?`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var id, typ, details string
		if err := rows.Scan(&id, &typ, &details); err != nil {
			return nil, err
		}
		seen[id] = true
		if model.EventType(typ) != model.EventGoal {
			continue
		}
		var g struct {
			OnIce []string `json:"onIce"`
		}
		if json.Unmarshal([]byte(details), &g) == nil {
			for _, p := range g.OnIce {
				seen[p] = true
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
