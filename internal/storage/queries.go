package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pable/rinkstats/internal/model"
)

// UpsertTeam inserts or replaces a team. Uses INSERT OR REPLACE for idempotency.
func (db *DB) UpsertTeam(t model.Team) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO teams(id, name) VALUES (?, ?)`, t.ID, t.Name)
	return err
}

// UpsertPlayer inserts or replaces a player.
func (db *DB) UpsertPlayer(p model.Player) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO players(id, name, jersey_number, position)
		VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.JerseyNumber, string(p.Position))
	return err
}

// AddToRoster records players as members of a team for a season.
func (db *DB) AddToRoster(teamID, season string, playerIDs ...string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO rosters(team_id, season, player_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range playerIDs {
		if _, err := stmt.Exec(teamID, season, id); err != nil {
			return fmt.Errorf("add %s to %s roster: %w", id, teamID, err)
		}
	}
	return tx.Commit()
}

// UpsertGame inserts or replaces a game result and stamps its modification
// time, so score corrections make cached statistics stale.
func (db *DB) UpsertGame(g model.GameResult) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO games(id, season, game_date, home_team_id, away_team_id,
			home_score, away_score, overtime, shootout, status, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Season, formatDate(g.Date), g.HomeTeamID, g.AwayTeamID,
		g.HomeScore, g.AwayScore, boolInt(g.Overtime), boolInt(g.Shootout), g.Status,
		db.now().UnixNano(),
	)
	return err
}

// GetTeam returns the team with the given ID, or nil if it does not exist.
func (db *DB) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	var t model.Team
	err := db.conn.QueryRowContext(ctx, `SELECT id, name FROM teams WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTeams returns every team ordered by ID.
func (db *DB) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM teams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetPlayer returns the player with the given ID, or nil if it does not exist.
func (db *DB) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	var p model.Player
	var pos string
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, name, jersey_number, position FROM players WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.JerseyNumber, &pos)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Position = model.Position(pos)
	return &p, nil
}

// ListRoster returns the team's players for a season ordered by jersey number.
func (db *DB) ListRoster(ctx context.Context, teamID, season string) ([]model.Player, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.id, p.name, p.jersey_number, p.position
		FROM rosters r JOIN players p ON p.id = r.player_id
		WHERE r.team_id = ? AND r.season = ?
		ORDER BY p.jersey_number, p.id`, teamID, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Player
	for rows.Next() {
		var p model.Player
		var pos string
		if err := rows.Scan(&p.ID, &p.Name, &p.JerseyNumber, &pos); err != nil {
			return nil, err
		}
		p.Position = model.Position(pos)
		out = append(out, p)
	}
	return out, rows.Err()
}

// OnRoster reports whether the player is rostered by the team for the season.
func (db *DB) OnRoster(ctx context.Context, teamID, season, playerID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM rosters WHERE team_id = ? AND season = ? AND player_id = ?`,
		teamID, season, playerID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

const gameColumns = `id, season, game_date, home_team_id, away_team_id,
	home_score, away_score, overtime, shootout, status`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (model.GameResult, error) {
	var g model.GameResult
	var date string
	var ot, so int
	if err := s.Scan(&g.ID, &g.Season, &date, &g.HomeTeamID, &g.AwayTeamID,
		&g.HomeScore, &g.AwayScore, &ot, &so, &g.Status); err != nil {
		return g, err
	}
	d, err := parseDate(date)
	if err != nil {
		return g, fmt.Errorf("game %s: parse date: %w", g.ID, err)
	}
	g.Date = d
	g.Overtime = ot != 0
	g.Shootout = so != 0
	return g, nil
}

// GetGame returns the game with the given ID, or nil if it does not exist.
func (db *DB) GetGame(ctx context.Context, id string) (*model.GameResult, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGames returns every game of the team in the season, oldest first. An
// empty teamID lists the whole season.
func (db *DB) ListGames(ctx context.Context, teamID, season string) ([]model.GameResult, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE season = ?`
	args := []any{season}
	if teamID != "" {
		query += ` AND (home_team_id = ? OR away_team_id = ?)`
		args = append(args, teamID, teamID)
	}
	query += ` ORDER BY game_date, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GameResult
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
