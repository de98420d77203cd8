package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the statistics database",
	Long: `Run an arbitrary SQL query against the statistics database and print the
result as a table.

Tables:
  teams(id, name)
  players(id, name, jersey_number, position)
  rosters(team_id, season, player_id)
  games(id, season, game_date, home_team_id, away_team_id, home_score,
    away_score, overtime, shootout, status, modified_at)
  events(id, game_id, player_id, team_id, event_type, details,
    occurred_at, modified_at)

occurred_at and modified_at are unix nanoseconds. details holds the event's
JSON payload, e.g.

  rinkstats sql "SELECT player_id, COUNT(*) FROM events
    WHERE event_type = 'goal' AND json_extract(details, '$.strength') = 'powerplay'
    GROUP BY player_id"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStorage(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}
	report.PrintRows(os.Stdout, cols, rows)
	return nil
}
