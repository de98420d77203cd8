package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/report"
)

var (
	listSeason string
	listTeam   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List teams, or a season's games with --season",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listSeason, "season", "", "list the games of this season")
	listCmd.Flags().StringVar(&listTeam, "team", "", "restrict games to this team")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStorage(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()

	if listSeason == "" {
		teams, err := db.ListTeams(ctx)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}
		if len(teams) == 0 {
			fmt.Fprintln(os.Stdout, "No teams stored yet. Run 'rinkstats ingest <file.json>' to add some.")
			return nil
		}
		fmt.Fprintf(os.Stdout, "%-10s  %s\n", "ID", "NAME")
		fmt.Fprintf(os.Stdout, "%-10s  %s\n", "──────────", "────────────────────")
		for _, t := range teams {
			fmt.Fprintf(os.Stdout, "%-10s  %s\n", t.ID, t.Name)
		}
		return nil
	}

	games, err := db.ListGames(ctx, listTeam, listSeason)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	if len(games) == 0 {
		fmt.Fprintf(os.Stdout, "No games stored for season %s.\n", listSeason)
		return nil
	}
	report.PrintGames(os.Stdout, games)
	return nil
}
