package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/report"
)

var (
	gameTeam   string
	gameSeason string
)

var gameCmd = &cobra.Command{
	Use:   "game <game-id>",
	Short: "Per-player box score of one team in one game",
	Args:  cobra.ExactArgs(1),
	RunE:  runGame,
}

func init() {
	gameCmd.Flags().StringVar(&gameTeam, "team", "", "team ID (required)")
	gameCmd.Flags().StringVar(&gameSeason, "season", "", "season, e.g. 2024-25 (required)")
	_ = gameCmd.MarkFlagRequired("team")
	_ = gameCmd.MarkFlagRequired("season")
}

func runGame(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	sum, err := a.engine.GetGameStats(ctx, gameTeam, gameSeason, args[0])
	if err != nil {
		return fmt.Errorf("game stats: %w", err)
	}
	roster, err := a.db.ListRoster(ctx, gameTeam, gameSeason)
	if err != nil {
		return fmt.Errorf("list roster: %w", err)
	}
	names := make(map[string]string, len(roster))
	for _, p := range roster {
		names[p.ID] = p.Name
	}
	report.PrintGame(os.Stdout, sum, names)
	return nil
}
