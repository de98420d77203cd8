package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/metrics"
	"github.com/pable/rinkstats/internal/report"
)

var (
	leadersTeam     string
	leadersSeason   string
	leadersPosition string
	leadersMinGames int
	leadersLimit    int
)

var leadersCmd = &cobra.Command{
	Use:   "leaders [category]",
	Short: "Rank a team's players by a statistic; lists categories when none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLeaders,
}

func init() {
	leadersCmd.Flags().StringVar(&leadersTeam, "team", "", "team ID")
	leadersCmd.Flags().StringVar(&leadersSeason, "season", "", "season, e.g. 2024-25")
	leadersCmd.Flags().StringVar(&leadersPosition, "position", "", "position (C, LW, RW, D, G) or group (F, D, G)")
	leadersCmd.Flags().IntVar(&leadersMinGames, "min-games", -1, "minimum games played (default from RINKSTATS_MIN_GAMES_PLAYED)")
	leadersCmd.Flags().IntVar(&leadersLimit, "limit", 0, "show at most this many players (0 = all)")
}

func runLeaders(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(os.Stdout, "%-24s  %-28s  %s\n", "CATEGORY", "LABEL", "ORDER")
		for _, key := range metrics.Keys() {
			d, _ := metrics.Lookup(key)
			order := "higher is better"
			if d.Direction == metrics.LowerIsBetter {
				order = "lower is better"
			}
			fmt.Fprintf(os.Stdout, "%-24s  %-28s  %s\n", d.Key, d.Label, order)
		}
		return nil
	}
	if leadersTeam == "" || leadersSeason == "" {
		return fmt.Errorf("--team and --season are required")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.engine.LeaderboardOptions()
	opts.Position = leadersPosition
	opts.Limit = leadersLimit
	if leadersMinGames >= 0 {
		opts.MinGamesPlayed = leadersMinGames
	}
	lb, err := a.engine.CreateLeaderboard(context.Background(), leadersTeam, leadersSeason, args[0], opts)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	if len(lb.Entries) == 0 {
		fmt.Fprintf(os.Stdout, "No eligible players (min games played: %d).\n", opts.MinGamesPlayed)
		return nil
	}
	report.PrintLeaderboard(os.Stdout, lb)
	return nil
}
