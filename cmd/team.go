package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/report"
)

var teamSeason string

var teamCmd = &cobra.Command{
	Use:   "team <team-id>",
	Short: "Team record and rates for a season",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeam,
}

func init() {
	teamCmd.Flags().StringVar(&teamSeason, "season", "", "season, e.g. 2024-25 (required)")
	_ = teamCmd.MarkFlagRequired("season")
}

func runTeam(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ts, err := a.engine.GetTeamStats(context.Background(), args[0], teamSeason)
	if err != nil {
		return fmt.Errorf("team stats: %w", err)
	}
	report.PrintTeam(os.Stdout, ts)
	return nil
}
