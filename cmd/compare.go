package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/report"
)

var (
	compareTeam       string
	compareSeason     string
	compareCategories []string
)

var compareCmd = &cobra.Command{
	Use:   "compare <player-id> <player-id> [<player-id>...]",
	Short: "Compare 2 to 6 players of one team",
	Args:  cobra.RangeArgs(2, 6),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareTeam, "team", "", "team ID (required)")
	compareCmd.Flags().StringVar(&compareSeason, "season", "", "season, e.g. 2024-25 (required)")
	compareCmd.Flags().StringSliceVar(&compareCategories, "category", nil, "categories to compare (repeatable; default set when omitted)")
	_ = compareCmd.MarkFlagRequired("team")
	_ = compareCmd.MarkFlagRequired("season")
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cmp, err := a.engine.ComparePlayersDetailed(context.Background(), args, compareTeam, compareSeason, compareCategories)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	report.PrintComparison(os.Stdout, cmp)
	return nil
}
