package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/model"
	"github.com/pable/rinkstats/internal/report"
)

var (
	playerTeam      string
	playerSeason    string
	playerFrom      string
	playerTo        string
	playerStrength  string
	playerVenue     string
	playerOpponents []string
)

// playerCmd prints the complete statistics of one or more players.
var playerCmd = &cobra.Command{
	Use:   "player <player-id> [<player-id>...]",
	Short: "Player statistics for a team and season",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlayer,
}

func init() {
	playerCmd.Flags().StringVar(&playerTeam, "team", "", "team ID (required)")
	playerCmd.Flags().StringVar(&playerSeason, "season", "", "season, e.g. 2024-25 (required)")
	playerCmd.Flags().StringVar(&playerFrom, "from", "", "only games on or after this date (YYYY-MM-DD)")
	playerCmd.Flags().StringVar(&playerTo, "to", "", "only games on or before this date (YYYY-MM-DD)")
	playerCmd.Flags().StringVar(&playerStrength, "strength", "", "all, even, powerplay or penalty_kill")
	playerCmd.Flags().StringVar(&playerVenue, "venue", "", "home or away")
	playerCmd.Flags().StringSliceVar(&playerOpponents, "opponent", nil, "only games against these teams (repeatable)")
	_ = playerCmd.MarkFlagRequired("team")
	_ = playerCmd.MarkFlagRequired("season")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	opts, err := parseFilter(playerFrom, playerTo, playerStrength, playerVenue, playerOpponents)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, id := range args {
		stats, err := a.engine.GetPlayerStats(context.Background(), id, playerTeam, playerSeason, opts)
		if err != nil {
			return fmt.Errorf("player %s: %w", id, err)
		}
		report.PrintPlayer(os.Stdout, stats)
	}
	return nil
}

// parseFilter builds filter options from CLI flag values. Dates are whole
// days; the to date is inclusive.
func parseFilter(from, to, strength, venue string, opponents []string) (model.FilterOptions, error) {
	opts := model.FilterOptions{
		Strength:  model.SituationalStrength(strength),
		Venue:     model.Venue(venue),
		Opponents: opponents,
	}
	var r model.DateRange
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return opts, fmt.Errorf("parse --from: %w", err)
		}
		r.From = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return opts, fmt.Errorf("parse --to: %w", err)
		}
		r.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !r.From.IsZero() || !r.To.IsZero() {
		opts.DateRange = &r
	}
	return opts, opts.Validate()
}
