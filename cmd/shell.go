package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/model"
	"github.com/pable/rinkstats/internal/report"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Results are cached for the whole session. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

// shellState carries the team and season selected with 'use'.
type shellState struct {
	a      *app
	team   string
	season string
}

func runShell(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	st := &shellState{a: a}

	cGreeting.Println("rinkstats shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("rinkstats")
		if st.team != "" {
			cMuted.Printf(" [%s %s]", st.team, st.season)
		}
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "teams":
			st.teams()
		case "use":
			if len(args) != 2 {
				cError.Fprintln(os.Stderr, "usage: use <team> <season>")
				continue
			}
			st.team, st.season = args[0], args[1]
		case "games":
			st.games()
		case "team":
			st.run(func(ctx context.Context) error {
				ts, err := a.engine.GetTeamStats(ctx, st.team, st.season)
				if err == nil {
					report.PrintTeam(os.Stdout, ts)
				}
				return err
			})
		case "player":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: player <player-id> [<player-id>...]")
				continue
			}
			st.run(func(ctx context.Context) error {
				for _, id := range args {
					s, err := a.engine.GetPlayerStats(ctx, id, st.team, st.season, model.FilterOptions{})
					if err != nil {
						return err
					}
					report.PrintPlayer(os.Stdout, s)
				}
				return nil
			})
		case "leaders":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: leaders <category>")
				continue
			}
			st.run(func(ctx context.Context) error {
				lb, err := a.engine.CreateLeaderboard(ctx, st.team, st.season, args[0], a.engine.LeaderboardOptions())
				if err == nil {
					report.PrintLeaderboard(os.Stdout, lb)
				}
				return err
			})
		case "compare":
			st.run(func(ctx context.Context) error {
				cmp, err := a.engine.ComparePlayersDetailed(ctx, args, st.team, st.season, nil)
				if err == nil {
					report.PrintComparison(os.Stdout, cmp)
				}
				return err
			})
		case "cache":
			s := a.engine.CacheStats()
			cHeader.Println("cache")
			fmt.Printf("  size %d/%d  hits %d  misses %d  stale %d  evictions %d\n",
				s.Size, s.Capacity, s.Hits, s.Misses, s.Stale, s.Evictions)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
		}
	}
	return nil
}

// run executes a statistics command once a team and season are selected.
func (st *shellState) run(fn func(ctx context.Context) error) {
	if st.team == "" {
		cError.Fprintln(os.Stderr, "select a team first: use <team> <season>")
		return
	}
	if err := fn(context.Background()); err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func (st *shellState) teams() {
	teams, err := st.a.db.ListTeams(context.Background())
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(teams) == 0 {
		cMuted.Println("No teams stored yet.")
		return
	}
	cHeader.Fprintf(os.Stdout, "%-10s  %s\n", "ID", "NAME")
	for _, t := range teams {
		fmt.Fprintf(os.Stdout, "%-10s  %s\n", t.ID, t.Name)
	}
}

func (st *shellState) games() {
	if st.season == "" {
		cError.Fprintln(os.Stderr, "select a team first: use <team> <season>")
		return
	}
	games, err := st.a.db.ListGames(context.Background(), st.team, st.season)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	report.PrintGames(os.Stdout, games)
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"teams", "list all stored teams"},
		{"use <team> <season>", "select the team and season for later commands"},
		{"games", "list the selected team's games"},
		{"team", "team record and rates"},
		{"player <id> [...]", "complete statistics for one or more players"},
		{"leaders <category>", "rank the team by a statistic"},
		{"compare <id> <id> [...]", "compare 2 to 6 players"},
		{"cache", "show cache counters"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}
