package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/rinkstats/internal/gametime"
	"github.com/pable/rinkstats/internal/leaderboard"
	"github.com/pable/rinkstats/internal/metrics"
	"github.com/pable/rinkstats/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func optPct(v *float64) string {
	if v == nil {
		return "—"
	}
	return pct(*v)
}

func clock(seconds int) string {
	s, err := gametime.SecondsToTime(seconds)
	if err != nil {
		return "—"
	}
	return s
}

func signed(n int) string {
	return fmt.Sprintf("%+d", n)
}

// PrintPlayer writes the complete statistics of one player.
func PrintPlayer(w io.Writer, s model.PlayerStatsComplete) {
	fmt.Fprintf(w, "\n%s (#%d, %s)  |  Team: %s  |  Season: %s\n\n",
		s.Player.Name, s.Player.JerseyNumber, s.Player.Position, s.Base.TeamID, s.Base.Season)

	b := s.Base
	table := newTable(w)
	table.Header("GP", "G", "A", "P", "+/-", "PIM", "S", "SOG", "SH%", "HIT", "BLK", "GV", "TK", "P/GP")
	table.Append(
		strconv.Itoa(b.GamesPlayed),
		strconv.Itoa(b.Goals),
		strconv.Itoa(b.Assists),
		strconv.Itoa(b.Points),
		signed(b.PlusMinus),
		strconv.Itoa(b.PenaltyMinutes),
		strconv.Itoa(b.Shots),
		strconv.Itoa(b.ShotsOnGoal),
		pct(s.Derived.ShootingPct),
		strconv.Itoa(b.Hits),
		strconv.Itoa(b.Blocked),
		strconv.Itoa(b.Giveaways),
		strconv.Itoa(b.Takeaways),
		fmt.Sprintf("%.2f", s.Derived.PointsPerGame),
	)
	table.Render()

	if sk := s.Skater; sk != nil {
		fmt.Fprintln(w)
		table := newTable(w)
		table.Header("TOI", "TOI/GP", "SHIFTS", "PPG", "PPA", "SHG", "SHA", "GWG", "OTG", "FO%")
		table.Append(
			clock(sk.TimeOnIceSeconds),
			clock(int(s.Derived.TimeOnIcePerGame)),
			strconv.Itoa(sk.Shifts),
			strconv.Itoa(sk.PowerPlayGoals),
			strconv.Itoa(sk.PowerPlayAssists),
			strconv.Itoa(sk.ShortHandedGoals),
			strconv.Itoa(sk.ShortHandedAssists),
			strconv.Itoa(sk.GameWinningGoals),
			strconv.Itoa(sk.OvertimeGoals),
			optPct(s.Derived.FaceoffPct),
		)
		table.Render()
	}

	if g := s.Goalie; g != nil {
		fmt.Fprintln(w)
		table := newTable(w)
		table.Header("GP", "W", "L", "OTL", "SA", "SV", "GA", "SV%", "GAA", "SO", "TOI")
		table.Append(
			strconv.Itoa(g.GamesPlayed),
			strconv.Itoa(g.Wins),
			strconv.Itoa(g.Losses),
			strconv.Itoa(g.OvertimeLosses),
			strconv.Itoa(g.ShotsAgainst),
			strconv.Itoa(g.Saves),
			strconv.Itoa(g.GoalsAgainst),
			pct(s.Derived.SavePct),
			fmt.Sprintf("%.2f", s.Derived.GoalsAgainstAverage),
			strconv.Itoa(g.Shutouts),
			clock(g.TimeOnIceSeconds),
		)
		table.Render()
	}

	if a := s.Advanced; a != nil {
		fmt.Fprintln(w)
		table := newTable(w)
		table.Header("G/60", "A/60", "P/60", "S/60", "OZS%", "xG", "G-xG", "A1%")
		per60 := func(v float64) string {
			if !a.TimeOnIceKnown {
				return "—"
			}
			return fmt.Sprintf("%.2f", v)
		}
		table.Append(
			per60(a.GoalsPer60),
			per60(a.AssistsPer60),
			per60(a.PointsPer60),
			per60(a.ShotsPer60),
			pct(a.ZoneStartPct),
			fmt.Sprintf("%.2f", a.ExpectedGoals),
			fmt.Sprintf("%+.2f", a.GoalsDifference),
			pct(a.PrimaryAssistPct),
		)
		table.Render()
	}

	if s.SkippedEvents > 0 {
		fmt.Fprintf(w, "\n%d malformed event(s) skipped\n", s.SkippedEvents)
	}
}

func record(r model.Record) string {
	return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.OvertimeLosses)
}

// PrintTeam writes a team's season aggregate.
func PrintTeam(w io.Writer, ts model.TeamStats) {
	fmt.Fprintf(w, "\nTeam: %s  |  Season: %s  |  Record: %s  |  Home: %s  |  Away: %s\n\n",
		ts.TeamID, ts.Season, record(ts.Record), record(ts.HomeRecord), record(ts.AwayRecord))

	table := newTable(w)
	table.Header("GP", "PTS", "PTS%", "GF", "GA", "DIFF", "GF/GP", "GA/GP", "SF", "SA", "PP%", "PK%", "PIM")
	table.Append(
		strconv.Itoa(ts.GamesPlayed),
		strconv.Itoa(ts.Points),
		pct(ts.PointsPct),
		strconv.Itoa(ts.GoalsFor),
		strconv.Itoa(ts.GoalsAgainst),
		signed(ts.GoalDifferential),
		fmt.Sprintf("%.2f", ts.GoalsForPerGame),
		fmt.Sprintf("%.2f", ts.GoalsAgainstPerGame),
		strconv.Itoa(ts.ShotsFor),
		strconv.Itoa(ts.ShotsAgainst),
		fmt.Sprintf("%s (%d/%d)", pct(ts.PowerPlayPct), ts.PowerPlayGoals, ts.PowerPlayOpportunities),
		fmt.Sprintf("%s (%d/%d)", pct(ts.PenaltyKillPct), ts.TimesShorthanded-ts.PowerPlayGoalsAgainst, ts.TimesShorthanded),
		strconv.Itoa(ts.PenaltyMinutes),
	)
	table.Render()
}

// PrintGame writes a game summary. names maps player IDs to display names;
// missing names fall back to the ID.
func PrintGame(w io.Writer, sum model.GameSummary, names map[string]string) {
	g := sum.Game
	fmt.Fprintf(w, "\nGame: %s  |  Date: %s  |  %s %d – %s %d%s\n\n",
		g.ID, g.Date.Format("2006-01-02"), g.AwayTeamID, g.AwayScore, g.HomeTeamID, g.HomeScore, suffix(g))

	table := newTable(w)
	table.Header("PLAYER", "G", "A", "P", "+/-", "S", "SOG", "PIM", "HIT", "BLK", "FOW", "FOL")
	for _, p := range sum.Players {
		name := names[p.PlayerID]
		if name == "" {
			name = p.PlayerID
		}
		table.Append(
			name,
			strconv.Itoa(p.Goals),
			strconv.Itoa(p.Assists),
			strconv.Itoa(p.Points),
			signed(p.PlusMinus),
			strconv.Itoa(p.Shots),
			strconv.Itoa(p.ShotsOnGoal),
			strconv.Itoa(p.PenaltyMinutes),
			strconv.Itoa(p.Hits),
			strconv.Itoa(p.Blocked),
			strconv.Itoa(p.FaceoffsWon),
			strconv.Itoa(p.FaceoffsLost),
		)
	}
	table.Render()
}

func suffix(g model.GameResult) string {
	switch {
	case g.Shootout:
		return " (SO)"
	case g.Overtime:
		return " (OT)"
	}
	return ""
}

// PrintGames writes one row per game.
func PrintGames(w io.Writer, games []model.GameResult) {
	table := newTable(w)
	table.Header("ID", "DATE", "SEASON", "AWAY", "HOME", "SCORE", "STATUS")
	for _, g := range games {
		table.Append(
			g.ID,
			g.Date.Format("2006-01-02"),
			g.Season,
			g.AwayTeamID,
			g.HomeTeamID,
			fmt.Sprintf("%d-%d%s", g.AwayScore, g.HomeScore, suffix(g)),
			g.Status,
		)
	}
	table.Render()
}

// PrintLeaderboard writes a ranked category.
func PrintLeaderboard(w io.Writer, lb leaderboard.Leaderboard) {
	fmt.Fprintf(w, "\n%s  |  Team: %s  |  Season: %s  |  Eligible: %d  |  Order: %s\n\n",
		lb.Label, lb.TeamID, lb.Season, lb.Eligible, lb.Order)

	table := newTable(w)
	table.Header("RANK", "PLAYER", "POS", "GP", "VALUE", "PCTL")
	for _, e := range lb.Entries {
		table.Append(
			strconv.Itoa(e.Rank),
			e.Name,
			string(e.Position),
			strconv.Itoa(e.GamesPlayed),
			e.Display,
			fmt.Sprintf("%.1f", e.Percentile),
		)
	}
	table.Render()
}

// PrintComparison writes one table row per category with each compared
// player's value and team rank, followed by the insights.
func PrintComparison(w io.Writer, cmp leaderboard.Comparison) {
	fmt.Fprintf(w, "\nComparison  |  Team: %s  |  Season: %s\n\n", cmp.TeamID, cmp.Season)

	names := make(map[string]string)
	for _, entries := range cmp.Rankings {
		for _, e := range entries {
			names[e.PlayerID] = e.Name
		}
	}

	header := []any{"CATEGORY"}
	for _, id := range cmp.PlayerIDs {
		name := names[id]
		if name == "" {
			name = id
		}
		header = append(header, name)
	}
	header = append(header, "TEAM AVG", "F AVG", "D AVG", "G AVG")

	table := newTable(w)
	table.Header(header...)
	for _, cat := range cmp.Categories {
		desc, _ := metrics.Lookup(cat)
		byID := make(map[string]leaderboard.Entry)
		for _, e := range cmp.Rankings[cat] {
			byID[e.PlayerID] = e
		}
		row := []any{desc.Label}
		for _, id := range cmp.PlayerIDs {
			if e, ok := byID[id]; ok {
				row = append(row, fmt.Sprintf("%s (#%d)", e.Display, e.Rank))
			} else {
				row = append(row, "—")
			}
		}
		row = append(row, fmt.Sprintf("%.2f", cmp.TeamAverages[cat]))
		for _, g := range []string{"F", "D", "G"} {
			if v, ok := cmp.PositionAverages[cat][g]; ok {
				row = append(row, fmt.Sprintf("%.2f", v))
			} else {
				row = append(row, "—")
			}
		}
		table.Append(row...)
	}
	table.Render()

	if len(cmp.Insights) == 0 {
		return
	}
	insights := append([]leaderboard.Insight(nil), cmp.Insights...)
	sort.SliceStable(insights, func(i, j int) bool { return insights[i].Category < insights[j].Category })
	fmt.Fprintln(w, "\nInsights:")
	for _, in := range insights {
		fmt.Fprintf(w, "  - %s\n", in.Message)
	}
}

// PrintRows writes the result of a raw query, followed by the row count.
func PrintRows(w io.Writer, cols []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}
