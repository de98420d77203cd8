package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pable/rinkstats/internal/model"
	"github.com/pable/rinkstats/internal/notify"
	"github.com/pable/rinkstats/internal/storage"
)

// ingestFile is the JSON document accepted by ingest.
type ingestFile struct {
	Teams   []model.Team       `json:"teams"`
	Players []model.Player     `json:"players"`
	Rosters []ingestRoster     `json:"rosters"`
	Games   []model.GameResult `json:"games"`
	Events  []model.RawEvent   `json:"events"`
}

type ingestRoster struct {
	TeamID    string   `json:"teamId"`
	Season    string   `json:"season"`
	PlayerIDs []string `json:"playerIds"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json> [file.json...]",
	Short: "Load teams, players, rosters, games and events from JSON files",
	Long: `Load one or more JSON documents of the form

  {"teams": [...], "players": [...], "rosters": [{"teamId", "season", "playerIds"}],
   "games": [...], "events": [...]}

Records are upserted by ID. Events without an ID are assigned a random UUID.
When RINKSTATS_REDIS_URL is set, an invalidation notice is published for both
teams of every touched game so running servers drop stale statistics.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	touched := make(map[string]bool)
	for _, path := range args {
		games, err := ingestPath(db, path)
		if err != nil {
			return err
		}
		for _, id := range games {
			touched[id] = true
		}
	}

	if cfg.RedisURL == "" || len(touched) == 0 {
		return nil
	}
	client, err := notify.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer client.Close()

	notices, err := buildNotices(ctx, db, touched)
	if err != nil {
		return err
	}
	pub := notify.NewPublisher(client)
	for _, n := range notices {
		if err := pub.Publish(ctx, n); err != nil {
			return fmt.Errorf("publish invalidation for %s: %w", n.GameID, err)
		}
	}
	fmt.Fprintf(os.Stdout, "Published %d invalidation notice(s)\n", len(notices))
	return nil
}

// ingestPath loads one file and returns the IDs of the games it touched.
func ingestPath(db *storage.DB, path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc ingestFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	for _, t := range doc.Teams {
		if err := db.UpsertTeam(t); err != nil {
			return nil, fmt.Errorf("upsert team %s: %w", t.ID, err)
		}
	}
	for _, p := range doc.Players {
		if !p.Position.Valid() {
			return nil, fmt.Errorf("player %s: unknown position %q", p.ID, p.Position)
		}
		if err := db.UpsertPlayer(p); err != nil {
			return nil, fmt.Errorf("upsert player %s: %w", p.ID, err)
		}
	}
	for _, r := range doc.Rosters {
		if err := db.AddToRoster(r.TeamID, r.Season, r.PlayerIDs...); err != nil {
			return nil, err
		}
	}

	touched := make(map[string]bool)
	for _, g := range doc.Games {
		if g.Status == "" {
			g.Status = model.GameStatusCompleted
		}
		if err := db.UpsertGame(g); err != nil {
			return nil, fmt.Errorf("upsert game %s: %w", g.ID, err)
		}
		touched[g.ID] = true
	}

	malformed := 0
	for i := range doc.Events {
		e := &doc.Events[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if _, err := model.Decode(*e); err != nil {
			malformed++
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		touched[e.GameID] = true
	}
	if err := db.InsertEvents(doc.Events); err != nil {
		return nil, fmt.Errorf("insert events: %w", err)
	}

	fmt.Fprintf(os.Stdout, "%s: %d team(s), %d player(s), %d game(s), %d event(s)",
		path, len(doc.Teams), len(doc.Players), len(doc.Games), len(doc.Events))
	if malformed > 0 {
		fmt.Fprintf(os.Stdout, ", %d malformed (stored, skipped during aggregation)", malformed)
	}
	fmt.Fprintln(os.Stdout)

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// buildNotices returns one notice per team per touched game.
func buildNotices(ctx context.Context, db *storage.DB, gameIDs map[string]bool) ([]notify.Notice, error) {
	ids := make([]string, 0, len(gameIDs))
	for id := range gameIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []notify.Notice
	for _, id := range ids {
		g, err := db.GetGame(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get game %s: %w", id, err)
		}
		if g == nil {
			fmt.Fprintf(os.Stderr, "warning: events reference unknown game %s\n", id)
			continue
		}
		players, err := db.PlayersInGame(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("players in game %s: %w", id, err)
		}
		for _, team := range []string{g.HomeTeamID, g.AwayTeamID} {
			out = append(out, notify.Notice{TeamID: team, Season: g.Season, GameID: id, PlayerIDs: players})
		}
	}
	return out, nil
}
