// Package service is the statistics engine facade. It resolves players and
// teams against the directory, loads events from the store, aggregates them
// and serves results through the statistics cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pable/rinkstats/internal/aggregator"
	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/cache"
	"github.com/pable/rinkstats/internal/leaderboard"
	"github.com/pable/rinkstats/internal/metrics"
	"github.com/pable/rinkstats/internal/model"
)

// Store is the read side of the event store and directory.
type Store interface {
	GetTeam(ctx context.Context, id string) (*model.Team, error)
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	ListRoster(ctx context.Context, teamID, season string) ([]model.Player, error)
	OnRoster(ctx context.Context, teamID, season, playerID string) (bool, error)
	GetGame(ctx context.Context, id string) (*model.GameResult, error)
	ListGames(ctx context.Context, teamID, season string) ([]model.GameResult, error)
	QueryEvents(ctx context.Context, q model.EventQuery) ([]model.RawEvent, error)
}

// Options tune an Engine.
type Options struct {
	// Timeout bounds each aggregation; 0 relies on the caller's deadline.
	Timeout time.Duration
	// Workers bounds concurrent player aggregations for roster-wide queries.
	Workers int
	// MinGamesPlayed is the default leaderboard threshold.
	MinGamesPlayed int
	Logger         *zap.Logger
	Now            func() time.Time
}

// Engine serves every statistics query. It is safe for concurrent use.
type Engine struct {
	store    Store
	cache    *cache.Cache
	agg      *aggregator.Aggregator
	log      *zap.Logger
	timeout  time.Duration
	workers  int
	minGames int
	now      func() time.Time
}

// New returns an Engine reading from store and caching in c.
func New(store Store, c *cache.Cache, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:    store,
		cache:    c,
		agg:      aggregator.New(opts.Logger),
		log:      opts.Logger,
		timeout:  opts.Timeout,
		workers:  opts.Workers,
		minGames: opts.MinGamesPlayed,
		now:      opts.Now,
	}
}

// LeaderboardOptions returns leaderboard options with the configured
// games-played threshold.
func (e *Engine) LeaderboardOptions() leaderboard.Options {
	return leaderboard.Options{MinGamesPlayed: e.minGames}
}

// CacheStats reports the cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// GetPlayerStats returns the complete statistics of a player for a team and
// season, optionally filtered.
func (e *Engine) GetPlayerStats(ctx context.Context, playerID, teamID, season string, opts model.FilterOptions) (model.PlayerStatsComplete, error) {
	if err := opts.Validate(); err != nil {
		return model.PlayerStatsComplete{}, err
	}
	key := cache.PlayerKey(teamID, season, playerID, opts.Hash())
	if v, err := cache.Lookup[model.PlayerStatsComplete](ctx, e.cache, key); err == nil {
		return v, nil
	}
	epoch := e.cache.Epoch()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	player, err := e.resolvePlayer(ctx, playerID, teamID, season)
	if err != nil {
		return model.PlayerStatsComplete{}, err
	}
	tc, err := e.loadTeamContext(ctx, teamID, season)
	if err != nil {
		return model.PlayerStatsComplete{}, err
	}
	stats, err := e.computePlayer(ctx, *player, tc, opts)
	if err != nil {
		return model.PlayerStatsComplete{}, err
	}
	e.cache.SetFrom(epoch, key, stats, 0)
	return stats, nil
}

// GetTeamStats returns the team's aggregate statistics for a season.
func (e *Engine) GetTeamStats(ctx context.Context, teamID, season string) (model.TeamStats, error) {
	key := cache.TeamKey(teamID, season)
	if v, err := cache.Lookup[model.TeamStats](ctx, e.cache, key); err == nil {
		return v, nil
	}
	epoch := e.cache.Epoch()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.requireTeam(ctx, teamID); err != nil {
		return model.TeamStats{}, err
	}
	games, ids, err := e.completedGames(ctx, teamID, season)
	if err != nil {
		return model.TeamStats{}, err
	}
	var events []model.RawEvent
	if len(ids) > 0 {
		events, err = e.store.QueryEvents(ctx, model.EventQuery{Season: season, GameIDs: ids})
		if err != nil {
			return model.TeamStats{}, classify("query team events", err)
		}
	}
	ts, err := e.agg.Team(ctx, teamID, season, games, events)
	if err != nil {
		return model.TeamStats{}, classify("aggregate team", err)
	}
	e.cache.SetFrom(epoch, key, ts, 0)
	return ts, nil
}

// GetGameStats returns a game's result and the base stats of the team's
// players who appeared in it.
func (e *Engine) GetGameStats(ctx context.Context, teamID, season, gameID string) (model.GameSummary, error) {
	key := cache.GameKey(teamID, season, gameID)
	if v, err := cache.Lookup[model.GameSummary](ctx, e.cache, key); err == nil {
		return v, nil
	}
	epoch := e.cache.Epoch()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	game, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return model.GameSummary{}, classify("get game", err)
	}
	if game == nil || game.Season != season || !game.Involves(teamID) {
		return model.GameSummary{}, apperr.NotFound("game %s not found for %s in %s", gameID, teamID, season)
	}
	roster, err := e.store.ListRoster(ctx, teamID, season)
	if err != nil {
		return model.GameSummary{}, classify("list roster", err)
	}
	events, err := e.store.QueryEvents(ctx, model.EventQuery{Season: season, GameIDs: []string{gameID}})
	if err != nil {
		return model.GameSummary{}, classify("query game events", err)
	}
	summary, err := e.agg.GameSummary(ctx, teamID, *game, roster, events)
	if err != nil {
		return model.GameSummary{}, classify("aggregate game", err)
	}
	e.cache.SetFrom(epoch, key, summary, 0)
	return summary, nil
}

// CreateLeaderboard ranks the team's players by category.
func (e *Engine) CreateLeaderboard(ctx context.Context, teamID, season, category string, opts leaderboard.Options) (leaderboard.Leaderboard, error) {
	desc, ok := metrics.Lookup(category)
	if !ok {
		return leaderboard.Leaderboard{}, apperr.Validation("unknown category %q", category)
	}
	if err := opts.Validate(); err != nil {
		return leaderboard.Leaderboard{}, err
	}
	key := cache.LeaderboardKey(teamID, season, category, opts.Hash())
	if v, err := cache.Lookup[leaderboard.Leaderboard](ctx, e.cache, key); err == nil {
		return v, nil
	}
	epoch := e.cache.Epoch()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	roster, err := e.rosterStats(ctx, teamID, season)
	if err != nil {
		return leaderboard.Leaderboard{}, err
	}
	lb := leaderboard.Build(teamID, season, roster, desc, opts)
	e.cache.SetFrom(epoch, key, lb, 0)
	return lb, nil
}

// ComparePlayersDetailed compares 2 to 6 players of one team.
func (e *Engine) ComparePlayersDetailed(ctx context.Context, playerIDs []string, teamID, season string, categories []string) (leaderboard.Comparison, error) {
	categories, err := leaderboard.ValidateComparison(playerIDs, categories)
	if err != nil {
		return leaderboard.Comparison{}, err
	}
	key := cache.ComparisonKey(teamID, season, playerIDs, leaderboard.CategoriesHash(categories))
	if v, err := cache.Lookup[leaderboard.Comparison](ctx, e.cache, key); err == nil {
		// The entry is shared by every ordering of the same players.
		v.PlayerIDs = append([]string(nil), playerIDs...)
		return v, nil
	}
	epoch := e.cache.Epoch()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	roster, err := e.rosterStats(ctx, teamID, season)
	if err != nil {
		return leaderboard.Comparison{}, err
	}
	cmp, err := leaderboard.Compare(teamID, season, roster, playerIDs, categories)
	if err != nil {
		return leaderboard.Comparison{}, err
	}
	e.cache.SetFrom(epoch, key, cmp, 0)
	return cmp, nil
}

// Invalidate drops every cached result covering the game. playerIDs are the
// players referenced by the game's events; an empty gameID covers the whole
// team season.
func (e *Engine) Invalidate(teamID, season, gameID string, playerIDs []string) int {
	n := e.cache.Invalidate(teamID, season, gameID, playerIDs)
	e.log.Info("cache invalidated",
		zap.String("team", teamID),
		zap.String("season", season),
		zap.String("game", gameID),
		zap.Int("players", len(playerIDs)),
		zap.Int("removed", n))
	return n
}

// rosterStats aggregates every rostered player with no filters. The set is
// cached as a season-long aggregate and each player is cached individually.
func (e *Engine) rosterStats(ctx context.Context, teamID, season string) ([]model.PlayerStatsComplete, error) {
	key := cache.RosterKey(teamID, season)
	if v, err := cache.Lookup[[]model.PlayerStatsComplete](ctx, e.cache, key); err == nil {
		return v, nil
	}
	epoch := e.cache.Epoch()

	if err := e.requireTeam(ctx, teamID); err != nil {
		return nil, err
	}
	players, err := e.store.ListRoster(ctx, teamID, season)
	if err != nil {
		return nil, classify("list roster", err)
	}
	tc, err := e.loadTeamContext(ctx, teamID, season)
	if err != nil {
		return nil, err
	}

	out := make([]model.PlayerStatsComplete, len(players))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range players {
		g.Go(func() error {
			s, err := e.computePlayer(gctx, p, tc, model.FilterOptions{})
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	noFilter := model.FilterOptions{}.Hash()
	for _, s := range out {
		e.cache.SetFrom(epoch, cache.PlayerKey(teamID, season, s.Player.ID, noFilter), s, 0)
	}
	e.cache.SetFrom(epoch, key, out, 0)
	return out, nil
}

// teamContext is the per-team data shared by every player aggregation.
type teamContext struct {
	teamID string
	season string
	games  []model.GameResult
	ids    []string
	goals  []model.RawEvent
}

func (e *Engine) loadTeamContext(ctx context.Context, teamID, season string) (*teamContext, error) {
	games, ids, err := e.completedGames(ctx, teamID, season)
	if err != nil {
		return nil, err
	}
	tc := &teamContext{teamID: teamID, season: season, games: games, ids: ids}
	if len(ids) == 0 {
		return tc, nil
	}
	tc.goals, err = e.store.QueryEvents(ctx, model.EventQuery{
		Season:     season,
		GameIDs:    ids,
		EventTypes: []model.EventType{model.EventGoal},
	})
	if err != nil {
		return nil, classify("query goals", err)
	}
	return tc, nil
}

func (e *Engine) computePlayer(ctx context.Context, p model.Player, tc *teamContext, opts model.FilterOptions) (model.PlayerStatsComplete, error) {
	var events []model.RawEvent
	if len(tc.ids) > 0 {
		own, err := e.store.QueryEvents(ctx, model.EventQuery{PlayerID: p.ID, TeamID: tc.teamID, Season: tc.season})
		if err != nil {
			return model.PlayerStatsComplete{}, classify("query player events", err)
		}
		events = make([]model.RawEvent, 0, len(own)+len(tc.goals))
		events = append(events, own...)
		events = append(events, tc.goals...)
	}
	stats, err := e.agg.Player(ctx, aggregator.PlayerInput{
		Player:  p,
		TeamID:  tc.teamID,
		Season:  tc.season,
		Options: opts,
		Games:   tc.games,
		Events:  events,
	})
	if err != nil {
		return model.PlayerStatsComplete{}, classify("aggregate player", err)
	}
	stats.ComputedAt = e.now().UTC()
	return stats, nil
}

// completedGames returns the team's season games and the IDs of the
// completed ones.
func (e *Engine) completedGames(ctx context.Context, teamID, season string) ([]model.GameResult, []string, error) {
	games, err := e.store.ListGames(ctx, teamID, season)
	if err != nil {
		return nil, nil, classify("list games", err)
	}
	var ids []string
	for i := range games {
		if games[i].Completed() {
			ids = append(ids, games[i].ID)
		}
	}
	return games, ids, nil
}

func (e *Engine) resolvePlayer(ctx context.Context, playerID, teamID, season string) (*model.Player, error) {
	if err := e.requireTeam(ctx, teamID); err != nil {
		return nil, err
	}
	p, err := e.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, classify("get player", err)
	}
	if p == nil {
		return nil, apperr.NotFound("player %s not found", playerID)
	}
	on, err := e.store.OnRoster(ctx, teamID, season, playerID)
	if err != nil {
		return nil, classify("check roster", err)
	}
	if !on {
		return nil, apperr.NotFound("player %s is not on %s's %s roster", playerID, teamID, season)
	}
	return p, nil
}

func (e *Engine) requireTeam(ctx context.Context, teamID string) error {
	t, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return classify("get team", err)
	}
	if t == nil {
		return apperr.NotFound("team %s not found", teamID)
	}
	return nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// classify keeps domain errors as they are and turns an expired deadline
// into a timeout error.
func classify(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
