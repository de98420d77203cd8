// Package api exposes the statistics engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pable/rinkstats/internal/cache"
	"github.com/pable/rinkstats/internal/leaderboard"
	"github.com/pable/rinkstats/internal/model"
	"github.com/pable/rinkstats/internal/notify"
)

// Engine is the statistics engine as seen by the HTTP layer.
type Engine interface {
	GetPlayerStats(ctx context.Context, playerID, teamID, season string, opts model.FilterOptions) (model.PlayerStatsComplete, error)
	GetTeamStats(ctx context.Context, teamID, season string) (model.TeamStats, error)
	GetGameStats(ctx context.Context, teamID, season, gameID string) (model.GameSummary, error)
	CreateLeaderboard(ctx context.Context, teamID, season, category string, opts leaderboard.Options) (leaderboard.Leaderboard, error)
	ComparePlayersDetailed(ctx context.Context, playerIDs []string, teamID, season string, categories []string) (leaderboard.Comparison, error)
	Invalidate(teamID, season, gameID string, playerIDs []string) int
	LeaderboardOptions() leaderboard.Options
	CacheStats() cache.Stats
}

// GamePlayers lists the players referenced by a game's events.
type GamePlayers interface {
	PlayersInGame(ctx context.Context, gameID string) ([]string, error)
}

// Publisher forwards invalidations to other instances.
type Publisher interface {
	Publish(ctx context.Context, n notify.Notice) error
}

// Options configure a Server. Players and Publisher are optional.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	Players        GamePlayers
	Publisher      Publisher
	Logger         *zap.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	engine    Engine
	players   GamePlayers
	publisher Publisher
	log       *zap.Logger
	router    chi.Router
}

// NewServer builds the router.
func NewServer(engine Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s := &Server{
		engine:    engine,
		players:   opts.Players,
		publisher: opts.Publisher,
		log:       opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/teams/{team}/seasons/{season}", func(r chi.Router) {
		r.Get("/", s.teamStats)
		r.Get("/players/{player}", s.playerStats)
		r.Get("/games/{game}", s.gameStats)
		r.Post("/games/{game}/invalidate", s.invalidate)
		r.Get("/leaderboards/{category}", s.leaderboard)
		r.Post("/compare", s.compare)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())))
		})
	}
}
