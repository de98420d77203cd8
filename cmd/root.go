package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/rinkstats/internal/cache"
	"github.com/pable/rinkstats/internal/config"
	"github.com/pable/rinkstats/internal/logging"
	"github.com/pable/rinkstats/internal/service"
	"github.com/pable/rinkstats/internal/storage"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "rinkstats",
	Short: "Ice hockey statistics engine",
	Long:  "Ingest hockey game events and compute player, team and leaderboard statistics.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(mustUserHome(), ".rinkstats", "stats.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database (overrides RINKSTATS_DB_PATH)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(gameCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(teamCmd)
	rootCmd.AddCommand(leadersCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// loadConfig reads the environment. An explicit --db flag wins over
// RINKSTATS_DB_PATH, which wins over the default path.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if rootCmd.PersistentFlags().Changed("db") || cfg.DBPath == "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openStorage opens the database, creating its directory if needed.
func openStorage(path string) (*storage.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// app bundles what every statistics command needs.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	db     *storage.DB
	cache  *cache.Cache
	engine *service.Engine
}

func (a *app) Close() {
	a.db.Close()
	_ = a.log.Sync()
}

// newApp wires config, logging, storage, cache and engine.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	db, err := openStorage(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	c := cache.New(cache.Options{
		Capacity:  cfg.CacheCapacity,
		TTLs:      cfg.TTLs(),
		Freshness: db,
		Logger:    log,
	})
	engine := service.New(db, c, service.Options{
		Timeout:        cfg.AggregationTimeout,
		Workers:        cfg.Workers,
		MinGamesPlayed: cfg.MinGamesPlayed,
		Logger:         log,
	})
	return &app{cfg: cfg, log: log, db: db, cache: c, engine: engine}, nil
}
