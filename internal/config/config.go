// Package config loads runtime settings from RINKSTATS_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/pable/rinkstats/internal/cache"
)

// Config holds every runtime setting. CLI flags override individual fields.
type Config struct {
	DBPath      string   `env:"RINKSTATS_DB_PATH"`
	Addr        string   `env:"RINKSTATS_ADDR" envDefault:":8080"`
	RedisURL    string   `env:"RINKSTATS_REDIS_URL"`
	LogLevel    string   `env:"RINKSTATS_LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"RINKSTATS_CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	CacheCapacity  int           `env:"RINKSTATS_CACHE_CAPACITY" envDefault:"1000"`
	PlayerTTL      time.Duration `env:"RINKSTATS_PLAYER_TTL" envDefault:"5m"`
	TeamTTL        time.Duration `env:"RINKSTATS_TEAM_TTL" envDefault:"10m"`
	LeaderboardTTL time.Duration `env:"RINKSTATS_LEADERBOARD_TTL" envDefault:"15m"`
	SeasonTTL      time.Duration `env:"RINKSTATS_SEASON_TTL" envDefault:"60m"`
	JanitorEvery   time.Duration `env:"RINKSTATS_JANITOR_INTERVAL" envDefault:"1m"`

	AggregationTimeout time.Duration `env:"RINKSTATS_AGGREGATION_TIMEOUT" envDefault:"10s"`
	MinGamesPlayed     int           `env:"RINKSTATS_MIN_GAMES_PLAYED" envDefault:"5"`
	Workers            int           `env:"RINKSTATS_WORKERS" envDefault:"8"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("cache capacity must be positive, got %d", c.CacheCapacity)
	}
	for name, d := range map[string]time.Duration{
		"player ttl":      c.PlayerTTL,
		"team ttl":        c.TeamTTL,
		"leaderboard ttl": c.LeaderboardTTL,
		"season ttl":      c.SeasonTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.JanitorEvery <= 0 {
		return fmt.Errorf("janitor interval must be positive, got %s", c.JanitorEvery)
	}
	if c.MinGamesPlayed < 0 {
		return fmt.Errorf("min games played must not be negative, got %d", c.MinGamesPlayed)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// TTLs returns the per-category cache lifetimes.
func (c Config) TTLs() cache.TTLs {
	return cache.TTLs{
		Player:      c.PlayerTTL,
		Team:        c.TeamTTL,
		Leaderboard: c.LeaderboardTTL,
		Season:      c.SeasonTTL,
	}
}
