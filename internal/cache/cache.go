// Package cache implements the statistics cache: TTL and staleness checked,
// bounded by capacity, with explicit invalidation per team and season.
//
// Eviction removes the entry written longest ago. Reads do not refresh an
// entry's position, so this is write-time ordering rather than LRU.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/model"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rinkstats_cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})
	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rinkstats_cache_evictions_total",
		Help: "Entries evicted under capacity pressure",
	})
	invalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rinkstats_cache_invalidated_total",
		Help: "Entries removed by explicit invalidation",
	})
	purged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rinkstats_cache_purged_total",
		Help: "Expired entries removed by the janitor",
	})
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Freshness reports when the events under a scope last changed.
type Freshness interface {
	LastModified(ctx context.Context, scope model.Scope) (time.Time, error)
}

// Options configure a Cache.
type Options struct {
	Capacity  int
	TTLs      TTLs
	Clock     Clock
	Freshness Freshness
	Logger    *zap.Logger
}

// DefaultCapacity bounds the entry count when Options.Capacity is unset.
const DefaultCapacity = 1000

type entry struct {
	key         Key
	value       any
	expires     time.Time
	lastUpdated time.Time
	version     uint64
	elem        *list.Element
}

// Epoch marks the moment a computation started reading the store: the
// invalidation counter and the clock at that point. See SetFrom.
type Epoch struct {
	n  uint64
	at time.Time
}

// Cache is safe for concurrent use. The mutex is never held across a call to
// Freshness.
type Cache struct {
	capacity int
	ttls     TTLs
	clock    Clock
	fresh    Freshness
	log      *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // keys in write order, oldest at the front
	version uint64
	epoch   uint64
	// scopeEpoch records the epoch of the latest invalidation per team/season.
	scopeEpoch map[string]uint64
	stats      Stats
}

// Stats are cumulative counters plus the current size.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Stale         int64 `json:"stale"`
	Evictions     int64 `json:"evictions"`
	Invalidations int64 `json:"invalidations"`
	Purged        int64 `json:"purged"`
	Size          int   `json:"size"`
	Capacity      int   `json:"capacity"`
}

// New returns an empty cache.
func New(opts Options) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTLs == (TTLs{}) {
		opts.TTLs = DefaultTTLs()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cache{
		capacity:   opts.Capacity,
		ttls:       opts.TTLs,
		clock:      opts.Clock,
		fresh:      opts.Freshness,
		log:        opts.Logger,
		entries:    make(map[string]*entry),
		order:      list.New(),
		scopeEpoch: make(map[string]uint64),
	}
}

// TTLs returns the configured lifetimes.
func (c *Cache) TTLs() TTLs { return c.ttls }

func miss(reason string) error {
	return apperr.Wrap(apperr.CodeCacheMiss, "cache miss: "+reason, nil)
}

// Get returns the value stored under key. It returns an ErrCacheMiss error
// when the key is absent, expired, or the events under its scope changed
// after the entry was written. A failing freshness check counts as stale.
func (c *Cache) Get(ctx context.Context, key Key) (any, error) {
	k := key.String()
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		lookups.WithLabelValues("miss").Inc()
		return nil, miss("absent")
	}
	if !now.Before(e.expires) {
		c.removeLocked(e)
		c.stats.Misses++
		c.mu.Unlock()
		lookups.WithLabelValues("expired").Inc()
		return nil, miss("expired")
	}
	value, lastUpdated, version := e.value, e.lastUpdated, e.version
	c.mu.Unlock()

	if c.fresh != nil {
		modified, err := c.fresh.LastModified(ctx, key.Scope())
		if err != nil {
			c.log.Warn("freshness check failed, treating entry as stale",
				zap.String("key", k), zap.Error(err))
			c.dropStale(k, version)
			return nil, miss("freshness unknown")
		}
		if modified.After(lastUpdated) {
			c.dropStale(k, version)
			return nil, miss("stale")
		}
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	lookups.WithLabelValues("hit").Inc()
	return value, nil
}

// dropStale removes the entry only if it was not rewritten while the
// freshness check ran.
func (c *Cache) dropStale(k string, version uint64) {
	c.mu.Lock()
	if e, ok := c.entries[k]; ok && e.version == version {
		c.removeLocked(e)
	}
	c.stats.Stale++
	c.mu.Unlock()
	lookups.WithLabelValues("stale").Inc()
}

// Set stores value under key. A zero ttl selects the category TTL.
func (c *Cache) Set(key Key, value any, ttl time.Duration) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, ttl, now, now)
}

// Epoch returns the current invalidation epoch. Capture it before reading the
// store and store the result with SetFrom.
func (c *Cache) Epoch() Epoch {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return Epoch{n: c.epoch, at: now}
}

// SetFrom stores value unless the key's team and season were invalidated
// after epoch, in which case the value may predate the new events and is
// discarded. The entry's freshness is measured from the epoch's time, so
// events written while the value was computed make it stale. It reports
// whether the value was stored.
func (c *Cache) SetFrom(epoch Epoch, key Key, value any, ttl time.Duration) bool {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scopeEpoch[scopeID(key.TeamID, key.Season)] > epoch.n {
		return false
	}
	c.setLocked(key, value, ttl, now, epoch.at)
	return true
}

// setLocked writes value with its lifetime counted from now. asOf is the
// time the value reflects the store, compared against Freshness on reads.
func (c *Cache) setLocked(key Key, value any, ttl time.Duration, now, asOf time.Time) {
	if ttl <= 0 {
		ttl = c.ttls.For(key.Kind)
	}
	k := key.String()
	c.version++

	if e, ok := c.entries[k]; ok {
		e.value = value
		e.expires = now.Add(ttl)
		e.lastUpdated = asOf
		e.version = c.version
		c.order.MoveToBack(e.elem)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(c.entries[oldest.Value.(string)])
		c.stats.Evictions++
		evictions.Inc()
	}

	e := &entry{
		key:         key,
		value:       value,
		expires:     now.Add(ttl),
		lastUpdated: asOf,
		version:     c.version,
	}
	e.elem = c.order.PushBack(k)
	c.entries[k] = e
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key.String())
}

// Delete removes key if present.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		c.removeLocked(e)
	}
}

// Invalidate removes everything new events for a game can affect: the game
// summary (every game of the team/season when gameID is empty), team stats,
// roster aggregates, leaderboards and comparisons of the team/season, and the
// season's player entries of each referenced player. It returns the number
// of entries removed.
func (c *Cache) Invalidate(teamID, season, gameID string, playerIDs []string) int {
	players := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		players[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.scopeEpoch[scopeID(teamID, season)] = c.epoch

	removed := 0
	for _, e := range c.entries {
		if affected(e.key, teamID, season, gameID, players) {
			c.removeLocked(e)
			removed++
		}
	}
	c.stats.Invalidations += int64(removed)
	invalidated.Add(float64(removed))
	return removed
}

func affected(k Key, teamID, season, gameID string, players map[string]bool) bool {
	if k.Season != season {
		return false
	}
	if k.Kind == KindPlayer {
		return players[k.firstID()]
	}
	if k.TeamID != teamID {
		return false
	}
	switch k.Kind {
	case KindGame:
		return gameID == "" || k.firstID() == gameID
	case KindTeam, KindRoster, KindLeaderboard, KindComparison:
		return true
	}
	return false
}

func scopeID(teamID, season string) string {
	return teamID + "|" + season
}

// Purge removes expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if !now.Before(e.expires) {
			c.removeLocked(e)
			n++
		}
	}
	c.stats.Purged += int64(n)
	purged.Add(float64(n))
	return n
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	s.Capacity = c.capacity
	return s
}

// Janitor purges expired entries every interval until ctx is done.
func (c *Cache) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Purge(); n > 0 {
				c.log.Debug("cache janitor purged entries", zap.Int("count", n))
			}
		}
	}
}

// Lookup is a typed Get. A value of the wrong type counts as a miss.
func Lookup[T any](ctx context.Context, c *Cache, key Key) (T, error) {
	var zero T
	v, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, miss("type mismatch")
	}
	return t, nil
}
