package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pable/rinkstats/internal/apperr"
	"github.com/pable/rinkstats/internal/model"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

type fakeFreshness struct {
	mu       sync.Mutex
	modified map[model.Scope]time.Time
	err      error
}

func (f *fakeFreshness) LastModified(_ context.Context, s model.Scope) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return time.Time{}, f.err
	}
	return f.modified[s], nil
}

func (f *fakeFreshness) touch(s model.Scope, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modified[s] = t
}

func newTestCache(capacity int) (*Cache, *fakeClock, *fakeFreshness) {
	clock := &fakeClock{now: time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)}
	fresh := &fakeFreshness{modified: make(map[model.Scope]time.Time)}
	c := New(Options{Capacity: capacity, Clock: clock, Freshness: fresh})
	return c, clock, fresh
}

func isMiss(err error) bool { return errors.Is(err, apperr.ErrCacheMiss) }

func TestGetAfterSet(t *testing.T) {
	c, clock, _ := newTestCache(10)
	ctx := context.Background()
	key := PlayerKey("TOR", "2024-25", "p1", "h")

	if _, err := c.Get(ctx, key); !isMiss(err) {
		t.Fatalf("expected miss on empty cache, got %v", err)
	}
	c.Set(key, 42, time.Minute)

	clock.Advance(59 * time.Second)
	v, err := c.Get(ctx, key)
	if err != nil || v != 42 {
		t.Fatalf("Get = %v, %v; want 42", v, err)
	}

	clock.Advance(time.Second)
	if _, err := c.Get(ctx, key); !isMiss(err) {
		t.Errorf("expected miss once TTL elapsed, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on read, len=%d", c.Len())
	}
}

func TestCategoryTTL(t *testing.T) {
	c, clock, _ := newTestCache(10)
	ctx := context.Background()
	player := PlayerKey("TOR", "2024-25", "p1", "")
	roster := RosterKey("TOR", "2024-25")
	c.Set(player, "p", 0)
	c.Set(roster, "r", 0)

	clock.Advance(6 * time.Minute)
	if _, err := c.Get(ctx, player); !isMiss(err) {
		t.Error("player stats should expire after 5 minutes")
	}
	if _, err := c.Get(ctx, roster); err != nil {
		t.Errorf("season aggregate should survive 6 minutes: %v", err)
	}
}

func TestStaleWhenEventsChange(t *testing.T) {
	c, clock, fresh := newTestCache(10)
	ctx := context.Background()
	key := TeamKey("TOR", "2024-25")
	c.Set(key, "v1", 0)

	fresh.touch(model.Scope{TeamID: "TOR", Season: "2024-25"}, clock.Now().Add(-time.Second))
	if _, err := c.Get(ctx, key); err != nil {
		t.Fatalf("older modification should not make entry stale: %v", err)
	}

	fresh.touch(model.Scope{TeamID: "TOR", Season: "2024-25"}, clock.Now().Add(time.Second))
	if _, err := c.Get(ctx, key); !isMiss(err) {
		t.Errorf("expected stale miss, got %v", err)
	}
	if got := c.Stats().Stale; got != 1 {
		t.Errorf("Stale = %d, want 1", got)
	}
}

func TestFreshnessFailureIsStale(t *testing.T) {
	c, _, fresh := newTestCache(10)
	key := TeamKey("TOR", "2024-25")
	c.Set(key, "v1", 0)
	fresh.err = errors.New("event store unreachable")
	if _, err := c.Get(context.Background(), key); !isMiss(err) {
		t.Errorf("expected miss when freshness check fails, got %v", err)
	}
}

func TestEvictsOldestWrite(t *testing.T) {
	c, clock, _ := newTestCache(2)
	ctx := context.Background()
	a, b, d := TeamKey("A", "s"), TeamKey("B", "s"), TeamKey("D", "s")

	c.Set(a, 1, 0)
	clock.Advance(time.Second)
	c.Set(b, 2, 0)
	clock.Advance(time.Second)
	// Reading a does not protect it: eviction follows write time.
	if _, err := c.Get(ctx, a); err != nil {
		t.Fatalf("Get a: %v", err)
	}
	c.Set(d, 3, 0)

	if _, err := c.Get(ctx, a); !isMiss(err) {
		t.Error("a was written first and should have been evicted")
	}
	if _, err := c.Get(ctx, b); err != nil {
		t.Errorf("b should survive: %v", err)
	}
	if c.Stats().Evictions != 1 || c.Len() != 2 {
		t.Errorf("stats = %+v", c.Stats())
	}

	// Rewriting b moves it to the back.
	c.Set(b, 22, 0)
	c.Set(a, 1, 0)
	if _, err := c.Get(ctx, d); !isMiss(err) {
		t.Error("d should now be the oldest write and evicted")
	}
}

func TestInvalidate(t *testing.T) {
	c, _, _ := newTestCache(100)
	ctx := context.Background()
	const season = "2024-25"

	gone := []Key{
		GameKey("TOR", season, "g1"),
		TeamKey("TOR", season),
		RosterKey("TOR", season),
		LeaderboardKey("TOR", season, "points", "x"),
		LeaderboardKey("TOR", season, "goals", "y"),
		ComparisonKey("TOR", season, []string{"p1", "p2"}, "z"),
		PlayerKey("TOR", season, "p1", ""),
		PlayerKey("TOR", season, "p1", "filtered"),
		PlayerKey("BOS", season, "b1", ""),
	}
	kept := []Key{
		GameKey("TOR", season, "g2"),
		TeamKey("BOS", season),
		TeamKey("TOR", "2023-24"),
		PlayerKey("TOR", season, "p9", ""),
		PlayerKey("TOR", "2023-24", "p1", ""),
	}
	for i, k := range append(append([]Key{}, gone...), kept...) {
		c.Set(k, i, 0)
	}

	n := c.Invalidate("TOR", season, "g1", []string{"p1", "b1"})
	if n != len(gone) {
		t.Errorf("Invalidate removed %d entries, want %d", n, len(gone))
	}
	for _, k := range gone {
		if _, err := c.Get(ctx, k); !isMiss(err) {
			t.Errorf("%s should be invalidated", k)
		}
	}
	for _, k := range kept {
		if _, err := c.Get(ctx, k); err != nil {
			t.Errorf("%s should survive: %v", k, err)
		}
	}
}

func TestSetFromDiscardsPreInvalidationResults(t *testing.T) {
	c, _, _ := newTestCache(10)
	key := TeamKey("TOR", "s")

	epoch := c.Epoch()
	c.Invalidate("TOR", "s", "g1", nil)
	if c.SetFrom(epoch, key, "old", 0) {
		t.Error("value computed before invalidation should be discarded")
	}

	epoch = c.Epoch()
	c.Invalidate("BOS", "s", "g1", nil)
	if !c.SetFrom(epoch, key, "new", 0) {
		t.Error("invalidation of another team should not discard the value")
	}
}

func TestSetFromStaleWhenEventsArriveDuringCompute(t *testing.T) {
	c, clock, fresh := newTestCache(10)
	ctx := context.Background()
	key := RosterKey("TOR", "2024-25")
	scope := model.Scope{TeamID: "TOR", Season: "2024-25"}

	epoch := c.Epoch()
	clock.Advance(time.Second)
	fresh.touch(scope, clock.Now())
	clock.Advance(time.Second)
	if !c.SetFrom(epoch, key, "computed without the new event", 0) {
		t.Fatal("SetFrom should store the value")
	}
	if _, err := c.Get(ctx, key); !isMiss(err) {
		t.Errorf("entry computed before the latest write should be stale, got %v", err)
	}

	epoch = c.Epoch()
	clock.Advance(time.Second)
	c.SetFrom(epoch, key, "current", 0)
	if v, err := c.Get(ctx, key); err != nil || v != "current" {
		t.Errorf("Get = %v, %v; want current", v, err)
	}
}

func TestPurge(t *testing.T) {
	c, clock, _ := newTestCache(10)
	c.Set(TeamKey("A", "s"), 1, time.Minute)
	c.Set(TeamKey("B", "s"), 2, time.Hour)
	clock.Advance(2 * time.Minute)
	if n := c.Purge(); n != 1 {
		t.Errorf("Purge = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestJanitorStopsWithContext(t *testing.T) {
	c := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Janitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestLookupTyped(t *testing.T) {
	c, _, _ := newTestCache(10)
	key := TeamKey("TOR", "s")
	c.Set(key, model.TeamStats{TeamID: "TOR"}, 0)

	ts, err := Lookup[model.TeamStats](context.Background(), c, key)
	if err != nil || ts.TeamID != "TOR" {
		t.Errorf("Lookup = %+v, %v", ts, err)
	}
	if _, err := Lookup[int](context.Background(), c, key); !isMiss(err) {
		t.Errorf("wrong type should be a miss, got %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(Options{Capacity: 16})
	ctx := context.Background()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := PlayerKey("TOR", "s", fmt.Sprintf("p%d", i%32), "")
				c.Set(k, i, 0)
				_, _ = c.Get(ctx, k)
				if i%50 == 0 {
					c.Invalidate("TOR", "s", "", []string{fmt.Sprintf("p%d", w)})
				}
			}
		}(w)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Errorf("capacity exceeded: %d", c.Len())
	}
}

func TestKeyString(t *testing.T) {
	a := PlayerKey("TOR", "2024-25", "p1", "aaa")
	b := PlayerKey("TOR", "2024-25", "p1", "bbb")
	if a.String() == b.String() {
		t.Error("different option hashes must not collide")
	}
	if got := GameKey("TOR", "2024-25", "g1").Scope(); got.GameID != "g1" {
		t.Errorf("game scope = %+v", got)
	}
}

func TestKeySeparatorsDoNotCollide(t *testing.T) {
	a := ComparisonKey("TOR", "s", []string{"a,b", "c"}, "")
	b := ComparisonKey("TOR", "s", []string{"a", "b,c"}, "")
	if a.String() == b.String() {
		t.Errorf("keys collide: %q", a.String())
	}
	if TeamKey("A|B", "s").String() == TeamKey("A", "B|s").String() {
		t.Error("team/season separator collision")
	}
}

func TestComparisonKeyIgnoresOrder(t *testing.T) {
	ids := []string{"p2", "p1"}
	a := ComparisonKey("TOR", "s", ids, "h")
	b := ComparisonKey("TOR", "s", []string{"p1", "p2"}, "h")
	if a.String() != b.String() {
		t.Errorf("%q != %q", a.String(), b.String())
	}
	if ids[0] != "p2" {
		t.Error("ComparisonKey must not reorder the caller's slice")
	}
}
