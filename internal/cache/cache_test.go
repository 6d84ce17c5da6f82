package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 15, 10, 30, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache[T any](t *testing.T, clock *fakeClock, maxSize int, ttl time.Duration) *SmartCache[T] {
	t.Helper()
	c := New[T](Options{
		MaxSize:       maxSize,
		TTL:           ttl,
		SweepInterval: -1,
		Logger:        log.New(io.Discard, "", 0),
		Now:           clock.Now,
	})
	t.Cleanup(c.Close)
	return c
}

func TestGetSet(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[string](t, clock, 10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	if !ok || v != "alpha" {
		t.Fatalf("Get(a) = %q, %v; want alpha, true", v, ok)
	}

	c.Set("a", "again")
	v, _ = c.Get("a")
	if v != "again" {
		t.Errorf("overwrite: got %q, want again", v)
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.HitRate != 66.7 {
		t.Errorf("hit rate = %.1f, want 66.7", stats.HitRate)
	}
}

func TestTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[int](t, clock, 10, time.Minute)

	c.Set("k", 1)

	clock.Advance(time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry exactly at TTL should still be served")
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry older than TTL to be absent")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on Get, size = %d", c.Len())
	}
	if c.Stats().Misses != 1 {
		t.Errorf("expired Get should count as miss, got %+v", c.Stats())
	}
}

func TestAccessDoesNotExtendTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[int](t, clock, 10, time.Minute)

	c.Set("k", 1)
	clock.Advance(40 * time.Second)
	c.Get("k")
	clock.Advance(40 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Error("reads must not refresh the stored timestamp")
	}
}

func TestLRUEviction(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[int](t, clock, 3, time.Hour)

	c.Set("a", 1)
	clock.Advance(time.Second)
	c.Set("b", 2)
	clock.Advance(time.Second)
	c.Set("c", 3)
	clock.Advance(time.Second)

	// Touch a so b becomes the least recently accessed.
	c.Get("a")
	clock.Advance(time.Second)

	c.Set("d", 4)

	if c.Len() != 3 {
		t.Fatalf("size = %d, want 3", c.Len())
	}
	if c.Has("b") {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !c.Has(k) {
			t.Errorf("expected %s to survive eviction", k)
		}
	}
}

func TestLRUEvictionTieBreaksByInsertion(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[int](t, clock, 2, time.Hour)

	c.Set("first", 1)
	c.Set("second", 2)
	c.Set("third", 3)

	if c.Has("first") {
		t.Error("with equal access times the oldest insertion goes first")
	}
	if !c.Has("third") {
		t.Error("the entry just written must survive")
	}
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[int](t, clock, 10, time.Minute)

	c.Set("old", 1)
	clock.Advance(50 * time.Second)
	c.Set("new", 2)
	clock.Advance(20 * time.Second)

	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if c.Has("old") || !c.Has("new") {
		t.Error("sweep removed the wrong entries")
	}
	if st := c.Stats(); st.Hits != 0 || st.Misses != 0 {
		t.Errorf("sweep must not touch counters: %+v", st)
	}
}

func TestBackgroundSweeper(t *testing.T) {
	c := New[int](Options{
		MaxSize:       10,
		TTL:           10 * time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
		Logger:        log.New(io.Discard, "", 0),
	})
	defer c.Close()

	c.Set("k", 1)

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("background sweeper never removed the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClear(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[int](t, clock, 10, time.Minute)

	c.Set("a", 1)
	c.Get("a")
	c.Get("b")
	c.Clear()

	st := c.Stats()
	if st.Size != 0 || st.Hits != 0 || st.Misses != 0 || st.HitRate != 0 {
		t.Errorf("Clear should reset everything, got %+v", st)
	}
}

func TestCloseIdempotent(t *testing.T) {
	c := New[int](DefaultOptions())
	c.Close()
	c.Close()
}

func TestPreloadNextPage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		current     int
		total       int
		disable     bool
		precached   bool
		fetchErr    error
		wantStored  bool
		wantFetches int32
	}{
		{name: "loads next page", current: 0, total: 3, wantStored: true, wantFetches: 1},
		{name: "last page", current: 2, total: 3, wantFetches: 0},
		{name: "past last page", current: 5, total: 3, wantFetches: 0},
		{name: "already cached", current: 0, total: 3, precached: true, wantFetches: 0},
		{name: "disabled", current: 0, total: 3, disable: true, wantFetches: 0},
		{name: "fetch error swallowed", current: 0, total: 3, fetchErr: errors.New("boom"), wantFetches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			c := New[[]string](Options{
				MaxSize:        10,
				TTL:            time.Minute,
				DisablePreload: tt.disable,
				SweepInterval:  -1,
				Logger:         log.New(io.Discard, "", 0),
				Now:            clock.Now,
			})
			defer c.Close()

			if tt.precached {
				c.Set(PageKey(tt.current+1), []string{"cached"})
			}

			var fetches atomic.Int32
			stored := c.PreloadNextPage(ctx, tt.current, tt.total, func(_ context.Context, page int) ([]string, error) {
				fetches.Add(1)
				if page != tt.current+1 {
					t.Errorf("fetched page %d, want %d", page, tt.current+1)
				}
				if tt.fetchErr != nil {
					return nil, tt.fetchErr
				}
				return []string{"set"}, nil
			})

			if stored != tt.wantStored {
				t.Errorf("stored = %v, want %v", stored, tt.wantStored)
			}
			if got := fetches.Load(); got != tt.wantFetches {
				t.Errorf("fetches = %d, want %d", got, tt.wantFetches)
			}
			if tt.wantStored && !c.Has(PageKey(tt.current+1)) {
				t.Error("expected next page in cache")
			}
		})
	}
}

func TestPreloadNextPageAsync(t *testing.T) {
	c := New[int](Options{SweepInterval: -1, Logger: log.New(io.Discard, "", 0)})
	defer c.Close()

	done := c.PreloadNextPageAsync(context.Background(), 0, 2, func(context.Context, int) (int, error) {
		return 42, nil
	})
	<-done

	if v, ok := c.Get(PageKey(1)); !ok || v != 42 {
		t.Errorf("Get(page_1) = %d, %v", v, ok)
	}
}

func TestPreloadImagesIgnoresFailures(t *testing.T) {
	c := New[int](Options{SweepInterval: -1, Logger: log.New(io.Discard, "", 0)})
	defer c.Close()

	var calls atomic.Int32
	urls := []string{"/a.webp", "/b.webp", "/broken.webp"}
	err := c.PreloadImages(context.Background(), urls, func(_ context.Context, u string) error {
		calls.Add(1)
		if u == "/broken.webp" {
			return errors.New("404")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("PreloadImages: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("fetched %d urls, want 3", calls.Load())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](Options{MaxSize: 50, SweepInterval: time.Millisecond, Logger: log.New(io.Discard, "", 0)})
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := PageKey((g*200 + i) % 120)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("size %d exceeds max 50", c.Len())
	}
}
