package cache

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxSize       = 100
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute

	// preloadImageConcurrency bounds PreloadImages fan-out.
	preloadImageConcurrency = 8
)

// Options configures a SmartCache. Zero values fall back to the defaults
// above; a negative SweepInterval disables the background sweeper.
type Options struct {
	MaxSize        int
	TTL            time.Duration
	DisablePreload bool
	SweepInterval  time.Duration
	Logger         *log.Logger
	Now            func() time.Time
}

// DefaultOptions returns the options used by the gallery: 100 entries,
// five minute TTL, next-page preloading on, sweep once a minute.
func DefaultOptions() Options {
	return Options{
		MaxSize:       DefaultMaxSize,
		TTL:           DefaultTTL,
		SweepInterval: DefaultSweepInterval,
	}
}

type entry[T any] struct {
	value        T
	storedAt     time.Time
	lastAccessed time.Time
	accessCount  int
	seq          uint64
}

// SmartCache is a bounded in-memory cache with per-entry TTL and
// least-recently-accessed eviction. It is safe for concurrent use.
type SmartCache[T any] struct {
	opts Options

	mu     sync.Mutex
	items  map[string]*entry[T]
	seq    uint64
	hits   int64
	misses int64

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a SmartCache and starts its sweeper goroutine unless
// sweeping is disabled. Call Close to stop the sweeper.
func New[T any](opts Options) *SmartCache[T] {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	c := &SmartCache[T]{
		opts:  opts,
		items: make(map[string]*entry[T]),
		stop:  make(chan struct{}),
	}
	if opts.SweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop(opts.SweepInterval)
	}
	return c
}

// PageKey is the cache key used for gallery page n.
func PageKey(n int) string {
	return fmt.Sprintf("page_%d", n)
}

// Get returns the cached value for key when it exists and is not older
// than the TTL. Expired entries are dropped and counted as misses.
func (c *SmartCache[T]) Get(key string) (T, bool) {
	var zero T
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if now.Sub(e.storedAt) > c.opts.TTL {
		delete(c.items, key)
		c.misses++
		return zero, false
	}

	e.accessCount++
	e.lastAccessed = now
	c.seq++
	e.seq = c.seq
	c.hits++
	return e.value, true
}

// Has reports whether key is present, without touching stats or LRU order.
func (c *SmartCache[T]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Set stores value under key and evicts the least recently accessed
// entries while the cache holds more than MaxSize items.
func (c *SmartCache[T]) Set(key string, value T) {
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.items[key] = &entry[T]{
		value:        value,
		storedAt:     now,
		lastAccessed: now,
		seq:          c.seq,
	}
	if len(c.items) > c.opts.MaxSize {
		c.evictLocked()
	}
}

// Delete removes key if present.
func (c *SmartCache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *SmartCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the stored keys in no particular order.
func (c *SmartCache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

func (c *SmartCache[T]) evictLocked() {
	type candidate struct {
		key          string
		lastAccessed time.Time
		seq          uint64
	}
	candidates := make([]candidate, 0, len(c.items))
	for k, e := range c.items {
		candidates = append(candidates, candidate{key: k, lastAccessed: e.lastAccessed, seq: e.seq})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].lastAccessed.Equal(candidates[j].lastAccessed) {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].lastAccessed.Before(candidates[j].lastAccessed)
	})

	excess := len(c.items) - c.opts.MaxSize
	for i := 0; i < excess; i++ {
		delete(c.items, candidates[i].key)
	}
}

// Sweep removes every entry older than the TTL and returns how many
// were removed.
func (c *SmartCache[T]) Sweep() int {
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.items {
		if now.Sub(e.storedAt) > c.opts.TTL {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

func (c *SmartCache[T]) sweepLoop(interval time.Duration) {
	defer c.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.Sweep()
		}
	}
}

// Clear drops all entries and resets the hit and miss counters.
func (c *SmartCache[T]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*entry[T])
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()
}

// Close stops the background sweeper. It is safe to call more than once.
func (c *SmartCache[T]) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	c.wg.Wait()
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"` // percent, one decimal
}

// String formats the stats the way the gallery debug panel shows them.
func (s Stats) String() string {
	return fmt.Sprintf("hits=%d misses=%d size=%d hit_rate=%.1f%%", s.Hits, s.Misses, s.Size, s.HitRate)
}

// Stats returns the current hit/miss counters and size.
func (c *SmartCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Size: len(c.items)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = math.Round(float64(c.hits)/float64(total)*1000) / 10
	}
	return s
}

// PageFetcher loads a single gallery page.
type PageFetcher[T any] func(ctx context.Context, page int) (T, error)

// PreloadNextPage fetches page currentPage+1 into the cache unless
// preloading is disabled, currentPage is the last page, or the page is
// already cached. Fetch errors are logged and swallowed. It reports
// whether a page was stored.
func (c *SmartCache[T]) PreloadNextPage(ctx context.Context, currentPage, totalPages int, fetch PageFetcher[T]) bool {
	if c.opts.DisablePreload || currentPage >= totalPages-1 {
		return false
	}

	next := currentPage + 1
	key := PageKey(next)
	if c.Has(key) {
		return false
	}

	data, err := fetch(ctx, next)
	if err != nil {
		c.opts.Logger.Printf("cache: preloading page %d: %v", next, err)
		return false
	}
	c.Set(key, data)
	return true
}

// PreloadNextPageAsync runs PreloadNextPage in its own goroutine. The
// returned channel is closed when the preload finishes.
func (c *SmartCache[T]) PreloadNextPageAsync(ctx context.Context, currentPage, totalPages int, fetch PageFetcher[T]) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.PreloadNextPage(ctx, currentPage, totalPages, fetch)
	}()
	return done
}

// PreloadImages warms remote resources concurrently. Individual failures
// are ignored; only context cancellation is returned.
func (c *SmartCache[T]) PreloadImages(ctx context.Context, urls []string, fetch func(ctx context.Context, url string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadImageConcurrency)
	for _, u := range urls {
		g.Go(func() error {
			if err := fetch(gctx, u); err != nil {
				c.opts.Logger.Printf("cache: preloading %s: %v", u, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
