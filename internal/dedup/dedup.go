// Package dedup coalesces identical in-flight requests and keeps their
// successful results for a short time.
package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stixly/stixly/internal/cache"
)

// DefaultTTL is how long a successful result is reused.
const DefaultTTL = 5 * time.Minute

// DefaultCallTimeout bounds a shared call once it no longer follows the
// context of the caller that started it.
const DefaultCallTimeout = time.Minute

// maxCachedResults bounds the result cache.
const maxCachedResults = 500

// Deduplicator runs at most one call per key at a time and caches the
// results of successful calls.
type Deduplicator struct {
	group   singleflight.Group
	results *cache.SmartCache[any]
	logger  *log.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]int
}

// Options configures a Deduplicator.
type Options struct {
	TTL         time.Duration
	CallTimeout time.Duration
	Logger      *log.Logger
	Now         func() time.Time
}

// New creates a Deduplicator. Call Close when done with it.
func New(opts Options) *Deduplicator {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Deduplicator{
		timeout: opts.CallTimeout,
		results: cache.New[any](cache.Options{
			MaxSize:        maxCachedResults,
			TTL:            opts.TTL,
			DisablePreload: true,
			Logger:         opts.Logger,
			Now:            opts.Now,
		}),
		logger:  opts.Logger,
		pending: make(map[string]int),
	}
}

// Close stops the result cache sweeper.
func (d *Deduplicator) Close() {
	d.results.Close()
}

// CallOption tweaks a single Do call.
type CallOption func(*callOptions)

type callOptions struct {
	skipCache bool
}

// SkipCache forces a fresh call, still sharing any call already in flight.
func SkipCache() CallOption {
	return func(o *callOptions) { o.skipCache = true }
}

// Key builds a request key from a URL and optional parameters. Parameters
// are encoded as JSON with sorted keys so that equal maps give equal keys.
func Key(url string, params map[string]any) string {
	if len(params) == 0 {
		return url
	}
	b, err := json.Marshal(params)
	if err != nil {
		return url + fmt.Sprint(params)
	}
	return url + string(b)
}

// Do returns a cached result for key, joins a call already running for
// key, or runs fn. Only successful results are cached.
//
// fn runs on a context detached from ctx, bounded by the call timeout, so
// a caller that gives up only stops its own wait and never fails the
// other callers sharing the call.
func Do[T any](ctx context.Context, d *Deduplicator, key string, fn func(context.Context) (T, error), opts ...CallOption) (T, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	if !o.skipCache {
		if v, ok := d.results.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}

	d.trackPending(key, 1)
	ch := d.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		v, err := fn(callCtx)
		if err != nil {
			return nil, err
		}
		d.results.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		d.trackPending(key, -1)
		return zero, ctx.Err()
	case res := <-ch:
		d.trackPending(key, -1)
		if res.Err != nil {
			return zero, res.Err
		}
		typed, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("dedup: result for %q has type %T", key, res.Val)
		}
		if res.Shared {
			d.logger.Printf("dedup: shared in-flight result for %s", key)
		}
		return typed, nil
	}
}

func (d *Deduplicator) trackPending(key string, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[key] += delta
	if d.pending[key] <= 0 {
		delete(d.pending, key)
	}
}

// Invalidate drops every cached result whose key starts with prefix.
func (d *Deduplicator) Invalidate(prefix string) int {
	n := 0
	for _, k := range d.results.Keys() {
		if strings.HasPrefix(k, prefix) {
			d.results.Delete(k)
			n++
		}
	}
	return n
}

// InvalidateMatch drops every cached result whose key matches re.
func (d *Deduplicator) InvalidateMatch(re *regexp.Regexp) int {
	n := 0
	for _, k := range d.results.Keys() {
		if re.MatchString(k) {
			d.results.Delete(k)
			n++
		}
	}
	return n
}

// Clear drops all cached results.
func (d *Deduplicator) Clear() {
	d.results.Clear()
}

// Stats describes the result cache and in-flight calls.
type Stats struct {
	CacheSize       int      `json:"cache_size"`
	PendingRequests int      `json:"pending_requests"`
	CacheKeys       []string `json:"cache_keys"`
}

// Stats returns a snapshot of the deduplicator state.
func (d *Deduplicator) Stats() Stats {
	keys := d.results.Keys()
	sort.Strings(keys)

	d.mu.Lock()
	pending := len(d.pending)
	d.mu.Unlock()

	return Stats{CacheSize: len(keys), PendingRequests: pending, CacheKeys: keys}
}
