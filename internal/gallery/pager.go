package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/cache"
	"github.com/stixly/stixly/internal/dedup"
)

const (
	DefaultPageSize = api.DefaultPageSize
	maxListings     = 50
	l2KeyPrefix     = "stixly:gallery:"
)

// SecondLevel is an optional shared page cache behind the in-memory one.
type SecondLevel interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Options configures a Gallery.
type Options struct {
	PageSize int
	Cache    cache.Options
	Dedup    *dedup.Deduplicator
	L2       SecondLevel
	// OnPage is called with the sets of every page served.
	OnPage func(sets []api.StickerSet)
	// Fallback serves an empty page instead of an error when the API
	// cannot be reached.
	Fallback bool
	Logger   *log.Logger
}

// Gallery hands out one Pager per listing.
type Gallery struct {
	src       Source
	opts      Options
	dedup     *dedup.Deduplicator
	ownsDedup bool

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	pagers *cache.SmartCache[*Pager]
}

// New creates a Gallery over src. A nil opts.Dedup gets a private one.
func New(src Source, opts Options) *Gallery {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	// Pager caches are swept lazily on Get so evicted pagers leave no
	// goroutine behind.
	opts.Cache.SweepInterval = -1
	if opts.Cache.Logger == nil {
		opts.Cache.Logger = opts.Logger
	}

	g := &Gallery{src: src, opts: opts, dedup: opts.Dedup}
	if g.dedup == nil {
		g.dedup = dedup.New(dedup.Options{TTL: opts.Cache.TTL, Logger: opts.Logger})
		g.ownsDedup = true
	}
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.pagers = cache.New[*Pager](cache.Options{
		MaxSize:        maxListings,
		TTL:            24 * time.Hour,
		DisablePreload: true,
		SweepInterval:  -1,
		Logger:         opts.Logger,
	})
	return g
}

// Pager returns the pager for l, creating it on first use.
func (g *Gallery) Pager(l Listing) *Pager {
	key := l.Key()
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.pagers.Get(key); ok {
		return p
	}
	p := &Pager{
		src:      g.src,
		listing:  l,
		size:     g.opts.PageSize,
		dedup:    g.dedup,
		pages:    cache.New[*api.StickerSetPage](g.opts.Cache),
		l2:       g.opts.L2,
		l2TTL:    g.opts.Cache.TTL,
		onPage:   g.opts.OnPage,
		fallback: g.opts.Fallback,
		logger:   g.opts.Logger,
		ctx:      g.ctx,
	}
	if p.l2TTL <= 0 {
		p.l2TTL = cache.DefaultTTL
	}
	g.pagers.Set(key, p)
	return p
}

// Load returns page n of l.
func (g *Gallery) Load(ctx context.Context, l Listing, page int) (*api.StickerSetPage, error) {
	return g.Pager(l).Load(ctx, page)
}

// Stats sums the page caches of every live listing.
type Stats struct {
	Listings int         `json:"listings"`
	Pages    cache.Stats `json:"pages"`
	Dedup    dedup.Stats `json:"dedup"`
}

func (g *Gallery) Stats() Stats {
	g.mu.Lock()
	var pagers []*Pager
	for _, k := range g.pagers.Keys() {
		if p, ok := g.pagers.Get(k); ok {
			pagers = append(pagers, p)
		}
	}
	g.mu.Unlock()

	s := Stats{Listings: len(pagers), Dedup: g.dedup.Stats()}
	for _, p := range pagers {
		ps := p.Stats()
		s.Pages.Hits += ps.Hits
		s.Pages.Misses += ps.Misses
		s.Pages.Size += ps.Size
	}
	if total := s.Pages.Hits + s.Pages.Misses; total > 0 {
		s.Pages.HitRate = math.Round(float64(s.Pages.Hits)/float64(total)*1000) / 10
	}
	return s
}

// Invalidate drops every cached page and result.
func (g *Gallery) Invalidate() {
	g.mu.Lock()
	g.pagers.Clear()
	g.mu.Unlock()
	g.dedup.Invalidate("/stickersets")
}

// Close cancels running preloads.
func (g *Gallery) Close() {
	g.cancel()
	g.mu.Lock()
	for _, k := range g.pagers.Keys() {
		if p, ok := g.pagers.Get(k); ok {
			p.WaitPreload()
		}
	}
	g.mu.Unlock()
	if g.ownsDedup {
		g.dedup.Close()
	}
}

// Pager loads the pages of a single listing.
type Pager struct {
	src      Source
	listing  Listing
	size     int
	dedup    *dedup.Deduplicator
	pages    *cache.SmartCache[*api.StickerSetPage]
	l2       SecondLevel
	l2TTL    time.Duration
	onPage   func([]api.StickerSet)
	fallback bool
	logger   *log.Logger
	ctx      context.Context

	mu      sync.Mutex
	preload <-chan struct{}
}

// Load returns page n from the page cache, the second level cache or the
// API, in that order. After each load the next page is preloaded in the
// background.
func (p *Pager) Load(ctx context.Context, page int) (*api.StickerSetPage, error) {
	if page < 0 {
		page = 0
	}
	key := cache.PageKey(page)
	if pg, ok := p.pages.Get(key); ok {
		p.served(pg)
		return pg, nil
	}
	if pg := p.loadL2(ctx, page); pg != nil {
		p.pages.Set(key, pg)
		p.served(pg)
		return pg, nil
	}

	pg, err := p.fetch(ctx, page)
	if err != nil {
		if p.fallback && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			p.logger.Printf("gallery: page %d of %s unavailable, serving empty page: %v", page, p.listing.Key(), err)
			return &api.StickerSetPage{Content: []api.StickerSet{}, Number: page, Size: p.size, First: page == 0, Last: true}, nil
		}
		return nil, err
	}
	p.pages.Set(key, pg)
	p.storeL2(ctx, page, pg)
	p.served(pg)
	return pg, nil
}

func (p *Pager) fetch(ctx context.Context, page int) (*api.StickerSetPage, error) {
	return dedup.Do(ctx, p.dedup, p.listing.requestKey(page, p.size), func(ctx context.Context) (*api.StickerSetPage, error) {
		return p.listing.fetch(ctx, p.src, page, p.size)
	})
}

func (p *Pager) served(pg *api.StickerSetPage) {
	if p.onPage != nil {
		p.onPage(pg.Content)
	}
	done := p.pages.PreloadNextPageAsync(p.ctx, pg.Number, pg.TotalPages, func(ctx context.Context, n int) (*api.StickerSetPage, error) {
		next, err := p.fetch(ctx, n)
		if err == nil {
			p.storeL2(ctx, n, next)
		}
		return next, err
	})
	p.mu.Lock()
	p.preload = done
	p.mu.Unlock()
}

// WaitPreload blocks until the latest background preload has finished.
func (p *Pager) WaitPreload() {
	p.mu.Lock()
	done := p.preload
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Pager) l2Key(page int) string {
	return l2KeyPrefix + p.listing.requestKey(page, p.size)
}

func (p *Pager) loadL2(ctx context.Context, page int) *api.StickerSetPage {
	if p.l2 == nil {
		return nil
	}
	data, ok, err := p.l2.Get(ctx, p.l2Key(page))
	if err != nil {
		p.logger.Printf("gallery: second level get: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var pg api.StickerSetPage
	if err := json.Unmarshal(data, &pg); err != nil {
		p.logger.Printf("gallery: decoding cached page %d: %v", page, err)
		return nil
	}
	return &pg
}

func (p *Pager) storeL2(ctx context.Context, page int, pg *api.StickerSetPage) {
	if p.l2 == nil {
		return
	}
	data, err := json.Marshal(pg)
	if err != nil {
		return
	}
	if err := p.l2.Set(ctx, p.l2Key(page), data, p.l2TTL); err != nil {
		p.logger.Printf("gallery: second level set: %v", err)
	}
}

// Cached reports whether page n is in the page cache.
func (p *Pager) Cached(page int) bool {
	return p.pages.Has(cache.PageKey(page))
}

func (p *Pager) Stats() cache.Stats {
	return p.pages.Stats()
}

// Clear empties the page cache of this listing.
func (p *Pager) Clear() {
	p.pages.Clear()
}
