package profile

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/cache"
)

// DefaultCacheTTL is how long a fetched profile page is reused.
const DefaultCacheTTL = 5 * time.Minute

const maxCachedProfiles = 50

// Cache holds recently viewed profiles keyed by user ID.
type Cache struct {
	entries *cache.SmartCache[CachedProfile]
	now     func() time.Time
}

// NewCache creates a profile cache. A zero ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: cache.New[CachedProfile](cache.Options{
			MaxSize:        maxCachedProfiles,
			TTL:            ttl,
			DisablePreload: true,
			Logger:         logger,
		}),
		now: time.Now,
	}
}

func cacheKey(userID int64) string {
	return "user_" + strconv.FormatInt(userID, 10)
}

// Get returns a cached profile that is still fresh.
func (c *Cache) Get(userID int64) (*CachedProfile, bool) {
	p, ok := c.entries.Get(cacheKey(userID))
	if !ok {
		return nil, false
	}
	return &p, true
}

// IsValid reports whether a fresh entry exists for the user.
func (c *Cache) IsValid(userID int64) bool {
	_, ok := c.Get(userID)
	return ok
}

func (c *Cache) Set(userID int64, info api.UserInfo, sets []api.StickerSet, p Pagination) {
	c.entries.Set(cacheKey(userID), CachedProfile{
		UserInfo:    info,
		StickerSets: sets,
		Pagination:  p,
		StoredAt:    c.now().UTC(),
	})
}

// Clear drops one user's entry.
func (c *Cache) Clear(userID int64) {
	c.entries.Delete(cacheKey(userID))
}

// ClearAll drops every entry.
func (c *Cache) ClearAll() {
	c.entries.Clear()
}

// Close stops the cache sweeper.
func (c *Cache) Close() {
	c.entries.Close()
}

// ProfileSource is the slice of the API client the Loader needs.
type ProfileSource interface {
	GetUserInfo(ctx context.Context, userID int64) (*api.UserInfo, error)
	GetUserStickerSets(ctx context.Context, userID int64, page, size int, sort, direction string) (*api.StickerSetPage, error)
}

// Loader reads profiles through the cache.
type Loader struct {
	src   ProfileSource
	cache *Cache
}

func NewLoader(src ProfileSource, c *Cache) *Loader {
	return &Loader{src: src, cache: c}
}

// Load returns the first page of a user's profile, from cache when fresh.
func (l *Loader) Load(ctx context.Context, userID int64, size int) (*CachedProfile, error) {
	if p, ok := l.cache.Get(userID); ok {
		return p, nil
	}

	info, err := l.src.GetUserInfo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", userID, err)
	}
	page, err := l.src.GetUserStickerSets(ctx, userID, 0, size, "", "")
	if err != nil {
		return nil, fmt.Errorf("loading sets of user %d: %w", userID, err)
	}

	pg := Pagination{CurrentPage: page.Number, TotalPages: page.TotalPages, TotalElements: page.TotalElements}
	l.cache.Set(userID, *info, page.Content, pg)
	p, _ := l.cache.Get(userID)
	return p, nil
}

// LoadMore fetches the next page of a cached profile and merges it in.
func (l *Loader) LoadMore(ctx context.Context, userID int64, size int) (*CachedProfile, error) {
	cur, err := l.Load(ctx, userID, size)
	if err != nil {
		return nil, err
	}
	next := cur.Pagination.CurrentPage + 1
	if next >= cur.Pagination.TotalPages {
		return cur, nil
	}

	page, err := l.src.GetUserStickerSets(ctx, userID, next, size, "", "")
	if err != nil {
		return nil, fmt.Errorf("loading page %d of user %d: %w", next, userID, err)
	}
	sets := MergeStickerSets(cur.StickerSets, page.Content)
	pg := Pagination{CurrentPage: page.Number, TotalPages: page.TotalPages, TotalElements: page.TotalElements}
	l.cache.Set(userID, cur.UserInfo, sets, pg)
	p, _ := l.cache.Get(userID)
	return p, nil
}
