package gallery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/stixly/stixly/internal/api"
)

const (
	DefaultPreloadThreshold = 5
	randomAttempts          = 3
)

// EmptyFeedMessage is shown when the server has no sets left to offer.
const EmptyFeedMessage = "no sticker sets available"

// SwipeSource is the part of the API client the swipe feed uses.
type SwipeSource interface {
	GetRandomStickerSet(ctx context.Context) (*api.StickerSet, error)
	SwipeLike(ctx context.Context, stickerSetID int64) error
	SwipeDislike(ctx context.Context, stickerSetID int64) error
	GetSwipeStats(ctx context.Context) (*api.SwipeStats, error)
}

// FeedState is a snapshot of a SwipeFeed.
type FeedState struct {
	Sets         []api.StickerSet `json:"sets"`
	CurrentIndex int              `json:"current_index"`
	TotalViewed  int              `json:"total_viewed"`
	HasMore      bool             `json:"has_more"`
	LimitReached bool             `json:"limit_reached"`
	Limit        *api.SwipeLimit  `json:"limit,omitempty"`
	EmptyMessage string           `json:"empty_message,omitempty"`
	Error        string           `json:"error,omitempty"`
	Stats        *api.SwipeStats  `json:"stats,omitempty"`
}

// SwipeFeed is a queue of random sets the user has not seen yet.
type SwipeFeed struct {
	src       SwipeSource
	threshold int
	logger    *log.Logger

	mu           sync.Mutex
	sets         []api.StickerSet
	current      int
	totalViewed  int
	viewed       map[int64]bool
	hasMore      bool
	fetching     bool
	limitReached bool
	limit        *api.SwipeLimit
	emptyMessage string
	lastErr      string
	stats        *api.SwipeStats
}

// NewSwipeFeed creates an empty feed. threshold <= 0 uses
// DefaultPreloadThreshold.
func NewSwipeFeed(src SwipeSource, threshold int, logger *log.Logger) *SwipeFeed {
	if threshold <= 0 {
		threshold = DefaultPreloadThreshold
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SwipeFeed{
		src:       src,
		threshold: threshold,
		logger:    logger,
		viewed:    make(map[int64]bool),
		hasMore:   true,
	}
}

// Fill fetches one more random set unless a fetch is already running or
// the feed is exhausted. Up to three random picks are tried before giving
// up on finding an unseen set. It reports whether a set was added.
func (f *SwipeFeed) Fill(ctx context.Context) (bool, error) {
	f.mu.Lock()
	if f.fetching || !f.hasMore || f.limitReached {
		f.mu.Unlock()
		return false, nil
	}
	f.fetching = true
	f.lastErr = ""
	f.mu.Unlock()

	set, err := f.pickUnseen(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetching = false

	if err != nil {
		var apiErr *api.APIError
		switch {
		case errors.Is(err, api.ErrNotFound):
			f.emptyMessage = EmptyFeedMessage
			f.hasMore = false
			return false, nil
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests:
			var limit api.SwipeLimit
			if decErr := apiErr.Decode(&limit); decErr == nil {
				f.limit = &limit
				f.limitReached = true
				f.hasMore = false
				return false, nil
			}
		}
		f.lastErr = err.Error()
		return false, fmt.Errorf("fetching random sticker set: %w", err)
	}
	if set == nil {
		return false, nil
	}
	f.sets = append(f.sets, *set)
	return true, nil
}

func (f *SwipeFeed) pickUnseen(ctx context.Context) (*api.StickerSet, error) {
	for attempt := 0; attempt < randomAttempts; attempt++ {
		set, err := f.src.GetRandomStickerSet(ctx)
		if err != nil {
			return nil, err
		}
		if !f.known(set.ID) {
			return set, nil
		}
	}
	return nil, nil
}

func (f *SwipeFeed) known(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.viewed[id] {
		return true
	}
	for _, s := range f.sets {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Current returns the set on screen.
func (f *SwipeFeed) Current() (api.StickerSet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current < len(f.sets) {
		return f.sets[f.current], true
	}
	return api.StickerSet{}, false
}

// Next marks the current set viewed and advances. When few sets remain
// another one is fetched.
func (f *SwipeFeed) Next(ctx context.Context) error {
	f.mu.Lock()
	if f.current < len(f.sets) {
		f.viewed[f.sets[f.current].ID] = true
	}
	f.current++
	f.totalViewed++
	remaining := len(f.sets) - f.current
	refill := remaining <= f.threshold && f.hasMore && !f.fetching && !f.limitReached
	f.mu.Unlock()

	if refill {
		_, err := f.Fill(ctx)
		return err
	}
	return nil
}

// Like records a right swipe and advances.
func (f *SwipeFeed) Like(ctx context.Context, id int64) error {
	return f.swipe(ctx, id, f.src.SwipeLike, "like")
}

// Dislike records a left swipe and advances.
func (f *SwipeFeed) Dislike(ctx context.Context, id int64) error {
	return f.swipe(ctx, id, f.src.SwipeDislike, "dislike")
}

func (f *SwipeFeed) swipe(ctx context.Context, id int64, call func(context.Context, int64) error, verb string) error {
	if err := call(ctx, id); err != nil {
		msg := err.Error()
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message()
		}
		f.mu.Lock()
		f.lastErr = msg
		f.mu.Unlock()
		return fmt.Errorf("swipe %s %d: %w", verb, id, err)
	}
	f.RefreshStats(ctx)
	return f.Next(ctx)
}

// RefreshStats reloads the swipe counters. Failures are logged only.
func (f *SwipeFeed) RefreshStats(ctx context.Context) {
	stats, err := f.src.GetSwipeStats(ctx)
	if err != nil {
		f.logger.Printf("gallery: loading swipe stats: %v", err)
		return
	}
	f.mu.Lock()
	f.stats = stats
	f.mu.Unlock()
}

// Reset empties the feed and loads it again.
func (f *SwipeFeed) Reset(ctx context.Context) error {
	f.mu.Lock()
	f.sets = nil
	f.current = 0
	f.totalViewed = 0
	f.viewed = make(map[int64]bool)
	f.hasMore = true
	f.fetching = false
	f.limitReached = false
	f.limit = nil
	f.emptyMessage = ""
	f.lastErr = ""
	f.mu.Unlock()

	f.RefreshStats(ctx)
	_, err := f.Fill(ctx)
	return err
}

func (f *SwipeFeed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedState{
		Sets:         append([]api.StickerSet(nil), f.sets...),
		CurrentIndex: f.current,
		TotalViewed:  f.totalViewed,
		HasMore:      !f.limitReached && (f.current < len(f.sets) || f.hasMore),
		LimitReached: f.limitReached,
		Limit:        f.limit,
		EmptyMessage: f.emptyMessage,
		Error:        f.lastErr,
		Stats:        f.stats,
	}
}
