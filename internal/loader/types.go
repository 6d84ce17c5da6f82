// Package loader downloads sticker files through a prioritized, bounded
// queue and keeps the results in per-kind in-memory caches.
package loader

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/cache"
)

// Priority orders queued loads. Higher values load first.
type Priority int

const (
	Background   Priority = 1
	Additional   Priority = 2
	NearViewport Priority = 3
	Viewport     Priority = 4
	Modal        Priority = 5

	// highPriorityThreshold splits loads into the high and low slot pools.
	highPriorityThreshold = NearViewport
)

// IsHigh reports whether p draws from the high priority slot pool.
func (p Priority) IsHigh() bool { return p >= highPriorityThreshold }

func (p Priority) String() string {
	switch p {
	case Modal:
		return "modal"
	case Viewport:
		return "viewport"
	case NearViewport:
		return "near-viewport"
	case Additional:
		return "additional"
	case Background:
		return "background"
	}
	return "unknown"
}

// ParsePriority maps a priority name or number to a Priority.
// Unknown input yields Additional.
func ParsePriority(s string) Priority {
	switch s {
	case "modal", "5":
		return Modal
	case "viewport", "4":
		return Viewport
	case "near-viewport", "near", "3":
		return NearViewport
	case "background", "1":
		return Background
	}
	return Additional
}

// Kind is the type of sticker file being loaded.
type Kind string

const (
	KindImage     Kind = "image"
	KindAnimation Kind = "animation"
	KindVideo     Kind = "video"
)

// KindOf picks the resource kind for a sticker.
func KindOf(s api.Sticker) Kind {
	switch {
	case s.IsVideo:
		return KindVideo
	case s.IsAnimated:
		return KindAnimation
	}
	return KindImage
}

// ParseKind maps a kind name to a Kind, defaulting to KindImage.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindAnimation, KindVideo:
		return Kind(s)
	}
	return KindImage
}

// Request describes one file to load.
type Request struct {
	FileID   string
	URL      string
	Kind     Kind
	Priority Priority
	PackID   string
	Index    int
}

// Resource is a loaded sticker file.
type Resource struct {
	Data        []byte
	ContentType string
	Kind        Kind
}

// Fetcher downloads the file for a request. req.URL is already normalized.
type Fetcher func(ctx context.Context, req Request) (Resource, error)

var (
	// ErrAborted is returned to waiters of a load removed from the queue.
	ErrAborted = errors.New("load aborted")
	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("loader closed")
)

const (
	DefaultMaxConcurrency       = 30
	DefaultHighPriorityMinSlots = 6
	DefaultLowPriorityMaxSlots  = 18
	DefaultAttempts             = 6
	DefaultRetryDelay           = time.Second
	DefaultAttemptTimeout       = 30 * time.Second
	DefaultCacheTTL             = 7 * 24 * time.Hour
)

// Per-kind cache capacities.
var cacheSizes = map[Kind]int{
	KindImage:     200,
	KindAnimation: 50,
	KindVideo:     30,
}

// Options configures a Loader. Zero values use the defaults above.
type Options struct {
	MaxConcurrency       int
	HighPriorityMinSlots int
	LowPriorityMaxSlots  int
	// Attempts is the number of tries per file. Backoff starts at
	// RetryDelay and doubles after each failure.
	Attempts       int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
	CacheTTL       time.Duration
	// Origin is the scheme and host the sticker URLs are served from. URLs
	// on this origin are reduced to path and query when deduplicating.
	Origin string
	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.HighPriorityMinSlots <= 0 {
		o.HighPriorityMinSlots = DefaultHighPriorityMinSlots
	}
	if o.LowPriorityMaxSlots <= 0 {
		o.LowPriorityMaxSlots = DefaultLowPriorityMaxSlots
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Stats is a snapshot of the queue and caches.
type Stats struct {
	Queued         int                  `json:"queued"`
	Active         int                  `json:"active"`
	ActiveHigh     int                  `json:"active_high"`
	ActiveLow      int                  `json:"active_low"`
	MaxConcurrency int                  `json:"max_concurrency"`
	Caches         map[Kind]cache.Stats `json:"caches"`
}
