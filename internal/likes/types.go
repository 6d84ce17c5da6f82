package likes

import (
	"context"
	"errors"
	"time"

	"github.com/stixly/stixly/internal/api"
)

// Timing constants for the like flow.
const (
	MinRequestInterval = time.Second
	DebounceDelay      = 500 * time.Millisecond
	RecentChangeWindow = 10 * time.Second
	syncTimeout        = 10 * time.Second
)

// ErrRateLimited is returned by Toggle when the same pack was toggled
// less than MinRequestInterval ago.
var ErrRateLimited = errors.New("too many requests, wait a moment")

// State is the local view of one pack's like.
type State struct {
	PackID     int64  `json:"pack_id"`
	IsLiked    bool   `json:"is_liked"`
	LikesCount int    `json:"likes_count"`
	Syncing    bool   `json:"syncing,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Toggler sends a like toggle to the API.
type Toggler interface {
	ToggleLike(ctx context.Context, stickerSetID int64) (*api.LikeToggle, error)
}

// Options tunes a Service. Zero values use the constants above.
type Options struct {
	MinInterval   time.Duration
	DebounceDelay time.Duration
	RecentWindow  time.Duration
	Now           func() time.Time
}
