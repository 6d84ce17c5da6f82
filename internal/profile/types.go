package profile

import (
	"time"

	"github.com/stixly/stixly/internal/api"
)

// Snapshot is the locally saved copy of the signed-in user, read on start
// before the API answers.
type Snapshot struct {
	UserID  int64        `json:"user_id"`
	User    api.UserInfo `json:"user"`
	Profile *api.Profile `json:"profile,omitempty"`
	Wallet  *api.Wallet  `json:"wallet,omitempty"`
	SavedAt time.Time    `json:"saved_at"`
}

// Pagination is the paging position of a cached profile's sticker sets.
type Pagination struct {
	CurrentPage   int `json:"current_page"`
	TotalPages    int `json:"total_pages"`
	TotalElements int `json:"total_elements"`
}

// CachedProfile is a user's profile page as last fetched.
type CachedProfile struct {
	UserInfo    api.UserInfo     `json:"user_info"`
	StickerSets []api.StickerSet `json:"sticker_sets"`
	Pagination  Pagination       `json:"pagination"`
	StoredAt    time.Time        `json:"stored_at"`
}

// Known onboarding flags.
const (
	FlagGalleryIntroSeen = "gallery_intro_seen"
	FlagSwipeIntroSeen   = "swipe_intro_seen"
	FlagUploadHintSeen   = "upload_hint_seen"
	FlagWalletHintSeen   = "wallet_hint_seen"
)
