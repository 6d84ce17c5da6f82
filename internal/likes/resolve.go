package likes

import "time"

// ResolveParams is the input to ResolveLikeState.
type ResolveParams struct {
	Existing      *State
	APIIsLiked    *bool
	APILikesCount int
	LastSync      time.Time
	Now           time.Time
	MergeMode     bool
	RecentWindow  time.Duration
}

// ResolveLikeState decides which like state wins when a fresh API value
// meets local state. In order:
//
//  1. a pack that is syncing keeps its local state;
//  2. in merge mode, a recent local change that conflicts with the API
//     keeps its local state;
//  3. an API value is used when present;
//  4. otherwise existing local state is kept;
//  5. a new pack with no API value starts unliked.
func ResolveLikeState(p ResolveParams) (isLiked bool, likesCount int) {
	window := p.RecentWindow
	if window <= 0 {
		window = RecentChangeWindow
	}
	recent := p.Now.Sub(p.LastSync) < window

	if p.Existing != nil && p.Existing.Syncing {
		return p.Existing.IsLiked, p.Existing.LikesCount
	}

	if p.MergeMode && p.Existing != nil && recent && p.APIIsLiked != nil && *p.APIIsLiked != p.Existing.IsLiked {
		return p.Existing.IsLiked, p.Existing.LikesCount
	}

	if p.APIIsLiked != nil {
		return *p.APIIsLiked, p.APILikesCount
	}

	if p.Existing != nil {
		return p.Existing.IsLiked, p.Existing.LikesCount
	}

	return false, p.APILikesCount
}
