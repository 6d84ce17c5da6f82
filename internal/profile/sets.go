package profile

import "github.com/stixly/stixly/internal/api"

// MergeStickerSets appends the sets from incoming whose IDs are not
// already present, keeping order.
func MergeStickerSets(existing, incoming []api.StickerSet) []api.StickerSet {
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	out := make([]api.StickerSet, 0, len(existing)+len(incoming))
	for _, s := range existing {
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	for _, s := range incoming {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}

// RemoveStickerSet returns list without the set with the given ID.
func RemoveStickerSet(list []api.StickerSet, id int64) []api.StickerSet {
	out := make([]api.StickerSet, 0, len(list))
	for _, s := range list {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}
