package gallery

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/stixly/stixly/internal/api"
)

// MatchNames keeps the sets whose name or title matches any of the glob
// patterns. Matching is case-insensitive. No patterns keeps everything.
func MatchNames(sets []api.StickerSet, patterns []string) ([]api.StickerSet, error) {
	if len(patterns) == 0 {
		return sets, nil
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		lowered = append(lowered, p)
	}
	if len(lowered) == 0 {
		return sets, nil
	}

	var out []api.StickerSet
	for _, s := range sets {
		name := strings.ToLower(s.Name)
		title := strings.ToLower(s.Title)
		for _, p := range lowered {
			if ok, _ := doublestar.Match(p, name); ok {
				out = append(out, s)
				break
			}
			if ok, _ := doublestar.Match(p, title); ok {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}
