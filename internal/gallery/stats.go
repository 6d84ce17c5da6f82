package gallery

import (
	"sort"
	"strings"

	"github.com/stixly/stixly/internal/api"
)

// AuthorCount is one row of the top authors table.
type AuthorCount struct {
	AuthorID int64  `json:"author_id"`
	Name     string `json:"name"`
	Sets     int    `json:"sets"`
	Likes    int    `json:"likes"`
}

// SetLikes is one row of the most liked sets table.
type SetLikes struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Likes int    `json:"likes"`
}

// Summary aggregates a slice of sets for the dashboard.
type Summary struct {
	TotalSets     int            `json:"total_sets"`
	TotalStickers int            `json:"total_stickers"`
	TotalLikes    int            `json:"total_likes"`
	LikedByMe     int            `json:"liked_by_me"`
	Animated      int            `json:"animated"`
	Video         int            `json:"video"`
	Categories    map[string]int `json:"categories"`
	TopAuthors    []AuthorCount  `json:"top_authors"`
	TopSets       []SetLikes     `json:"top_sets"`
}

// DashboardStats summarizes sets, keeping the top n authors and sets.
func DashboardStats(sets []api.StickerSet, n int) Summary {
	s := Summary{Categories: make(map[string]int)}
	authors := make(map[int64]*AuthorCount)

	for _, set := range sets {
		s.TotalSets++
		stickers := set.Stickers()
		s.TotalStickers += len(stickers)
		for _, st := range stickers {
			switch {
			case st.IsVideo:
				s.Video++
			case st.IsAnimated:
				s.Animated++
			}
		}

		likes, _ := set.LikeCount()
		s.TotalLikes += likes
		if liked, _ := set.LikedByMe(); liked {
			s.LikedByMe++
		}
		for _, c := range set.Categories {
			s.Categories[c.Key]++
		}

		authorID := set.AuthorID
		if authorID == 0 {
			authorID = set.UserID
		}
		if authorID != 0 {
			a, ok := authors[authorID]
			if !ok {
				a = &AuthorCount{AuthorID: authorID, Name: authorName(set)}
				authors[authorID] = a
			}
			a.Sets++
			a.Likes += likes
		}
		s.TopSets = append(s.TopSets, SetLikes{ID: set.ID, Title: set.Title, Likes: likes})
	}

	sort.SliceStable(s.TopSets, func(i, j int) bool { return s.TopSets[i].Likes > s.TopSets[j].Likes })
	if len(s.TopSets) > n {
		s.TopSets = s.TopSets[:n]
	}

	for _, a := range authors {
		s.TopAuthors = append(s.TopAuthors, *a)
	}
	sort.Slice(s.TopAuthors, func(i, j int) bool {
		a, b := s.TopAuthors[i], s.TopAuthors[j]
		if a.Sets != b.Sets {
			return a.Sets > b.Sets
		}
		if a.Likes != b.Likes {
			return a.Likes > b.Likes
		}
		return a.AuthorID < b.AuthorID
	})
	if len(s.TopAuthors) > n {
		s.TopAuthors = s.TopAuthors[:n]
	}
	return s
}

func authorName(s api.StickerSet) string {
	if s.Username != "" {
		return "@" + s.Username
	}
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
