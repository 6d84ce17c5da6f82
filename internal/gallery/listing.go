// Package gallery serves paged sticker set listings through the request
// deduplicator and the page cache, and provides the layout and feed
// helpers the gallery screens use.
package gallery

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/dedup"
)

// Source is the part of the API client that lists sticker sets.
type Source interface {
	GetStickerSets(ctx context.Context, page, size int, f *api.StickerSetFilter) (*api.StickerSetPage, error)
	SearchStickerSets(ctx context.Context, query string, page, size int) (*api.StickerSetPage, error)
	GetStickerSetsByAuthor(ctx context.Context, authorID int64, page, size int) (*api.StickerSetPage, error)
	SearchAuthorStickerSets(ctx context.Context, authorID int64, query string, page, size int) (*api.StickerSetPage, error)
}

// Listing identifies one paged view of the gallery.
type Listing struct {
	Query    string
	AuthorID int64
	Filter   api.StickerSetFilter
}

func (l Listing) path() string {
	switch {
	case l.AuthorID != 0 && l.Query != "":
		return "/stickersets/author/" + strconv.FormatInt(l.AuthorID, 10) + "/search"
	case l.AuthorID != 0:
		return "/stickersets/author/" + strconv.FormatInt(l.AuthorID, 10)
	case l.Query != "":
		return "/stickersets/search"
	}
	return "/stickersets"
}

func (l Listing) params() map[string]any {
	p := make(map[string]any)
	if l.Query != "" {
		p["name"] = l.Query
	}
	f := l.Filter
	if f.Sort != "" {
		p["sort"] = f.Sort
	}
	if f.Direction != "" {
		p["direction"] = f.Direction
	}
	if len(f.CategoryKeys) > 0 {
		p["categoryKeys"] = strings.Join(f.CategoryKeys, ",")
	}
	if f.Type != "" {
		p["type"] = f.Type
	}
	if f.LikedOnly {
		p["likedOnly"] = true
	}
	if f.DateFrom != nil {
		p["dateFrom"] = f.DateFrom.Format(time.DateOnly)
	}
	if f.DateTo != nil {
		p["dateTo"] = f.DateTo.Format(time.DateOnly)
	}
	return p
}

// Key identifies the listing independent of page.
func (l Listing) Key() string {
	return dedup.Key(l.path(), l.params())
}

func (l Listing) requestKey(page, size int) string {
	p := l.params()
	p["page"] = page
	p["size"] = size
	return dedup.Key(l.path(), p)
}

func (l Listing) fetch(ctx context.Context, src Source, page, size int) (*api.StickerSetPage, error) {
	switch {
	case l.AuthorID != 0 && l.Query != "":
		return src.SearchAuthorStickerSets(ctx, l.AuthorID, l.Query, page, size)
	case l.AuthorID != 0:
		return src.GetStickerSetsByAuthor(ctx, l.AuthorID, page, size)
	case l.Query != "":
		return src.SearchStickerSets(ctx, l.Query, page, size)
	}
	f := l.Filter
	return src.GetStickerSets(ctx, page, size, &f)
}
