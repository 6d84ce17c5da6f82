package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const DefaultPageSize = 20

// GetStickerSets lists the public gallery.
func (c *Client) GetStickerSets(ctx context.Context, page, size int, f *StickerSetFilter) (*StickerSetPage, error) {
	q := pageQuery(page, size)
	if f != nil {
		applyFilter(q, f)
	}
	var out StickerSetPage
	if err := c.doJSON(ctx, http.MethodGet, "/stickersets", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func applyFilter(q url.Values, f *StickerSetFilter) {
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.Direction != "" {
		q.Set("direction", f.Direction)
	}
	if len(f.CategoryKeys) > 0 {
		q.Set("categoryKeys", strings.Join(f.CategoryKeys, ","))
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.LikedOnly {
		q.Set("likedOnly", "true")
	}
	if f.DateFrom != nil {
		q.Set("dateFrom", f.DateFrom.Format("2006-01-02"))
	}
	if f.DateTo != nil {
		q.Set("dateTo", f.DateTo.Format("2006-01-02"))
	}
}

// SearchStickerSets searches the gallery by set name or title.
func (c *Client) SearchStickerSets(ctx context.Context, query string, page, size int) (*StickerSetPage, error) {
	q := pageQuery(page, size)
	q.Set("name", query)
	var out StickerSetPage
	if err := c.doJSON(ctx, http.MethodGet, "/stickersets/search", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStickerSet(ctx context.Context, id int64) (*StickerSet, error) {
	var out StickerSet
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/stickersets/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStickerSetMeta derives author and like data from the set itself.
func (c *Client) GetStickerSetMeta(ctx context.Context, id int64) (*StickerSetMeta, error) {
	set, err := c.GetStickerSet(ctx, id)
	if err != nil {
		return nil, err
	}
	authorID := set.AuthorID
	if authorID == 0 {
		authorID = set.UserID
	}
	likes, _ := set.LikeCount()
	return &StickerSetMeta{
		StickerSetID: id,
		Author: AuthorInfo{
			ID:        authorID,
			Username:  set.Username,
			FirstName: set.FirstName,
			LastName:  set.LastName,
			AvatarURL: set.AvatarURL,
		},
		Likes: likes,
	}, nil
}

func (c *Client) DeleteStickerSet(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/stickersets/%d", id), nil, nil, nil)
}

// CreateStickerSet registers a Telegram pack by its name or t.me link.
func (c *Client) CreateStickerSet(ctx context.Context, req CreateStickerSetRequest) (*StickerSet, error) {
	req.Name = NormalizeSetName(req.Name)
	var out StickerSet
	if err := c.doJSON(ctx, http.MethodPost, "/stickersets", nil, &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NormalizeSetName accepts a bare set name or a t.me/addstickers link and
// returns the set name.
func NormalizeSetName(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://t.me/addstickers/", "http://t.me/addstickers/", "t.me/addstickers/"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	if i := strings.IndexAny(s, "?#/"); i >= 0 {
		s = s[:i]
	}
	return s
}

// GetUserStickerSets lists the sets uploaded by a user.
func (c *Client) GetUserStickerSets(ctx context.Context, userID int64, page, size int, sort, direction string) (*StickerSetPage, error) {
	q := pageQuery(page, size)
	if sort == "" {
		sort = "createdAt"
	}
	if direction == "" {
		direction = "DESC"
	}
	q.Set("sort", sort)
	q.Set("direction", direction)
	var out StickerSetPage
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/stickersets/user/%d", userID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchUserStickerSets(ctx context.Context, userID int64, query string, page, size int) (*StickerSetPage, error) {
	q := pageQuery(page, size)
	q.Set("name", query)
	var out StickerSetPage
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/stickersets/user/%d/search", userID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStickerSetsByAuthor(ctx context.Context, authorID int64, page, size int) (*StickerSetPage, error) {
	var out StickerSetPage
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/stickersets/author/%d", authorID), pageQuery(page, size), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchAuthorStickerSets(ctx context.Context, authorID int64, query string, page, size int) (*StickerSetPage, error) {
	q := pageQuery(page, size)
	q.Set("name", query)
	var out StickerSetPage
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/stickersets/author/%d/search", authorID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLikedStickerSets lists sets the current user has liked.
func (c *Client) GetLikedStickerSets(ctx context.Context, page, size int) (*StickerSetPage, error) {
	var out StickerSetPage
	if err := c.doJSON(ctx, http.MethodGet, "/likes/stickersets", pageQuery(page, size), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRandomStickerSet returns one set for the swipe feed. A 404 means the
// feed is exhausted; a 429 carries a SwipeLimit body.
func (c *Client) GetRandomStickerSet(ctx context.Context) (*StickerSet, error) {
	var out StickerSet
	if err := c.doJSON(ctx, http.MethodGet, "/stickersets/random", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Moderation actions accepted by StickerSetAction.
const (
	ActionPublish   = "publish"
	ActionUnpublish = "unpublish"
	ActionBlock     = "block"
	ActionUnblock   = "unblock"
)

func (c *Client) stickerSetAction(ctx context.Context, id int64, action string, body any) (*StickerSet, error) {
	var out StickerSet
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/stickersets/%d/%s", id, action), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PublishStickerSet(ctx context.Context, id int64) (*StickerSet, error) {
	return c.stickerSetAction(ctx, id, ActionPublish, nil)
}

func (c *Client) UnpublishStickerSet(ctx context.Context, id int64) (*StickerSet, error) {
	return c.stickerSetAction(ctx, id, ActionUnpublish, nil)
}

type blockRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

func (c *Client) BlockStickerSet(ctx context.Context, id int64, reason string) (*StickerSet, error) {
	return c.stickerSetAction(ctx, id, ActionBlock, &blockRequest{Reason: reason})
}

func (c *Client) UnblockStickerSet(ctx context.Context, id int64) (*StickerSet, error) {
	return c.stickerSetAction(ctx, id, ActionUnblock, nil)
}

type categoriesRequest struct {
	CategoryKeys []string `json:"categoryKeys" validate:"dive,required"`
}

// UpdateStickerSetCategories replaces the categories of a set.
func (c *Client) UpdateStickerSetCategories(ctx context.Context, id int64, keys []string) (*StickerSet, error) {
	var out StickerSet
	path := fmt.Sprintf("/stickersets/%d/categories", id)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, &categoriesRequest{CategoryKeys: keys}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type suggestRequest struct {
	Title string `json:"title" validate:"required"`
}

// SuggestCategoriesForTitle asks the server to classify a set title.
func (c *Client) SuggestCategoriesForTitle(ctx context.Context, title string) (*CategorySuggestionResult, error) {
	var out CategorySuggestionResult
	if err := c.doJSON(ctx, http.MethodPost, "/categories/suggest", nil, &suggestRequest{Title: title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSticker downloads a sticker file and returns its bytes and content type.
func (c *Client) GetSticker(ctx context.Context, fileID string) ([]byte, string, error) {
	return c.doRaw(ctx, http.MethodGet, "/stickers/"+url.PathEscape(fileID), nil)
}

// StickerURL returns the absolute URL of a sticker file.
func (c *Client) StickerURL(fileID string) string {
	return c.baseURL + "/stickers/" + url.PathEscape(fileID)
}
