package api

import (
	"context"
	"fmt"
	"net/http"
)

// ToggleLike flips the current user's like on a set and returns the
// server's view afterwards.
func (c *Client) ToggleLike(ctx context.Context, stickerSetID int64) (*LikeToggle, error) {
	var out LikeToggle
	path := fmt.Sprintf("/likes/stickersets/%d/toggle", stickerSetID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SwipeLike(ctx context.Context, stickerSetID int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/swipes/stickersets/%d/like", stickerSetID), nil, nil, nil)
}

func (c *Client) SwipeDislike(ctx context.Context, stickerSetID int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/swipes/stickersets/%d/dislike", stickerSetID), nil, nil, nil)
}

func (c *Client) GetSwipeStats(ctx context.Context) (*SwipeStats, error) {
	var out SwipeStats
	if err := c.doJSON(ctx, http.MethodGet, "/swipes/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
