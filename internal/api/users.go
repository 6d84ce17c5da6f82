package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) CheckAuthStatus(ctx context.Context) (*AuthStatus, error) {
	var out AuthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/auth/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCurrentUser returns the user behind the current init data. Role and
// balance come from GetMyProfile.
func (c *Client) GetCurrentUser(ctx context.Context) (*UserInfo, error) {
	var out UserInfo
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.TelegramID == 0 {
		out.TelegramID = out.ID
	}
	if out.Role == "" {
		out.Role = "USER"
	}
	return &out, nil
}

func (c *Client) GetMyProfile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.doJSON(ctx, http.MethodGet, "/profiles/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserInfo looks a user up by Telegram ID.
func (c *Client) GetUserInfo(ctx context.Context, userID int64) (*UserInfo, error) {
	var out UserInfo
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserPhoto returns the avatar reference of a user, or nil when the user
// has no photo.
func (c *Client) GetUserPhoto(ctx context.Context, userID int64) (*UserPhoto, error) {
	var out UserPhoto
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/users/%d/photo", userID), nil, nil, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserPhotoBlob downloads an avatar file.
func (c *Client) GetUserPhotoBlob(ctx context.Context, fileID string) ([]byte, string, error) {
	return c.doRaw(ctx, http.MethodGet, "/stickers/"+url.PathEscape(fileID), nil)
}

func (c *Client) GetUsersLeaderboard(ctx context.Context, page, size int) (*Leaderboard[LeaderboardUser], error) {
	var out Leaderboard[LeaderboardUser]
	if err := c.doJSON(ctx, http.MethodGet, "/users/leaderboard", pageQuery(page, size), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAuthorsLeaderboard(ctx context.Context, page, size int) (*Leaderboard[LeaderboardAuthor], error) {
	var out Leaderboard[LeaderboardAuthor]
	if err := c.doJSON(ctx, http.MethodGet, "/authors/leaderboard", pageQuery(page, size), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
