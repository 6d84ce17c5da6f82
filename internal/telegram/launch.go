package telegram

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// InitDataFromURL extracts tgWebAppData from a launch URL. The value may
// sit in the query string or in the fragment, either directly
// ("#tgWebAppData=...") or after a hash-router path ("#/path?tgWebAppData=...").
// A fragment that is only a path carries no init data.
func InitDataFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if v := u.Query().Get(QueryParam); v != "" {
		return v
	}
	return initDataFromFragment(u.EscapedFragment())
}

func initDataFromFragment(fragment string) string {
	if fragment == "" {
		return ""
	}

	var query string
	switch {
	case strings.Contains(fragment, "?"):
		query = fragment[strings.LastIndex(fragment, "?")+1:]
	case strings.HasPrefix(fragment, "/"):
		return ""
	default:
		query = fragment
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return ""
	}
	return values.Get(QueryParam)
}

// Store persists the last known init data between runs.
type Store interface {
	LoadInitData(ctx context.Context) (string, error)
	SaveInitData(ctx context.Context, raw string) error
}

// Source resolves init data from, in order: an explicit value (flag or
// config), the persisted copy, then a launch URL. A value found only in
// the URL is written back to the store.
type Source struct {
	Explicit  string
	Store     Store
	LaunchURL string
}

// Resolve returns the first non-empty init data, or "" when none of the
// sources has any.
func (s Source) Resolve(ctx context.Context) (string, error) {
	if v := strings.TrimSpace(s.Explicit); v != "" {
		return v, nil
	}

	if s.Store != nil {
		v, err := s.Store.LoadInitData(ctx)
		if err != nil {
			return "", fmt.Errorf("loading saved init data: %w", err)
		}
		if v != "" {
			return v, nil
		}
	}

	if s.LaunchURL == "" {
		return "", nil
	}
	v := InitDataFromURL(s.LaunchURL)
	if v != "" && s.Store != nil {
		if err := s.Store.SaveInitData(ctx, v); err != nil {
			return "", fmt.Errorf("saving init data: %w", err)
		}
	}
	return v, nil
}
