package loader

import (
	"net/url"
	"strings"
)

// cacheBustingParams are dropped from URLs before deduplication.
var cacheBustingParams = []string{"v", "_", "t", "timestamp"}

// NormalizeURL returns the key used to detect duplicate loads of the same
// file. blob: and data: URLs are returned unchanged. Absolute URLs on
// origin are reduced to path and query. Cache-busting query parameters
// are removed and the rest sorted by name.
func NormalizeURL(raw, origin string) string {
	if raw == "" || strings.HasPrefix(raw, "blob:") || strings.HasPrefix(raw, "data:") {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if origin != "" && u.IsAbs() && sameOrigin(u, origin) {
		u.Scheme = ""
		u.Host = ""
		u.User = nil
	}
	if u.RawQuery == "" {
		u.ForceQuery = false
		return u.String()
	}

	q := u.Query()
	for _, p := range cacheBustingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func sameOrigin(u *url.URL, origin string) bool {
	o, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, o.Scheme) && strings.EqualFold(u.Host, o.Host)
}
