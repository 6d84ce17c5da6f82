package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/stixly/stixly/internal/telegram"
)

type ctxKey struct{}

// InitDataFrom returns the validated init data stored by RequireInitData.
func InitDataFrom(ctx context.Context) (*telegram.InitData, bool) {
	d, ok := ctx.Value(ctxKey{}).(*telegram.InitData)
	return d, ok
}

// RequireInitData rejects requests without valid Telegram init data.
// The data is read from the X-Telegram-Init-Data header, or the
// tgWebAppData query parameter for WebSocket upgrades. An empty
// botToken disables the check.
func RequireInitData(botToken string, maxAge time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if botToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(telegram.HeaderInitData)
			if raw == "" {
				raw = r.URL.Query().Get(telegram.QueryParam)
			}
			if raw == "" {
				http.Error(w, `{"error":"missing init data"}`, http.StatusUnauthorized)
				return
			}
			data, err := telegram.Validate(raw, botToken, maxAge)
			if err != nil {
				log.Printf("server: rejecting init data from %s: %v", r.RemoteAddr, err)
				http.Error(w, `{"error":"invalid init data"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, data)))
		})
	}
}
