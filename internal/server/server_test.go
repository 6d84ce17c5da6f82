package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/cache"
	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/loader"
	"github.com/stixly/stixly/internal/telegram"
)

const testToken = "123456:TEST-TOKEN"

func signedInitData(t *testing.T, authDate time.Time) string {
	t.Helper()
	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	v.Set("user", `{"id":77,"first_name":"Ann"}`)
	v.Set("query_id", "q1")
	return telegram.Sign(v, testToken)
}

type emptySource struct{}

func (emptySource) page() (*api.StickerSetPage, error) {
	return &api.StickerSetPage{Content: []api.StickerSet{{ID: 1, Title: "Cats"}}, TotalPages: 1, Last: true}, nil
}

func (s emptySource) GetStickerSets(context.Context, int, int, *api.StickerSetFilter) (*api.StickerSetPage, error) {
	return s.page()
}

func (s emptySource) SearchStickerSets(context.Context, string, int, int) (*api.StickerSetPage, error) {
	return s.page()
}

func (s emptySource) GetStickerSetsByAuthor(context.Context, int64, int, int) (*api.StickerSetPage, error) {
	return s.page()
}

func (s emptySource) SearchAuthorStickerSets(context.Context, int64, string, int, int) (*api.StickerSetPage, error) {
	return s.page()
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)

	g := gallery.New(emptySource{}, gallery.Options{Cache: cache.Options{DisablePreload: true}, Logger: quiet})
	t.Cleanup(g.Close)

	l := loader.New(func(_ context.Context, req loader.Request) (loader.Resource, error) {
		return loader.Resource{Data: []byte("RIFF"), ContentType: "image/webp", Kind: req.Kind}, nil
	}, loader.Options{Logger: quiet})
	t.Cleanup(l.Close)

	return New(cfg, Deps{
		Gallery:    g,
		Loader:     l,
		StickerURL: func(id string) string { return "/files/" + id },
	})
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, Config{AllowAll: true})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestInitDataRequired(t *testing.T) {
	srv := newTestServer(t, Config{BotToken: testToken, InitDataMaxAge: time.Hour})

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
	}{
		{name: "missing", path: "/api/gallery", wantCode: http.StatusUnauthorized},
		{name: "bad hash", path: "/api/gallery", header: "auth_date=1&hash=deadbeef", wantCode: http.StatusUnauthorized},
		{name: "expired", path: "/api/gallery", header: signedInitData(t, time.Now().Add(-2*time.Hour)), wantCode: http.StatusUnauthorized},
		{name: "valid", path: "/api/gallery", header: signedInitData(t, time.Now()), wantCode: http.StatusOK},
		{name: "sticker files are public", path: "/api/stickers/abc", wantCode: http.StatusOK},
		{name: "health is public", path: "/healthz", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(telegram.HeaderInitData, tt.header)
			}
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestInitDataFromQueryAndContext(t *testing.T) {
	var got *telegram.InitData
	h := RequireInitData(testToken, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = InitDataFrom(r.Context())
	}))

	raw := signedInitData(t, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/ws/generation/t?"+telegram.QueryParam+"="+url.QueryEscape(raw), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got == nil || got.User == nil || got.User.ID != 77 {
		t.Errorf("init data in context = %+v", got)
	}
}

func TestNoBotTokenSkipsAuth(t *testing.T) {
	srv := newTestServer(t, Config{})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestStickerCacheHeaders(t *testing.T) {
	srv := newTestServer(t, Config{})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stickers/abc", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != loader.StickerCacheControl {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestNilRedisCache(t *testing.T) {
	var c *RedisCache
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Errorf("Set on nil cache: %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Errorf("Get on nil cache = %v, %v", ok, err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil cache: %v", err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not a url"); err == nil {
		t.Error("expected error for an invalid redis url")
	}
}
