package profile

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/db"
	"github.com/stixly/stixly/internal/telegram"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(openTestDB(t))
	fixed := time.Date(2025, 9, 15, 10, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	snap, err := store.Load(ctx)
	if err != nil || snap != nil {
		t.Fatalf("empty Load = %+v, %v", snap, err)
	}

	if _, err := store.Save(ctx, Snapshot{}); err == nil {
		t.Error("expected error for snapshot without user")
	}

	saved, err := store.Save(ctx, Snapshot{
		User:    api.UserInfo{ID: 42, FirstName: "Ada", ArtBalance: 150},
		Profile: &api.Profile{UserID: 42, Role: "ADMIN", ArtBalance: 150},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.UserID != 42 || !saved.SavedAt.Equal(fixed) {
		t.Errorf("saved = %+v", saved)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.User.FirstName != "Ada" || got.Profile.Role != "ADMIN" || !got.SavedAt.Equal(fixed) {
		t.Errorf("loaded = %+v", got)
	}

	if _, err := store.Save(ctx, Snapshot{User: api.UserInfo{ID: 7}}); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Load(ctx)
	if got.UserID != 7 {
		t.Errorf("second save should replace the first, got user %d", got.UserID)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(ctx); got != nil {
		t.Error("Clear left a snapshot")
	}
}

func TestFlags(t *testing.T) {
	ctx := context.Background()
	flags := NewFlags(openTestDB(t))

	if v, err := flags.Get(ctx, FlagSwipeIntroSeen); err != nil || v {
		t.Fatalf("unset flag = %v, %v", v, err)
	}
	flags.Set(ctx, FlagSwipeIntroSeen, true)
	flags.Set(ctx, FlagGalleryIntroSeen, false)
	if v, _ := flags.Get(ctx, FlagSwipeIntroSeen); !v {
		t.Error("flag not set")
	}

	all, err := flags.All(ctx)
	if err != nil || len(all) != 2 || !all[FlagSwipeIntroSeen] {
		t.Errorf("All = %v, %v", all, err)
	}

	flags.Clear(ctx, FlagSwipeIntroSeen)
	if v, _ := flags.Get(ctx, FlagSwipeIntroSeen); v {
		t.Error("Clear(name) did not clear")
	}
	flags.Clear(ctx, "")
	if all, _ := flags.All(ctx); len(all) != 0 {
		t.Errorf("Clear(\"\") left %v", all)
	}
	if err := flags.Set(ctx, "", true); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestSessionStoreWithTelegramSource(t *testing.T) {
	ctx := context.Background()
	sess := NewSessionStore(openTestDB(t))
	var _ telegram.Store = sess

	launch := "https://app.example/#tgWebAppData=auth_date%3D1%26hash%3Dh"
	got, err := telegram.Source{Store: sess, LaunchURL: launch}.Resolve(ctx)
	if err != nil || got != "auth_date=1&hash=h" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}

	saved, _ := sess.LoadInitData(ctx)
	if saved != got {
		t.Errorf("saved = %q, want write-back", saved)
	}

	sess.ClearInitData(ctx)
	if saved, _ := sess.LoadInitData(ctx); saved != "" {
		t.Errorf("after clear = %q", saved)
	}
}

func TestMergeAndRemoveStickerSets(t *testing.T) {
	existing := []api.StickerSet{{ID: 1}, {ID: 2}}
	merged := MergeStickerSets(existing, []api.StickerSet{{ID: 2}, {ID: 3}, {ID: 3}})
	if ids := setIDs(merged); ids != "1,2,3" {
		t.Errorf("merged = %s", ids)
	}
	if ids := setIDs(RemoveStickerSet(merged, 2)); ids != "1,3" {
		t.Errorf("removed = %s", ids)
	}
	if ids := setIDs(RemoveStickerSet(merged, 99)); ids != "1,2,3" {
		t.Errorf("remove missing = %s", ids)
	}
}

func setIDs(sets []api.StickerSet) string {
	parts := make([]string, len(sets))
	for i, s := range sets {
		parts[i] = strconv.FormatInt(s.ID, 10)
	}
	return strings.Join(parts, ",")
}

type fakeSource struct {
	infoCalls atomic.Int32
	pageCalls atomic.Int32
	fail      bool
}

func (f *fakeSource) GetUserInfo(_ context.Context, id int64) (*api.UserInfo, error) {
	f.infoCalls.Add(1)
	if f.fail {
		return nil, errors.New("offline")
	}
	return &api.UserInfo{ID: id, FirstName: "Ada"}, nil
}

func (f *fakeSource) GetUserStickerSets(_ context.Context, _ int64, page, size int, _, _ string) (*api.StickerSetPage, error) {
	f.pageCalls.Add(1)
	return &api.StickerSetPage{
		Content:       []api.StickerSet{{ID: int64(page*10 + 1)}, {ID: int64(page*10 + 2)}},
		Number:        page,
		Size:          size,
		TotalPages:    2,
		TotalElements: 4,
	}, nil
}

func TestLoaderUsesCache(t *testing.T) {
	c := NewCache(time.Minute, log.New(io.Discard, "", 0))
	t.Cleanup(c.Close)
	src := &fakeSource{}
	l := NewLoader(src, c)
	ctx := context.Background()

	p, err := l.Load(ctx, 42, 2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.UserInfo.FirstName != "Ada" || len(p.StickerSets) != 2 {
		t.Errorf("profile = %+v", p)
	}
	l.Load(ctx, 42, 2)
	if src.infoCalls.Load() != 1 {
		t.Errorf("info calls = %d, want 1 (cached)", src.infoCalls.Load())
	}
	if !c.IsValid(42) {
		t.Error("IsValid should be true after Load")
	}

	more, err := l.LoadMore(ctx, 42, 2)
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if len(more.StickerSets) != 4 || more.Pagination.CurrentPage != 1 {
		t.Errorf("after LoadMore = %+v", more.Pagination)
	}
	last, _ := l.LoadMore(ctx, 42, 2)
	if len(last.StickerSets) != 4 || src.pageCalls.Load() != 2 {
		t.Errorf("LoadMore past last page fetched again: pages=%d", src.pageCalls.Load())
	}

	c.Clear(42)
	if c.IsValid(42) {
		t.Error("Clear did not drop the entry")
	}
	l.Load(ctx, 42, 2)
	c.ClearAll()
	if c.IsValid(42) {
		t.Error("ClearAll did not drop the entry")
	}
}

func TestLoaderError(t *testing.T) {
	c := NewCache(0, log.New(io.Discard, "", 0))
	t.Cleanup(c.Close)
	_, err := NewLoader(&fakeSource{fail: true}, c).Load(context.Background(), 1, 10)
	if err == nil || c.IsValid(1) {
		t.Errorf("err = %v, cached = %v", err, c.IsValid(1))
	}
}

func TestRoutes(t *testing.T) {
	d := openTestDB(t)
	r := chi.NewRouter()
	RegisterRoutes(r, NewSnapshotStore(d), NewFlags(d))

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(http.MethodGet, "/api/profile/snapshot", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET empty snapshot = %d", w.Code)
	}
	if w := do(http.MethodPut, "/api/profile/snapshot", `{"user":{"id":5,"firstName":"Bo"}}`); w.Code != http.StatusOK {
		t.Errorf("PUT snapshot = %d %s", w.Code, w.Body)
	}
	w := do(http.MethodGet, "/api/profile/snapshot", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"firstName":"Bo"`) {
		t.Errorf("GET snapshot = %d %s", w.Code, w.Body)
	}
	if w := do(http.MethodPut, "/api/profile/snapshot", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("PUT bad body = %d", w.Code)
	}
	if w := do(http.MethodPut, "/api/profile/flags/swipe_intro_seen", `{"value":true}`); w.Code != http.StatusOK {
		t.Errorf("PUT flag = %d", w.Code)
	}
	w = do(http.MethodGet, "/api/profile/flags", "")
	if !strings.Contains(w.Body.String(), `"swipe_intro_seen":true`) {
		t.Errorf("GET flags = %s", w.Body)
	}
	if w := do(http.MethodDelete, "/api/profile/snapshot", ""); w.Code != http.StatusNoContent {
		t.Errorf("DELETE snapshot = %d", w.Code)
	}
}
