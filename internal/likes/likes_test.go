package likes

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/db"
)

type fakeToggler struct {
	mu    sync.Mutex
	calls []int64
	res   api.LikeToggle
	err   error
}

func (f *fakeToggler) ToggleLike(_ context.Context, id int64) (*api.LikeToggle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	res := f.res
	return &res, nil
}

func (f *fakeToggler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T, toggler Toggler, store *Store) (*Service, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2025, 9, 15, 10, 30, 0, 0, time.UTC)}
	svc := NewService(toggler, store, log.New(io.Discard, "", 0), Options{
		DebounceDelay: 5 * time.Millisecond,
		Now:           clk.Now,
	})
	t.Cleanup(svc.Close)
	return svc, clk
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestToggleOptimisticThenServerCountWins(t *testing.T) {
	toggler := &fakeToggler{res: api.LikeToggle{IsLiked: true, TotalLikes: 42}}
	svc, _ := newTestService(t, toggler, nil)
	svc.SetLike(7, false, ptr(10))

	st, err := svc.Toggle(7)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !st.IsLiked || st.LikesCount != 11 || !st.Syncing {
		t.Errorf("optimistic state = %+v", st)
	}

	svc.Wait()
	final := svc.Get(7)
	if !final.IsLiked || final.LikesCount != 42 || final.Syncing || final.Error != "" {
		t.Errorf("synced state = %+v", final)
	}
	if toggler.callCount() != 1 {
		t.Errorf("server calls = %d, want 1", toggler.callCount())
	}
}

func TestToggleKeepsLocalWhenServerDisagrees(t *testing.T) {
	toggler := &fakeToggler{res: api.LikeToggle{IsLiked: false, TotalLikes: 3}}
	svc, _ := newTestService(t, toggler, nil)

	svc.Toggle(1)
	svc.Wait()

	st := svc.Get(1)
	if !st.IsLiked || st.LikesCount != 3 {
		t.Errorf("state = %+v, want local liked with server count", st)
	}
}

func TestToggleRollsBackOnFailure(t *testing.T) {
	toggler := &fakeToggler{err: errors.New("network down")}
	svc, _ := newTestService(t, toggler, nil)
	svc.SetLike(5, true, ptr(4))

	st, _ := svc.Toggle(5)
	if st.IsLiked || st.LikesCount != 3 {
		t.Errorf("optimistic unlike = %+v", st)
	}

	svc.Wait()
	final := svc.Get(5)
	if !final.IsLiked || final.LikesCount != 4 || final.Syncing {
		t.Errorf("rolled back state = %+v", final)
	}
	if final.Error != "network down" {
		t.Errorf("Error = %q", final.Error)
	}
}

func TestToggleRateLimited(t *testing.T) {
	toggler := &fakeToggler{res: api.LikeToggle{IsLiked: true, TotalLikes: 1}}
	svc, clk := newTestService(t, toggler, nil)

	if _, err := svc.Toggle(9); err != nil {
		t.Fatal(err)
	}
	clk.Advance(500 * time.Millisecond)
	st, err := svc.Toggle(9)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if !st.IsLiked || st.Error == "" {
		t.Errorf("rate limited state = %+v", st)
	}

	svc.Wait()
	if toggler.callCount() != 1 {
		t.Errorf("server calls = %d, want 1", toggler.callCount())
	}

	clk.Advance(time.Second)
	if _, err := svc.Toggle(9); err != nil {
		t.Errorf("toggle after interval: %v", err)
	}
	svc.Wait()
}

func TestCountNeverNegative(t *testing.T) {
	toggler := &fakeToggler{err: errors.New("x")}
	svc, _ := newTestService(t, toggler, nil)
	svc.SetLike(3, true, ptr(0))

	st, _ := svc.Toggle(3)
	if st.LikesCount != 0 {
		t.Errorf("count = %d, want 0", st.LikesCount)
	}
	svc.Wait()
}

func TestCloseDropsPendingSync(t *testing.T) {
	toggler := &fakeToggler{res: api.LikeToggle{IsLiked: true, TotalLikes: 1}}
	clk := &clock{now: time.Now()}
	svc := NewService(toggler, nil, log.New(io.Discard, "", 0), Options{DebounceDelay: time.Hour, Now: clk.Now})

	svc.Toggle(2)
	svc.Close()
	svc.Wait()

	if toggler.callCount() != 0 {
		t.Error("closed service should not sync")
	}
	if st := svc.Get(2); st.IsLiked || st.Syncing {
		t.Errorf("state after close = %+v", st)
	}
}

func TestCloseRollsBackStoredState(t *testing.T) {
	store := newTestStore(t)
	toggler := &fakeToggler{res: api.LikeToggle{IsLiked: true, TotalLikes: 1}}
	clk := &clock{now: time.Now()}
	svc := NewService(toggler, store, log.New(io.Discard, "", 0), Options{DebounceDelay: time.Hour, Now: clk.Now})

	if st, _ := svc.Toggle(7); !st.IsLiked {
		t.Fatalf("optimistic state = %+v", st)
	}
	svc.Close()
	svc.Wait()

	restored, _ := newTestService(t, toggler, store)
	if err := restored.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st := restored.Get(7); st.IsLiked || st.LikesCount != 0 {
		t.Errorf("reloaded pack 7 = %+v, want the pre-toggle state", st)
	}
	if toggler.callCount() != 0 {
		t.Errorf("server calls = %d, want 0", toggler.callCount())
	}
	ids, err := store.LikedPackIDs(context.Background())
	if err != nil || len(ids) != 0 {
		t.Errorf("LikedPackIDs = %v, %v", ids, err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	toggler := &fakeToggler{res: api.LikeToggle{IsLiked: true, TotalLikes: 8}}

	svc, _ := newTestService(t, toggler, store)
	svc.Toggle(11)
	svc.Wait()
	svc.SetLike(12, false, ptr(2))

	restored, _ := newTestService(t, toggler, store)
	if err := restored.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st := restored.Get(11); !st.IsLiked || st.LikesCount != 8 || st.Syncing {
		t.Errorf("pack 11 = %+v", st)
	}
	if st := restored.Get(12); st.IsLiked || st.LikesCount != 2 {
		t.Errorf("pack 12 = %+v", st)
	}

	ids, err := store.LikedPackIDs(context.Background())
	if err != nil || len(ids) != 1 || ids[0] != 11 {
		t.Errorf("LikedPackIDs = %v, %v", ids, err)
	}
}

func TestInitFromGalleryPage(t *testing.T) {
	svc, clk := newTestService(t, &fakeToggler{err: errors.New("offline")}, nil)

	liked, count := true, 5
	svc.Init([]api.StickerSet{
		{ID: 1, IsLikedByCurrentUser: &liked, LikesCount: &count},
		{ID: 2, LikesCount: &count},
	}, false)

	if st := svc.Get(1); !st.IsLiked || st.LikesCount != 5 {
		t.Errorf("pack 1 = %+v", st)
	}
	if st := svc.Get(2); st.IsLiked || st.LikesCount != 5 {
		t.Errorf("pack 2 = %+v", st)
	}

	// A fresh local unlike survives a stale page in merge mode.
	svc.Toggle(1)
	svc.Wait()
	clk.Advance(2 * time.Second)
	svc.SetLike(1, false, ptr(4))
	svc.Init([]api.StickerSet{{ID: 1, IsLikedByCurrentUser: &liked, LikesCount: &count}}, true)
	if st := svc.Get(1); st.IsLiked {
		t.Errorf("merge should keep the recent local change, got %+v", st)
	}

	clk.Advance(RecentChangeWindow)
	svc.Init([]api.StickerSet{{ID: 1, IsLikedByCurrentUser: &liked, LikesCount: &count}}, true)
	if st := svc.Get(1); !st.IsLiked || st.LikesCount != 5 {
		t.Errorf("after the window the API should win, got %+v", st)
	}
}

func TestRoutes(t *testing.T) {
	toggler := &fakeToggler{res: api.LikeToggle{IsLiked: true, TotalLikes: 1}}
	svc, _ := newTestService(t, toggler, nil)
	r := chi.NewRouter()
	RegisterRoutes(r, svc)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodPost, "/api/likes/4/toggle", http.StatusAccepted},
		{http.MethodPost, "/api/likes/4/toggle", http.StatusTooManyRequests},
		{http.MethodGet, "/api/likes/4", http.StatusOK},
		{http.MethodGet, "/api/likes/abc", http.StatusBadRequest},
		{http.MethodGet, "/api/likes/", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
		}
	}
	svc.Wait()
}

func ptr[T any](v T) *T { return &v }
