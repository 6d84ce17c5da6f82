package loader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stixly/stixly/internal/api"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]int
	gate  chan struct{}
}

func (f *fakeFetcher) fetch(ctx context.Context, req Request) (Resource, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.FileID)
	failing := f.fail[req.FileID] > 0
	if failing {
		f.fail[req.FileID]--
	}
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return Resource{}, ctx.Err()
		}
	}
	if failing {
		return Resource{}, errors.New("flaky upstream")
	}
	if req.FileID == "missing" {
		return Resource{}, api.ErrNotFound
	}
	return Resource{Data: []byte("data:" + req.FileID), ContentType: "image/webp"}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestLoader(t *testing.T, f *fakeFetcher, opts Options) *Loader {
	t.Helper()
	opts.Logger = log.New(io.Discard, "", 0)
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	l := New(f.fetch, opts)
	t.Cleanup(func() {
		if f.gate != nil {
			select {
			case <-f.gate:
			default:
				close(f.gate)
			}
		}
		l.Close()
	})
	return l
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func req(id string, p Priority) Request {
	return Request{FileID: id, URL: "/api/stickers/" + id, Priority: p}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		origin string
		want   string
	}{
		{"no query", "/api/stickers/a", "", "/api/stickers/a"},
		{"drops cache busters", "/api/stickers/a?v=3&_=1&t=9&timestamp=7", "", "/api/stickers/a"},
		{"sorts remaining", "/api/stickers/a?size=m&format=webp&v=2", "", "/api/stickers/a?format=webp&size=m"},
		{"same origin reduced", "https://app.example/api/stickers/a?v=1", "https://app.example", "/api/stickers/a"},
		{"other origin kept", "https://cdn.example/s/a?b=2&a=1", "https://app.example", "https://cdn.example/s/a?a=1&b=2"},
		{"blob untouched", "blob:https://app.example/123?v=1", "", "blob:https://app.example/123?v=1"},
		{"data untouched", "data:image/png;base64,AAA", "", "data:image/png;base64,AAA"},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.raw, tt.origin); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestConcurrencyForNetwork(t *testing.T) {
	tests := []struct {
		effective string
		rtt       time.Duration
		saveData  bool
		want      int
	}{
		{"", 0, false, 30},
		{"4g", 50 * time.Millisecond, false, 30},
		{"4g", 0, true, 15},
		{"3g", 0, false, 25},
		{"", 300 * time.Millisecond, false, 25},
		{"2g", 0, false, 15},
		{"4g", 700 * time.Millisecond, false, 15},
		{"slow-2g", 0, false, 10},
		{"", 1500 * time.Millisecond, false, 10},
	}
	for _, tt := range tests {
		if got := ConcurrencyForNetwork(tt.effective, tt.rtt, tt.saveData); got != tt.want {
			t.Errorf("ConcurrencyForNetwork(%q, %v, %v) = %d, want %d", tt.effective, tt.rtt, tt.saveData, got, tt.want)
		}
	}
}

func TestLoadCachesResult(t *testing.T) {
	f := &fakeFetcher{}
	l := newTestLoader(t, f, Options{})
	ctx := context.Background()

	res, err := l.Load(ctx, req("a", Viewport))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(res.Data) != "data:a" || res.Kind != KindImage {
		t.Errorf("resource = %+v", res)
	}
	if _, err := l.Load(ctx, req("a", Viewport)); err != nil {
		t.Fatal(err)
	}
	if n := len(f.Calls()); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	if _, ok := l.Cached("a"); !ok {
		t.Error("Cached should find a loaded file")
	}
	if !l.Has("a") || l.Has("b") {
		t.Error("Has mismatch")
	}
}

func TestLoadValidation(t *testing.T) {
	l := newTestLoader(t, &fakeFetcher{}, Options{})
	if _, err := l.Load(context.Background(), Request{URL: "/x"}); err == nil {
		t.Error("expected error for missing file id")
	}
	if _, err := l.Load(context.Background(), Request{FileID: "x"}); err == nil {
		t.Error("expected error for missing url")
	}
}

func TestLoadJoinsInFlight(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	l := newTestLoader(t, f, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]string, 3)
	loads := []Request{
		{FileID: "a", URL: "/api/stickers/a?v=1"},
		{FileID: "a", URL: "/api/stickers/a?v=1"},
		{FileID: "a-copy", URL: "/api/stickers/a?v=2"},
	}
	for i, r := range loads {
		wg.Add(1)
		go func(i int, r Request) {
			defer wg.Done()
			res, err := l.Load(ctx, r)
			if err != nil {
				t.Errorf("load %d: %v", i, err)
				return
			}
			results[i] = string(res.Data)
		}(i, r)
		if i == 0 {
			waitFor(t, func() bool { return len(f.Calls()) == 1 })
		}
	}

	time.Sleep(10 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	if n := len(f.Calls()); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
	for i, got := range results {
		if got != "data:a" {
			t.Errorf("result %d = %q", i, got)
		}
	}
}

func TestPriorityOrder(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	l := newTestLoader(t, f, Options{MaxConcurrency: 1})
	ctx := context.Background()

	var wg sync.WaitGroup
	load := func(r Request) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Load(ctx, r)
		}()
	}

	load(req("first", Additional))
	waitFor(t, func() bool { return l.Stats().Active == 1 })
	load(req("background", Background))
	waitFor(t, func() bool { return l.Stats().Queued == 1 })
	load(req("additional", Additional))
	waitFor(t, func() bool { return l.Stats().Queued == 2 })
	load(req("modal", Modal))
	waitFor(t, func() bool { return l.Stats().Queued == 3 })

	close(f.gate)
	wg.Wait()

	got := strings.Join(f.Calls(), ",")
	if want := "first,modal,additional,background"; got != want {
		t.Errorf("fetch order = %s, want %s", got, want)
	}
}

func TestLowPrioritySlotCap(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	l := newTestLoader(t, f, Options{MaxConcurrency: 4, HighPriorityMinSlots: 2})
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"l1", "l2", "l3", "l4"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			l.Load(ctx, req(id, Background))
		}(id)
	}
	waitFor(t, func() bool {
		s := l.Stats()
		return s.ActiveLow == 2 && s.Queued == 2
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Load(ctx, req("h1", Viewport))
	}()
	waitFor(t, func() bool { return l.Stats().ActiveHigh == 1 })
	if s := l.Stats(); s.ActiveLow != 2 || s.Queued != 2 {
		t.Errorf("high load changed low pool: %+v", s)
	}

	close(f.gate)
	wg.Wait()
	if n := len(f.Calls()); n != 5 {
		t.Errorf("fetches = %d, want 5", n)
	}
}

func TestAbortAndSetPriority(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	l := newTestLoader(t, f, Options{MaxConcurrency: 1})
	ctx := context.Background()

	errs := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range []string{"running", "queued", "bumped"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := l.Load(ctx, req(id, Background))
			mu.Lock()
			errs[id] = err
			mu.Unlock()
		}(id)
		waitFor(t, func() bool { return l.Has(id) })
	}
	waitFor(t, func() bool { return l.Stats().Queued == 2 })

	if l.Abort("running") {
		t.Error("running loads cannot be aborted")
	}
	if !l.SetPriority("bumped", Modal) {
		t.Fatal("SetPriority should find the queued load")
	}
	if !l.Abort("queued") {
		t.Fatal("Abort should remove the queued load")
	}
	if l.SetPriority("unknown", Modal) {
		t.Error("SetPriority on unknown file should report false")
	}

	close(f.gate)
	wg.Wait()

	if !errors.Is(errs["queued"], ErrAborted) {
		t.Errorf("aborted load err = %v", errs["queued"])
	}
	if errs["running"] != nil || errs["bumped"] != nil {
		t.Errorf("unexpected errors: %v", errs)
	}
	if got := strings.Join(f.Calls(), ","); got != "running,bumped" {
		t.Errorf("fetches = %s", got)
	}
}

func TestRetry(t *testing.T) {
	f := &fakeFetcher{fail: map[string]int{"flaky": 2, "dead": 10}}
	l := newTestLoader(t, f, Options{Attempts: 3})
	ctx := context.Background()

	if _, err := l.Load(ctx, req("flaky", Viewport)); err != nil {
		t.Errorf("flaky load should succeed on third attempt: %v", err)
	}
	_, err := l.Load(ctx, req("dead", Viewport))
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("dead load err = %v", err)
	}
	if l.Has("dead") {
		t.Error("failed load must not be cached")
	}
	if n := len(f.Calls()); n != 6 {
		t.Errorf("fetch calls = %d, want 6", n)
	}
}

func TestClearAndClose(t *testing.T) {
	f := &fakeFetcher{}
	l := New(f.fetch, Options{Logger: log.New(io.Discard, "", 0)})
	ctx := context.Background()

	l.Load(ctx, req("a", Viewport))
	l.Clear()
	if _, ok := l.Cached("a"); ok {
		t.Error("Clear should empty the caches")
	}

	l.Close()
	l.Close()
	if _, err := l.Load(ctx, req("b", Viewport)); !errors.Is(err, ErrClosed) {
		t.Errorf("Load after Close err = %v", err)
	}
}

func TestLoadContextCancel(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	l := newTestLoader(t, f, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Load(ctx, req("slow", Viewport)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestPackQueue(t *testing.T) {
	f := &fakeFetcher{}
	l := newTestLoader(t, f, Options{})
	q := NewPackQueue(l, func(id string) string { return "/api/stickers/" + id }, 0, 0)
	ctx := context.Background()

	stickers := make([]api.Sticker, 8)
	for i := range stickers {
		stickers[i] = api.Sticker{FileID: string(rune('a' + i))}
	}
	stickers[6].IsVideo = true

	q.Reset(ctx, "pack-1", stickers)
	q.Wait()
	if n := len(f.Calls()); n != 5 {
		t.Errorf("initial window loaded %d, want 5", n)
	}
	if q.PendingCount() != 3 {
		t.Errorf("pending = %d, want 3", q.PendingCount())
	}
	if !q.IsLoaded(0) || q.IsLoaded(5) || q.IsLoaded(99) {
		t.Error("IsLoaded mismatch after initial window")
	}

	q.Reset(ctx, "pack-1", stickers)
	if q.PendingCount() != 3 {
		t.Error("Reset with the same pack should not restart")
	}

	if n := q.TriggerLoad(ctx); n != 2 {
		t.Errorf("TriggerLoad started %d, want 2", n)
	}
	q.Wait()
	if !q.IsLoaded(6) {
		t.Error("video sticker should be loaded")
	}
	if res, _ := l.Cached("g"); res.Kind != KindVideo {
		t.Errorf("kind = %q, want video", res.Kind)
	}

	q.Clear()
	if q.PendingCount() != 0 || q.TriggerLoad(ctx) != 0 {
		t.Error("Clear should drop pending stickers")
	}

	q.Reset(ctx, "pack-2", stickers[:2])
	q.Wait()
	if q.PendingCount() != 0 {
		t.Errorf("pending after switching packs = %d", q.PendingCount())
	}
}

func TestRoutes(t *testing.T) {
	f := &fakeFetcher{}
	l := newTestLoader(t, f, Options{})
	r := chi.NewRouter()
	RegisterRoutes(r, l, func(id string) string { return "/upstream/" + id })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stickers/abc?priority=modal", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != StickerCacheControl {
		t.Errorf("Cache-Control = %q", got)
	}
	if w.Header().Get("Content-Type") != "image/webp" || w.Body.String() != "data:abc" {
		t.Errorf("response = %s %q", w.Header().Get("Content-Type"), w.Body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stickers/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/loader/concurrency", strings.NewReader(`{"effectiveType":"3g"}`)))
	if w.Code != http.StatusOK || l.Stats().MaxConcurrency != 25 {
		t.Errorf("concurrency update = %d %s", w.Code, w.Body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/loader/stats", nil))
	if !strings.Contains(w.Body.String(), `"max_concurrency":25`) {
		t.Errorf("stats = %s", w.Body)
	}
}

func TestStickerRouteErrorIsJSON(t *testing.T) {
	upstream := errors.New(`upstream said "no"`)
	l := New(func(context.Context, Request) (Resource, error) {
		return Resource{}, upstream
	}, Options{Attempts: 1, Logger: log.New(io.Discard, "", 0)})
	t.Cleanup(l.Close)
	r := chi.NewRouter()
	RegisterRoutes(r, l, func(id string) string { return "/upstream/" + id })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stickers/abc", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v: %s", err, w.Body)
	}
	if !strings.Contains(body["error"], `"no"`) {
		t.Errorf("error = %q", body["error"])
	}
}
