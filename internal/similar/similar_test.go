package similar

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"unicode"

	"github.com/go-chi/chi/v5"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/cache"
	"github.com/stixly/stixly/internal/gallery"
)

var quiet = log.New(io.Discard, "", 0)

// bagEmbedder hashes each lowercase word into one dimension, so texts
// sharing words point the same way.
type bagEmbedder struct {
	dims int
	fail error
}

func (b *bagEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, b.dims)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
		for _, w := range words {
			h := fnv.New32a()
			h.Write([]byte(w))
			vec[h.Sum32()%uint32(b.dims)]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (b *bagEmbedder) Dimensions() int { return b.dims }
func (b *bagEmbedder) Name() string    { return "bag" }

func testSets() []api.StickerSet {
	return []api.StickerSet{
		{ID: 1, Name: "funny_cats_by_bot", Title: "Funny Cats", AuthorID: 7},
		{ID: 2, Name: "cute_cats_by_bot", Title: "Cute Cats", AuthorID: 8},
		{ID: 3, Name: "space_rockets_by_bot", Title: "Space Rockets", AuthorID: 7},
		{ID: 4, Name: "hidden_by_bot", Title: "Hidden Cats", IsBlocked: true},
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	x, err := NewIndex(&bagEmbedder{dims: 256}, quiet)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	n, err := x.Add(context.Background(), testSets())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n != 3 {
		t.Fatalf("Add indexed %d sets, want 3", n)
	}
	return x
}

func matchIDs(ms []Match) []int64 {
	ids := make([]int64, len(ms))
	for i, m := range ms {
		ids[i] = m.SetID
	}
	return ids
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		set  api.StickerSet
		want string
	}{
		{name: "name repeats title", set: api.StickerSet{Name: "funny_cats_by_bot", Title: "Funny Cats"}, want: "Funny Cats"},
		{name: "distinct name", set: api.StickerSet{Name: "kotiki_by_bot", Title: "Cats"}, want: "Cats. kotiki"},
		{
			name: "categories and emojis",
			set: api.StickerSet{
				Name:       "cats_by_bot",
				Title:      "Cats",
				Categories: []api.Category{{Key: "animals", Name: "Animals"}},
				TelegramStickerSetInfo: &api.TelegramStickerSetInfo{Stickers: []api.Sticker{
					{Emoji: "😺"}, {Emoji: "😿"}, {Emoji: "😺"},
				}},
			},
			want: "Cats. Animals. 😺 😿",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describe(tt.set); got != tt.want {
				t.Errorf("describe = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	x := newTestIndex(t)

	got, err := x.Search(context.Background(), "cats", 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	ids := matchIDs(got)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Search(cats) = %v, want sets 1 and 2", ids)
	}
	for _, m := range got {
		if m.Title == "" || m.Name == "" {
			t.Errorf("match missing metadata: %+v", m)
		}
	}
}

func TestLikeExcludesItself(t *testing.T) {
	x := newTestIndex(t)

	got, err := x.Like(context.Background(), 1, 5, nil)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	ids := matchIDs(got)
	if len(ids) != 2 || ids[0] != 2 {
		t.Errorf("Like(1) = %v, want set 2 first and two results", ids)
	}
	for _, id := range ids {
		if id == 1 {
			t.Error("Like must not return the set itself")
		}
	}
}

func TestLikeWithAuthorFilter(t *testing.T) {
	x := newTestIndex(t)

	got, err := x.Like(context.Background(), 1, 5, &Filter{AuthorID: 7})
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if ids := matchIDs(got); len(ids) != 1 || ids[0] != 3 {
		t.Errorf("Like(1, author 7) = %v, want [3]", ids)
	}
}

func TestLikeUnknownSet(t *testing.T) {
	x := newTestIndex(t)
	_, err := x.Like(context.Background(), 99, 5, nil)
	if !errors.Is(err, ErrUnknownSet) {
		t.Errorf("err = %v, want ErrUnknownSet", err)
	}
}

func TestAddReplacesAndRemove(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	if _, err := x.Add(ctx, []api.StickerSet{{ID: 3, Name: "space_cats_by_bot", Title: "Space Cats"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if x.Count() != 3 {
		t.Errorf("Count = %d after re-adding, want 3", x.Count())
	}

	got, err := x.Search(ctx, "space", 1, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Space Cats" {
		t.Errorf("Search(space) = %+v, want the updated title", got)
	}

	if err := x.Remove(ctx, 3); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if x.Count() != 2 {
		t.Errorf("Count = %d after Remove, want 2", x.Count())
	}
}

func TestEmptyIndex(t *testing.T) {
	x, err := NewIndex(&bagEmbedder{dims: 16}, quiet)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	got, err := x.Search(context.Background(), "anything", 5, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("Search on empty index = %v, %v", got, err)
	}
}

func TestEmbedError(t *testing.T) {
	x, err := NewIndex(&bagEmbedder{dims: 16, fail: errors.New("quota")}, quiet)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if _, err := x.Add(context.Background(), testSets()); err == nil {
		t.Error("Add should fail when embedding fails")
	}
}

func TestPersistAndLoad(t *testing.T) {
	x := newTestIndex(t)
	dir := t.TempDir()

	if err := x.Persist(dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	y, err := NewIndex(&bagEmbedder{dims: 256}, quiet)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if err := y.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if y.Count() != 3 {
		t.Fatalf("loaded Count = %d, want 3", y.Count())
	}
	got, err := y.Like(context.Background(), 2, 1, nil)
	if err != nil {
		t.Fatalf("Like after load: %v", err)
	}
	if len(got) != 1 || got[0].SetID != 1 {
		t.Errorf("Like(2) after load = %v, want [1]", matchIDs(got))
	}
}

func TestLoadMissingDir(t *testing.T) {
	x, _ := NewIndex(&bagEmbedder{dims: 16}, quiet)
	if err := x.Load(t.TempDir()); err != nil {
		t.Errorf("Load of empty dir: %v", err)
	}
}

type pagedSource struct{ pages [][]api.StickerSet }

func (p *pagedSource) page(n int) (*api.StickerSetPage, error) {
	return &api.StickerSetPage{Content: p.pages[n], Number: n, TotalPages: len(p.pages), Last: n == len(p.pages)-1}, nil
}

func (p *pagedSource) GetStickerSets(_ context.Context, page, _ int, _ *api.StickerSetFilter) (*api.StickerSetPage, error) {
	return p.page(page)
}

func (p *pagedSource) SearchStickerSets(_ context.Context, _ string, page, _ int) (*api.StickerSetPage, error) {
	return p.page(page)
}

func (p *pagedSource) GetStickerSetsByAuthor(_ context.Context, _ int64, page, _ int) (*api.StickerSetPage, error) {
	return p.page(page)
}

func (p *pagedSource) SearchAuthorStickerSets(_ context.Context, _ int64, _ string, page, _ int) (*api.StickerSetPage, error) {
	return p.page(page)
}

func TestSyncFromGallery(t *testing.T) {
	sets := testSets()
	src := &pagedSource{pages: [][]api.StickerSet{sets[:2], sets[2:]}}
	g := gallery.New(src, gallery.Options{Cache: cache.Options{DisablePreload: true}, Logger: quiet})
	defer g.Close()

	x, _ := NewIndex(&bagEmbedder{dims: 256}, quiet)
	n, err := Sync(context.Background(), x, g, gallery.Listing{}, 0)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n != 3 || x.Count() != 3 {
		t.Errorf("Sync added %d, Count %d; want 3 and 3", n, x.Count())
	}
}

func TestFeeder(t *testing.T) {
	x, _ := NewIndex(&bagEmbedder{dims: 256}, quiet)
	f := NewFeeder(x)
	sets := testSets()
	f.OnPage(sets[:1])
	f.OnPage(sets[1:3])
	f.Close()
	f.Close()

	if x.Count() != 3 {
		t.Errorf("Count = %d after feeding, want 3", x.Count())
	}
}

func TestFeederIgnoresPagesAfterClose(t *testing.T) {
	x, _ := NewIndex(&bagEmbedder{dims: 256}, quiet)
	f := NewFeeder(x)
	f.Close()

	f.OnPage(testSets())
	if x.Count() != 0 {
		t.Errorf("Count = %d, want pages after Close ignored", x.Count())
	}
}

func TestRoutes(t *testing.T) {
	x := newTestIndex(t)
	r := chi.NewRouter()
	RegisterRoutes(r, x)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantIDs  int
	}{
		{name: "search", path: "/api/similar?q=rockets&limit=1", wantCode: http.StatusOK, wantIDs: 1},
		{name: "search without q", path: "/api/similar", wantCode: http.StatusBadRequest},
		{name: "like", path: "/api/similar/1?limit=1", wantCode: http.StatusOK, wantIDs: 1},
		{name: "like unknown", path: "/api/similar/42", wantCode: http.StatusNotFound},
		{name: "like bad id", path: "/api/similar/abc", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var got []Match
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != tt.wantIDs {
				t.Errorf("got %d matches, want %d", len(got), tt.wantIDs)
			}
		})
	}
}
