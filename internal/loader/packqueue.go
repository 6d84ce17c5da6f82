package loader

import (
	"context"
	"sync"

	"github.com/stixly/stixly/internal/api"
)

const (
	DefaultInitialLoad = 5
	DefaultLoadStep    = 2
)

// PackQueue loads the stickers of one pack in small windows: the first
// few right away, then a couple more on every TriggerLoad.
type PackQueue struct {
	loader  *Loader
	urlFor  func(fileID string) string
	initial int
	step    int

	mu       sync.Mutex
	packID   string
	stickers []api.Sticker
	pending  []int
	loading  map[int]bool
	loaded   map[int]bool
	wg       sync.WaitGroup
}

// NewPackQueue creates a queue. urlFor builds the download URL of a file.
// Non-positive initial or step use the defaults.
func NewPackQueue(l *Loader, urlFor func(string) string, initial, step int) *PackQueue {
	if initial <= 0 {
		initial = DefaultInitialLoad
	}
	if step <= 0 {
		step = DefaultLoadStep
	}
	return &PackQueue{
		loader:  l,
		urlFor:  urlFor,
		initial: initial,
		step:    step,
		loading: make(map[int]bool),
		loaded:  make(map[int]bool),
	}
}

// Reset switches to a pack and starts its first window. Calling Reset
// again with the same pack ID does nothing.
func (q *PackQueue) Reset(ctx context.Context, packID string, stickers []api.Sticker) {
	q.mu.Lock()
	if q.packID == packID && q.stickers != nil {
		q.mu.Unlock()
		return
	}
	q.abortPendingLocked()
	q.packID = packID
	q.stickers = stickers
	q.loading = make(map[int]bool)
	q.loaded = make(map[int]bool)

	n := min(q.initial, len(stickers))
	first := make([]int, n)
	for i := range first {
		first[i] = i
	}
	q.pending = nil
	for i := n; i < len(stickers); i++ {
		q.pending = append(q.pending, i)
	}
	q.startLocked(ctx, first)
	q.mu.Unlock()
}

// TriggerLoad starts the next window and returns how many loads began.
func (q *PackQueue) TriggerLoad(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := min(q.step, len(q.pending))
	next := q.pending[:n]
	q.pending = q.pending[n:]
	q.startLocked(ctx, next)
	return n
}

// Clear drops the stickers not yet started and aborts any of them the
// loader still has queued.
func (q *PackQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.abortPendingLocked()
	q.pending = nil
}

func (q *PackQueue) abortPendingLocked() {
	for _, i := range q.pending {
		if i < len(q.stickers) {
			q.loader.Abort(q.stickers[i].FileID)
		}
	}
}

func (q *PackQueue) startLocked(ctx context.Context, indexes []int) {
	packID := q.packID
	for _, i := range indexes {
		if q.loaded[i] || q.loading[i] {
			continue
		}
		s := q.stickers[i]
		priority := NearViewport
		if i == 0 {
			priority = Viewport
		}
		q.loading[i] = true
		q.wg.Add(1)
		go func(i int, s api.Sticker) {
			defer q.wg.Done()
			_, err := q.loader.Load(ctx, Request{
				FileID:   s.FileID,
				URL:      q.urlFor(s.FileID),
				Kind:     KindOf(s),
				Priority: priority,
				PackID:   packID,
				Index:    i,
			})

			q.mu.Lock()
			defer q.mu.Unlock()
			if q.packID != packID {
				return
			}
			delete(q.loading, i)
			if err != nil {
				q.loader.opts.Logger.Printf("loader: pack %s sticker %d: %v", packID, i, err)
				return
			}
			q.loaded[i] = true
		}(i, s)
	}
}

// IsLoaded reports whether sticker i of the current pack is cached,
// loading or done.
func (q *PackQueue) IsLoaded(i int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.stickers) {
		return false
	}
	if q.loaded[i] || q.loading[i] {
		return true
	}
	_, ok := q.loader.Cached(q.stickers[i].FileID)
	return ok
}

// PendingCount is the number of stickers not yet started.
func (q *PackQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until every started load has finished.
func (q *PackQueue) Wait() {
	q.wg.Wait()
}
