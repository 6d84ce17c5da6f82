package similar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/gallery"
)

const (
	feedBuffer  = 32
	feedTimeout = 30 * time.Second
)

// Sync indexes the first pages of a gallery listing and returns how many
// sets were added. pages <= 0 walks until the last page.
func Sync(ctx context.Context, x *Index, g *gallery.Gallery, l gallery.Listing, pages int) (int, error) {
	added := 0
	for page := 0; pages <= 0 || page < pages; page++ {
		pg, err := g.Load(ctx, l, page)
		if err != nil {
			return added, fmt.Errorf("loading page %d: %w", page, err)
		}
		n, err := x.Add(ctx, pg.Content)
		if err != nil {
			return added, fmt.Errorf("indexing page %d: %w", page, err)
		}
		added += n
		if pg.Last || page >= pg.TotalPages-1 {
			break
		}
	}
	return added, nil
}

// Feeder indexes sets in the background as the gallery serves them.
// Pages arriving while the buffer is full are dropped.
type Feeder struct {
	x  *Index
	ch chan []api.StickerSet
	wg sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewFeeder starts the background indexing worker.
func NewFeeder(x *Index) *Feeder {
	f := &Feeder{x: x, ch: make(chan []api.StickerSet, feedBuffer)}
	f.wg.Add(1)
	go f.run()
	return f
}

// OnPage queues sets for indexing. It matches gallery.Options.OnPage.
// Pages arriving after Close are ignored.
func (f *Feeder) OnPage(sets []api.StickerSet) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- sets:
	default:
		f.x.logger.Printf("similar: feed buffer full, dropping %d sets", len(sets))
	}
}

func (f *Feeder) run() {
	defer f.wg.Done()
	for sets := range f.ch {
		ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
		if _, err := f.x.Add(ctx, sets); err != nil {
			f.x.logger.Printf("similar: indexing served page: %v", err)
		}
		cancel()
	}
}

// Close stops accepting pages and waits for queued ones to be indexed.
func (f *Feeder) Close() {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	f.mu.Unlock()
	f.wg.Wait()
}
