package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/cache"
)

type item struct {
	req     Request
	normURL string
	running bool

	done chan struct{}
	res  Resource
	err  error
}

// Loader runs sticker downloads with bounded concurrency. Queued loads
// are ordered by priority, then arrival. Low priority loads never take
// the slots reserved for high priority ones.
type Loader struct {
	opts   Options
	fetch  Fetcher
	caches map[Kind]*cache.SmartCache[Resource]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	queue      []*item
	byFile     map[string]*item
	byURL      map[string]*item
	activeHigh int
	activeLow  int
	maxConc    int
	closed     bool
}

// New creates a Loader that downloads files with fetch.
func New(fetch Fetcher, opts Options) *Loader {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	caches := make(map[Kind]*cache.SmartCache[Resource], len(cacheSizes))
	for kind, size := range cacheSizes {
		caches[kind] = cache.New[Resource](cache.Options{
			MaxSize:        size,
			TTL:            opts.CacheTTL,
			DisablePreload: true,
			SweepInterval:  time.Hour,
			Logger:         opts.Logger,
		})
	}

	return &Loader{
		opts:    opts,
		fetch:   fetch,
		caches:  caches,
		ctx:     ctx,
		cancel:  cancel,
		byFile:  make(map[string]*item),
		byURL:   make(map[string]*item),
		maxConc: opts.MaxConcurrency,
	}
}

// Load returns the file for req, from cache when present. A load already
// queued or running for the same file ID or normalized URL is joined
// instead of started again. Cancelling ctx stops waiting but leaves the
// load running for other waiters.
func (l *Loader) Load(ctx context.Context, req Request) (Resource, error) {
	if req.FileID == "" {
		return Resource{}, errors.New("file id is required")
	}
	if req.URL == "" {
		return Resource{}, fmt.Errorf("url is required for %s", req.FileID)
	}
	if req.Kind == "" {
		req.Kind = KindImage
	}
	if req.Priority == 0 {
		req.Priority = Additional
	}

	if res, ok := l.caches[req.Kind].Get(req.FileID); ok {
		return res, nil
	}

	it, err := l.enqueue(req)
	if err != nil {
		return Resource{}, err
	}

	select {
	case <-it.done:
		return it.res, it.err
	case <-ctx.Done():
		return Resource{}, ctx.Err()
	}
}

func (l *Loader) enqueue(req Request) (*item, error) {
	norm := NormalizeURL(req.URL, l.opts.Origin)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if it, ok := l.byFile[req.FileID]; ok {
		if req.Priority > it.req.Priority {
			l.setPriorityLocked(it, req.Priority)
		}
		return it, nil
	}
	if it, ok := l.byURL[norm]; ok {
		return it, nil
	}

	req.URL = norm
	it := &item{req: req, normURL: norm, done: make(chan struct{})}
	l.byFile[req.FileID] = it
	l.byURL[norm] = it
	l.insertLocked(it)
	l.dispatchLocked()
	return it, nil
}

// insertLocked places it before the first queued item of lower priority.
func (l *Loader) insertLocked(it *item) {
	i := len(l.queue)
	for j, q := range l.queue {
		if q.req.Priority < it.req.Priority {
			i = j
			break
		}
	}
	l.queue = append(l.queue, nil)
	copy(l.queue[i+1:], l.queue[i:])
	l.queue[i] = it
}

func (l *Loader) removeQueuedLocked(it *item) {
	for i, q := range l.queue {
		if q == it {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
}

func (l *Loader) lowSlotCap() int {
	limit := l.opts.LowPriorityMaxSlots
	if reserved := l.maxConc - l.opts.HighPriorityMinSlots; reserved < limit {
		limit = reserved
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (l *Loader) dispatchLocked() {
	for !l.closed && len(l.queue) > 0 && l.activeHigh+l.activeLow < l.maxConc {
		next := l.queue[0]
		if next.req.Priority.IsHigh() {
			l.activeHigh++
		} else {
			// The queue is sorted, so nothing high priority is waiting.
			if l.activeLow >= l.lowSlotCap() {
				return
			}
			l.activeLow++
		}
		l.queue = l.queue[1:]
		next.running = true
		l.wg.Add(1)
		go l.run(next)
	}
}

func (l *Loader) run(it *item) {
	defer l.wg.Done()
	res, err := l.fetchWithRetry(it.req)

	l.mu.Lock()
	if it.req.Priority.IsHigh() {
		l.activeHigh--
	} else {
		l.activeLow--
	}
	delete(l.byFile, it.req.FileID)
	if l.byURL[it.normURL] == it {
		delete(l.byURL, it.normURL)
	}
	if err == nil {
		if res.Kind == "" {
			res.Kind = it.req.Kind
		}
		l.caches[it.req.Kind].Set(it.req.FileID, res)
	}
	it.res, it.err = res, err
	close(it.done)
	l.dispatchLocked()
	l.mu.Unlock()
}

func (l *Loader) fetchWithRetry(req Request) (Resource, error) {
	delay := l.opts.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= l.opts.Attempts; attempt++ {
		ctx, cancel := context.WithTimeout(l.ctx, l.opts.AttemptTimeout)
		res, err := l.fetch(ctx, req)
		cancel()
		if err == nil {
			return res, nil
		}
		if errors.Is(err, api.ErrNotFound) {
			return Resource{}, fmt.Errorf("loading %s: %w", req.FileID, err)
		}
		lastErr = err
		if attempt == l.opts.Attempts {
			break
		}

		t := time.NewTimer(delay)
		select {
		case <-l.ctx.Done():
			t.Stop()
			return Resource{}, ErrClosed
		case <-t.C:
		}
		delay *= 2
	}
	l.opts.Logger.Printf("loader: %s %s failed after %d attempts: %v", req.Kind, req.FileID, l.opts.Attempts, lastErr)
	return Resource{}, fmt.Errorf("loading %s after %d attempts: %w", req.FileID, l.opts.Attempts, lastErr)
}

// Abort removes a queued load and fails its waiters with ErrAborted. A
// load already running is left alone. It reports whether a load was
// removed.
func (l *Loader) Abort(fileID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.byFile[fileID]
	if !ok || it.running {
		return false
	}
	l.abortLocked(it)
	return true
}

func (l *Loader) abortLocked(it *item) {
	l.removeQueuedLocked(it)
	delete(l.byFile, it.req.FileID)
	if l.byURL[it.normURL] == it {
		delete(l.byURL, it.normURL)
	}
	it.err = ErrAborted
	close(it.done)
}

// SetPriority changes the priority of a queued or running load. It
// reports whether the file was found.
func (l *Loader) SetPriority(fileID string, p Priority) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.byFile[fileID]
	if !ok {
		return false
	}
	l.setPriorityLocked(it, p)
	l.dispatchLocked()
	return true
}

func (l *Loader) setPriorityLocked(it *item, p Priority) {
	if it.running {
		if it.req.Priority.IsHigh() != p.IsHigh() {
			if p.IsHigh() {
				l.activeLow--
				l.activeHigh++
			} else {
				l.activeHigh--
				l.activeLow++
			}
		}
		it.req.Priority = p
		return
	}
	l.removeQueuedLocked(it)
	it.req.Priority = p
	l.insertLocked(it)
}

// SetMaxConcurrency changes the number of parallel downloads.
func (l *Loader) SetMaxConcurrency(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n != l.maxConc {
		l.opts.Logger.Printf("loader: concurrency %d -> %d", l.maxConc, n)
		l.maxConc = n
	}
	l.dispatchLocked()
}

// Cached returns a loaded file without queuing anything.
func (l *Loader) Cached(fileID string) (Resource, bool) {
	for _, kind := range []Kind{KindImage, KindAnimation, KindVideo} {
		if l.caches[kind].Has(fileID) {
			if res, ok := l.caches[kind].Get(fileID); ok {
				return res, true
			}
		}
	}
	return Resource{}, false
}

// Has reports whether fileID is cached, queued or running.
func (l *Loader) Has(fileID string) bool {
	for _, c := range l.caches {
		if c.Has(fileID) {
			return true
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.byFile[fileID]
	return ok
}

// Clear aborts every queued load and empties the caches. Running loads
// finish but their waiters still receive the result.
func (l *Loader) Clear() {
	l.mu.Lock()
	for len(l.queue) > 0 {
		l.abortLocked(l.queue[0])
	}
	l.mu.Unlock()
	for _, c := range l.caches {
		c.Clear()
	}
}

func (l *Loader) Stats() Stats {
	l.mu.Lock()
	s := Stats{
		Queued:         len(l.queue),
		Active:         l.activeHigh + l.activeLow,
		ActiveHigh:     l.activeHigh,
		ActiveLow:      l.activeLow,
		MaxConcurrency: l.maxConc,
		Caches:         make(map[Kind]cache.Stats, len(l.caches)),
	}
	l.mu.Unlock()
	for kind, c := range l.caches {
		s.Caches[kind] = c.Stats()
	}
	return s
}

// Close aborts queued loads, cancels running ones and waits for them.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for len(l.queue) > 0 {
		l.abortLocked(l.queue[0])
	}
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
	for _, c := range l.caches {
		c.Close()
	}
}
