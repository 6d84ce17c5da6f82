// Package likes keeps an optimistic, locally persisted view of which
// sticker packs the user likes and syncs toggles to the API.
package likes

import (
	"context"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/throttle"
)

// Service applies like toggles optimistically and reconciles them with
// the server after a short debounce.
type Service struct {
	api    Toggler
	store  *Store
	logger *log.Logger
	opts   Options

	debounce *throttle.KeyedDebouncer

	mu         sync.Mutex
	states     map[int64]*State
	lastSync   map[int64]time.Time
	lastChange map[int64]time.Time
	rollback   map[int64]State
	inflight   sync.WaitGroup
}

// NewService creates a Service. store may be nil to keep state in memory only.
func NewService(client Toggler, store *Store, logger *log.Logger, opts Options) *Service {
	if opts.MinInterval <= 0 {
		opts.MinInterval = MinRequestInterval
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DebounceDelay
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = RecentChangeWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		api:        client,
		store:      store,
		logger:     logger,
		opts:       opts,
		debounce:   throttle.NewKeyed(opts.DebounceDelay),
		states:     make(map[int64]*State),
		lastSync:   make(map[int64]time.Time),
		lastChange: make(map[int64]time.Time),
		rollback:   make(map[int64]State),
	}
}

// Load restores persisted states. Existing in-memory states win.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if _, ok := s.states[r.PackID]; ok {
			continue
		}
		st := r.State
		s.states[r.PackID] = &st
		if !r.LastChangedAt.IsZero() {
			s.lastChange[r.PackID] = r.LastChangedAt
		}
	}
	return nil
}

// Get returns the state for a pack, or an unliked zero state.
func (s *Service) Get(packID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[packID]; ok {
		return *st
	}
	return State{PackID: packID}
}

// IsLiked reports whether the pack is liked locally.
func (s *Service) IsLiked(packID int64) bool {
	return s.Get(packID).IsLiked
}

// LikesCount returns the local like count of the pack.
func (s *Service) LikesCount(packID int64) int {
	return s.Get(packID).LikesCount
}

// All returns every known state ordered by pack ID.
func (s *Service) All() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PackID < out[j].PackID })
	return out
}

// Toggle flips the like on a pack. The new state is applied immediately
// and synced to the server after DebounceDelay; a failed sync rolls it
// back. Toggling the same pack again within MinInterval returns
// ErrRateLimited and leaves the like unchanged apart from Error.
func (s *Service) Toggle(packID int64) (State, error) {
	now := s.opts.Now()

	s.mu.Lock()
	cur, ok := s.states[packID]
	if !ok {
		cur = &State{PackID: packID}
		s.states[packID] = cur
	}

	if last, ok := s.lastSync[packID]; ok && now.Sub(last) < s.opts.MinInterval {
		cur.Error = ErrRateLimited.Error()
		out := *cur
		s.mu.Unlock()
		return out, ErrRateLimited
	}
	s.lastSync[packID] = now
	s.lastChange[packID] = now

	if _, pending := s.rollback[packID]; !pending {
		s.rollback[packID] = State{PackID: packID, IsLiked: cur.IsLiked, LikesCount: cur.LikesCount}
	}

	newIsLiked := !cur.IsLiked
	delta := -1
	if newIsLiked {
		delta = 1
	}
	cur.IsLiked = newIsLiked
	cur.LikesCount = max(0, cur.LikesCount+delta)
	cur.Syncing = true
	cur.Error = ""
	out := *cur
	s.mu.Unlock()

	s.persist(out, now)
	s.logger.Printf("likes: [%d] optimistic liked=%v count=%d", packID, out.IsLiked, out.LikesCount)

	s.inflight.Add(1)
	key := strconv.FormatInt(packID, 10)
	replaced := s.debounce.Call(key, func() {
		defer s.inflight.Done()
		s.sync(packID, newIsLiked)
	})
	if replaced {
		s.inflight.Done()
	}
	return out, nil
}

func (s *Service) sync(packID int64, wantLiked bool) {
	s.mu.Lock()
	// A later toggle replaced this one; its own sync will run.
	if st, ok := s.states[packID]; ok && st.IsLiked != wantLiked {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	res, err := s.api.ToggleLike(ctx, packID)

	s.mu.Lock()
	cur := s.states[packID]
	prev := s.rollback[packID]
	delete(s.rollback, packID)
	if err != nil {
		cur.IsLiked = prev.IsLiked
		cur.LikesCount = prev.LikesCount
		cur.Syncing = false
		cur.Error = err.Error()
	} else {
		if res.IsLiked != wantLiked {
			s.logger.Printf("likes: [%d] server says liked=%v, keeping local %v", packID, res.IsLiked, wantLiked)
		}
		cur.IsLiked = wantLiked
		cur.LikesCount = max(0, res.TotalLikes)
		cur.Syncing = false
		cur.Error = ""
	}
	out := *cur
	changed := s.lastChange[packID]
	s.mu.Unlock()

	if err != nil {
		s.logger.Printf("likes: [%d] sync failed, rolled back: %v", packID, err)
	}
	s.persist(out, changed)
}

// Wait blocks until all scheduled syncs have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Close drops syncs that have not started yet. Their optimistic states
// are rolled back in memory and in the store.
func (s *Service) Close() {
	var rolledBack []State
	s.mu.Lock()
	for packID, prev := range s.rollback {
		if st, ok := s.states[packID]; ok {
			st.IsLiked = prev.IsLiked
			st.LikesCount = prev.LikesCount
			st.Syncing = false
			rolledBack = append(rolledBack, *st)
		}
	}
	s.rollback = make(map[int64]State)
	s.mu.Unlock()

	for _, st := range rolledBack {
		s.persist(st, time.Time{})
	}

	for n := s.debounce.CancelAll(); n > 0; n-- {
		s.inflight.Done()
	}
}

// SetLike records a known state, e.g. one reported by another view.
// A nil count keeps the current count.
func (s *Service) SetLike(packID int64, isLiked bool, count *int) State {
	now := s.opts.Now()
	s.mu.Lock()
	cur, ok := s.states[packID]
	if !ok {
		cur = &State{PackID: packID}
		s.states[packID] = cur
	}
	cur.IsLiked = isLiked
	if count != nil {
		cur.LikesCount = max(0, *count)
	}
	out := *cur
	s.mu.Unlock()

	s.persist(out, now)
	return out
}

// Init seeds states from a page of sticker sets. In merge mode a recent
// local change that disagrees with the API is kept.
func (s *Service) Init(sets []api.StickerSet, merge bool) {
	now := s.opts.Now()

	var changed []State
	s.mu.Lock()
	for _, set := range sets {
		existing := s.states[set.ID]
		var apiLiked *bool
		if v, ok := set.LikedByMe(); ok {
			apiLiked = &v
		}
		count, _ := set.LikeCount()

		isLiked, likes := ResolveLikeState(ResolveParams{
			Existing:      existing,
			APIIsLiked:    apiLiked,
			APILikesCount: count,
			LastSync:      s.lastSync[set.ID],
			Now:           now,
			MergeMode:     merge,
			RecentWindow:  s.opts.RecentWindow,
		})

		if existing == nil {
			existing = &State{PackID: set.ID}
			s.states[set.ID] = existing
		} else if existing.IsLiked == isLiked && existing.LikesCount == likes {
			continue
		}
		existing.IsLiked = isLiked
		existing.LikesCount = likes
		changed = append(changed, *existing)
	}
	s.mu.Unlock()

	for _, st := range changed {
		s.persist(st, time.Time{})
	}
}

func (s *Service) persist(st State, changedAt time.Time) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, st, changedAt); err != nil {
		s.logger.Printf("likes: %v", err)
	}
}
