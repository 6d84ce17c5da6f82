package likes

import (
	"context"
	"fmt"
	"time"

	"github.com/stixly/stixly/internal/db"
)

// Store persists like states between runs. Only the pack, like flag and
// count are kept; syncing and error flags are session state.
type Store struct {
	db *db.DB
}

// NewStore creates a new likes store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record is a persisted like state with the time of its last local change.
type Record struct {
	State
	LastChangedAt time.Time
}

// Save upserts a like state.
func (s *Store) Save(ctx context.Context, st State, changedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO likes (pack_id, is_liked, likes_count, last_changed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(pack_id) DO UPDATE SET
		   is_liked = excluded.is_liked,
		   likes_count = excluded.likes_count,
		   last_changed_at = excluded.last_changed_at,
		   updated_at = excluded.updated_at`,
		st.PackID, st.IsLiked, max(0, st.LikesCount), formatOptional(changedAt), db.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("saving like for pack %d: %w", st.PackID, err)
	}
	return nil
}

// LoadAll returns every persisted like state.
func (s *Store) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pack_id, is_liked, likes_count, last_changed_at FROM likes ORDER BY pack_id`)
	if err != nil {
		return nil, fmt.Errorf("listing likes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var changed string
		if err := rows.Scan(&r.PackID, &r.IsLiked, &r.LikesCount, &changed); err != nil {
			return nil, fmt.Errorf("scanning like: %w", err)
		}
		if r.LastChangedAt, err = db.ParseTime(changed); err != nil {
			return nil, fmt.Errorf("parsing last_changed_at for pack %d: %w", r.PackID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LikedPackIDs returns the packs currently marked as liked.
func (s *Store) LikedPackIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pack_id FROM likes WHERE is_liked = 1 ORDER BY pack_id`)
	if err != nil {
		return nil, fmt.Errorf("listing liked packs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Clear removes all persisted likes.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM likes`); err != nil {
		return fmt.Errorf("clearing likes: %w", err)
	}
	return nil
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return db.FormatTime(t)
}
