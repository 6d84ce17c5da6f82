package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stixly/stixly/internal/db"
)

// currentSlot is the only snapshot slot in use: the signed-in user.
const currentSlot = "current"

// SnapshotStore keeps the current user's snapshot in SQLite.
type SnapshotStore struct {
	db  *db.DB
	now func() time.Time
}

// NewSnapshotStore creates a new snapshot store.
func NewSnapshotStore(database *db.DB) *SnapshotStore {
	return &SnapshotStore{db: database, now: time.Now}
}

// Save replaces the stored snapshot and stamps SavedAt.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) (*Snapshot, error) {
	if snap.UserID == 0 {
		snap.UserID = snap.User.ID
	}
	if snap.UserID == 0 {
		return nil, errors.New("snapshot has no user id")
	}
	snap.SavedAt = s.now().UTC()

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profile_snapshots (slot, user_id, data, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET user_id = excluded.user_id, data = excluded.data, saved_at = excluded.saved_at`,
		currentSlot, snap.UserID, string(data), db.FormatTime(snap.SavedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return &snap, nil
}

// Load returns the stored snapshot, or nil if none has been saved.
func (s *SnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM profile_snapshots WHERE slot = ?`, currentSlot,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Clear removes the stored snapshot, e.g. on sign-out.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profile_snapshots WHERE slot = ?`, currentSlot); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}
