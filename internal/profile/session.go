package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stixly/stixly/internal/db"
)

const initDataKey = "tg_init_data_raw"

// SessionStore keeps small session values, such as the last init data,
// across runs. It satisfies telegram.Store.
type SessionStore struct {
	db *db.DB
}

func NewSessionStore(database *db.DB) *SessionStore {
	return &SessionStore{db: database}
}

func (s *SessionStore) get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_values WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

func (s *SessionStore) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, db.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) LoadInitData(ctx context.Context) (string, error) {
	return s.get(ctx, initDataKey)
}

func (s *SessionStore) SaveInitData(ctx context.Context, raw string) error {
	return s.put(ctx, initDataKey, raw)
}

// ClearInitData forgets the saved init data.
func (s *SessionStore) ClearInitData(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE key = ?`, initDataKey); err != nil {
		return fmt.Errorf("clearing init data: %w", err)
	}
	return nil
}
