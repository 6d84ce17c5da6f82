package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stixly/stixly/internal/db"
)

// Flags stores boolean onboarding flags.
type Flags struct {
	db *db.DB
}

func NewFlags(database *db.DB) *Flags {
	return &Flags{db: database}
}

// Get returns a flag's value. Unknown flags are false.
func (f *Flags) Get(ctx context.Context, name string) (bool, error) {
	var v bool
	err := f.db.QueryRowContext(ctx, `SELECT value FROM onboarding_flags WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading flag %s: %w", name, err)
	}
	return v, nil
}

func (f *Flags) Set(ctx context.Context, name string, value bool) error {
	if name == "" {
		return errors.New("flag name is required")
	}
	_, err := f.db.ExecContext(ctx,
		`INSERT INTO onboarding_flags (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, db.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("setting flag %s: %w", name, err)
	}
	return nil
}

// Clear removes one flag, or every flag when name is empty.
func (f *Flags) Clear(ctx context.Context, name string) error {
	var err error
	if name == "" {
		_, err = f.db.ExecContext(ctx, `DELETE FROM onboarding_flags`)
	} else {
		_, err = f.db.ExecContext(ctx, `DELETE FROM onboarding_flags WHERE name = ?`, name)
	}
	if err != nil {
		return fmt.Errorf("clearing flags: %w", err)
	}
	return nil
}

// All returns every stored flag.
func (f *Flags) All(ctx context.Context) (map[string]bool, error) {
	rows, err := f.db.QueryContext(ctx, `SELECT name, value FROM onboarding_flags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		var v bool
		if err := rows.Scan(&name, &v); err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, rows.Err()
}
