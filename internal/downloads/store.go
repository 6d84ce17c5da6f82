package downloads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stixly/stixly/internal/db"
)

// ErrNotFound is returned when a download record does not exist.
var ErrNotFound = errors.New("download not found")

// Record is one finished sticker set download.
type Record struct {
	ID        string    `json:"id"`
	PackID    int64     `json:"pack_id"`
	PackName  string    `json:"pack_name"`
	Dir       string    `json:"dir"`
	Files     int       `json:"files"`
	Bytes     int64     `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists download records.
type Store struct {
	db *db.DB
}

// NewStore creates a Store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save inserts rec.
func (s *Store) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (id, pack_id, pack_name, dir, files, bytes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PackID, rec.PackName, rec.Dir, rec.Files, rec.Bytes, db.FormatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving download %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pack_id, pack_name, dir, files, bytes, created_at FROM downloads WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// List returns the newest records first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	q := `SELECT id, pack_id, pack_name, dir, files, bytes, created_at FROM downloads ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing downloads: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var rec Record
	var created string
	if err := sc.Scan(&rec.ID, &rec.PackID, &rec.PackName, &rec.Dir, &rec.Files, &rec.Bytes, &created); err != nil {
		return nil, err
	}
	t, err := db.ParseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = t
	return &rec, nil
}
