// Package downloads saves every sticker of a set to disk through the
// loader and records what was written.
package downloads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/loader"
	"github.com/stixly/stixly/internal/progress"
)

const defaultParallel = 8

// ResourceLoader is the part of loader.Loader used for downloads.
type ResourceLoader interface {
	Load(ctx context.Context, req loader.Request) (loader.Resource, error)
}

// Downloader writes sticker sets to disk.
type Downloader struct {
	loader   ResourceLoader
	urlFor   func(fileID string) string
	store    *Store
	parallel int
	now      func() time.Time
}

// New creates a Downloader. urlFor builds the download URL of a file.
// store may be nil to skip recording.
func New(l ResourceLoader, urlFor func(fileID string) string, store *Store) *Downloader {
	return &Downloader{loader: l, urlFor: urlFor, store: store, parallel: defaultParallel, now: time.Now}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Extension is the file extension used for a sticker kind.
func Extension(k loader.Kind) string {
	switch k {
	case loader.KindAnimation:
		return ".tgs"
	case loader.KindVideo:
		return ".webm"
	}
	return ".webp"
}

// FileName is the on-disk name of the i-th sticker of a set.
func FileName(i int, s api.Sticker) string {
	id := s.FileUniqueID
	if id == "" {
		id = s.FileID
	}
	return fmt.Sprintf("%03d_%s%s", i, unsafeChars.ReplaceAllString(id, "_"), Extension(loader.KindOf(s)))
}

// DirName is the directory a set is written to. Names that would leave
// the target directory fall back to set_<id>.
func DirName(set api.StickerSet) string {
	name := unsafeChars.ReplaceAllString(set.Name, "_")
	if strings.Trim(name, ".") == "" {
		return fmt.Sprintf("set_%d", set.ID)
	}
	return name
}

// Download writes every sticker of set into dir/<set name> and records
// the result. Stickers load at background priority.
func (d *Downloader) Download(ctx context.Context, set api.StickerSet, dir string, rep progress.Reporter) (*Record, error) {
	stickers := set.Stickers()
	if len(stickers) == 0 {
		return nil, fmt.Errorf("sticker set %d has no stickers", set.ID)
	}
	if rep == nil {
		rep = progress.Discard
	}

	name := DirName(set)
	target := filepath.Join(dir, name)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", target, err)
	}

	rec := &Record{
		ID:       uuid.NewString(),
		PackID:   set.ID,
		PackName: set.Name,
		Dir:      target,
	}

	var mu sync.Mutex
	rep.Start(len(stickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)
	for i, st := range stickers {
		g.Go(func() error {
			res, err := d.loader.Load(gctx, loader.Request{
				FileID:   st.FileID,
				URL:      d.urlFor(st.FileID),
				Kind:     loader.KindOf(st),
				Priority: loader.Background,
				PackID:   strconv.FormatInt(set.ID, 10),
				Index:    i,
			})
			if err != nil {
				return fmt.Errorf("sticker %d: %w", i, err)
			}
			file := FileName(i, st)
			if err := os.WriteFile(filepath.Join(target, file), res.Data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", file, err)
			}

			mu.Lock()
			rec.Files++
			rec.Bytes += int64(len(res.Data))
			rep.Update(rec.Files, file)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	rep.Finish()
	if err != nil {
		return nil, err
	}

	rec.CreatedAt = d.now().UTC()
	if d.store != nil {
		if err := d.store.Save(ctx, *rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
