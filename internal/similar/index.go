// Package similar keeps a vector index of sticker sets so the gallery
// can answer free-text and "more like this" queries.
package similar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/stixly/stixly/internal/api"
	"github.com/stixly/stixly/internal/embeddings"
)

const (
	collectionName = "sticker_sets"
	indexFile      = "similar.gob.gz"
	defaultLimit   = 10
)

// ErrUnknownSet is returned by Like for a set that is not indexed.
var ErrUnknownSet = errors.New("sticker set not indexed")

// Filter narrows a query to sets matching all non-zero fields.
type Filter struct {
	AuthorID int64
}

func (f *Filter) where() map[string]string {
	if f == nil || f.AuthorID == 0 {
		return nil
	}
	return map[string]string{metaAuthorID: strconv.FormatInt(f.AuthorID, 10)}
}

// Index is an in-memory chromem collection of sticker sets, optionally
// persisted to a directory.
type Index struct {
	embedder embeddings.Embedder
	embed    chromem.EmbeddingFunc
	logger   *log.Logger

	mu  sync.RWMutex
	db  *chromem.DB
	col *chromem.Collection
}

// NewIndex creates an empty index embedding with e.
func NewIndex(e embeddings.Embedder, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.Default()
	}
	ef := embeddings.ToChromemFunc(e)
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, map[string]string{"embedder": e.Name()}, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{embedder: e, embed: ef, logger: logger, db: db, col: col}, nil
}

// Embedder returns the embedder name the index was built with.
func (x *Index) Embedder() string { return x.embedder.Name() }

// Count returns the number of indexed sets.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.col.Count()
}

// Add indexes sets, replacing any earlier version of the same set.
// Blocked and private sets are skipped. It returns how many were added.
func (x *Index) Add(ctx context.Context, sets []api.StickerSet) (int, error) {
	docs := make([]chromem.Document, 0, len(sets))
	ids := make([]string, 0, len(sets))
	for _, s := range sets {
		if s.IsBlocked || s.IsPrivate {
			continue
		}
		d := toDocument(s)
		docs = append(docs, d)
		ids = append(ids, d.ID)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d sets: %w", len(docs), err)
	}
	if len(vecs) != len(docs) {
		return 0, fmt.Errorf("%s returned %d embeddings for %d sets", x.embedder.Name(), len(vecs), len(docs))
	}
	for i := range docs {
		docs[i].Embedding = vecs[i]
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.col.Delete(ctx, nil, nil, ids...); err != nil {
		return 0, fmt.Errorf("replacing sets: %w", err)
	}
	if err := x.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("adding sets: %w", err)
	}
	return len(docs), nil
}

// Remove drops a set from the index.
func (x *Index) Remove(ctx context.Context, setID int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.col.Delete(ctx, nil, nil, strconv.FormatInt(setID, 10))
}

// Search returns the sets closest to a free-text query.
func (x *Index) Search(ctx context.Context, query string, limit int, f *Filter) ([]Match, error) {
	vecs, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%s returned %d embeddings for one query", x.embedder.Name(), len(vecs))
	}
	return x.query(ctx, vecs[0], limit, f, "")
}

// Like returns the sets closest to an indexed set, excluding the set
// itself.
func (x *Index) Like(ctx context.Context, setID int64, limit int, f *Filter) ([]Match, error) {
	id := strconv.FormatInt(setID, 10)

	x.mu.RLock()
	doc, err := x.col.GetByID(ctx, id)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSet, setID)
	}
	return x.query(ctx, doc.Embedding, limit, f, id)
}

func (x *Index) query(ctx context.Context, vec []float32, limit int, f *Filter, exclude string) ([]Match, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	n := limit
	if exclude != "" {
		n++
	}
	// chromem rejects nResults larger than the collection.
	if count := x.col.Count(); count == 0 {
		return nil, nil
	} else if n > count {
		n = count
	}

	res, err := x.col.QueryEmbedding(ctx, vec, n, f.where(), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]Match, 0, len(res))
	for _, r := range res {
		if r.ID == exclude {
			continue
		}
		out = append(out, toMatch(r))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Persist writes the index to dir.
func (x *Index) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.db.ExportToFile(filepath.Join(dir, indexFile), true, "")
}

// Load replaces the index with the one persisted in dir. A missing file
// leaves the index empty and is not an error.
func (x *Index) Load(dir string) error {
	path := filepath.Join(dir, indexFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import index: %w", err)
	}
	col := x.db.GetCollection(collectionName, x.embed)
	if col == nil {
		return fmt.Errorf("collection %q not found in %s", collectionName, path)
	}
	x.col = col
	x.logger.Printf("similar: loaded %d sets from %s", col.Count(), path)
	return nil
}
