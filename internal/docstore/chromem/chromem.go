// Package chromem backs the document store with an embedded chromem-go
// collection, optionally persisted to disk.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"helperbot/internal/domain"
)

const defaultCollection = "helperbot_manual"

// Config configures the chromem index.
type Config struct {
	// Dir enables persistence when non-empty.
	Dir        string
	Collection string
}

// Index stores precomputed vectors in a chromem collection.
type Index struct {
	mu   sync.RWMutex
	db   *chromem.DB
	name string
	col  *chromem.Collection
}

// New opens (or creates) the chromem database described by cfg.
func New(cfg Config) (*Index, error) {
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	db := chromem.NewDB()
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create chromem dir: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.Dir, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}
	return &Index{db: db, name: cfg.Collection}, nil
}

// Reset recreates the collection. Vectors always arrive precomputed, so the
// collection's embedding function is never invoked.
func (x *Index) Reset(_ context.Context, _ int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.db.DeleteCollection(x.name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	col, err := x.db.GetOrCreateCollection(x.name, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	x.col = col
	return nil
}

func (x *Index) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return errors.New("documents and vectors length mismatch")
	}
	x.mu.RLock()
	col := x.col
	x.mu.RUnlock()
	if col == nil {
		return errors.New("collection not initialised")
	}

	cdocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		cdocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Text,
			Embedding: vectors[i],
			Metadata:  map[string]string{"key": d.ID},
		}
	}
	return col.AddDocuments(ctx, cdocs, runtime.NumCPU())
}

func (x *Index) Search(ctx context.Context, vector []float32, topK int) (domain.RetrievalResult, error) {
	x.mu.RLock()
	col := x.col
	x.mu.RUnlock()
	if col == nil || topK <= 0 {
		return nil, nil
	}
	if n := col.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make(domain.RetrievalResult, 0, len(results))
	for _, r := range results {
		out = append(out, domain.Match{ID: r.ID, Text: r.Content, Score: r.Similarity})
	}
	return out, nil
}

func (x *Index) Close() error { return nil }

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem index expects precomputed embeddings")
}
