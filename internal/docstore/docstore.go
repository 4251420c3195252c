// Package docstore turns manual sections into a searchable similarity index.
//
// Store pairs an embedder with a VectorIndex backend (memory, chromem or
// qdrant) and implements domain.DocumentStore on top of them.
package docstore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"helperbot/internal/domain"
)

// VectorIndex persists vectors and supports similarity search.
type VectorIndex interface {
	// Reset drops any indexed vectors and prepares for the given dimension.
	Reset(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error
	// Search returns at most topK matches, best first.
	Search(ctx context.Context, vector []float32, topK int) (domain.RetrievalResult, error)
	Close() error
}

// Store implements domain.DocumentStore.
type Store struct {
	mu       sync.RWMutex
	embedder domain.Embedder
	index    VectorIndex
	logger   *zap.Logger
	count    int
}

var _ domain.DocumentStore = (*Store)(nil)

func New(embedder domain.Embedder, index VectorIndex, logger *zap.Logger) *Store {
	return &Store{embedder: embedder, index: index, logger: logger}
}

// Index replaces the indexed set with docs. Sections whose embedding is the
// zero vector cannot match any query and are skipped.
func (s *Store) Index(ctx context.Context, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(docs) == 0 {
		s.count = 0
		return nil
	}

	corpus := make([]string, len(docs))
	for i, d := range docs {
		corpus[i] = d.Text
	}
	if err := s.embedder.Prepare(ctx, corpus); err != nil {
		return fmt.Errorf("%w: prepare embedder: %w", domain.ErrStoreUnavailable, err)
	}

	kept := make([]domain.Document, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	for _, d := range docs {
		v, err := s.embedder.Embed(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("%w: embed %q: %w", domain.ErrStoreUnavailable, d.ID, err)
		}
		if isZero(v) {
			s.logger.Debug("skipping section without indexable terms", zap.String("section", d.ID))
			continue
		}
		kept = append(kept, d)
		vectors = append(vectors, v)
	}

	dim := s.embedder.Dimension()
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	if err := s.index.Reset(ctx, dim); err != nil {
		return fmt.Errorf("%w: reset index: %w", domain.ErrStoreUnavailable, err)
	}
	s.count = 0
	if len(kept) > 0 {
		if err := s.index.Upsert(ctx, kept, vectors); err != nil {
			return fmt.Errorf("%w: upsert: %w", domain.ErrStoreUnavailable, err)
		}
	}
	s.count = len(kept)
	s.logger.Info("manual indexed",
		zap.String("embedder", s.embedder.Name()),
		zap.Int("sections", len(docs)),
		zap.Int("indexed", len(kept)),
	)
	return nil
}

// Query returns the k sections nearest to text. An empty store or a query
// sharing nothing with the corpus yields no matches.
func (s *Store) Query(ctx context.Context, text string, k int) (domain.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 || k <= 0 {
		return nil, nil
	}
	if k > s.count {
		k = s.count
	}

	v, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrStoreUnavailable, err)
	}
	if isZero(v) {
		return nil, nil
	}
	res, err := s.index.Search(ctx, v, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrStoreUnavailable, err)
	}
	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Store) Close() error { return s.index.Close() }

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
