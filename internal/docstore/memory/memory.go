package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"helperbot/internal/domain"
)

// Index is an in-process vector index using brute-force cosine similarity.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	docs      []domain.Document
}

func New() *Index { return &Index{} }

func (x *Index) Reset(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dimension = dimension
	x.vectors = nil
	x.docs = nil
	return nil
}

// Upsert adds docs; an id already present is replaced in place.
func (x *Index) Upsert(_ context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return errors.New("documents and vectors length mismatch")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, v := range vectors {
		if len(v) != x.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	pos := make(map[string]int, len(x.docs))
	for i, d := range x.docs {
		pos[d.ID] = i
	}
	for i, d := range docs {
		v := normalize(vectors[i])
		if j, ok := pos[d.ID]; ok {
			x.docs[j], x.vectors[j] = d, v
			continue
		}
		pos[d.ID] = len(x.docs)
		x.docs = append(x.docs, d)
		x.vectors = append(x.vectors, v)
	}
	return nil
}

func (x *Index) Search(_ context.Context, vector []float32, topK int) (domain.RetrievalResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if topK <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}
	q := normalize(vector)
	scores := make([]float32, len(x.vectors))
	for i := range x.vectors {
		scores[i] = dot(x.vectors[i], q)
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	out := make(domain.RetrievalResult, 0, topK)
	for _, j := range idxs[:topK] {
		out = append(out, domain.Match{ID: x.docs[j].ID, Text: x.docs[j].Text, Score: scores[j]})
	}
	return out, nil
}

func (x *Index) Close() error { return nil }

func dot(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// argsortDesc orders indexes by descending score; ties keep insertion order.
func argsortDesc(vals []float32) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}
