// Package cache memoizes embedding calls by (model, text).
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/viant/botmodel/embeddings"
)

// Embedder decorates another embedder with an in-memory vector cache.
// Identical texts are sent to the model at most once per batch and are
// served from memory afterwards.
type Embedder struct {
	next    embeddings.Embedder
	model   string
	vectors *Map[uint64, []float32]
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps next.
func New(next embeddings.Embedder) *Embedder {
	return &Embedder{
		next:    next,
		model:   embeddings.ModelID(next),
		vectors: NewMap[uint64, []float32](),
	}
}

// ModelID returns the wrapped model identifier.
func (e *Embedder) ModelID() string {
	return e.model
}

// Close releases the wrapped embedder.
func (e *Embedder) Close() error {
	return embeddings.Close(e.next)
}

// Stats returns cache hit and miss counts.
func (e *Embedder) Stats() (hits, misses int64) {
	return e.hits.Load(), e.misses.Load()
}

// Size returns the number of cached vectors.
func (e *Embedder) Size() int {
	return e.vectors.Size()
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embeddings.QueryVector(ctx, e, text)
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	keys := make([]uint64, len(docs))
	pending := map[uint64][]int{}
	var missing []string
	var missingKeys []uint64
	for i, doc := range docs {
		key, err := Key(e.model, doc)
		if err != nil {
			return nil, fmt.Errorf("cache key: %w", err)
		}
		keys[i] = key
		if vec, ok := e.vectors.Get(key); ok {
			out[i] = cloneVec(vec)
			e.hits.Add(1)
			continue
		}
		if _, ok := pending[key]; !ok {
			missing = append(missing, doc)
			missingKeys = append(missingKeys, key)
		}
		pending[key] = append(pending[key], i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	e.misses.Add(int64(len(missing)))
	vecs, err := e.next.EmbedDocuments(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for i, key := range missingKeys {
		e.vectors.Set(key, cloneVec(vecs[i]))
		for _, pos := range pending[key] {
			out[pos] = cloneVec(vecs[i])
		}
	}
	return out, nil
}

func cloneVec(vec []float32) []float32 {
	if vec == nil {
		return nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
