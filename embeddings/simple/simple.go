// Package simple provides a deterministic embedder for tests and dry runs.
package simple

import (
	"context"
	"fmt"
)

const defaultDim = 64

// Embedder hashes text into a fixed-size pseudo-random vector.
type Embedder struct {
	Dim int
}

// New constructs a deterministic embedder.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = defaultDim
	}
	return &Embedder{Dim: dim}
}

// ModelID identifies the embedder in cache keys.
func (e *Embedder) ModelID() string {
	return fmt.Sprintf("simple-%d", e.dim())
}

// EmbedDocuments embeds texts deterministically.
func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, s := range docs {
		out[i] = Vector(s, e.dim())
	}
	return out, nil
}

// EmbedQuery embeds a query deterministically.
func (e *Embedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	return Vector(q, e.dim()), nil
}

func (e *Embedder) dim() int {
	if e.Dim <= 0 {
		return defaultDim
	}
	return e.Dim
}

// Vector returns the deterministic vector for s.
func Vector(s string, dim int) []float32 {
	v := make([]float32, dim)
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h = (h ^ uint32(s[i])) * 16777619
	}
	seed := h
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%10000)/5000.0 - 1
	}
	return v
}
