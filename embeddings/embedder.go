package embeddings

import (
	"context"
	"fmt"
)

// Embedder computes sentence embeddings. Implementations return one vector
// per input text, all of the same dimensionality.
type Embedder interface {
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Identifier is implemented by embedders that can name the model they run.
type Identifier interface {
	ModelID() string
}

// ModelID returns the model identifier of e, or its Go type name.
func ModelID(e Embedder) string {
	if id, ok := e.(Identifier); ok && id.ModelID() != "" {
		return id.ModelID()
	}
	return fmt.Sprintf("%T", e)
}

// Closer releases model resources (sessions, native handles).
type Closer interface {
	Close() error
}

// Close releases e when it holds resources.
func Close(e Embedder) error {
	if c, ok := e.(Closer); ok {
		return c.Close()
	}
	return nil
}

// QueryVector embeds a single text via EmbedDocuments and checks the result
// count.
func QueryVector(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vecs))
	}
	return vecs[0], nil
}
