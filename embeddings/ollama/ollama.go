package ollama

import (
	"context"

	"github.com/viant/botmodel/embeddings"
)

// Embedder runs a locally served ollama embedding model.
type Embedder struct {
	C *Client
}

// New creates an embedder for model served at baseURL (default localhost).
func New(model, baseURL string, opts ...ClientOption) *Embedder {
	return &Embedder{C: NewClient(model, append([]ClientOption{WithBaseURL(baseURL)}, opts...)...)}
}

func (e *Embedder) ModelID() string {
	return "ollama/" + e.C.Model
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	vecs, _, err := e.C.Embed(ctx, docs)
	return vecs, err
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embeddings.QueryVector(ctx, e, text)
}
