package vertexai

import (
	"context"
	"sync"

	"github.com/viant/botmodel/embeddings"
)

// Embedder creates its client on first use so that credentials are only
// resolved when a bot actually needs embeddings.
type Embedder struct {
	projectID string
	model     string
	opts      []ClientOption

	mu      sync.Mutex
	client  *Client
	initErr error
}

func NewEmbedder(projectID, model string, opts ...ClientOption) *Embedder {
	if model == "" {
		model = defaultModel
	}
	return &Embedder{projectID: projectID, model: model, opts: opts}
}

func (e *Embedder) ModelID() string {
	return "vertexai/" + e.model
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Embed(ctx, docs)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embeddings.QueryVector(ctx, e, text)
}

func (e *Embedder) getClient(ctx context.Context) (*Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil || e.initErr != nil {
		return e.client, e.initErr
	}
	e.client, e.initErr = NewClient(ctx, e.projectID, e.model, e.opts...)
	return e.client, e.initErr
}
