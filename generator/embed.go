package generator

import (
	"context"
	"fmt"

	"github.com/viant/botmodel/dialog"
	"github.com/viant/botmodel/embeddings"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 4
	DefaultBatchSize   = 1
)

// EmbedOptions bounds the fan-out of model calls.
type EmbedOptions struct {
	// Concurrency is the maximum number of in-flight model calls.
	Concurrency int
	// BatchSize is the number of queries sent per model call.
	BatchSize int
}

func (o EmbedOptions) normalized() EmbedOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// Embed computes the embedding of every record query in m and stores it under
// the record key. Records without a query are skipped. Identical query texts
// under different keys are embedded independently. The first failing call
// cancels the rest and its error is returned.
func Embed(ctx context.Context, embedder embeddings.Embedder, m *dialog.QueryMap, opts EmbedOptions) (*dialog.EmbeddingMap, error) {
	opts = opts.normalized()
	keys := m.Embeddable()
	vectors := make([][]float32, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for start := 0; start < len(keys); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(keys))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, key := range keys[start:end] {
				record, _ := m.Get(key)
				texts = append(texts, *record.Query)
			}
			vecs, err := embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed %s: %w", keys[start], err)
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("embedder returned %d vectors for %d queries", len(vecs), len(texts))
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := dialog.NewEmbeddingMap(m.Keys())
	dim := -1
	for i, key := range keys {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("empty embedding for %s", key)
		}
		if dim == -1 {
			dim = len(vectors[i])
		}
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("inconsistent embedding dimension for %s: got %d, want %d", key, len(vectors[i]), dim)
		}
		result.Set(key, vectors[i])
	}
	return result, nil
}
