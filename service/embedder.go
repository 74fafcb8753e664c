package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/botmodel/embeddings"
	"github.com/viant/botmodel/embeddings/cache"
	"github.com/viant/botmodel/embeddings/ollama"
	"github.com/viant/botmodel/embeddings/onnx"
	"github.com/viant/botmodel/embeddings/openai"
	"github.com/viant/botmodel/embeddings/simple"
	"github.com/viant/botmodel/embeddings/vertexai"
	"golang.org/x/oauth2"
)

// Embedder names accepted by NewEmbedder.
const (
	EmbedderOpenAI   = "openai"
	EmbedderOllama   = "ollama"
	EmbedderVertexAI = "vertexai"
	EmbedderONNX     = "onnx"
	EmbedderSimple   = "simple"
)

const (
	defaultOpenAIModel = "text-embedding-3-small"
	defaultOllamaModel = "nomic-embed-text"
	defaultVertexModel = "text-embedding-005"
)

// NewEmbedder builds the configured embedding model. The caller owns the
// result and should release it with embeddings.Close.
func NewEmbedder(cfg EmbedderConfig) (embeddings.Embedder, error) {
	var httpClient *http.Client
	if cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case EmbedderSimple:
		return simple.New(cfg.Dimension), nil
	case EmbedderOllama:
		return ollama.New(orDefault(cfg.Model, defaultOllamaModel), cfg.BaseURL,
			ollama.WithKeepAlive(cfg.KeepAlive), ollama.WithHTTPClient(httpClient)), nil
	case EmbedderVertexAI:
		if cfg.Project == "" {
			return nil, fmt.Errorf("vertexai: project is required")
		}
		opts := []vertexai.ClientOption{
			vertexai.WithLocation(cfg.Location),
			vertexai.WithBaseURL(cfg.BaseURL),
			vertexai.WithTaskType(cfg.TaskType),
			vertexai.WithHTTPClient(httpClient),
		}
		if cfg.Dimension > 0 {
			opts = append(opts, vertexai.WithDimensions(cfg.Dimension))
		}
		if cfg.APIKey != "" {
			opts = append(opts, vertexai.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})))
		}
		return vertexai.NewEmbedder(cfg.Project, orDefault(cfg.Model, defaultVertexModel), opts...), nil
	case EmbedderONNX:
		onnxCfg := cfg.ONNX
		if onnxCfg.Dimension == 0 {
			onnxCfg.Dimension = cfg.Dimension
		}
		enc, err := onnx.New(onnxCfg)
		if err != nil {
			return nil, fmt.Errorf("onnx: %w", err)
		}
		return enc, nil
	case "", EmbedderOpenAI:
		opts := []openai.ClientOption{openai.WithBaseURL(cfg.BaseURL), openai.WithHTTPClient(httpClient)}
		if cfg.Dimension > 0 {
			opts = append(opts, openai.WithDimensions(cfg.Dimension))
		}
		return &openai.Embedder{C: openai.NewClient(cfg.APIKey, orDefault(cfg.Model, defaultOpenAIModel), opts...)}, nil
	}
	return nil, fmt.Errorf("unsupported embedder: %s", cfg.Name)
}

// CachedEmbedder wraps embedder with a memoizing cache, seeded from the
// snapshot at URL when one exists. It returns the number of loaded vectors.
// Without a URL no cache is used and every text reaches the model, so the
// result is nil.
func CachedEmbedder(ctx context.Context, fs afs.Service, embedder embeddings.Embedder, URL string) (*cache.Embedder, int, error) {
	if URL == "" {
		return nil, 0, nil
	}
	cached := cache.New(embedder)
	n, err := cached.Load(ctx, fs, URL)
	if err != nil {
		return nil, 0, fmt.Errorf("load embedding cache %s: %w", URL, err)
	}
	return cached, n, nil
}

// SaveCache persists the cache snapshot to URL.
func SaveCache(ctx context.Context, fs afs.Service, cached *cache.Embedder, URL string) error {
	if URL == "" || cached == nil {
		return nil
	}
	if err := cached.Save(ctx, fs, URL); err != nil {
		return fmt.Errorf("save embedding cache %s: %w", URL, err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
