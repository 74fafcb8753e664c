package service

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/botmodel/dataset"
	"github.com/viant/botmodel/dialog"
	"github.com/viant/botmodel/embeddings"
	"github.com/viant/botmodel/generator"
)

// Exporter receives every generated model.
type Exporter interface {
	Export(ctx context.Context, bot string, model *dialog.Model) error
}

// Option configures the Service.
type Option func(*Service)

// WithEmbedder sets the embedding model shared by all bots.
func WithEmbedder(embedder embeddings.Embedder) Option {
	return func(s *Service) { s.embedder = embedder }
}

// WithFS sets the storage service used for datasets and models.
func WithFS(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithLogf sets the progress logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Service) { s.logf = logf }
}

// WithConcurrency bounds in-flight model calls per bot.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.embed.Concurrency = n }
}

// WithBatchSize sets the number of queries per model call.
func WithBatchSize(n int) Option {
	return func(s *Service) { s.embed.BatchSize = n }
}

// WithExporter adds a sink receiving each generated model.
func WithExporter(exporter Exporter) Option {
	return func(s *Service) { s.exporter = exporter }
}

// Service generates bot models.
type Service struct {
	fs       afs.Service
	datasets *dataset.Service
	embedder embeddings.Embedder
	exporter Exporter
	embed    generator.EmbedOptions
	logf     func(format string, args ...any)
}

// New creates a Service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	s.datasets = dataset.New(s.fs)
	return s
}

func (s *Service) printf(format string, args ...any) {
	if s.logf != nil {
		s.logf(format, args...)
	}
}

func (s *Service) requireEmbedder() (embeddings.Embedder, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return s.embedder, nil
}
