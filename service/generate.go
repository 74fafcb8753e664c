package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/viant/botmodel/dialog"
	"github.com/viant/botmodel/generator"
)

const (
	DefaultInputURL  = "."
	DefaultOutputURL = "src/assets/models"
)

// DefaultBots lists the bots generated when none are configured.
var DefaultBots = []string{"maid", "butler", "chef"}

// Generate runs one bot pipeline: locate and parse the dataset, build the
// query map, embed every query and write <bot>.model.json. Each run
// regenerates the model in full.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	started := time.Now()
	result := &Result{Bot: req.Bot}
	err := s.generate(ctx, req, result)
	result.Elapsed = time.Since(started)
	if err != nil {
		result.Err = err
		s.printf("bot=%s failed: %v", req.Bot, err)
		return result, err
	}
	s.printf("bot=%s rows=%d keys=%d embeddings=%d dim=%d elapsed=%s model=%s",
		result.Bot, result.Rows, result.Keys, result.Embeddings, result.Dimension,
		result.Elapsed.Round(time.Millisecond), result.ModelURL)
	return result, nil
}

func (s *Service) generate(ctx context.Context, req GenerateRequest, result *Result) error {
	embedder, err := s.requireEmbedder()
	if err != nil {
		return fmt.Errorf("bot %s: %w", req.Bot, err)
	}
	m, err := s.queryMap(ctx, req, result)
	if err != nil {
		return err
	}
	vectors, err := generator.Embed(ctx, embedder, m, s.embed)
	if err != nil {
		return fmt.Errorf("bot %s: embed: %w", req.Bot, err)
	}
	result.Embeddings = vectors.Len()
	result.Dimension = vectors.Dimension()

	model := &dialog.Model{QueryMap: m, EmbeddingMap: vectors}
	if err := generator.Write(ctx, s.fs, result.ModelURL, model); err != nil {
		return fmt.Errorf("bot %s: write model: %w", req.Bot, err)
	}
	if s.exporter != nil {
		if err := s.exporter.Export(ctx, req.Bot, model); err != nil {
			return fmt.Errorf("bot %s: export: %w", req.Bot, err)
		}
	}
	return nil
}

// Plan parses the bot dataset and reports key counts without calling the
// model or writing anything.
func (s *Service) Plan(ctx context.Context, req GenerateRequest) (*Result, error) {
	started := time.Now()
	result := &Result{Bot: req.Bot}
	m, err := s.queryMap(ctx, req, result)
	result.Elapsed = time.Since(started)
	if err != nil {
		result.Err = err
		return result, err
	}
	result.Embeddings = len(m.Embeddable())
	return result, nil
}

func (s *Service) queryMap(ctx context.Context, req GenerateRequest, result *Result) (*dialog.QueryMap, error) {
	if strings.TrimSpace(req.Bot) == "" {
		return nil, fmt.Errorf("bot name is required")
	}
	inputURL, err := resolveLocation(req.InputURL, DefaultInputURL)
	if err != nil {
		return nil, fmt.Errorf("bot %s: %w", req.Bot, err)
	}
	outputURL, err := resolveLocation(req.OutputURL, DefaultOutputURL)
	if err != nil {
		return nil, fmt.Errorf("bot %s: %w", req.Bot, err)
	}
	result.ModelURL = generator.ModelURL(outputURL, req.Bot)

	datasetURL, err := s.datasets.Locate(ctx, inputURL, req.Bot)
	if err != nil {
		return nil, fmt.Errorf("bot %s: load dataset: %w", req.Bot, err)
	}
	result.DatasetURL = datasetURL
	records, err := s.datasets.Load(ctx, datasetURL)
	if err != nil {
		return nil, fmt.Errorf("bot %s: load dataset: %w", req.Bot, err)
	}
	m := dialog.BuildQueryMap(records)
	result.Rows = len(records)
	result.Keys = m.Len()
	return m, nil
}

// GenerateAll runs every bot concurrently. Bots share no mutable state, and
// a failing bot does not stop the others. Results follow request order; the
// returned error joins all per-bot failures.
func (s *Service) GenerateAll(ctx context.Context, req GenerateAllRequest) ([]*Result, error) {
	return s.each(req, func(bot string) (*Result, error) {
		return s.Generate(ctx, GenerateRequest{Bot: bot, InputURL: req.InputURL, OutputURL: req.OutputURL})
	})
}

// PlanAll runs Plan for every bot.
func (s *Service) PlanAll(ctx context.Context, req GenerateAllRequest) ([]*Result, error) {
	return s.each(req, func(bot string) (*Result, error) {
		return s.Plan(ctx, GenerateRequest{Bot: bot, InputURL: req.InputURL, OutputURL: req.OutputURL})
	})
}

func (s *Service) each(req GenerateAllRequest, run func(bot string) (*Result, error)) ([]*Result, error) {
	bots := req.Bots
	if len(bots) == 0 {
		bots = DefaultBots
	}
	results := make([]*Result, len(bots))
	errs := make([]error, len(bots))
	var wg sync.WaitGroup
	for i, bot := range bots {
		wg.Go(func() {
			results[i], errs[i] = run(bot)
		})
	}
	wg.Wait()
	return results, errors.Join(errs...)
}

// resolveLocation makes scheme-less paths absolute so that url joins
// behave like local filesystem paths.
func resolveLocation(location, fallback string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		location = fallback
	}
	if strings.Contains(location, "://") {
		return location, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", location, err)
	}
	return abs, nil
}
