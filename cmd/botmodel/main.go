package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/viant/afs"
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"
	"github.com/viant/botmodel/embeddings"
	"github.com/viant/botmodel/export"
	"github.com/viant/botmodel/generator"
	"github.com/viant/botmodel/service"
)

func main() {
	startGops()
	args := os.Args[1:]
	cmd := "generate"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "generate":
		os.Exit(generateCmd(args))
	case "plan":
		os.Exit(planCmd(args))
	case "inspect":
		os.Exit(inspectCmd(args))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: botmodel [command] [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  generate  Build <bot>.model.json for every bot (default)")
	fmt.Fprintln(os.Stderr, "  plan      Parse datasets and report keys without calling the model")
	fmt.Fprintln(os.Stderr, "  inspect   Summarize a generated model file")
}

// options holds the flags shared by generate and plan.
type options struct {
	configPath  string
	bots        string
	input       string
	output      string
	embedder    string
	model       string
	openAIKey   string
	ollamaURL   string
	project     string
	location    string
	dim         int
	onnxLib     string
	onnxModel   string
	onnxTok     string
	concurrency int
	batch       int
	cacheURL    string
	sqlite      string
}

func (o *options) register(flags *flag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "config yaml (optional)")
	flags.StringVar(&o.bots, "bots", "", "comma-separated bot names (default maid,butler,chef)")
	flags.StringVar(&o.input, "input", "", "dataset directory or URL (default .)")
	flags.StringVar(&o.output, "output", "", "model output directory or URL (default src/assets/models)")
	flags.StringVar(&o.embedder, "embedder", "", "embedder: openai|ollama|vertexai|onnx|simple")
	flags.StringVar(&o.model, "model", "", "embedding model name")
	flags.StringVar(&o.openAIKey, "openai-key", "", "OpenAI API key (optional, defaults to OPENAI_API_KEY)")
	flags.StringVar(&o.ollamaURL, "ollama-base-url", "", "Ollama base URL")
	flags.StringVar(&o.project, "vertex-project", "", "Vertex AI project")
	flags.StringVar(&o.location, "vertex-location", "", "Vertex AI location")
	flags.IntVar(&o.dim, "dim", 0, "embedding dimension (simple, onnx, optional for openai/vertexai)")
	flags.StringVar(&o.onnxLib, "onnx-lib", "", "onnxruntime shared library path")
	flags.StringVar(&o.onnxModel, "onnx-model", "", "onnx sentence encoder model path")
	flags.StringVar(&o.onnxTok, "onnx-tokenizer", "", "tokenizer.json path")
	flags.IntVar(&o.concurrency, "concurrency", 0, "max in-flight model calls per bot (default 4)")
	flags.IntVar(&o.batch, "batch", 0, "queries per model call (default 1)")
	flags.StringVar(&o.cacheURL, "cache", "", "embedding cache snapshot URL (optional)")
	flags.StringVar(&o.sqlite, "sqlite", "", "SQLite DSN to export models into (optional)")
}

// config loads the config file, if any, and applies explicitly set flags.
func (o *options) config(flags *flag.FlagSet) (*service.Config, error) {
	cfg := service.DefaultConfig()
	if o.configPath != "" {
		loaded, err := service.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bots":
			cfg.Bots = splitList(o.bots)
		case "input":
			cfg.Input = o.input
		case "output":
			cfg.Output = o.output
		case "embedder":
			cfg.Embedder.Name = o.embedder
		case "model":
			cfg.Embedder.Model = o.model
		case "openai-key":
			cfg.Embedder.APIKey = o.openAIKey
		case "ollama-base-url":
			cfg.Embedder.BaseURL = o.ollamaURL
		case "vertex-project":
			cfg.Embedder.Project = o.project
		case "vertex-location":
			cfg.Embedder.Location = o.location
		case "dim":
			cfg.Embedder.Dimension = o.dim
		case "onnx-lib":
			cfg.Embedder.ONNX.Library = o.onnxLib
		case "onnx-model":
			cfg.Embedder.ONNX.ModelPath = o.onnxModel
		case "onnx-tokenizer":
			cfg.Embedder.ONNX.TokenizerPath = o.onnxTok
		case "concurrency":
			cfg.Concurrency = o.concurrency
		case "batch":
			cfg.BatchSize = o.batch
		case "cache":
			cfg.Cache.URL = o.cacheURL
		case "sqlite":
			cfg.Export.SQLite = o.sqlite
		}
	})
	return cfg, nil
}

func generateCmd(args []string) int {
	flags := flag.NewFlagSet("generate", flag.ExitOnError)
	var opts options
	opts.register(flags)
	flags.Parse(args)

	cfg, err := opts.config(flags)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := afs.New()
	model, err := service.NewEmbedder(cfg.Embedder)
	if err != nil {
		log.Printf("embedder: %v", err)
		return 1
	}
	defer func() { _ = embeddings.Close(model) }()
	embedder := model
	cached, loaded, err := service.CachedEmbedder(ctx, fs, model, cfg.Cache.URL)
	if err != nil {
		log.Printf("cache: %v", err)
		return 1
	}
	if cached != nil {
		embedder = cached
		log.Printf("cache=%s model=%s vectors=%d", cfg.Cache.URL, cached.ModelID(), loaded)
	}

	svcOpts := []service.Option{
		service.WithFS(fs),
		service.WithEmbedder(embedder),
		service.WithLogf(log.Printf),
		service.WithConcurrency(cfg.Concurrency),
		service.WithBatchSize(cfg.BatchSize),
	}
	if cfg.Export.SQLite != "" {
		exporter, err := export.New(cfg.Export.SQLite)
		if err != nil {
			log.Printf("export: %v", err)
			return 1
		}
		defer func() { _ = exporter.Close() }()
		svcOpts = append(svcOpts, service.WithExporter(exporter))
	}
	svc := service.New(svcOpts...)

	results, err := svc.GenerateAll(ctx, service.GenerateAllRequest{
		Bots:      cfg.Bots,
		InputURL:  cfg.Input,
		OutputURL: cfg.Output,
	})
	if saveErr := service.SaveCache(ctx, fs, cached, cfg.Cache.URL); saveErr != nil {
		log.Printf("cache: %v", saveErr)
	} else if cached != nil {
		hits, misses := cached.Stats()
		log.Printf("cache=%s vectors=%d hits=%d misses=%d", cfg.Cache.URL, cached.Size(), hits, misses)
	}
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	if err != nil {
		log.Printf("generate: %d of %d bots failed", failed, len(results))
		return 1
	}
	return 0
}

func planCmd(args []string) int {
	flags := flag.NewFlagSet("plan", flag.ExitOnError)
	var opts options
	opts.register(flags)
	flags.Parse(args)

	cfg, err := opts.config(flags)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	svc := service.New()
	results, err := svc.PlanAll(context.Background(), service.GenerateAllRequest{
		Bots:      cfg.Bots,
		InputURL:  cfg.Input,
		OutputURL: cfg.Output,
	})
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("bot=%s error=%v\n", r.Bot, r.Err)
			continue
		}
		fmt.Printf("bot=%s dataset=%s rows=%d keys=%d embeddable=%d model=%s\n",
			r.Bot, r.DatasetURL, r.Rows, r.Keys, r.Embeddings, r.ModelURL)
	}
	if err != nil {
		return 1
	}
	return 0
}

func inspectCmd(args []string) int {
	flags := flag.NewFlagSet("inspect", flag.ExitOnError)
	flags.Parse(args)
	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: botmodel inspect <model.json> [...]")
		return 2
	}
	fs := afs.New()
	status := 0
	for _, URL := range flags.Args() {
		model, err := generator.Read(context.Background(), fs, URL)
		if err != nil {
			log.Printf("inspect: %v", err)
			status = 1
			continue
		}
		fmt.Printf("model=%s keys=%d embeddings=%d dim=%d\n",
			URL, model.QueryMap.Len(), model.EmbeddingMap.Len(), model.EmbeddingMap.Dimension())
	}
	return status
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}
