package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/botmodel/embeddings/onnx"
	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"
)

// defaultKeyTemplate expands to the password of a scy secret.
const defaultKeyTemplate = "${Password}"

// Config defines a generation run.
type Config struct {
	Bots        []string       `yaml:"bots"`
	Input       string         `yaml:"input"`
	Output      string         `yaml:"output"`
	Concurrency int            `yaml:"concurrency"`
	BatchSize   int            `yaml:"batchSize"`
	Embedder    EmbedderConfig `yaml:"embedder"`
	Cache       CacheConfig    `yaml:"cache"`
	Export      ExportConfig   `yaml:"export"`
}

// EmbedderConfig selects and configures the embedding model.
// APIKey is an OpenAI key, or for vertexai an OAuth access token used
// instead of application default credentials.
type EmbedderConfig struct {
	Name      string        `yaml:"name"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"apiKey"`
	Secret    string        `yaml:"secret,omitempty"`
	BaseURL   string        `yaml:"baseURL"`
	Project   string        `yaml:"project"`
	Location  string        `yaml:"location"`
	TaskType  string        `yaml:"taskType"`
	KeepAlive string        `yaml:"keepAlive"`
	Timeout   time.Duration `yaml:"timeout"`
	Dimension int           `yaml:"dimension"`
	ONNX      onnx.Config   `yaml:"onnx"`
}

// CacheConfig points at a persisted embedding cache snapshot.
type CacheConfig struct {
	URL string `yaml:"url"`
}

// ExportConfig configures the optional SQLite sink.
type ExportConfig struct {
	SQLite string `yaml:"sqlite"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Bots) == 0 {
		c.Bots = append([]string(nil), DefaultBots...)
	}
	if c.Input == "" {
		c.Input = DefaultInputURL
	}
	if c.Output == "" {
		c.Output = DefaultOutputURL
	}
	if c.Embedder.Name == "" {
		c.Embedder.Name = EmbedderOpenAI
	}
}

// LoadConfig reads a YAML config, expands ~ paths and resolves the API key
// secret when one is referenced.
func LoadConfig(path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.applyDefaults()
	for _, p := range []*string{
		&cfg.Input, &cfg.Output, &cfg.Cache.URL, &cfg.Export.SQLite,
		&cfg.Embedder.ONNX.Library, &cfg.Embedder.ONNX.ModelPath, &cfg.Embedder.ONNX.TokenizerPath,
	} {
		if *p, err = expandUserPath(*p); err != nil {
			return nil, err
		}
	}
	if cfg.Embedder.Secret != "" {
		key, err := ExpandWithSecret(context.Background(), cfg.Embedder.APIKey, cfg.Embedder.Secret)
		if err != nil {
			return nil, fmt.Errorf("config %s: embedder secret: %w", path, err)
		}
		cfg.Embedder.APIKey = key
	}
	return &cfg, nil
}

// ExpandWithSecret loads a scy secret and expands its placeholders in
// template, ${Password} when template is empty.
func ExpandWithSecret(ctx context.Context, template, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return template, nil
	}
	if strings.TrimSpace(template) == "" {
		template = defaultKeyTemplate
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	return sec.Expand(template), nil
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed[0] != '~' {
		return path, nil
	}
	if trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(trimmed, "~")), nil
}
