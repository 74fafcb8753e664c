// Package onnx runs a pretrained sentence encoder locally with ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/text/unicode/norm"
)

// Pooling strategies applied to token level outputs.
const (
	PoolingMean = "mean"
	PoolingCLS  = "cls"
	PoolingNone = "none"
)

// Config describes the encoder model files.
type Config struct {
	Library       string `yaml:"library"`
	ModelPath     string `yaml:"model"`
	TokenizerPath string `yaml:"tokenizer"`
	MaxSeqLen     int    `yaml:"maxSeqLen"`
	Dimension     int    `yaml:"dimension"`
	Pooling       string `yaml:"pooling"`
	Normalize     bool   `yaml:"normalize"`
	TokenTypeIDs  bool   `yaml:"tokenTypeIds"`
	OutputName    string `yaml:"output"`
}

func (c *Config) applyDefaults() {
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = 128
	}
	if c.Pooling == "" {
		c.Pooling = PoolingMean
	}
	if c.OutputName == "" {
		if c.Pooling == PoolingNone {
			c.OutputName = "sentence_embedding"
		} else {
			c.OutputName = "last_hidden_state"
		}
	}
}

func (c *Config) validate() error {
	if c.ModelPath == "" {
		return errors.New("onnx model path is required")
	}
	if c.TokenizerPath == "" {
		return errors.New("onnx tokenizer path is required")
	}
	if c.Dimension <= 0 {
		return errors.New("onnx output dimension is required")
	}
	switch c.Pooling {
	case PoolingMean, PoolingCLS, PoolingNone:
	default:
		return fmt.Errorf("unsupported pooling %q", c.Pooling)
	}
	return nil
}

// Encoder is loaded once and shared by all pipelines. Inference calls are
// serialized on a single session.
type Encoder struct {
	cfg       Config
	tokenizer *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession

	mu sync.Mutex
}

// New loads the tokenizer and creates the inference session.
func New(cfg Config) (*Encoder, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", cfg.TokenizerPath, err)
	}
	if err := acquireEnvironment(cfg.Library); err != nil {
		return nil, err
	}
	inputs := []string{"input_ids", "attention_mask"}
	if cfg.TokenTypeIDs {
		inputs = append(inputs, "token_type_ids")
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputs, []string{cfg.OutputName}, nil)
	if err != nil {
		_ = releaseEnvironment()
		return nil, fmt.Errorf("create onnx session %s: %w", cfg.ModelPath, err)
	}
	return &Encoder{cfg: cfg, tokenizer: tk, session: session}, nil
}

// ModelID names the model by its file.
func (e *Encoder) ModelID() string {
	return "onnx/" + filepath.Base(e.cfg.ModelPath)
}

// Close destroys the session and releases the runtime environment.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return errors.Join(err, releaseEnvironment())
}

func (e *Encoder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments encodes texts as one padded batch.
func (e *Encoder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("onnx encoder is closed")
	}
	batch, err := e.tokenize(docs)
	if err != nil {
		return nil, err
	}
	return e.run(batch)
}

type batch struct {
	size     int
	seqLen   int
	ids      []int64
	mask     []int64
	typeIDs  []int64
	maskRows [][]int64
}

func (e *Encoder) tokenize(docs []string) (*batch, error) {
	encoded := make([][]int, len(docs))
	types := make([][]int, len(docs))
	seqLen := 1
	for i, doc := range docs {
		enc, err := e.tokenizer.EncodeSingle(NormalizeText(doc), true)
		if err != nil {
			return nil, fmt.Errorf("tokenize %q: %w", doc, err)
		}
		ids, typeIDs := enc.Ids, enc.TypeIds
		if len(ids) > e.cfg.MaxSeqLen {
			ids = ids[:e.cfg.MaxSeqLen]
		}
		if len(typeIDs) > len(ids) {
			typeIDs = typeIDs[:len(ids)]
		}
		encoded[i], types[i] = ids, typeIDs
		if len(ids) > seqLen {
			seqLen = len(ids)
		}
	}
	b := &batch{
		size:    len(docs),
		seqLen:  seqLen,
		ids:     make([]int64, len(docs)*seqLen),
		mask:    make([]int64, len(docs)*seqLen),
		typeIDs: make([]int64, len(docs)*seqLen),
	}
	for i, ids := range encoded {
		row := i * seqLen
		for j, id := range ids {
			b.ids[row+j] = int64(id)
			b.mask[row+j] = 1
			if j < len(types[i]) {
				b.typeIDs[row+j] = int64(types[i][j])
			}
		}
		b.maskRows = append(b.maskRows, b.mask[row:row+seqLen])
	}
	return b, nil
}

func (e *Encoder) run(b *batch) ([][]float32, error) {
	shape := ort.NewShape(int64(b.size), int64(b.seqLen))
	var inputs []ort.Value
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	for _, data := range [][]int64{b.ids, b.mask, b.typeIDs}[:e.inputCount()] {
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("create input tensor: %w", err)
		}
		inputs = append(inputs, tensor)
	}
	outShape := ort.NewShape(int64(b.size), int64(b.seqLen), int64(e.cfg.Dimension))
	if e.cfg.Pooling == PoolingNone {
		outShape = ort.NewShape(int64(b.size), int64(e.cfg.Dimension))
	}
	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer func() { _ = output.Destroy() }()
	if err := e.session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	data := output.GetData()
	out := make([][]float32, b.size)
	for i := range out {
		switch e.cfg.Pooling {
		case PoolingNone:
			out[i] = append([]float32(nil), data[i*e.cfg.Dimension:(i+1)*e.cfg.Dimension]...)
		case PoolingCLS:
			offset := i * b.seqLen * e.cfg.Dimension
			out[i] = append([]float32(nil), data[offset:offset+e.cfg.Dimension]...)
		default:
			offset := i * b.seqLen * e.cfg.Dimension
			out[i] = MeanPool(data[offset:offset+b.seqLen*e.cfg.Dimension], b.maskRows[i], e.cfg.Dimension)
		}
		if e.cfg.Normalize {
			L2Normalize(out[i])
		}
	}
	return out, nil
}

func (e *Encoder) inputCount() int {
	if e.cfg.TokenTypeIDs {
		return 3
	}
	return 2
}

// NormalizeText applies NFKC and drops control characters other than
// newlines and tabs. Only the text fed to the model is normalized.
func NormalizeText(text string) string {
	normed := strings.TrimSpace(norm.NFKC.String(text))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
}
