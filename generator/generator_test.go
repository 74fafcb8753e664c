package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/viant/afs"
	"github.com/viant/botmodel/dialog"
	"github.com/viant/botmodel/embeddings/simple"
)

type trackingEmbedder struct {
	simple.Embedder
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	batches  [][]string
	failOn   string
}

func (e *trackingEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	e.mu.Lock()
	e.batches = append(e.batches, docs)
	e.mu.Unlock()
	for _, doc := range docs {
		if doc == e.failOn {
			return nil, errors.New("model unavailable")
		}
	}
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return e.Embedder.EmbedDocuments(ctx, docs)
}

func queryMap(rows ...map[string]string) *dialog.QueryMap {
	records := make([]dialog.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, dialog.NewRecord(row))
	}
	return dialog.BuildQueryMap(records)
}

func TestEmbedScenarios(t *testing.T) {
	m := queryMap(
		map[string]string{"Query": "Hello", "Response": "Hi there", "States": "", "NewState": ""},
		map[string]string{"Query": "{{any}}", "Response": "Default reply", "States": "greeting", "NewState": ""},
	)
	emb, err := Embed(context.Background(), simple.New(16), m, EmbedOptions{})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if emb.Len() != 1 {
		t.Fatalf("expected 1 embedding, got %d", emb.Len())
	}
	vec, ok := emb.Get(`["Hello"]`)
	if !ok || len(vec) != 16 {
		t.Fatalf("expected 16-dim vector for [\"Hello\"], got %v", vec)
	}
	if _, ok := emb.Get(`[null,"greeting"]`); ok {
		t.Fatalf("sentinel key must not be embedded")
	}
}

func TestEmbedKeySetMatchesQueryKeys(t *testing.T) {
	m := queryMap(
		map[string]string{"Query": "a"},
		map[string]string{"Query": "{{any}}"},
		map[string]string{"Query": "a", "States": "s"},
		map[string]string{"Query": "b", "States": "s"},
		map[string]string{"Query": "{{any}}", "States": "s"},
		map[string]string{"Query": ""},
	)
	emb, err := Embed(context.Background(), simple.New(4), m, EmbedOptions{Concurrency: 3, BatchSize: 2})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	want := map[string]bool{}
	for _, key := range m.Keys() {
		r, _ := m.Get(key)
		if r.Query != nil {
			want[key] = true
		}
	}
	if emb.Len() != len(want) {
		t.Fatalf("expected %d embeddings, got %d", len(want), emb.Len())
	}
	for _, key := range emb.Keys() {
		if !want[key] {
			t.Fatalf("unexpected embedding key %s", key)
		}
	}
	a1, _ := emb.Get(`["a"]`)
	a2, _ := emb.Get(`["a","s"]`)
	if a1[0] != a2[0] {
		t.Fatalf("same query text should embed identically")
	}
}

func TestEmbedBoundsConcurrency(t *testing.T) {
	var rows []map[string]string
	for _, q := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		rows = append(rows, map[string]string{"Query": q})
	}
	m := queryMap(rows...)
	e := &trackingEmbedder{Embedder: simple.Embedder{Dim: 4}, delay: 10 * time.Millisecond}
	if _, err := Embed(context.Background(), e, m, EmbedOptions{Concurrency: 2}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if peak := e.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent calls, got %d", peak)
	}
	if len(e.batches) != 10 {
		t.Fatalf("expected one call per query, got %d", len(e.batches))
	}
	for _, batch := range e.batches {
		if len(batch) != 1 {
			t.Fatalf("expected single element batches, got %v", batch)
		}
	}
}

func TestEmbedBatches(t *testing.T) {
	m := queryMap(
		map[string]string{"Query": "a"},
		map[string]string{"Query": "b"},
		map[string]string{"Query": "c"},
		map[string]string{"Query": "{{any}}"},
		map[string]string{"Query": "d"},
		map[string]string{"Query": "e"},
	)
	e := &trackingEmbedder{Embedder: simple.Embedder{Dim: 4}}
	emb, err := Embed(context.Background(), e, m, EmbedOptions{Concurrency: 1, BatchSize: 2})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(e.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(e.batches))
	}
	got, _ := emb.Get(`["c"]`)
	want := simple.Vector("c", 4)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("vector for c misaligned with its key")
		}
	}
}

func TestEmbedFailureAborts(t *testing.T) {
	m := queryMap(
		map[string]string{"Query": "ok"},
		map[string]string{"Query": "boom"},
	)
	e := &trackingEmbedder{Embedder: simple.Embedder{Dim: 4}, failOn: "boom"}
	if _, err := Embed(context.Background(), e, m, EmbedOptions{}); err == nil {
		t.Fatalf("expected failure")
	}
}

type badDimEmbedder struct{ calls atomic.Int32 }

func (b *badDimEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	n := b.calls.Add(1)
	out := make([][]float32, len(docs))
	for i := range docs {
		out[i] = make([]float32, 3+int(n))
	}
	return out, nil
}

func (b *badDimEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, 3), nil
}

func TestEmbedRejectsInconsistentDimension(t *testing.T) {
	m := queryMap(map[string]string{"Query": "a"}, map[string]string{"Query": "b"})
	if _, err := Embed(context.Background(), &badDimEmbedder{}, m, EmbedOptions{Concurrency: 1}); err == nil {
		t.Fatalf("expected dimension error")
	}
}

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	dir := t.TempDir()
	m := queryMap(map[string]string{"Query": "a<b>", "Response": "x & y"})
	emb, err := Embed(ctx, simple.New(3), m, EmbedOptions{})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	URL := ModelURL(dir, "maid")
	if err := Write(ctx, fs, URL, &dialog.Model{QueryMap: m, EmbeddingMap: emb}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "maid.model.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	want := `{"queryMap":{"[\"a<b>\"]":{"Query":"a<b>","Response":"x & y"}},"embeddingMap":{"[\"a<b>\"]":[`
	if len(data) < len(want) || string(data[:len(want)]) != want {
		t.Fatalf("unexpected model prefix: %s", data)
	}
	model, err := Read(ctx, fs, URL)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if model.QueryMap.Len() != 1 || model.EmbeddingMap.Dimension() != 3 {
		t.Fatalf("unexpected model: %d keys, dim %d", model.QueryMap.Len(), model.EmbeddingMap.Dimension())
	}
}
