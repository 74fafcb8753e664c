package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateAndInspect(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	csv := "Query,Response,States,NewState\nHello,Hi there,,\n{{any}},Default reply,greeting,\n"
	if err := os.WriteFile(filepath.Join(in, "maid.csv"), []byte(csv), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cacheURL := filepath.Join(t.TempDir(), "embeddings.cache")
	dsn := filepath.Join(t.TempDir(), "models.sqlite")
	args := []string{"-bots", "maid", "-input", in, "-output", out, "-embedder", "simple", "-dim", "8", "-cache", cacheURL, "-sqlite", dsn}
	if code := generateCmd(args); code != 0 {
		t.Fatalf("generate exit code %d", code)
	}
	modelPath := filepath.Join(out, "maid.model.json")
	if _, err := os.Stat(modelPath); err != nil {
		t.Fatalf("expected model file: %v", err)
	}
	if _, err := os.Stat(cacheURL); err != nil {
		t.Fatalf("expected cache snapshot: %v", err)
	}
	if _, err := os.Stat(cacheURL + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected no leftover temp snapshot, stat err=%v", err)
	}
	if code := inspectCmd([]string{modelPath}); code != 0 {
		t.Fatalf("inspect exit code %d", code)
	}
	if code := planCmd([]string{"-bots", "maid", "-input", in, "-output", out}); code != 0 {
		t.Fatalf("plan exit code %d", code)
	}
}

func TestGenerateFailsWhenBotMissing(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "maid.csv"), []byte("Query,Response\nHi,Hello\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	args := []string{"-bots", "maid,butler", "-input", in, "-output", out, "-embedder", "simple"}
	if code := generateCmd(args); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if _, err := os.Stat(filepath.Join(out, "maid.model.json")); err != nil {
		t.Fatalf("maid model should still be written: %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" maid, ,chef ")
	if len(got) != 2 || got[0] != "maid" || got[1] != "chef" {
		t.Fatalf("unexpected %v", got)
	}
}

func TestInspectMissingFile(t *testing.T) {
	if code := inspectCmd([]string{filepath.Join(t.TempDir(), "none.model.json")}); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
