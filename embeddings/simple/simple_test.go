package simple

import (
	"context"
	"testing"
)

func TestVectorDeterministic(t *testing.T) {
	a := Vector("hello", 16)
	b := Vector("hello", 16)
	c := Vector("world", 16)
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vector not deterministic at %d", i)
		}
		if a[i] < -1 || a[i] >= 1 {
			t.Fatalf("value out of range: %v", a[i])
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Fatalf("different texts produced identical vectors")
	}
}

func TestEmbedder(t *testing.T) {
	e := New(0)
	vecs, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	if err != nil || len(vecs) != 2 || len(vecs[0]) != defaultDim {
		t.Fatalf("unexpected result %v %v", len(vecs), err)
	}
	if e.ModelID() != "simple-64" {
		t.Fatalf("unexpected model id %s", e.ModelID())
	}
}
