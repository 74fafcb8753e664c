package vertexai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func staticToken(token string) ClientOption {
	return WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

// checkRequest reports what is wrong with a predict request, if anything.
func checkRequest(r *http.Request, wantPath, wantTaskType string, wantDim int) string {
	if auth := r.Header.Get("Authorization"); auth != "Bearer token-1" {
		return fmt.Sprintf("unexpected authorization %q", auth)
	}
	if r.URL.Path != wantPath {
		return fmt.Sprintf("unexpected path %s", r.URL.Path)
	}
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return err.Error()
	}
	for _, instance := range req.Instances {
		if instance.TaskType != wantTaskType {
			return fmt.Sprintf("unexpected task type %q", instance.TaskType)
		}
	}
	switch {
	case wantDim == 0 && req.Parameters != nil:
		return "unexpected parameters"
	case wantDim > 0 && (req.Parameters == nil || req.Parameters.OutputDimensionality != wantDim):
		return fmt.Sprintf("unexpected parameters %+v", req.Parameters)
	}
	return ""
}

func TestEmbed(t *testing.T) {
	wantPath := "/v1/projects/proj/locations/europe-west4/publishers/google/models/text-embedding-005:predict"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if problem := checkRequest(r, wantPath, "RETRIEVAL_QUERY", 2); problem != "" {
			http.Error(w, problem, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"predictions":[{"embeddings":{"values":[0.5,0.25]}},{"embeddings":{"values":[1,0]}}]}`))
	}))
	defer srv.Close()

	e := NewEmbedder("proj", "text-embedding-005",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithLocation("europe-west4"),
		WithTaskType("RETRIEVAL_QUERY"),
		WithDimensions(2),
		staticToken("token-1"),
	)
	vecs, err := e.EmbedDocuments(context.Background(), []string{"hello", "bye"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][1] != 0.25 || vecs[1][0] != 1 {
		t.Fatalf("unexpected vectors %v", vecs)
	}
	if e.ModelID() != "vertexai/text-embedding-005" {
		t.Fatalf("unexpected model id %s", e.ModelID())
	}
}

func TestEmbedDefaults(t *testing.T) {
	wantPath := "/v1/projects/proj/locations/us-central1/publishers/google/models/text-embedding-004:predict"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if problem := checkRequest(r, wantPath, defaultTaskType, 0); problem != "" {
			http.Error(w, problem, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"predictions":[{"embeddings":{"values":[0.1]}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "proj", "", WithBaseURL(srv.URL+"/"), staticToken("token-1"))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if c.Model != defaultModel || c.Location != defaultLocation || c.Scopes[0] != defaultScopeCloud {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if _, err := c.Embed(context.Background(), []string{"hello"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
}

func TestEmbedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Instances) > 0 && req.Instances[0].Content == "denied" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"permission denied"}}` + "\n"))
			return
		}
		_, _ = w.Write([]byte(`{"predictions":[{"embeddings":{"values":[0.1]}}]}`))
	}))
	defer srv.Close()

	e := NewEmbedder("proj", "m", WithBaseURL(srv.URL), staticToken("token-1"))
	ctx := context.Background()

	_, err := e.EmbedDocuments(ctx, []string{"denied"})
	if err == nil || err.Error() != `vertexai API error: {"error":{"code":403,"message":"permission denied"}}` {
		t.Fatalf("expected mapped API error, got %v", err)
	}
	_, err = e.EmbedDocuments(ctx, []string{"a", "b"})
	if err == nil || !strings.Contains(err.Error(), "returned 1 embeddings for 2 inputs") {
		t.Fatalf("expected count mismatch error, got %v", err)
	}
	if vecs, err := e.EmbedDocuments(ctx, nil); err != nil || vecs != nil {
		t.Fatalf("expected no call for empty input, got %v %v", vecs, err)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "m"); err == nil {
		t.Fatalf("expected missing project error")
	}
	e := NewEmbedder("", "m")
	if _, err := e.EmbedDocuments(context.Background(), []string{"a"}); err == nil {
		t.Fatalf("expected embedder to surface client error")
	}
}
