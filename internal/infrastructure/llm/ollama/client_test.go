package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/resilience"
)

func TestGeneratorSendsPromptAndTemperature(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  an answer [S1] \n"}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL+"/", "llama3.1", "nomic-embed-text"), 0.3)
	answer, err := gen.Generate(context.Background(), "question?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "an answer [S1]" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if payload["prompt"] != "question?" || payload["model"] != "llama3.1" || payload["stream"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
	options, _ := payload["options"].(map[string]any)
	if options["temperature"] != 0.3 {
		t.Fatalf("expected temperature option, got %v", payload["options"])
	}
	if gen.ModelName() != "llama3.1" {
		t.Fatalf("unexpected model name %q", gen.ModelName())
	}
}

func TestGeneratorEmptyResponseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"   "}`))
	}))
	defer server.Close()

	if _, err := NewGenerator(New(server.URL, "gen", "embed"), 0).Generate(context.Background(), "q"); err == nil {
		t.Fatalf("expected error for empty response")
	}
}

func TestEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if r.URL.Path != "/api/embed" || payload.Model != "nomic-embed-text" || len(payload.Input) != 1 {
			t.Errorf("unexpected request %s %+v", r.URL.Path, payload)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "nomic-embed-text"))
	vector, err := embedder.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 || vector[2] != 0.3 {
		t.Fatalf("unexpected vector %v", vector)
	}
	if embedder.Method() != "ollama:nomic-embed-text" {
		t.Fatalf("unexpected method %q", embedder.Method())
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed")).Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be temporary, got %v", err)
	}
}

func TestEmbedRetriesThroughExecutor(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1]]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	vectors, err := NewEmbedder(NewWithExecutor(server.URL, "gen", "embed", exec)).Embed(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if calls != 2 || len(vectors) != 1 {
		t.Fatalf("expected retry then success, calls=%d vectors=%v", calls, vectors)
	}
}

func TestEmbedClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "missing")).Embed(context.Background(), []string{"a"})
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
