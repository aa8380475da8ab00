package bootstrap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/kirillkom/grounded-assistant/internal/config"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/websearch"
)

func TestNewWebSearcherSelection(t *testing.T) {
	cfg := config.Config{WebSearchProvider: "none"}
	searcher, err := newWebSearcher(cfg, nil)
	if err != nil || searcher != nil {
		t.Fatalf("expected disabled searcher, got %v %v", searcher, err)
	}

	cfg.WebSearchProvider = "searchserver"
	cfg.SearchServerURL = "http://search.local"
	searcher, err = newWebSearcher(cfg, nil)
	if err != nil {
		t.Fatalf("newWebSearcher() error = %v", err)
	}
	if _, ok := searcher.(*websearch.RateLimited); !ok {
		t.Fatalf("expected rate limited searcher, got %T", searcher)
	}

	cfg.WebSearchProvider = "bing"
	if _, err := newWebSearcher(cfg, nil); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewEmbedderSelection(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	emb, err := newEmbedder(ctx, config.Config{OllamaEmbedModel: "nomic-embed-text"}, nil, logger, nil)
	if err != nil {
		t.Fatalf("newEmbedder() error = %v", err)
	}
	if _, ok := emb.embedder.(*ollama.Embedder); !ok {
		t.Fatalf("expected ollama embedder, got %T", emb.embedder)
	}
	if emb.method != "ollama:nomic-embed-text" {
		t.Fatalf("unexpected method %q", emb.method)
	}

	emb, err = newEmbedder(ctx, config.Config{EmbeddingProvider: "openai", OpenAIEmbedModel: "text-embedding-3-small"}, nil, logger, nil)
	if err != nil {
		t.Fatalf("newEmbedder() error = %v", err)
	}
	if _, ok := emb.embedder.(*openai.Embedder); !ok {
		t.Fatalf("expected openai embedder, got %T", emb.embedder)
	}

	if _, err := newEmbedder(ctx, config.Config{EmbeddingProvider: "cohere"}, nil, logger, nil); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewEmbedderWithoutRedisFallsBackToProvider(t *testing.T) {
	cfg := config.Config{OllamaEmbedModel: "nomic-embed-text", RedisAddr: "127.0.0.1:1"}

	emb, err := newEmbedder(context.Background(), cfg, nil, slog.Default(), nil)
	if err != nil {
		t.Fatalf("newEmbedder() error = %v", err)
	}
	if _, ok := emb.embedder.(*ollama.Embedder); !ok {
		t.Fatalf("expected undecorated ollama embedder, got %T", emb.embedder)
	}
	emb.closeFn()
}

func TestNewGeneratorSelection(t *testing.T) {
	gen, err := newGenerator(context.Background(), config.Config{OllamaGenModel: "llama3.1"}, nil)
	if err != nil {
		t.Fatalf("newGenerator() error = %v", err)
	}
	if gen.ModelName() != "llama3.1" {
		t.Fatalf("unexpected model %q", gen.ModelName())
	}

	if _, err := newGenerator(context.Background(), config.Config{GenerationProvider: "claude"}, nil); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
