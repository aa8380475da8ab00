package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_VECTOR_FLOOR", "")
	t.Setenv("RAG_SUFFICIENCY_THRESHOLD", "")
	t.Setenv("RAG_KEYWORD_FLOOR", "")
	t.Setenv("GENERATION_TIMEOUT", "")
	t.Setenv("WEB_SEARCH_TIMEOUT", "")

	cfg := Load()
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RAGTopK)
	}
	if cfg.RAGVectorFloor != 0.20 || cfg.RAGSufficiencyThreshold != 0.45 || cfg.RAGKeywordFloor != 0.10 {
		t.Fatalf("unexpected thresholds: %v %v %v", cfg.RAGVectorFloor, cfg.RAGSufficiencyThreshold, cfg.RAGKeywordFloor)
	}
	if cfg.GenerationTimeout != 30*time.Second {
		t.Fatalf("expected generation timeout 30s, got %s", cfg.GenerationTimeout)
	}
	if cfg.WebSearchTimeout != 8*time.Second {
		t.Fatalf("expected web search timeout 8s, got %s", cfg.WebSearchTimeout)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RAG_TOP_K", "8")
	t.Setenv("RAG_SUFFICIENCY_THRESHOLD", "0.6")
	t.Setenv("EMBED_TIMEOUT", "2s")
	t.Setenv("GENERATION_PROVIDER", "Gemini")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")

	cfg := Load()
	if cfg.RAGTopK != 8 {
		t.Fatalf("expected top k 8, got %d", cfg.RAGTopK)
	}
	if cfg.RAGSufficiencyThreshold != 0.6 {
		t.Fatalf("expected threshold 0.6, got %v", cfg.RAGSufficiencyThreshold)
	}
	if cfg.EmbedTimeout != 2*time.Second {
		t.Fatalf("expected embed timeout 2s, got %s", cfg.EmbedTimeout)
	}
	if cfg.GenerationProvider != "gemini" {
		t.Fatalf("expected lower-cased provider, got %q", cfg.GenerationProvider)
	}
	if cfg.ResilienceBreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("RAG_TOP_K", "many")
	t.Setenv("RAG_VECTOR_FLOOR", "low")
	t.Setenv("EMBED_TIMEOUT", "-1s")

	cfg := Load()
	if cfg.RAGTopK != 5 || cfg.RAGVectorFloor != 0.20 || cfg.EmbedTimeout != 5*time.Second {
		t.Fatalf("expected defaults, got %d %v %s", cfg.RAGTopK, cfg.RAGVectorFloor, cfg.EmbedTimeout)
	}
}

func TestLoadDomainCatalogDefault(t *testing.T) {
	catalog, err := LoadDomainCatalog("")
	if err != nil {
		t.Fatalf("LoadDomainCatalog() error = %v", err)
	}
	all := catalog.All()
	if len(all) != 6 {
		t.Fatalf("expected 6 domains, got %d", len(all))
	}
	for _, id := range []string{"health", "agriculture", "legal", "finance", "education", domain.GeneralDomainID} {
		if _, ok := catalog.Lookup(id); !ok {
			t.Fatalf("expected domain %q in default catalog", id)
		}
	}
	health, _ := catalog.Lookup("health")
	if health.PromptTemplate == "" || len(health.Keywords) == 0 {
		t.Fatalf("expected health template and keywords, got %+v", health)
	}
}

func TestLoadDomainCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.yaml")
	content := []byte(`
domains:
  - id: Cooking
    name: Cooking
    description: Recipes
    assistant_name: Chef
    keywords: [recipe, bake, "sous vide"]
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := LoadDomainCatalog(path)
	if err != nil {
		t.Fatalf("LoadDomainCatalog() error = %v", err)
	}
	cooking, ok := catalog.Lookup("cooking")
	if !ok || cooking.AssistantName != "Chef" || len(cooking.Keywords) != 3 {
		t.Fatalf("unexpected cooking domain: %+v", cooking)
	}
	if _, ok := catalog.Lookup(domain.GeneralDomainID); !ok {
		t.Fatalf("expected general domain to be added")
	}
}

func TestParseDomainCatalogRejectsDuplicates(t *testing.T) {
	_, err := ParseDomainCatalog([]byte("domains:\n  - id: a\n  - id: A\n"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
