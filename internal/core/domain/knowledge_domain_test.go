package domain

import "testing"

func TestNewDomainCatalogAddsGeneral(t *testing.T) {
	catalog, err := NewDomainCatalog([]KnowledgeDomain{{ID: " Finance ", Name: "Finance"}})
	if err != nil {
		t.Fatalf("NewDomainCatalog() error = %v", err)
	}
	if _, ok := catalog.Lookup("finance"); !ok {
		t.Fatalf("expected normalized finance domain")
	}
	if got := catalog.General().ID; got != GeneralDomainID {
		t.Fatalf("expected general domain, got %q", got)
	}
	if got := len(catalog.All()); got != 2 {
		t.Fatalf("expected 2 domains, got %d", got)
	}
}

func TestNewDomainCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewDomainCatalog([]KnowledgeDomain{{ID: "legal"}, {ID: "LEGAL"}})
	if !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDomainChoice(t *testing.T) {
	if _, ok := AutoDetect().Explicit(); ok {
		t.Fatalf("auto detect must not be explicit")
	}
	if _, ok := ExplicitDomain("   ").Explicit(); ok {
		t.Fatalf("blank explicit id must fall back to auto detect")
	}
	id, ok := ExplicitDomain("Health").Explicit()
	if !ok || id != "health" {
		t.Fatalf("expected explicit health, got %q ok=%v", id, ok)
	}
}

func TestParseChatMode(t *testing.T) {
	cases := map[string]ChatMode{
		"":          ChatModeHybrid,
		"documents": ChatModeDocument,
		"WEB":       ChatModeWeb,
		"hybrid":    ChatModeHybrid,
	}
	for raw, want := range cases {
		got, err := ParseChatMode(raw)
		if err != nil {
			t.Fatalf("ParseChatMode(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseChatMode(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseChatMode("voice"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
