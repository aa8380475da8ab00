package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

//go:embed domains.yaml
var defaultDomainsYAML []byte

type domainFile struct {
	Domains []domainEntry `yaml:"domains"`
}

type domainEntry struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	AssistantName  string   `yaml:"assistant_name"`
	Keywords       []string `yaml:"keywords"`
	PromptTemplate string   `yaml:"prompt_template"`
}

// LoadDomainCatalog reads the catalog at path, or the built-in catalog when
// path is empty.
func LoadDomainCatalog(path string) (*domain.DomainCatalog, error) {
	raw := defaultDomainsYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read domain catalog: %w", err)
		}
		raw = data
	}
	return ParseDomainCatalog(raw)
}

func ParseDomainCatalog(raw []byte) (*domain.DomainCatalog, error) {
	var file domainFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse domain catalog", err)
	}

	domains := make([]domain.KnowledgeDomain, 0, len(file.Domains))
	for _, entry := range file.Domains {
		domains = append(domains, domain.KnowledgeDomain{
			ID:             entry.ID,
			Name:           entry.Name,
			Description:    entry.Description,
			AssistantName:  entry.AssistantName,
			Keywords:       entry.Keywords,
			PromptTemplate: entry.PromptTemplate,
		})
	}
	return domain.NewDomainCatalog(domains)
}
