package domain

import (
	"errors"
	"fmt"
	"strings"
)

const GeneralDomainID = "general"

// KnowledgeDomain is a static subject area with its detection keywords and
// generation instructions.
type KnowledgeDomain struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	AssistantName  string   `json:"assistant_name"`
	Keywords       []string `json:"keywords"`
	PromptTemplate string   `json:"-"`
}

func (d KnowledgeDomain) IsGeneral() bool {
	return d.ID == GeneralDomainID
}

// DomainChoice is either AutoDetect or an explicit domain id.
type DomainChoice struct {
	id string
}

func AutoDetect() DomainChoice {
	return DomainChoice{}
}

// ExplicitDomain returns AutoDetect for a blank id.
func ExplicitDomain(id string) DomainChoice {
	return DomainChoice{id: normalizeDomainID(id)}
}

func (c DomainChoice) Explicit() (string, bool) {
	return c.id, c.id != ""
}

func (c DomainChoice) String() string {
	if c.id == "" {
		return "auto"
	}
	return c.id
}

// DomainCatalog is the immutable set of configured domains. It always
// contains the general domain.
type DomainCatalog struct {
	ordered []KnowledgeDomain
	byID    map[string]int
}

func NewDomainCatalog(domains []KnowledgeDomain) (*DomainCatalog, error) {
	catalog := &DomainCatalog{
		ordered: make([]KnowledgeDomain, 0, len(domains)+1),
		byID:    make(map[string]int, len(domains)+1),
	}
	for _, d := range domains {
		d.ID = normalizeDomainID(d.ID)
		if d.ID == "" {
			return nil, WrapError(ErrInvalidInput, "build domain catalog", errors.New("domain id is required"))
		}
		if _, exists := catalog.byID[d.ID]; exists {
			return nil, WrapError(ErrInvalidInput, "build domain catalog", fmt.Errorf("duplicate domain id %q", d.ID))
		}
		d.Keywords = append([]string(nil), d.Keywords...)
		catalog.byID[d.ID] = len(catalog.ordered)
		catalog.ordered = append(catalog.ordered, d)
	}
	if _, ok := catalog.byID[GeneralDomainID]; !ok {
		catalog.byID[GeneralDomainID] = len(catalog.ordered)
		catalog.ordered = append(catalog.ordered, KnowledgeDomain{
			ID:            GeneralDomainID,
			Name:          "General",
			Description:   "General purpose assistant for document analysis and web search",
			AssistantName: "AI Assistant",
		})
	}
	return catalog, nil
}

func (c *DomainCatalog) Lookup(id string) (KnowledgeDomain, bool) {
	idx, ok := c.byID[normalizeDomainID(id)]
	if !ok {
		return KnowledgeDomain{}, false
	}
	return c.ordered[idx], true
}

func (c *DomainCatalog) General() KnowledgeDomain {
	return c.ordered[c.byID[GeneralDomainID]]
}

// All returns the domains in configuration order.
func (c *DomainCatalog) All() []KnowledgeDomain {
	out := make([]KnowledgeDomain, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func normalizeDomainID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
