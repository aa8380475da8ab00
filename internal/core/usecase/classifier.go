package usecase

import (
	"strings"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const phraseWeight = 2

type domainPattern struct {
	words  []string
	weight int
}

// DomainClassifier picks a knowledge domain for a question by keyword scoring.
type DomainClassifier struct {
	catalog  *domain.DomainCatalog
	domains  []domain.KnowledgeDomain
	patterns [][]domainPattern
}

func NewDomainClassifier(catalog *domain.DomainCatalog) *DomainClassifier {
	c := &DomainClassifier{catalog: catalog}
	for _, d := range catalog.All() {
		if d.IsGeneral() {
			continue
		}
		c.domains = append(c.domains, d)
		c.patterns = append(c.patterns, compilePatterns(d.Keywords))
	}
	return c
}

// Classify returns the explicit domain when it is configured, otherwise the
// strictly best scoring domain. Ties and zero scores resolve to general.
func (c *DomainClassifier) Classify(question string, choice domain.DomainChoice) domain.KnowledgeDomain {
	if id, ok := choice.Explicit(); ok {
		if d, found := c.catalog.Lookup(id); found {
			return d
		}
	}

	words := splitWords(question)
	bestIdx := -1
	bestScore := 0
	tied := false
	for i, patterns := range c.patterns {
		score := scorePatterns(words, patterns)
		switch {
		case score > bestScore:
			bestIdx, bestScore, tied = i, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if bestIdx < 0 || tied {
		return c.catalog.General()
	}
	return c.domains[bestIdx]
}

func (c *DomainClassifier) Domains() []domain.KnowledgeDomain {
	return c.catalog.All()
}

func compilePatterns(keywords []string) []domainPattern {
	out := make([]domainPattern, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, keyword := range keywords {
		words := splitWords(keyword)
		if len(words) == 0 {
			continue
		}
		key := strings.Join(words, " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		weight := 1
		if len(words) > 1 {
			weight = phraseWeight
		}
		out = append(out, domainPattern{words: words, weight: weight})
	}
	return out
}

// scorePatterns counts each pattern at most once.
func scorePatterns(words []string, patterns []domainPattern) int {
	score := 0
	for _, p := range patterns {
		if containsSequence(words, p.words) {
			score += p.weight
		}
	}
	return score
}

func containsSequence(words, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(words) {
		return false
	}
outer:
	for start := 0; start+len(seq) <= len(words); start++ {
		for i, w := range seq {
			if words[start+i] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
