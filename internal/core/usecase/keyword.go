package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const maxSnippetRunes = 1200

var stopWords = toWordSet(`
a about above after again against all also am an and any are as at be because been before being below
between both but by can could did do does doing down during each few for from further had has have
having he her here hers herself him himself his how i if in into is it its itself just let me more most
my myself no nor not now of off on once only or other our ours ourselves out over own same she should
so some such than that the their theirs them themselves then there these they this those through to
too under until up very was we were what when where which while who whom why will with would you your
yours yourself yourselves tell please explain describe give show know like get make way ways`)

type keywordMatch struct {
	doc     domain.Document
	ratio   float64
	snippet string
	offset  int
}

// keywordSearch ranks documents by weighted query term overlap. It makes no
// external calls and is deterministic for a given input.
func (r *RetrievalCoordinator) keywordSearch(question string, docs []domain.Document) ([]domain.EvidenceItem, float64) {
	terms, total := significantTerms(question)
	if total == 0 {
		return nil, 0
	}

	matches := make([]keywordMatch, 0, len(docs))
	for _, doc := range docs {
		ratio := overlapRatio(terms, total, toWordSet(doc.Text))
		if ratio < r.policy.KeywordFloor || ratio == 0 {
			continue
		}
		snippet, offset := r.bestSnippet(doc.Text, terms, total)
		matches = append(matches, keywordMatch{doc: doc, ratio: ratio, snippet: snippet, offset: offset})
	}
	if len(matches) == 0 {
		return nil, 0
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ratio > matches[j].ratio
	})
	if len(matches) > r.policy.TopK {
		matches = matches[:r.policy.TopK]
	}

	items := make([]domain.EvidenceItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, domain.EvidenceItem{
			Kind:        domain.EvidenceDocumentChunk,
			DocumentID:  m.doc.ID,
			ChunkOffset: m.offset,
			Snippet:     m.snippet,
			Score:       domain.ClampScore(m.ratio),
			Label:       m.doc.Label(),
		})
	}
	return items, matches[0].ratio
}

// bestSnippet picks the chunk with the highest overlap; the first chunk wins ties.
func (r *RetrievalCoordinator) bestSnippet(text string, terms map[string]int, total int) (string, int) {
	var chunks []domain.Chunk
	if r.chunker != nil {
		chunks = r.chunker.Split(text)
	}
	if len(chunks) == 0 {
		return truncateRunes(strings.TrimSpace(text), maxSnippetRunes), 0
	}

	best := chunks[0]
	bestRatio := -1.0
	for _, chunk := range chunks {
		ratio := overlapRatio(terms, total, toWordSet(chunk.Text))
		if ratio > bestRatio {
			best = chunk
			bestRatio = ratio
		}
	}
	return best.Text, best.Offset
}

// significantTerms counts question terms that survive stop-word removal.
func significantTerms(text string) (map[string]int, int) {
	terms := make(map[string]int)
	total := 0
	for _, word := range splitWords(text) {
		if len([]rune(word)) < 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		terms[word]++
		total++
	}
	return terms, total
}

// overlapRatio is the share of query term occurrences present in tokens.
func overlapRatio(terms map[string]int, total int, tokens map[string]struct{}) float64 {
	if total == 0 || len(tokens) == 0 {
		return 0
	}
	matched := 0
	for term, freq := range terms {
		if _, ok := tokens[term]; ok {
			matched += freq
		}
	}
	return float64(matched) / float64(total)
}

func toWordSet(s string) map[string]struct{} {
	words := splitWords(s)
	out := make(map[string]struct{}, len(words))
	for _, word := range words {
		out[word] = struct{}{}
	}
	return out
}

// splitWords lower-cases s and splits it on anything that is not a letter or digit.
func splitWords(s string) []string {
	if s == "" {
		return nil
	}

	words := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			words = append(words, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		words = append(words, b.String())
	}
	return words
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
