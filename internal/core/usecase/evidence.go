package usecase

import (
	"sort"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

// sortEvidence orders by score descending and keeps source order on ties.
func sortEvidence(items []domain.EvidenceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}

// mergeEvidence places document evidence before web evidence, each group by score.
func mergeEvidence(documents, web []domain.EvidenceItem) []domain.EvidenceItem {
	docs := cloneEvidence(documents)
	sortEvidence(docs)
	results := cloneEvidence(web)
	sortEvidence(results)

	out := make([]domain.EvidenceItem, 0, len(docs)+len(results))
	out = append(out, docs...)
	out = append(out, results...)
	return out
}

// topEvidence keeps the limit highest-scoring items in their original order.
func topEvidence(items []domain.EvidenceItem, limit int) []domain.EvidenceItem {
	if limit <= 0 || len(items) <= limit {
		return cloneEvidence(items)
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return items[idx[a]].Score > items[idx[b]].Score
	})
	idx = idx[:limit]
	sort.Ints(idx)

	out := make([]domain.EvidenceItem, 0, limit)
	for _, i := range idx {
		out = append(out, items[i])
	}
	return out
}

func hasScoreAtLeast(items []domain.EvidenceItem, threshold float64) bool {
	for _, item := range items {
		if item.Score >= threshold {
			return true
		}
	}
	return false
}

func countDocuments(items []domain.EvidenceItem) int {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Kind != domain.EvidenceDocumentChunk || item.DocumentID == "" {
			continue
		}
		seen[item.DocumentID] = struct{}{}
	}
	return len(seen)
}

func cloneEvidence(items []domain.EvidenceItem) []domain.EvidenceItem {
	out := make([]domain.EvidenceItem, len(items))
	copy(out, items)
	return out
}
