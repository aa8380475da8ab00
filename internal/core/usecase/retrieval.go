package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
)

// RetrievalPolicy holds the retrieval thresholds. Scores at or above a
// floor or threshold pass it.
type RetrievalPolicy struct {
	TopK                 int
	VectorFloor          float64
	SufficiencyThreshold float64
	KeywordFloor         float64
	KeywordSufficiency   float64
	EmbedTimeout         time.Duration
	SearchTimeout        time.Duration
}

func DefaultRetrievalPolicy() RetrievalPolicy {
	return RetrievalPolicy{
		TopK:                 5,
		VectorFloor:          0.20,
		SufficiencyThreshold: 0.45,
		KeywordFloor:         0.10,
		KeywordSufficiency:   0.10,
		EmbedTimeout:         5 * time.Second,
		SearchTimeout:        5 * time.Second,
	}
}

func (p RetrievalPolicy) normalize() RetrievalPolicy {
	out := p
	def := DefaultRetrievalPolicy()

	if out.TopK <= 0 {
		out.TopK = def.TopK
	}
	if out.VectorFloor < 0 || out.VectorFloor > 1 {
		out.VectorFloor = def.VectorFloor
	}
	if out.SufficiencyThreshold <= 0 || out.SufficiencyThreshold > 1 {
		out.SufficiencyThreshold = def.SufficiencyThreshold
	}
	if out.KeywordFloor < 0 || out.KeywordFloor > 1 {
		out.KeywordFloor = def.KeywordFloor
	}
	if out.KeywordSufficiency <= 0 || out.KeywordSufficiency > 1 {
		out.KeywordSufficiency = def.KeywordSufficiency
	}
	if out.EmbedTimeout <= 0 {
		out.EmbedTimeout = def.EmbedTimeout
	}
	if out.SearchTimeout <= 0 {
		out.SearchTimeout = def.SearchTimeout
	}
	return out
}

// RetrievalCoordinator finds document evidence with vector search and falls
// back to keyword overlap.
type RetrievalCoordinator struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	chunker  ports.Chunker
	policy   RetrievalPolicy
	logger   *slog.Logger
}

// NewRetrievalCoordinator accepts a nil embedder or vector store, in which
// case only the keyword tier runs.
func NewRetrievalCoordinator(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	chunker ports.Chunker,
	policy RetrievalPolicy,
	logger *slog.Logger,
) *RetrievalCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalCoordinator{
		embedder: embedder,
		vectorDB: vectorDB,
		chunker:  chunker,
		policy:   policy.normalize(),
		logger:   logger,
	}
}

func (r *RetrievalCoordinator) Policy() RetrievalPolicy {
	return r.policy
}

// Retrieve never fails: provider errors degrade to the next tier.
func (r *RetrievalCoordinator) Retrieve(
	ctx context.Context,
	question string,
	kd domain.KnowledgeDomain,
	docs []domain.Document,
) domain.RetrievalResult {
	if len(docs) == 0 {
		return emptyResult(domain.RetrievalNone)
	}

	vectorItems := r.vectorSearch(ctx, question, docs)
	if hasScoreAtLeast(vectorItems, r.policy.SufficiencyThreshold) {
		return domain.RetrievalResult{Items: vectorItems, Method: domain.RetrievalVector, Sufficient: true}
	}

	keywordItems, bestRatio := r.keywordSearch(question, docs)
	if len(keywordItems) > 0 {
		r.logger.Debug("keyword_fallback_used",
			"domain", kd.ID,
			"vector_items", len(vectorItems),
			"keyword_items", len(keywordItems),
			"best_ratio", bestRatio,
		)
		return domain.RetrievalResult{
			Items:      keywordItems,
			Method:     domain.RetrievalKeyword,
			Sufficient: bestRatio >= r.policy.KeywordSufficiency,
		}
	}

	if len(vectorItems) > 0 {
		return domain.RetrievalResult{Items: vectorItems, Method: domain.RetrievalVector, Sufficient: false}
	}
	return emptyResult(domain.RetrievalNone)
}

func (r *RetrievalCoordinator) vectorSearch(ctx context.Context, question string, docs []domain.Document) []domain.EvidenceItem {
	if r.embedder == nil || r.vectorDB == nil {
		return nil
	}

	embedCtx, cancelEmbed := context.WithTimeout(ctx, r.policy.EmbedTimeout)
	queryVector, err := r.embedder.EmbedQuery(embedCtx, question)
	cancelEmbed()
	if err != nil {
		r.logger.Warn("query_embedding_failed", "error", domain.WrapError(domain.ErrEvidenceUnavailable, "embed query", err))
		return nil
	}
	if len(queryVector) == 0 {
		r.logger.Warn("query_embedding_empty")
		return nil
	}

	byID := make(map[string]domain.Document, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if _, dup := byID[doc.ID]; dup {
			continue
		}
		byID[doc.ID] = doc
		ids = append(ids, doc.ID)
	}

	searchCtx, cancelSearch := context.WithTimeout(ctx, r.policy.SearchTimeout)
	hits, err := r.vectorDB.Search(searchCtx, queryVector, r.policy.TopK, domain.VectorFilter{DocumentIDs: ids})
	cancelSearch()
	if err != nil {
		r.logger.Warn("vector_search_failed", "error", domain.WrapError(domain.ErrEvidenceUnavailable, "vector search", err))
		return nil
	}

	items := make([]domain.EvidenceItem, 0, len(hits))
	for _, hit := range hits {
		doc, ok := byID[hit.DocumentID]
		if !ok {
			continue
		}
		score := domain.ClampScore(hit.Score)
		if score < r.policy.VectorFloor {
			continue
		}
		label := hit.Filename
		if label == "" {
			label = doc.Label()
		}
		items = append(items, domain.EvidenceItem{
			Kind:        domain.EvidenceDocumentChunk,
			DocumentID:  hit.DocumentID,
			ChunkOffset: hit.ChunkOffset,
			Snippet:     hit.Text,
			Score:       score,
			Label:       label,
		})
	}
	sortEvidence(items)
	return items
}

func emptyResult(method domain.RetrievalMethod) domain.RetrievalResult {
	return domain.RetrievalResult{Items: []domain.EvidenceItem{}, Method: method}
}
