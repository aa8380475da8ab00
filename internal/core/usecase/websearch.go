package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
)

const (
	defaultWebMaxResults = 5
	minWebRankScore      = 0.2
)

// WebSearchFallback turns web search results into evidence.
type WebSearchFallback struct {
	searcher ports.WebSearcher
	timeout  time.Duration
	logger   *slog.Logger
}

func NewWebSearchFallback(searcher ports.WebSearcher, timeout time.Duration, logger *slog.Logger) *WebSearchFallback {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSearchFallback{searcher: searcher, timeout: timeout, logger: logger}
}

// Search issues a single query with the raw question. Provider failures yield
// an empty, insufficient result.
func (w *WebSearchFallback) Search(ctx context.Context, question string, maxResults int) domain.RetrievalResult {
	if maxResults <= 0 {
		maxResults = defaultWebMaxResults
	}
	if w.searcher == nil {
		return emptyResult(domain.RetrievalWeb)
	}

	searchCtx, cancel := context.WithTimeout(ctx, w.timeout)
	results, err := w.searcher.Search(searchCtx, question, maxResults)
	cancel()
	if err != nil {
		w.logger.Warn("web_search_failed", "error", domain.WrapError(domain.ErrEvidenceUnavailable, "web search", err))
		return emptyResult(domain.RetrievalWeb)
	}

	items := make([]domain.EvidenceItem, 0, min(len(results), maxResults))
	for _, res := range results {
		if len(items) == maxResults {
			break
		}
		snippet := strings.TrimSpace(res.Snippet)
		title := strings.TrimSpace(res.Title)
		if snippet == "" {
			snippet = title
		}
		if snippet == "" {
			continue
		}
		label := title
		if label == "" {
			label = res.URL
		}
		items = append(items, domain.EvidenceItem{
			Kind:    domain.EvidenceWebResult,
			URL:     res.URL,
			Snippet: snippet,
			Score:   rankScore(len(items), maxResults),
			Label:   label,
		})
	}

	return domain.RetrievalResult{
		Items:      items,
		Method:     domain.RetrievalWeb,
		Sufficient: len(items) > 0,
	}
}

// rankScore decays linearly from 1.0 at the first rank to 0.2 at maxResults.
func rankScore(rank, maxResults int) float64 {
	if rank <= 0 || maxResults <= 1 {
		return 1
	}
	score := 1 - (1-minWebRankScore)*float64(rank)/float64(maxResults-1)
	if score < minWebRankScore {
		return minWebRankScore
	}
	return domain.ClampScore(score)
}
