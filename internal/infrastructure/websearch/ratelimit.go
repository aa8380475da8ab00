package websearch

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
)

// RateLimited throttles queries to a provider with a token bucket. Callers
// wait for a token until their context expires.
type RateLimited struct {
	inner   ports.WebSearcher
	limiter *rate.Limiter
}

func NewRateLimited(inner ports.WebSearcher, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "web search rate limit", fmt.Errorf("wait for token: %w", err))
	}
	return r.inner.Search(ctx, query, limit)
}
