package websearch

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

type searcherFake struct {
	calls int
}

func (f *searcherFake) Search(context.Context, string, int) ([]domain.WebResult, error) {
	f.calls++
	return []domain.WebResult{{Title: "t", Snippet: "s"}}, nil
}

func TestRateLimitedPassesThroughWithinBurst(t *testing.T) {
	inner := &searcherFake{}
	limited := NewRateLimited(inner, 1, 2)

	for i := 0; i < 2; i++ {
		if _, err := limited.Search(context.Background(), "q", 5); err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", inner.calls)
	}
}

func TestRateLimitedFailsWhenDeadlineTooShort(t *testing.T) {
	inner := &searcherFake{}
	limited := NewRateLimited(inner, 0.01, 1)
	if _, err := limited.Search(context.Background(), "q", 5); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := limited.Search(ctx, "q", 5)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("throttled call must not reach the provider")
	}
}

func TestRateLimitedUnlimited(t *testing.T) {
	inner := &searcherFake{}
	limited := NewRateLimited(inner, 0, 0)
	for i := 0; i < 10; i++ {
		if _, err := limited.Search(context.Background(), "q", 5); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	}
}
