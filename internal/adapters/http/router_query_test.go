package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/grounded-assistant/internal/config"
	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/observability/metrics"
)

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryPassesQuestionToConversation(t *testing.T) {
	conversation := &conversationFake{answerDomain: "finance"}
	handler := newTestHandler(t, config.Config{}, routerDeps{conversation: conversation})

	res := postJSON(t, handler, "/v1/query", map[string]any{
		"question":   "How to invest in stocks?",
		"user_id":    "user-1",
		"session_id": "session-1",
		"domain":     "Finance",
		"chat_mode":  "document",
		"web_search": false,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(conversation.asked) != 1 {
		t.Fatalf("expected one ask, got %d", len(conversation.asked))
	}
	q := conversation.asked[0]
	if q.UserID != "user-1" || q.SessionID != "session-1" || q.Question.Mode != domain.ChatModeDocument || q.Question.WebSearchEnabled {
		t.Fatalf("unexpected session question: %+v", q)
	}
	if id, ok := q.Question.Domain.Explicit(); !ok || id != "finance" {
		t.Fatalf("expected explicit finance domain, got %v", q.Question.Domain)
	}

	var turn domain.Turn
	if err := json.NewDecoder(res.Body).Decode(&turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if turn.Answer.Domain != "finance" || len(turn.Answer.Sources) != 1 {
		t.Fatalf("unexpected answer: %+v", turn.Answer)
	}
}

func TestQueryDefaultsToHybridWithWebSearch(t *testing.T) {
	conversation := &conversationFake{}
	handler := newTestHandler(t, config.Config{}, routerDeps{conversation: conversation})

	res := postJSON(t, handler, "/v1/query", map[string]any{"question": "what is new?", "user_id": "u"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	q := conversation.asked[0].Question
	if q.Mode != domain.ChatModeHybrid || !q.WebSearchEnabled {
		t.Fatalf("expected hybrid with web search, got %+v", q)
	}
	if _, explicit := q.Domain.Explicit(); explicit {
		t.Fatalf("expected auto-detected domain")
	}
}

func TestQueryRejectsContractViolations(t *testing.T) {
	conversation := &conversationFake{}
	handler := newTestHandler(t, config.Config{}, routerDeps{conversation: conversation})

	cases := []map[string]any{
		{"user_id": "u"},
		{"question": "", "user_id": "u"},
		{"question": "hi", "user_id": "u", "chat_mode": "telepathy"},
		{"question": "hi", "user_id": "u", "web_search": "yes"},
	}
	for _, payload := range cases {
		res := postJSON(t, handler, "/v1/query", payload)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("payload %v: expected 400, got %d", payload, res.Code)
		}
	}
	if len(conversation.asked) != 0 {
		t.Fatalf("expected no conversation calls, got %d", len(conversation.asked))
	}
}

func TestQueryMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid", err: domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("unknown domain")), status: http.StatusBadRequest},
		{name: "generation", err: domain.WrapError(domain.ErrGenerationFailure, "generate", errors.New("model down")), status: http.StatusBadGateway},
		{name: "temporary", err: domain.WrapError(domain.ErrTemporary, "list", errors.New("db down")), status: http.StatusServiceUnavailable},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(t, config.Config{}, routerDeps{conversation: &conversationFake{err: tt.err}})
			res := postJSON(t, handler, "/v1/query", map[string]any{"question": "hi", "user_id": "u"})
			if res.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, res.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] == "" {
				t.Fatalf("expected error message")
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(body["error"], "boom") {
				t.Fatalf("internal error details must not leak: %q", body["error"])
			}
		})
	}
}

func TestRegenerateCallsConversation(t *testing.T) {
	conversation := &conversationFake{}
	handler := newTestHandler(t, config.Config{}, routerDeps{conversation: conversation})

	res := postJSON(t, handler, "/v1/query/regenerate", map[string]any{"user_id": "u", "session_id": "s"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(conversation.regenerated) != 1 || conversation.regenerated[0] != "u/s" {
		t.Fatalf("unexpected regenerate calls: %v", conversation.regenerated)
	}
	var turn domain.Turn
	if err := json.NewDecoder(res.Body).Decode(&turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if turn.ReplacesTurnID != "turn-1" {
		t.Fatalf("expected replaces_turn_id, got %+v", turn)
	}

	res = postJSON(t, handler, "/v1/query/regenerate", map[string]any{"user_id": "u"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session id, got %d", res.Code)
	}
}

func TestListDomains(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, routerDeps{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/domains", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Domains []domain.KnowledgeDomain `json:"domains"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode domains: %v", err)
	}
	if len(body.Domains) != 2 || body.Domains[0].ID != "finance" {
		t.Fatalf("unexpected domains: %+v", body.Domains)
	}
}

func TestMetricsEndpointReportsAnswers(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("api")
	handler, err := NewRouter(config.Config{}, &ingestFake{}, &conversationFake{answerDomain: "health"}, domainsFake{}, docsFake{}, WithMetrics(m)).Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}

	postJSON(t, handler, "/v1/query", map[string]any{"question": "symptoms of flu", "user_id": "u"})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(res.Body.String(), `ga_rag_answers_total{chat_mode="hybrid",domain="health",endpoint="query",search_method="vector",service="api"} 1`) {
		t.Fatalf("expected answer counter in metrics output")
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, routerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected request id echo, got %q", res.Header().Get(requestIDHeader))
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "openapi: 3.0.3") {
		t.Fatalf("expected embedded contract, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}
