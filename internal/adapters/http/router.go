package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/config"
	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
	"github.com/kirillkom/grounded-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg          config.Config
	ingestor     ports.DocumentIngestor
	conversation ports.ConversationService
	domains      ports.DomainLister
	docs         ports.DocumentReader
	metrics      *metrics.HTTPServerMetrics
	logger       *slog.Logger
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(
	cfg config.Config,
	ingestor ports.DocumentIngestor,
	conversation ports.ConversationService,
	domains ports.DomainLister,
	docs ports.DocumentReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:          cfg,
		ingestor:     ingestor,
		conversation: conversation,
		domains:      domains,
		docs:         docs,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Handler assembles the mux and middleware chain. It fails only when the
// embedded API contract cannot be loaded.
func (rt *Router) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	mux.HandleFunc("GET /v1/domains", rt.listDomains)
	mux.HandleFunc("POST /v1/query", rt.ask)
	mux.HandleFunc("POST /v1/query/regenerate", rt.regenerate)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{document_id}", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	var handler http.Handler = validator.middleware(mux)
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = recoverMiddleware(rt.logger, handler)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler), nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) listDomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"domains": rt.domains.Domains()})
}

type queryRequest struct {
	Question  string `json:"question"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Domain    string `json:"domain"`
	ChatMode  string `json:"chat_mode"`
	WebSearch *bool  `json:"web_search"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	mode, err := domain.ParseChatMode(req.ChatMode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	webSearch := true
	if req.WebSearch != nil {
		webSearch = *req.WebSearch
	}

	start := time.Now()
	turn, err := rt.conversation.Ask(r.Context(), domain.SessionQuestion{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Question: domain.Question{
			Text:             req.Question,
			Domain:           domain.ExplicitDomain(req.Domain),
			Mode:             mode,
			WebSearchEnabled: webSearch,
		},
	})
	rt.respondTurn(w, r, "query", mode, turn, err, start)
}

type regenerateRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (rt *Router) regenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	turn, err := rt.conversation.Regenerate(r.Context(), req.UserID, req.SessionID)
	var mode domain.ChatMode
	if turn != nil {
		mode = turn.Mode
	}
	rt.respondTurn(w, r, "regenerate", mode, turn, err, start)
}

func (rt *Router) respondTurn(w http.ResponseWriter, r *http.Request, endpoint string, mode domain.ChatMode, turn *domain.Turn, err error, start time.Time) {
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrGenerationFailure) {
			rt.metrics.RecordGenerationFailure(serviceName, endpoint)
		}
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnswer(serviceName, endpoint, mode, turn.Answer, time.Since(start))
	}
	rt.logger.Info("question_answered",
		"request_id", requestIDFromContext(r.Context()),
		"endpoint", endpoint,
		"turn_id", turn.ID,
		"domain", turn.Answer.Domain,
		"search_method", turn.Answer.SearchMethod,
		"web_search_used", turn.Answer.WebSearchUsed,
		"fallback_used", turn.Answer.FallbackUsed,
	)
	writeJSON(w, http.StatusOK, turn)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxDocumentBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxDocumentBytes+1<<20)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "document is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(r.Context(), domain.UploadRequest{
		UserID:    r.FormValue("user_id"),
		SessionID: r.FormValue("session_id"),
		Filename:  fileHeader.Filename,
		MimeType:  fileHeader.Header.Get("Content-Type"),
		Body:      file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("document_id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, fmt.Errorf("get document: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
