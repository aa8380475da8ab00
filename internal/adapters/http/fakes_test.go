package httpadapter

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/config"
	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

type ingestFake struct {
	err  error
	last domain.UploadRequest
	body string
}

func (f *ingestFake) Upload(_ context.Context, req domain.UploadRequest) (*domain.Document, error) {
	f.last = req
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now().UTC()
	return &domain.Document{
		ID:        "doc-1",
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Filename:  req.Filename,
		MimeType:  req.MimeType,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type conversationFake struct {
	err          error
	asked        []domain.SessionQuestion
	regenerated  []string
	answerDomain string
}

func (f *conversationFake) Ask(_ context.Context, q domain.SessionQuestion) (*domain.Turn, error) {
	f.asked = append(f.asked, q)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Turn{
		ID:               "turn-1",
		UserID:           q.UserID,
		SessionID:        q.SessionID,
		QuestionText:     q.Question.Text,
		Mode:             q.Question.Mode,
		WebSearchEnabled: q.Question.WebSearchEnabled,
		Answer: domain.AnswerResponse{
			Answer:       "Grounded answer [S1].",
			Domain:       f.answerDomain,
			SearchMethod: string(domain.RetrievalVector),
			Sources: []domain.EvidenceItem{
				{Kind: domain.EvidenceDocumentChunk, DocumentID: "doc-1", Snippet: "text", Score: 0.9, Label: "notes.txt"},
			},
		},
	}, nil
}

func (f *conversationFake) Regenerate(_ context.Context, userID, sessionID string) (*domain.Turn, error) {
	f.regenerated = append(f.regenerated, userID+"/"+sessionID)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Turn{ID: "turn-2", SessionID: sessionID, Mode: domain.ChatModeWeb, ReplacesTurnID: "turn-1"}, nil
}

type domainsFake struct{}

func (domainsFake) Domains() []domain.KnowledgeDomain {
	return []domain.KnowledgeDomain{
		{ID: "finance", Name: "Finance", AssistantName: "Finance Assistant"},
		{ID: domain.GeneralDomainID, Name: "General", AssistantName: "AI Assistant"},
	}
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Filename: "a.txt", MimeType: "text/plain", Status: domain.StatusReady}, nil
}

type routerDeps struct {
	ingest       *ingestFake
	conversation *conversationFake
	docs         docsFake
}

func newTestHandler(t *testing.T, cfg config.Config, deps routerDeps) http.Handler {
	t.Helper()
	if deps.ingest == nil {
		deps.ingest = &ingestFake{}
	}
	if deps.conversation == nil {
		deps.conversation = &conversationFake{}
	}
	handler, err := NewRouter(cfg, deps.ingest, deps.conversation, domainsFake{}, deps.docs).Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	return handler
}
