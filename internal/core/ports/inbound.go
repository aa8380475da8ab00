package ports

import (
	"context"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

// QueryOrchestrator answers one question from the evidence passed in. It
// holds no session state.
type QueryOrchestrator interface {
	Validate(q domain.Question) error
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Turn, error)
	Regenerate(ctx context.Context, req domain.RegenerateRequest) (*domain.Turn, error)
}

// ConversationService answers questions against stored sessions and documents.
type ConversationService interface {
	Ask(ctx context.Context, question domain.SessionQuestion) (*domain.Turn, error)
	Regenerate(ctx context.Context, userID, sessionID string) (*domain.Turn, error)
}

// DomainLister exposes the configured knowledge domains.
type DomainLister interface {
	Domains() []domain.KnowledgeDomain
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document indexing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

