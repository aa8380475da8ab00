package ports

import (
	"context"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveDomain(ctx context.Context, id, domainID string) error
	ListBySession(ctx context.Context, userID, sessionID string) ([]domain.Document, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Document, error)
}

// TurnStore persists conversation turns per session.
type TurnStore interface {
	AppendTurn(ctx context.Context, turn domain.Turn) error
	ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	DeleteTurn(ctx context.Context, sessionID, turnID string) error
}

// MessageQueue publishes/consumes ingestion and turn events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishTurnCompleted(ctx context.Context, turn domain.Turn) error
	SubscribeTurnCompleted(ctx context.Context, handler func(context.Context, domain.Turn) error) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into overlapping windows.
type Chunker interface {
	Split(text string) []domain.Chunk
}

// VectorStore indexes chunks and performs semantic search.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.VectorFilter) ([]domain.VectorHit, error)
}

// AnswerGenerator completes a prompt with the generation model.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// WebSearcher queries an external web search provider.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error)
}
