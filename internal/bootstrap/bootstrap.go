package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/grounded-assistant/internal/config"
	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
	"github.com/kirillkom/grounded-assistant/internal/core/usecase"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/grounded-assistant/internal/observability/metrics"
)

type Options struct {
	Logger    *slog.Logger
	Providers *metrics.ProviderMetrics
	// KeywordOnly skips the embedding provider and the vector index.
	KeywordOnly bool
}

// Engine is the question answering core without any persistence.
type Engine struct {
	Catalog      *domain.DomainCatalog
	Orchestrator *usecase.QueryOrchestrator
	Embedder     ports.Embedder
	VectorDB     ports.VectorStore
	Chunker      ports.Chunker

	closeFn func()
}

func (e *Engine) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}

// NewEngine wires providers, retrieval and synthesis from configuration.
func NewEngine(ctx context.Context, cfg config.Config, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := config.LoadDomainCatalog(cfg.DomainCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load domain catalog: %w", err)
	}

	executor := newExecutor(cfg, logger, opts.Providers)
	emb := embedding{closeFn: func() {}}
	if !opts.KeywordOnly {
		emb, err = newEmbedder(ctx, cfg, executor, logger, opts.Providers)
		if err != nil {
			return nil, err
		}
	}
	generator, err := newGenerator(ctx, cfg, executor)
	if err != nil {
		emb.closeFn()
		return nil, err
	}
	searcher, err := newWebSearcher(cfg, executor)
	if err != nil {
		emb.closeFn()
		return nil, err
	}

	var vectorDB ports.VectorStore
	if !opts.KeywordOnly {
		vectorDB = qdrant.NewWithExecutor(cfg.QdrantURL, cfg.QdrantCollection, executor)
	}
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	retriever := usecase.NewRetrievalCoordinator(emb.embedder, vectorDB, chunker, usecase.RetrievalPolicy{
		TopK:                 cfg.RAGTopK,
		VectorFloor:          cfg.RAGVectorFloor,
		SufficiencyThreshold: cfg.RAGSufficiencyThreshold,
		KeywordFloor:         cfg.RAGKeywordFloor,
		KeywordSufficiency:   cfg.RAGKeywordSufficiency,
		EmbedTimeout:         cfg.EmbedTimeout,
		SearchTimeout:        cfg.VectorSearchTimeout,
	}, logger)
	web := usecase.NewWebSearchFallback(searcher, cfg.WebSearchTimeout, logger)
	synthesizer := usecase.NewAnswerSynthesizer(generator, usecase.SynthesisOptions{
		MaxEvidence:  cfg.SynthesisMaxEvidence,
		HistoryTurns: cfg.SynthesisHistoryTurns,
		Timeout:      cfg.GenerationTimeout,
	}, logger)
	orchestrator := usecase.NewQueryOrchestrator(catalog, retriever, web, synthesizer, usecase.OrchestratorOptions{
		WebMaxResults:   cfg.WebMaxResults,
		EmbeddingMethod: emb.method,
		Logger:          logger,
	})

	return &Engine{
		Catalog:      catalog,
		Orchestrator: orchestrator,
		Embedder:     emb.embedder,
		VectorDB:     vectorDB,
		Chunker:      chunker,
		closeFn:      emb.closeFn,
	}, nil
}

type App struct {
	Config config.Config
	Engine *Engine

	Queue        ports.MessageQueue
	Docs         ports.DocumentRepository
	Conversation ports.ConversationService
	IngestUC     ports.DocumentIngestor
	ProcessUC    ports.DocumentProcessor

	closeFn func()
}

// New builds the engine plus the postgres stores and the NATS queue used by
// the api, worker and MCP processes.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	turns := postgres.NewTurnRepository(db)

	engine, err := NewEngine(ctx, cfg, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Subjects{
		Documents: cfg.NATSDocumentsSubject,
		Turns:     cfg.NATSTurnsSubject,
	}, nats.Options{
		ResilienceExecutor: newExecutor(cfg, logger, opts.Providers),
		Logger:             logger,
	})
	if err != nil {
		engine.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	conversation := usecase.NewConversationUseCase(engine.Orchestrator, docs, turns, queue, cfg.SessionHistoryLimit, logger)
	ingestUC := usecase.NewIngestDocumentUseCase(docs, queue, cfg.MaxDocumentBytes)
	processUC := usecase.NewProcessDocumentUseCase(
		docs,
		usecase.NewDomainClassifier(engine.Catalog),
		engine.Chunker,
		engine.Embedder,
		engine.VectorDB,
	)

	return &App{
		Config: cfg,
		Engine: engine,

		Queue:        queue,
		Docs:         docs,
		Conversation: conversation,
		IngestUC:     ingestUC,
		ProcessUC:    processUC,

		closeFn: func() {
			queue.Close()
			engine.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
