package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

type embedderFake struct {
	vector  []float32
	err     error
	queries []string
	batches [][]string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for range texts {
		out = append(out, f.vector)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type vectorStoreFake struct {
	hits     []domain.VectorHit
	err      error
	calls    int
	limit    int
	filter   domain.VectorFilter
	indexed  []domain.Chunk
	indexDoc *domain.Document
	indexErr error
}

func (f *vectorStoreFake) IndexChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk, _ [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	copyDoc := *doc
	f.indexDoc = &copyDoc
	f.indexed = chunks
	return nil
}

func (f *vectorStoreFake) Search(_ context.Context, _ []float32, limit int, filter domain.VectorFilter) ([]domain.VectorHit, error) {
	f.calls++
	f.limit = limit
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type generatorFake struct {
	answer  string
	err     error
	prompts []string
}

func (f *generatorFake) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *generatorFake) ModelName() string { return "fake-model" }

func (f *generatorFake) lastPrompt(t *testing.T) string {
	t.Helper()
	if len(f.prompts) == 0 {
		t.Fatalf("expected generator to be called")
	}
	return f.prompts[len(f.prompts)-1]
}

type webSearcherFake struct {
	results []domain.WebResult
	err     error
	queries []string
	limit   int
}

func (f *webSearcherFake) Search(_ context.Context, query string, limit int) ([]domain.WebResult, error) {
	f.queries = append(f.queries, query)
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// paragraphChunker splits on blank lines and records rune offsets.
type paragraphChunker struct{}

func (paragraphChunker) Split(text string) []domain.Chunk {
	var out []domain.Chunk
	offset := 0
	for _, part := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, domain.Chunk{Index: len(out), Offset: offset, Text: trimmed})
		}
		offset += len([]rune(part)) + 2
	}
	return out
}

func testCatalog(t *testing.T) *domain.DomainCatalog {
	t.Helper()
	catalog, err := domain.NewDomainCatalog([]domain.KnowledgeDomain{
		{
			ID:            "health",
			Name:          "Health",
			Description:   "Medical and wellness information",
			AssistantName: "Health Assistant",
			Keywords:      []string{"health", "symptoms", "diabetes", "doctor", "treatment", "blood pressure"},
		},
		{
			ID:            "agriculture",
			Name:          "Agriculture",
			Description:   "Farming and crop guidance",
			AssistantName: "Farm Assistant",
			Keywords:      []string{"grow", "organic", "crop", "soil", "tomatoes", "organic farming"},
		},
		{
			ID:            "legal",
			Name:          "Legal",
			Description:   "Legal information",
			AssistantName: "Legal Assistant",
			Keywords:      []string{"legal", "law", "contract", "requirements", "legal requirements"},
		},
		{
			ID:            "finance",
			Name:          "Finance",
			Description:   "Personal finance and investing",
			AssistantName: "Finance Assistant",
			Keywords:      []string{"invest", "stocks", "budget", "loan", "stock market"},
		},
		{
			ID:             "education",
			Name:           "Education",
			Description:    "Learning and study support",
			AssistantName:  "Study Assistant",
			Keywords:       []string{"study", "exam", "learning", "study techniques"},
			PromptTemplate: "You are {assistant_name}, a tutor. {description}.",
		},
	})
	if err != nil {
		t.Fatalf("NewDomainCatalog() error = %v", err)
	}
	return catalog
}

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type documentRepoFake struct {
	doc           *domain.Document
	created       []*domain.Document
	createErr     error
	getErr        error
	statusErr     error
	failStatusErr error
	saveErr       error
	statusCalls   []statusCall
	savedDomain   string

	sessionDocs []domain.Document
	userDocs    []domain.Document
	listErr     error
	sessionList int
	userList    int
}

func (f *documentRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	return nil
}

func (f *documentRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *documentRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

func (f *documentRepoFake) SaveDomain(_ context.Context, _ string, domainID string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedDomain = domainID
	return nil
}

func (f *documentRepoFake) ListBySession(context.Context, string, string) ([]domain.Document, error) {
	f.sessionList++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sessionDocs, nil
}

func (f *documentRepoFake) ListByUser(context.Context, string) ([]domain.Document, error) {
	f.userList++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.userDocs, nil
}

type turnStoreFake struct {
	turns     []domain.Turn
	appended  []domain.Turn
	deleted   []string
	listLimit int
	appendErr error
	deleteErr error
}

func (f *turnStoreFake) AppendTurn(_ context.Context, turn domain.Turn) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, turn)
	f.turns = append(f.turns, turn)
	return nil
}

func (f *turnStoreFake) ListRecentTurns(_ context.Context, _ string, limit int) ([]domain.Turn, error) {
	f.listLimit = limit
	out := f.turns
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]domain.Turn(nil), out...), nil
}

func (f *turnStoreFake) DeleteTurn(_ context.Context, _ string, turnID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, turnID)
	kept := f.turns[:0]
	for _, turn := range f.turns {
		if turn.ID != turnID {
			kept = append(kept, turn)
		}
	}
	f.turns = kept
	return nil
}

type queueFake struct {
	publishedDocs  []string
	publishedTurns []domain.Turn
	err            error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.publishedDocs = append(f.publishedDocs, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func (f *queueFake) PublishTurnCompleted(_ context.Context, turn domain.Turn) error {
	if f.err != nil {
		return f.err
	}
	f.publishedTurns = append(f.publishedTurns, turn)
	return nil
}

func (f *queueFake) SubscribeTurnCompleted(context.Context, func(context.Context, domain.Turn) error) error {
	return nil
}
