package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const keywordEmbeddingMethod = "keyword_overlap"

type OrchestratorOptions struct {
	WebMaxResults   int
	EmbeddingMethod string
	Logger          *slog.Logger
	Now             func() time.Time
	NewID           func() string
}

// QueryOrchestrator sequences classification, retrieval, web fallback and
// synthesis for a chat mode. It keeps no per-question state.
type QueryOrchestrator struct {
	catalog     *domain.DomainCatalog
	classifier  *DomainClassifier
	retriever   *RetrievalCoordinator
	web         *WebSearchFallback
	synthesizer *AnswerSynthesizer

	webMaxResults   int
	embeddingMethod string
	logger          *slog.Logger
	now             func() time.Time
	newID           func() string
}

func NewQueryOrchestrator(
	catalog *domain.DomainCatalog,
	retriever *RetrievalCoordinator,
	web *WebSearchFallback,
	synthesizer *AnswerSynthesizer,
	opts OrchestratorOptions,
) *QueryOrchestrator {
	o := &QueryOrchestrator{
		catalog:         catalog,
		classifier:      NewDomainClassifier(catalog),
		retriever:       retriever,
		web:             web,
		synthesizer:     synthesizer,
		webMaxResults:   opts.WebMaxResults,
		embeddingMethod: opts.EmbeddingMethod,
		logger:          opts.Logger,
		now:             opts.Now,
		newID:           opts.NewID,
	}
	if o.webMaxResults <= 0 {
		o.webMaxResults = defaultWebMaxResults
	}
	if o.embeddingMethod == "" {
		o.embeddingMethod = "vector"
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.web == nil {
		o.web = NewWebSearchFallback(nil, 0, o.logger)
	}
	return o
}

// Domains lists the configured knowledge domains.
func (o *QueryOrchestrator) Domains() []domain.KnowledgeDomain {
	return o.catalog.All()
}

func (o *QueryOrchestrator) Ask(ctx context.Context, req domain.AskRequest) (*domain.Turn, error) {
	if err := o.Validate(req.Question); err != nil {
		return nil, err
	}
	return o.answer(ctx, req.Question, req.UserID, req.PriorTurns, req.Documents, "")
}

// Regenerate re-asks the last turn's question with that turn removed from
// the conversation history.
func (o *QueryOrchestrator) Regenerate(ctx context.Context, req domain.RegenerateRequest) (*domain.Turn, error) {
	if len(req.PriorTurns) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "regenerate", errors.New("no previous turn to regenerate"))
	}
	last := req.PriorTurns[len(req.PriorTurns)-1]
	question := last.Question()
	if err := o.Validate(question); err != nil {
		return nil, err
	}

	userID := req.UserID
	if userID == "" {
		userID = last.UserID
	}
	history := req.PriorTurns[:len(req.PriorTurns)-1]
	return o.answer(ctx, question, userID, history, req.Documents, last.ID)
}

// Validate rejects a question that can never be answered: empty text, an
// unknown chat mode or an unknown explicit domain.
func (o *QueryOrchestrator) Validate(q domain.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate question", errors.New("question text is empty"))
	}
	if !q.Mode.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "validate question", fmt.Errorf("unknown chat mode %q", q.Mode))
	}
	if id, ok := q.Domain.Explicit(); ok {
		if _, found := o.catalog.Lookup(id); !found {
			return domain.WrapError(domain.ErrInvalidInput, "validate question", fmt.Errorf("unknown domain %q", id))
		}
	}
	return nil
}

type evidencePlan struct {
	items           []domain.EvidenceItem
	searchMethod    string
	documentMethod  domain.RetrievalMethod
	webSearchUsed   bool
	fallbackUsed    bool
	limitedEvidence bool
}

func (o *QueryOrchestrator) answer(
	ctx context.Context,
	q domain.Question,
	userID string,
	history []domain.Turn,
	docs []domain.Document,
	replacesTurnID string,
) (*domain.Turn, error) {
	kd := o.classifier.Classify(q.Text, q.Domain)
	plan := o.gatherEvidence(ctx, q, kd, docs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, cited, err := o.synthesizer.Synthesize(ctx, q.Text, kd, plan.items, history, plan.limitedEvidence)
	if err != nil {
		return nil, err
	}

	requestedDomain, _ := q.Domain.Explicit()
	turn := &domain.Turn{
		ID:               o.newID(),
		UserID:           userID,
		SessionID:        q.SessionID,
		QuestionText:     q.Text,
		RequestedDomain:  requestedDomain,
		Mode:             q.Mode,
		WebSearchEnabled: q.WebSearchEnabled,
		ReplacesTurnID:   replacesTurnID,
		CreatedAt:        o.now(),
		Answer: domain.AnswerResponse{
			Answer:               text,
			Sources:              cited,
			Domain:               kd.ID,
			AssistantName:        kd.AssistantName,
			AssistantDescription: kd.Description,
			SearchMethod:         plan.searchMethod,
			AIMethod:             aiMethod(cited),
			EmbeddingMethod:      o.embeddingMethodFor(plan.documentMethod),
			DocumentsFound:       countDocuments(plan.items),
			WebSearchUsed:        plan.webSearchUsed,
			FallbackUsed:         plan.fallbackUsed,
			ModelUsed:            o.synthesizer.ModelName(),
		},
	}

	o.logger.Info("question_answered",
		"turn_id", turn.ID,
		"session_id", turn.SessionID,
		"chat_mode", string(q.Mode),
		"domain", kd.ID,
		"search_method", plan.searchMethod,
		"web_search_used", plan.webSearchUsed,
		"fallback_used", plan.fallbackUsed,
		"sources", len(cited),
		"regenerated", replacesTurnID != "",
	)
	return turn, nil
}

func (o *QueryOrchestrator) gatherEvidence(
	ctx context.Context,
	q domain.Question,
	kd domain.KnowledgeDomain,
	docs []domain.Document,
) evidencePlan {
	if q.Mode == domain.ChatModeWeb {
		web := o.web.Search(ctx, q.Text, o.webMaxResults)
		return evidencePlan{
			items:           web.Items,
			searchMethod:    string(domain.RetrievalWeb),
			documentMethod:  domain.RetrievalNone,
			webSearchUsed:   true,
			fallbackUsed:    !web.Sufficient,
			limitedEvidence: !web.Sufficient,
		}
	}

	docsResult := o.retriever.Retrieve(ctx, q.Text, kd, docs)
	plan := evidencePlan{
		items:           docsResult.Items,
		searchMethod:    string(docsResult.Method),
		documentMethod:  docsResult.Method,
		fallbackUsed:    !docsResult.Sufficient,
		limitedEvidence: !docsResult.Sufficient,
	}
	if q.Mode == domain.ChatModeDocument || docsResult.Sufficient || !q.WebSearchEnabled {
		return plan
	}

	web := o.web.Search(ctx, q.Text, o.webMaxResults)
	plan.items = mergeEvidence(docsResult.Items, web.Items)
	plan.searchMethod = string(docsResult.Method) + "+" + string(domain.RetrievalWeb)
	plan.webSearchUsed = true
	plan.fallbackUsed = !web.Sufficient
	plan.limitedEvidence = !web.Sufficient
	return plan
}

func (o *QueryOrchestrator) embeddingMethodFor(method domain.RetrievalMethod) string {
	switch method {
	case domain.RetrievalVector:
		return o.embeddingMethod
	case domain.RetrievalKeyword:
		return keywordEmbeddingMethod
	default:
		return string(domain.RetrievalNone)
	}
}

func aiMethod(sources []domain.EvidenceItem) string {
	var docs, web bool
	for _, item := range sources {
		switch item.Kind {
		case domain.EvidenceDocumentChunk:
			docs = true
		case domain.EvidenceWebResult:
			web = true
		}
	}
	switch {
	case docs && web:
		return domain.AIMethodHybridGrounded
	case docs:
		return domain.AIMethodDocumentGrounded
	case web:
		return domain.AIMethodWebGrounded
	default:
		return domain.AIMethodUngrounded
	}
}
