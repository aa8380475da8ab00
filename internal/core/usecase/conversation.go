package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
)

const defaultHistoryLimit = 10

// ConversationUseCase loads session context from the stores, runs the
// orchestrator, stores the resulting turn and announces it on the queue.
type ConversationUseCase struct {
	orchestrator ports.QueryOrchestrator
	docs         ports.DocumentRepository
	turns        ports.TurnStore
	recorder     *RecordTurnUseCase
	queue        ports.MessageQueue
	historyLimit int
	logger       *slog.Logger
}

func NewConversationUseCase(
	orchestrator ports.QueryOrchestrator,
	docs ports.DocumentRepository,
	turns ports.TurnStore,
	queue ports.MessageQueue,
	historyLimit int,
	logger *slog.Logger,
) *ConversationUseCase {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationUseCase{
		orchestrator: orchestrator,
		docs:         docs,
		turns:        turns,
		recorder:     NewRecordTurnUseCase(turns),
		queue:        queue,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

func (uc *ConversationUseCase) Ask(ctx context.Context, sq domain.SessionQuestion) (*domain.Turn, error) {
	userID := strings.TrimSpace(sq.UserID)
	if userID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("user id is required"))
	}
	sessionID := strings.TrimSpace(sq.SessionID)
	question := sq.Question
	question.SessionID = sessionID
	if err := uc.orchestrator.Validate(question); err != nil {
		return nil, err
	}

	docs, err := uc.availableDocuments(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	history, err := uc.history(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turn, err := uc.orchestrator.Ask(ctx, domain.AskRequest{
		Question:   question,
		UserID:     userID,
		PriorTurns: history,
		Documents:  docs,
	})
	if err != nil {
		return nil, err
	}
	if err := uc.store(ctx, turn); err != nil {
		return nil, err
	}
	uc.publish(ctx, turn)
	return turn, nil
}

func (uc *ConversationUseCase) Regenerate(ctx context.Context, userID, sessionID string) (*domain.Turn, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" || sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "regenerate", errors.New("user id and session id are required"))
	}

	history, err := uc.history(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "regenerate", fmt.Errorf("session %s has no turns", sessionID))
	}
	docs, err := uc.availableDocuments(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	turn, err := uc.orchestrator.Regenerate(ctx, domain.RegenerateRequest{
		UserID:     userID,
		PriorTurns: history,
		Documents:  docs,
	})
	if err != nil {
		return nil, err
	}
	if err := uc.store(ctx, turn); err != nil {
		return nil, err
	}
	uc.publish(ctx, turn)
	return turn, nil
}

// availableDocuments prefers the session's documents and falls back to every
// ready document of the user.
func (uc *ConversationUseCase) availableDocuments(ctx context.Context, userID, sessionID string) ([]domain.Document, error) {
	if uc.docs == nil {
		return nil, nil
	}
	if sessionID != "" {
		docs, err := uc.docs.ListBySession(ctx, userID, sessionID)
		if err != nil {
			return nil, fmt.Errorf("list session documents: %w", err)
		}
		if len(docs) > 0 {
			return docs, nil
		}
	}
	docs, err := uc.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user documents: %w", err)
	}
	return docs, nil
}

func (uc *ConversationUseCase) history(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if sessionID == "" || uc.turns == nil {
		return nil, nil
	}
	turns, err := uc.turns.ListRecentTurns(ctx, sessionID, uc.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list session turns: %w", err)
	}
	return turns, nil
}

// store persists the turn before it is returned so the next request of the
// session sees it in its history.
func (uc *ConversationUseCase) store(ctx context.Context, turn *domain.Turn) error {
	if uc.turns == nil || turn == nil || turn.SessionID == "" {
		return nil
	}
	if err := uc.recorder.Record(ctx, *turn); err != nil {
		return fmt.Errorf("store turn: %w", err)
	}
	return nil
}

// publish is best effort: the turn is already stored.
func (uc *ConversationUseCase) publish(ctx context.Context, turn *domain.Turn) {
	if uc.queue == nil || turn == nil || turn.SessionID == "" {
		return
	}
	if err := uc.queue.PublishTurnCompleted(ctx, *turn); err != nil {
		uc.logger.Warn("turn_publish_failed", "turn_id", turn.ID, "session_id", turn.SessionID, "error", err)
	}
}

// RecordTurnUseCase stores a turn of a session.
type RecordTurnUseCase struct {
	turns ports.TurnStore
}

func NewRecordTurnUseCase(turns ports.TurnStore) *RecordTurnUseCase {
	return &RecordTurnUseCase{turns: turns}
}

// Record appends the turn and then drops the turn it replaces, if any.
func (uc *RecordTurnUseCase) Record(ctx context.Context, turn domain.Turn) error {
	if turn.SessionID == "" {
		return nil
	}
	if turn.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record turn", errors.New("turn id is required"))
	}
	if err := uc.turns.AppendTurn(ctx, turn); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if turn.ReplacesTurnID == "" {
		return nil
	}
	if err := uc.turns.DeleteTurn(ctx, turn.SessionID, turn.ReplacesTurnID); err != nil {
		return fmt.Errorf("delete replaced turn: %w", err)
	}
	return nil
}
