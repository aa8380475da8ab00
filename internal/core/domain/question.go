package domain

import (
	"fmt"
	"strings"
	"time"
)

type ChatMode string

const (
	ChatModeDocument ChatMode = "document"
	ChatModeWeb      ChatMode = "web"
	ChatModeHybrid   ChatMode = "hybrid"
)

// ParseChatMode accepts the wire names of the chat modes. A blank value means hybrid.
func ParseChatMode(raw string) (ChatMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ChatModeHybrid, nil
	case "document", "documents":
		return ChatModeDocument, nil
	case "web":
		return ChatModeWeb, nil
	case "hybrid":
		return ChatModeHybrid, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse chat mode", fmt.Errorf("unknown chat mode %q", raw))
	}
}

func (m ChatMode) Valid() bool {
	switch m {
	case ChatModeDocument, ChatModeWeb, ChatModeHybrid:
		return true
	default:
		return false
	}
}

// Question is one user submission. It is never mutated after creation.
type Question struct {
	Text             string
	Domain           DomainChoice
	Mode             ChatMode
	WebSearchEnabled bool
	SessionID        string
}

// Turn is a question paired with the answer produced for it.
type Turn struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id,omitempty"`
	SessionID        string         `json:"session_id,omitempty"`
	QuestionText     string         `json:"question"`
	RequestedDomain  string         `json:"requested_domain,omitempty"`
	Mode             ChatMode       `json:"chat_mode"`
	WebSearchEnabled bool           `json:"web_search_enabled"`
	Answer           AnswerResponse `json:"answer"`
	ReplacesTurnID   string         `json:"replaces_turn_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Question rebuilds the submission that produced the turn.
func (t Turn) Question() Question {
	return Question{
		Text:             t.QuestionText,
		Domain:           ExplicitDomain(t.RequestedDomain),
		Mode:             t.Mode,
		WebSearchEnabled: t.WebSearchEnabled,
		SessionID:        t.SessionID,
	}
}

// AskRequest carries everything the orchestrator needs for one question.
type AskRequest struct {
	Question   Question
	UserID     string
	PriorTurns []Turn
	Documents  []Document
}

// RegenerateRequest recomputes the answer of the last entry in PriorTurns.
type RegenerateRequest struct {
	UserID     string
	PriorTurns []Turn
	Documents  []Document
}

// SessionQuestion is a question addressed to a stored session.
type SessionQuestion struct {
	UserID    string
	SessionID string
	Question  Question
}
