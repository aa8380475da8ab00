package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

type TurnRepository struct {
	db *sql.DB
}

func NewTurnRepository(db *sql.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// AppendTurn ignores redelivered turns with a known id.
func (r *TurnRepository) AppendTurn(ctx context.Context, turn domain.Turn) error {
	answerJSON, err := json.Marshal(turn.Answer)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO turns (id, session_id, user_id, question, requested_domain, chat_mode, web_search_enabled, answer, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING
`,
		turn.ID, turn.SessionID, turn.UserID, turn.QuestionText, turn.RequestedDomain,
		string(turn.Mode), turn.WebSearchEnabled, answerJSON, createdAt,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// ListRecentTurns returns up to limit turns of the session, oldest first.
func (r *TurnRepository) ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, user_id, question, requested_domain, chat_mode, web_search_enabled, answer, created_at
FROM turns
WHERE session_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Turn, 0, limit)
	for rows.Next() {
		var turn domain.Turn
		var mode string
		var answerRaw []byte
		if err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.UserID,
			&turn.QuestionText,
			&turn.RequestedDomain,
			&mode,
			&turn.WebSearchEnabled,
			&answerRaw,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := json.Unmarshal(answerRaw, &turn.Answer); err != nil {
			return nil, fmt.Errorf("unmarshal turn answer: %w", err)
		}
		turn.Mode = domain.ChatMode(mode)
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DeleteTurn succeeds when the turn is already gone.
func (r *TurnRepository) DeleteTurn(ctx context.Context, sessionID, turnID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = $1 AND id = $2`, sessionID, turnID); err != nil {
		return fmt.Errorf("delete turn: %w", err)
	}
	return nil
}
