package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const documentColumns = `id, user_id, session_id, filename, mime_type, body, domain, status, error_message, created_at, updated_at`

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, doc.UserID, doc.SessionID, doc.Filename, doc.MimeType, doc.Text, doc.Domain,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireAffected(res, "update document status", id)
}

func (r *DocumentRepository) SaveDomain(ctx context.Context, id, domainID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET domain = $2, updated_at = $3
WHERE id = $1
`, id, domainID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save document domain: %w", err)
	}
	return requireAffected(res, "save document domain", id)
}

// ListBySession returns the ready documents uploaded within the session.
func (r *DocumentRepository) ListBySession(ctx context.Context, userID, sessionID string) ([]domain.Document, error) {
	return r.list(ctx, "list session documents", `
SELECT `+documentColumns+`
FROM documents
WHERE user_id = $1 AND session_id = $2 AND status = $3
ORDER BY created_at ASC, id ASC
`, userID, sessionID, string(domain.StatusReady))
}

// ListByUser returns every ready document of the user.
func (r *DocumentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Document, error) {
	return r.list(ctx, "list user documents", `
SELECT `+documentColumns+`
FROM documents
WHERE user_id = $1 AND status = $2
ORDER BY created_at ASC, id ASC
`, userID, string(domain.StatusReady))
}

func (r *DocumentRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s iterate: %w", op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	if err := row.Scan(
		&doc.ID, &doc.UserID, &doc.SessionID, &doc.Filename, &doc.MimeType, &doc.Text, &doc.Domain,
		&status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func requireAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
