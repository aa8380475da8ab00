package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
)

const defaultMaxDocumentBytes = 10 << 20

type IngestDocumentUseCase struct {
	repo     ports.DocumentRepository
	queue    ports.MessageQueue
	maxBytes int64
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	queue ports.MessageQueue,
	maxBytes int64,
) *IngestDocumentUseCase {
	if maxBytes <= 0 {
		maxBytes = defaultMaxDocumentBytes
	}
	return &IngestDocumentUseCase{
		repo:     repo,
		queue:    queue,
		maxBytes: maxBytes,
	}
}

// Upload stores a UTF-8 text document and queues it for indexing.
func (uc *IngestDocumentUseCase) Upload(ctx context.Context, req domain.UploadRequest) (*domain.Document, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("user id is required"))
	}
	if req.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("document body is required"))
	}

	text, err := uc.readText(req.Body)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: strings.TrimSpace(req.SessionID),
		Filename:  cleanFilename(req.Filename),
		MimeType:  req.MimeType,
		Text:      text,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if doc.MimeType == "" {
		doc.MimeType = "text/plain"
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

func (uc *IngestDocumentUseCase) readText(body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, uc.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read document body: %w", err)
	}
	if int64(len(raw)) > uc.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("document exceeds %d bytes", uc.maxBytes))
	}
	// Postgres TEXT cannot hold NUL.
	if !utf8.Valid(raw) || bytes.IndexByte(raw, 0) >= 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("document must be UTF-8 text"))
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("document is empty"))
	}
	return text, nil
}

func cleanFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "document.txt"
	}
	return base
}
