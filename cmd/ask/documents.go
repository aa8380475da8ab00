package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const localUserID = "local"

// loadDocuments reads text files into ready documents. Ids follow argument
// order so repeated runs cite the same sources.
func loadDocuments(paths []string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(paths))
	now := time.Now().UTC()
	for i, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !utf8.Valid(raw) || bytes.IndexByte(raw, 0) >= 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load document", fmt.Errorf("%s is not UTF-8 text", path))
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			continue
		}
		docs = append(docs, domain.Document{
			ID:        fmt.Sprintf("local-%d", i+1),
			UserID:    localUserID,
			Filename:  filepath.Base(path),
			MimeType:  "text/plain",
			Text:      text,
			Status:    domain.StatusReady,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return docs, nil
}
