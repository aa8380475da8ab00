package domain

import (
	"io"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded text available as evidence to its owner.
type Document struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id,omitempty"`
	Filename  string         `json:"filename"`
	MimeType  string         `json:"mime_type"`
	Text      string         `json:"-"`
	Domain    string         `json:"domain,omitempty"`
	Status    DocumentStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Label is the display name used when the document is cited.
func (d Document) Label() string {
	if d.Filename != "" {
		return d.Filename
	}
	return d.ID
}

type UploadRequest struct {
	UserID    string
	SessionID string
	Filename  string
	MimeType  string
	Body      io.Reader
}

// Chunk is a window of document text. Offset counts runes from the start of the text.
type Chunk struct {
	Index  int
	Offset int
	Text   string
}
