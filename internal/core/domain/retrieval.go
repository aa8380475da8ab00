package domain

import (
	"math"
	"strconv"
)

type EvidenceKind string

const (
	EvidenceDocumentChunk EvidenceKind = "document_chunk"
	EvidenceWebResult     EvidenceKind = "web_result"
)

// EvidenceItem is a scored snippet offered to answer generation.
type EvidenceItem struct {
	Kind        EvidenceKind `json:"kind"`
	DocumentID  string       `json:"document_id,omitempty"`
	ChunkOffset int          `json:"chunk_offset,omitempty"`
	URL         string       `json:"url,omitempty"`
	Snippet     string       `json:"snippet"`
	Score       float64      `json:"score"`
	Label       string       `json:"label"`
}

// Origin identifies where the evidence came from.
func (e EvidenceItem) Origin() string {
	if e.Kind == EvidenceWebResult {
		return e.URL
	}
	return e.DocumentID + "#" + strconv.Itoa(e.ChunkOffset)
}

type RetrievalMethod string

const (
	RetrievalVector  RetrievalMethod = "vector"
	RetrievalKeyword RetrievalMethod = "keyword"
	RetrievalNone    RetrievalMethod = "none"
	RetrievalWeb     RetrievalMethod = "web"
)

// RetrievalResult holds evidence ordered by score, highest first.
type RetrievalResult struct {
	Items      []EvidenceItem  `json:"items"`
	Method     RetrievalMethod `json:"method"`
	Sufficient bool            `json:"sufficient"`
}

type VectorFilter struct {
	DocumentIDs []string
}

type VectorHit struct {
	DocumentID  string  `json:"document_id"`
	Filename    string  `json:"filename"`
	ChunkIndex  int     `json:"chunk_index"`
	ChunkOffset int     `json:"chunk_offset"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
}

type WebResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Source  string `json:"source,omitempty"`
}

// ClampScore bounds a relevance score to [0,1].
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
