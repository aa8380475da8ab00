package chunking

import (
	"strings"
	"unicode"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const (
	DefaultChunkSize = 900
	DefaultOverlap   = 150
)

// Splitter cuts text into rune windows of ChunkSize with Overlap runes shared
// between neighbours. Offsets are rune positions in the original text.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]domain.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+s.ChunkSize, len(runes))
		window := runes[start:end]

		lead := 0
		for lead < len(window) && unicode.IsSpace(window[lead]) {
			lead++
		}
		chunk := strings.TrimRightFunc(string(window[lead:]), unicode.IsSpace)
		if chunk != "" {
			out = append(out, domain.Chunk{
				Index:  len(out),
				Offset: start + lead,
				Text:   chunk,
			})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
