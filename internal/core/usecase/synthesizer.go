package usecase

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
)

var (
	citationGroupRe = regexp.MustCompile(`\[([^\[\]]{1,40})\]`)
	citationIndexRe = regexp.MustCompile(`(?i)\bS(\d{1,3})\b`)
)

const minCitableLabelRunes = 4

type SynthesisOptions struct {
	MaxEvidence  int
	HistoryTurns int
	Timeout      time.Duration
}

func (o SynthesisOptions) normalize() SynthesisOptions {
	out := o
	if out.MaxEvidence <= 0 {
		out.MaxEvidence = 6
	}
	// A negative history size disables conversation context.
	switch {
	case out.HistoryTurns == 0:
		out.HistoryTurns = 3
	case out.HistoryTurns < 0:
		out.HistoryTurns = 0
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return out
}

// AnswerSynthesizer prompts the generation model with selected evidence.
type AnswerSynthesizer struct {
	generator ports.AnswerGenerator
	opts      SynthesisOptions
	logger    *slog.Logger
}

func NewAnswerSynthesizer(generator ports.AnswerGenerator, opts SynthesisOptions, logger *slog.Logger) *AnswerSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerSynthesizer{generator: generator, opts: opts.normalize(), logger: logger}
}

func (s *AnswerSynthesizer) ModelName() string {
	if s.generator == nil {
		return ""
	}
	return s.generator.ModelName()
}

// Synthesize makes exactly one generation call. Any failure, including an
// empty completion, is returned as ErrGenerationFailure.
func (s *AnswerSynthesizer) Synthesize(
	ctx context.Context,
	question string,
	kd domain.KnowledgeDomain,
	evidence []domain.EvidenceItem,
	priorTurns []domain.Turn,
	limited bool,
) (string, []domain.EvidenceItem, error) {
	if s.generator == nil {
		return "", nil, domain.WrapError(domain.ErrGenerationFailure, "synthesize answer", errors.New("generator is not configured"))
	}

	presented := topEvidence(evidence, s.opts.MaxEvidence)
	prompt := buildAnswerPrompt(promptInput{
		question: question,
		domain:   kd,
		evidence: presented,
		history:  recentTurns(priorTurns, s.opts.HistoryTurns),
		limited:  limited,
	})

	genCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	raw, err := s.generator.Generate(genCtx, prompt)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrGenerationFailure, "generate answer", err)
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", nil, domain.WrapError(domain.ErrGenerationFailure, "generate answer", errors.New("model returned empty output"))
	}

	cited := citedEvidence(answer, presented)
	s.logger.Debug("answer_synthesized",
		"domain", kd.ID,
		"presented", len(presented),
		"cited", len(cited),
		"prompt_chars", len(prompt),
	)
	return answer, cited, nil
}

// citedEvidence returns the presented items referenced by marker or label.
// With no references at all every presented item is attributed.
func citedEvidence(answer string, presented []domain.EvidenceItem) []domain.EvidenceItem {
	if len(presented) == 0 {
		return []domain.EvidenceItem{}
	}

	referenced := make([]bool, len(presented))
	found := false
	for _, group := range citationGroupRe.FindAllStringSubmatch(answer, -1) {
		for _, m := range citationIndexRe.FindAllStringSubmatch(group[1], -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > len(presented) {
				continue
			}
			referenced[n-1] = true
			found = true
		}
	}

	lowerAnswer := strings.ToLower(answer)
	for i, item := range presented {
		label := strings.ToLower(strings.TrimSpace(item.Label))
		if len([]rune(label)) < minCitableLabelRunes {
			continue
		}
		if strings.Contains(lowerAnswer, label) {
			referenced[i] = true
			found = true
		}
	}

	if !found {
		return cloneEvidence(presented)
	}
	out := make([]domain.EvidenceItem, 0, len(presented))
	for i, item := range presented {
		if referenced[i] {
			out = append(out, item)
		}
	}
	return out
}

func recentTurns(turns []domain.Turn, limit int) []domain.Turn {
	if limit <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) > limit {
		return turns[len(turns)-limit:]
	}
	return turns
}
