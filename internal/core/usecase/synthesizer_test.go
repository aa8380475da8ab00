package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

func healthDomain() domain.KnowledgeDomain {
	return domain.KnowledgeDomain{
		ID:            "health",
		Name:          "Health",
		Description:   "Medical and wellness information",
		AssistantName: "Health Assistant",
	}
}

func docEvidence(label string, score float64) domain.EvidenceItem {
	return domain.EvidenceItem{
		Kind:       domain.EvidenceDocumentChunk,
		DocumentID: label,
		Snippet:    "snippet from " + label,
		Score:      score,
		Label:      label,
	}
}

func TestSynthesizeGenerationErrorIsGenerationFailure(t *testing.T) {
	synth := NewAnswerSynthesizer(&generatorFake{err: errors.New("model overloaded")}, SynthesisOptions{}, nil)

	_, _, err := synth.Synthesize(context.Background(), "q", healthDomain(), nil, nil, false)
	if !domain.IsKind(err, domain.ErrGenerationFailure) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}

func TestSynthesizeEmptyOutputIsGenerationFailure(t *testing.T) {
	synth := NewAnswerSynthesizer(&generatorFake{answer: "  \n "}, SynthesisOptions{}, nil)

	_, _, err := synth.Synthesize(context.Background(), "q", healthDomain(), nil, nil, false)
	if !domain.IsKind(err, domain.ErrGenerationFailure) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}

func TestSynthesizeWithoutGenerator(t *testing.T) {
	_, _, err := NewAnswerSynthesizer(nil, SynthesisOptions{}, nil).Synthesize(context.Background(), "q", healthDomain(), nil, nil, false)
	if !domain.IsKind(err, domain.ErrGenerationFailure) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}

func TestSynthesizeTrimsAnswerAndCitesMarkers(t *testing.T) {
	gen := &generatorFake{answer: "\n  Thirst is common [S2]. See also [S1, S9].  \n"}
	synth := NewAnswerSynthesizer(gen, SynthesisOptions{}, nil)
	evidence := []domain.EvidenceItem{docEvidence("a.txt", 0.9), docEvidence("b.txt", 0.8), docEvidence("c.txt", 0.7)}

	answer, cited, err := synth.Synthesize(context.Background(), "symptoms?", healthDomain(), evidence, nil, false)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if answer != "Thirst is common [S2]. See also [S1, S9]." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(cited) != 2 || cited[0].Label != "a.txt" || cited[1].Label != "b.txt" {
		t.Fatalf("expected a.txt and b.txt cited in presented order, got %+v", cited)
	}

	prompt := gen.lastPrompt(t)
	for _, want := range []string{
		"You are Health Assistant. Medical and wellness information",
		"[S1] (document: a.txt)\nsnippet from a.txt",
		"[S3] (document: c.txt)",
		"Question:\nsymptoms?",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
}

func TestSynthesizeCitesByLabel(t *testing.T) {
	gen := &generatorFake{answer: "According to Guidelines.pdf the dose is low."}
	synth := NewAnswerSynthesizer(gen, SynthesisOptions{}, nil)
	evidence := []domain.EvidenceItem{docEvidence("notes.txt", 0.9), docEvidence("guidelines.pdf", 0.8)}

	_, cited, err := synth.Synthesize(context.Background(), "dose?", healthDomain(), evidence, nil, false)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(cited) != 1 || cited[0].Label != "guidelines.pdf" {
		t.Fatalf("expected label citation, got %+v", cited)
	}
}

func TestSynthesizeWithoutMarkersAttributesAllPresented(t *testing.T) {
	gen := &generatorFake{answer: "A plain answer."}
	synth := NewAnswerSynthesizer(gen, SynthesisOptions{}, nil)
	evidence := make([]domain.EvidenceItem, 0, 8)
	for i := 0; i < 8; i++ {
		evidence = append(evidence, docEvidence(fmt.Sprintf("doc-%d.txt", i), float64(i)/10))
	}

	_, cited, err := synth.Synthesize(context.Background(), "q", healthDomain(), evidence, nil, false)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(cited) != 6 {
		t.Fatalf("expected the 6 presented items, got %d", len(cited))
	}
	if cited[0].Label != "doc-2.txt" || cited[5].Label != "doc-7.txt" {
		t.Fatalf("expected the highest-scoring items, got %+v", cited)
	}
	prompt := gen.lastPrompt(t)
	if strings.Contains(prompt, "doc-1.txt") || strings.Contains(prompt, "[S7]") {
		t.Fatalf("prompt must present at most 6 items:\n%s", prompt)
	}
}

func TestSynthesizeIncludesLastThreeTurns(t *testing.T) {
	gen := &generatorFake{answer: "ok"}
	synth := NewAnswerSynthesizer(gen, SynthesisOptions{}, nil)
	turns := make([]domain.Turn, 0, 4)
	for i := 1; i <= 4; i++ {
		turns = append(turns, domain.Turn{
			QuestionText: fmt.Sprintf("question %d", i),
			Answer:       domain.AnswerResponse{Answer: fmt.Sprintf("answer %d", i)},
		})
	}

	if _, _, err := synth.Synthesize(context.Background(), "next", healthDomain(), nil, turns, false); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	prompt := gen.lastPrompt(t)
	if strings.Contains(prompt, "question 1") {
		t.Fatalf("oldest turn must be dropped:\n%s", prompt)
	}
	if !strings.Contains(prompt, "User: question 2\nAssistant: answer 2\nUser: question 3") {
		t.Fatalf("expected recent turns in order:\n%s", prompt)
	}
}

func TestSynthesizeNegativeHistoryDisablesContext(t *testing.T) {
	gen := &generatorFake{answer: "ok"}
	synth := NewAnswerSynthesizer(gen, SynthesisOptions{HistoryTurns: -1}, nil)
	turns := []domain.Turn{{QuestionText: "earlier", Answer: domain.AnswerResponse{Answer: "before"}}}

	if _, _, err := synth.Synthesize(context.Background(), "next", healthDomain(), nil, turns, false); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if strings.Contains(gen.lastPrompt(t), "Recent conversation") {
		t.Fatalf("expected no conversation context")
	}
}

func TestSynthesizePromptNotices(t *testing.T) {
	gen := &generatorFake{answer: "ok"}
	synth := NewAnswerSynthesizer(gen, SynthesisOptions{}, nil)

	if _, cited, err := synth.Synthesize(context.Background(), "q", healthDomain(), nil, nil, true); err != nil || len(cited) != 0 {
		t.Fatalf("expected no citations without evidence, got %v %v", cited, err)
	}
	if !strings.Contains(gen.lastPrompt(t), "No documents or web results are available") {
		t.Fatalf("expected no-evidence notice:\n%s", gen.lastPrompt(t))
	}

	if _, _, err := synth.Synthesize(context.Background(), "q", healthDomain(), []domain.EvidenceItem{docEvidence("a.txt", 0.3)}, nil, true); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !strings.Contains(gen.lastPrompt(t), "The evidence above is limited") {
		t.Fatalf("expected limited-evidence notice:\n%s", gen.lastPrompt(t))
	}
}

func TestSystemInstructionUsesTemplate(t *testing.T) {
	kd := domain.KnowledgeDomain{
		Name:           "Education",
		Description:    "Learning and study support",
		AssistantName:  "Study Assistant",
		PromptTemplate: "You are {assistant_name}, a tutor for {domain}. {description}.",
	}
	got := systemInstruction(kd)
	want := "You are Study Assistant, a tutor for Education. Learning and study support."
	if got != want {
		t.Fatalf("systemInstruction() = %q, want %q", got, want)
	}
}
