package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const maxPromptSnippetRunes = 2000

type promptInput struct {
	question string
	domain   domain.KnowledgeDomain
	evidence []domain.EvidenceItem
	history  []domain.Turn
	limited  bool
}

func buildAnswerPrompt(in promptInput) string {
	var b strings.Builder

	b.WriteString(systemInstruction(in.domain))
	b.WriteString("\n\n")

	if len(in.evidence) == 0 {
		b.WriteString("No documents or web results are available for this question. " +
			"Say clearly that no supporting information was found before giving any general guidance.\n\n")
	} else {
		b.WriteString("Evidence:\n")
		for i, item := range in.evidence {
			fmt.Fprintf(&b, "%s (%s: %s)\n%s\n\n",
				citationMarker(i),
				sourceKindLabel(item.Kind),
				item.Label,
				truncateRunes(strings.TrimSpace(item.Snippet), maxPromptSnippetRunes),
			)
		}
		if in.limited {
			b.WriteString("The evidence above is limited and may not fully cover the question. " +
				"Say which parts it does not cover and do not invent facts.\n\n")
		}
	}

	if len(in.history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range in.history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", strings.TrimSpace(turn.QuestionText), strings.TrimSpace(turn.Answer.Answer))
		}
		b.WriteString("\n")
	}

	b.WriteString("Question:\n")
	b.WriteString(strings.TrimSpace(in.question))
	b.WriteString("\n\n")
	if len(in.evidence) > 0 {
		b.WriteString("Answer from the evidence. Cite the evidence you use with its marker, for example [S1].\n")
	}
	return b.String()
}

func systemInstruction(kd domain.KnowledgeDomain) string {
	name := kd.AssistantName
	if name == "" {
		name = "AI Assistant"
	}
	template := strings.TrimSpace(kd.PromptTemplate)
	if template == "" {
		template = "You are {assistant_name}. {description}"
	}
	return strings.NewReplacer(
		"{assistant_name}", name,
		"{domain}", kd.Name,
		"{description}", kd.Description,
	).Replace(template)
}

func citationMarker(i int) string {
	return fmt.Sprintf("[S%d]", i+1)
}

func sourceKindLabel(kind domain.EvidenceKind) string {
	if kind == domain.EvidenceWebResult {
		return "web"
	}
	return "document"
}
