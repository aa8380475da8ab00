package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kirillkom/grounded-assistant/internal/infrastructure/resilience"
)

const DefaultModel = "gemini-1.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Generator struct {
	models      contentGenerator
	model       string
	temperature float32
	executor    *resilience.Executor
}

func NewGenerator(ctx context.Context, apiKey, model string, temperature float32, executor *resilience.Executor) (*Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return newGenerator(client.Models, model, temperature, executor), nil
}

func newGenerator(models contentGenerator, model string, temperature float32, executor *resilience.Executor) *Generator {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Generator{
		models:      models,
		model:       model,
		temperature: temperature,
		executor:    executor,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)}

	resp, err := resilience.Call(ctx, g.executor, "gemini_generate", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return g.models.GenerateContent(ctx, g.model, contents, config)
	}, classifyGeminiError)
	if err != nil {
		return "", resilience.WrapTemporary("gemini generate", err, classifyGeminiError)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", errors.New("gemini generate: no text in response")
	}
	return text, nil
}

func (g *Generator) ModelName() string {
	return g.model
}

// responseText joins the text parts of the first candidate that has any.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

func classifyGeminiError(err error) resilience.ErrorClassification {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		return resilience.ClassifyHTTPError(err)
	}
	if resilience.IsRetryableHTTPStatus(code) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
}
