package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.duckduckgo.com/"
	userAgent      = "grounded-assistant/1.0"
)

// Client queries the DuckDuckGo Instant Answer API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		executor:   executor,
	}
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Result   string         `json:"Result"`
	Name     string         `json:"Name"`
	Topics   []relatedTopic `json:"Topics"`
}

type instantAnswer struct {
	Heading        string         `json:"Heading"`
	Abstract       string         `json:"Abstract"`
	AbstractText   string         `json:"AbstractText"`
	AbstractURL    string         `json:"AbstractURL"`
	AbstractSource string         `json:"AbstractSource"`
	Answer         string         `json:"Answer"`
	Definition     string         `json:"Definition"`
	DefinitionURL  string         `json:"DefinitionURL"`
	RelatedTopics  []relatedTopic `json:"RelatedTopics"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")
	endpoint := c.baseURL + "?" + params.Encode()

	payload, err := resilience.Call(ctx, c.executor, "duckduckgo_search", func(ctx context.Context) (instantAnswer, error) {
		var out instantAnswer
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return out, fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return out, fmt.Errorf("duckduckgo search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return out, resilience.NewHTTPStatusError("duckduckgo", "search", resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return out, fmt.Errorf("decode search response: %w", err)
		}
		return out, nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("duckduckgo search", err, resilience.ClassifyHTTPError)
	}
	return toResults(payload, limit), nil
}

// toResults orders the instant answer first, then definitions and related
// topics. Topic groups are flattened in order.
func toResults(payload instantAnswer, limit int) []domain.WebResult {
	out := make([]domain.WebResult, 0, limit)
	add := func(r domain.WebResult) {
		if len(out) < limit && r.Snippet != "" {
			out = append(out, r)
		}
	}

	abstract := firstNonEmpty(cleanText(payload.AbstractText), cleanText(payload.Abstract))
	if abstract != "" {
		add(domain.WebResult{
			Title:   firstNonEmpty(cleanText(payload.Heading), "DuckDuckGo Instant Answer"),
			Snippet: abstract,
			URL:     payload.AbstractURL,
			Source:  firstNonEmpty(payload.AbstractSource, "DuckDuckGo Instant Answer"),
		})
	}
	if answer := cleanText(payload.Answer); answer != "" {
		add(domain.WebResult{
			Title:   firstNonEmpty(cleanText(payload.Heading), "DuckDuckGo Answer"),
			Snippet: answer,
			Source:  "DuckDuckGo Answer",
		})
	}
	if definition := cleanText(payload.Definition); definition != "" {
		add(domain.WebResult{
			Title:   "Definition",
			Snippet: definition,
			URL:     payload.DefinitionURL,
			Source:  "DuckDuckGo Definition",
		})
	}

	for _, topic := range flattenTopics(payload.RelatedTopics) {
		text := cleanText(topic.Text)
		if text == "" {
			text = cleanText(topic.Result)
		}
		add(domain.WebResult{
			Title:   topicTitle(text),
			Snippet: text,
			URL:     topic.FirstURL,
			Source:  "DuckDuckGo Related Topics",
		})
	}
	return out
}

func flattenTopics(topics []relatedTopic) []relatedTopic {
	out := make([]relatedTopic, 0, len(topics))
	for _, topic := range topics {
		if len(topic.Topics) > 0 {
			out = append(out, flattenTopics(topic.Topics)...)
			continue
		}
		out = append(out, topic)
	}
	return out
}

// topicTitle takes the part before " - ", which DuckDuckGo uses to separate
// the topic name from its description.
func topicTitle(text string) string {
	if head, _, ok := strings.Cut(text, " - "); ok {
		return strings.TrimSpace(head)
	}
	return text
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
