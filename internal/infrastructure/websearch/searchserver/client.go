package searchserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/resilience"
)

// Client calls a JSON search service exposing POST /search.
type Client struct {
	baseURL    string
	engine     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, engine string, executor *resilience.Executor) *Client {
	if strings.TrimSpace(engine) == "" {
		engine = "duckduckgo"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		engine:     engine,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
	}
}

type searchRequest struct {
	Query        string `json:"query"`
	MaxResults   int    `json:"max_results"`
	SearchEngine string `json:"search_engine"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		URL     string `json:"url"`
		Source  string `json:"source"`
	} `json:"results"`
	TotalResults int `json:"total_results"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.WebResult, error) {
	body, err := json.Marshal(searchRequest{Query: query, MaxResults: limit, SearchEngine: c.engine})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	payload, err := resilience.Call(ctx, c.executor, "search_server", func(ctx context.Context) (searchResponse, error) {
		var out searchResponse
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
		if err != nil {
			return out, fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return out, fmt.Errorf("search server request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return out, resilience.NewHTTPStatusError("search server", "search", resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return out, fmt.Errorf("decode search response: %w", err)
		}
		return out, nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("search server", err, resilience.ClassifyHTTPError)
	}

	out := make([]domain.WebResult, 0, min(len(payload.Results), limit))
	for _, r := range payload.Results {
		if len(out) == limit {
			break
		}
		out = append(out, domain.WebResult{
			Title:   strings.TrimSpace(r.Title),
			Snippet: strings.TrimSpace(r.Snippet),
			URL:     strings.TrimSpace(r.URL),
			Source:  r.Source,
		})
	}
	return out, nil
}
