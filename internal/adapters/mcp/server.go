package mcpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
)

// NewServer registers the question answering tools on a stdio-ready MCP server.
func NewServer(version string, conversation ports.ConversationService, domains ports.DomainLister, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := server.NewMCPServer(
		"grounded-assistant",
		version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(askDocumentsTool(), handleAskDocuments(conversation, logger))
	s.AddTool(listDomainsTool(), handleListDomains(domains))
	return s
}

func askDocumentsTool() mcp.Tool {
	return mcp.NewTool("ask_documents",
		mcp.WithDescription("Answer a question from the user's uploaded documents, optionally falling back to web search"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to answer"),
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Owner of the documents to search"),
		),
		mcp.WithString("session_id",
			mcp.Description("Conversation session; its documents and prior turns are used when set"),
		),
		mcp.WithString("domain",
			mcp.Description("Knowledge domain id; detected from the question when omitted"),
		),
		mcp.WithString("chat_mode",
			mcp.Description("document, web or hybrid (default: hybrid)"),
			mcp.Enum("document", "web", "hybrid"),
		),
		mcp.WithBoolean("web_search",
			mcp.Description("Allow the web fallback in hybrid mode (default: true)"),
		),
	)
}

func listDomainsTool() mcp.Tool {
	return mcp.NewTool("list_domains",
		mcp.WithDescription("List the configured knowledge domains"),
	)
}

func handleAskDocuments(conversation ports.ConversationService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return errorResult("question parameter is required"), nil
		}
		userID, err := request.RequireString("user_id")
		if err != nil || strings.TrimSpace(userID) == "" {
			return errorResult("user_id parameter is required"), nil
		}
		mode, err := domain.ParseChatMode(request.GetString("chat_mode", ""))
		if err != nil {
			return errorResult(err.Error()), nil
		}

		turn, err := conversation.Ask(ctx, domain.SessionQuestion{
			UserID:    userID,
			SessionID: request.GetString("session_id", ""),
			Question: domain.Question{
				Text:             question,
				Domain:           domain.ExplicitDomain(request.GetString("domain", "")),
				Mode:             mode,
				WebSearchEnabled: request.GetBool("web_search", true),
			},
		})
		if err != nil {
			logger.Error("mcp_ask_failed", "user_id", userID, "error", err)
			return errorResult(fmt.Sprintf("ask failed: %v", err)), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatAnswer(turn.Answer)),
			},
		}, nil
	}
}

func handleListDomains(domains ports.DomainLister) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sb strings.Builder
		sb.WriteString("# Knowledge domains\n\n")
		for _, d := range domains.Domains() {
			fmt.Fprintf(&sb, "- **%s** (`%s`): %s\n", d.Name, d.ID, d.Description)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(sb.String()),
			},
		}, nil
	}
}

func formatAnswer(answer domain.AnswerResponse) string {
	var sb strings.Builder
	sb.WriteString(answer.Answer)
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "Domain: %s (%s)\n", answer.Domain, answer.AssistantName)
	fmt.Fprintf(&sb, "Search method: %s, documents found: %d, web search used: %t\n",
		answer.SearchMethod, answer.DocumentsFound, answer.WebSearchUsed)
	if answer.FallbackUsed {
		sb.WriteString("Evidence was limited for this answer.\n")
	}
	if len(answer.Sources) == 0 {
		return sb.String()
	}

	sb.WriteString("\nSources:\n")
	for i, src := range answer.Sources {
		fmt.Fprintf(&sb, "%d. %s (score %.2f)", i+1, src.Label, src.Score)
		if src.URL != "" {
			fmt.Fprintf(&sb, " %s", src.URL)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.NewTextContent("Error: " + message),
		},
	}
}
