package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"sopdesk/api/internal/assistant"
)

// AskTool handles the kb_ask_assistant MCP tool.
type AskTool struct {
	asker Asker
}

func NewAskTool(asker Asker) *AskTool {
	return &AskTool{asker: asker}
}

func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_ask_assistant",
		mcp.WithDescription(
			"Ask the knowledge-base assistant an operational question. Answers follow the admin's AI policy "+
				"(allowed teams, scope, tone and strict mode) and are returned as Markdown.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question, in the agent's own words"),
		),
		mcp.WithString("team_id",
			mcp.Description("Only use articles assigned to this team id"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Questions sharing a conversation id are answered one at a time"),
		),
	)
}

func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	answer, err := t.asker.Ask(ctx, assistant.Question{
		Query:          query,
		TeamID:         req.GetString("team_id", ""),
		ConversationID: req.GetString("conversation_id", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assistant failed: %v", err)), nil
	}
	if answer.Outcome != assistant.OutcomeAnswered {
		return mcp.NewToolResultError(answer.Text), nil
	}
	return mcp.NewToolResultText(answer.Text), nil
}
