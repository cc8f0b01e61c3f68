package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"sopdesk/api/internal/content"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 25
)

// SearchTool handles the kb_search_articles MCP tool.
type SearchTool struct {
	source ArticleSource
}

func NewSearchTool(source ArticleSource) *SearchTool {
	return &SearchTool{source: source}
}

func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_search_articles",
		mcp.WithDescription(
			"Search published SOP articles by title or summary. Matching is a case-insensitive substring match.",
		),
		mcp.WithString("query",
			mcp.Description("Text to look for in article titles and summaries. Empty lists every article."),
		),
		mcp.WithString("team_id",
			mcp.Description("Only articles assigned to this team id"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10, max: 25)"),
		),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", defaultSearchLimit)
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	articles, err := t.source.Articles(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load articles: %v", err)), nil
	}
	teams, err := t.source.Teams(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load teams: %v", err)), nil
	}

	matched := content.FilterArticles(articles, content.Filter{
		Query:  req.GetString("query", ""),
		TeamID: req.GetString("team_id", ""),
	})
	if len(matched) == 0 {
		return mcp.NewToolResultText("No articles found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d articles:\n\n", len(matched))
	for i, article := range matched {
		if i == limit {
			fmt.Fprintf(&b, "... and %d more\n", len(matched)-limit)
			break
		}
		fmt.Fprintf(&b, "%d. **%s** (id: %s)\n", i+1, article.Title, article.ID)
		if names := teamNames(teams, article.TeamIDs); len(names) > 0 {
			fmt.Fprintf(&b, "   Teams: %s\n", strings.Join(names, ", "))
		}
		if article.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", article.Summary)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
