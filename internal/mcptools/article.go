package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"sopdesk/api/internal/content"
)

// ArticleTool handles the kb_get_article MCP tool.
type ArticleTool struct {
	source ArticleSource
}

func NewArticleTool(source ArticleSource) *ArticleTool {
	return &ArticleTool{source: source}
}

func (t *ArticleTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_get_article",
		mcp.WithDescription(
			"Read one published SOP article in full: trigger, short answer, numbered steps, outcomes and attachments.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Article id, as returned by kb_search_articles"),
		),
	)
}

func (t *ArticleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	articles, err := t.source.Articles(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load articles: %v", err)), nil
	}
	article, ok := content.FindArticle(articles, id)
	if !ok || article.Status != content.StatusPublished || !article.IsVisibleToAgents {
		return mcp.NewToolResultError(fmt.Sprintf("article %q not found", id)), nil
	}
	teams, err := t.source.Teams(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load teams: %v", err)), nil
	}

	return mcp.NewToolResultText(formatArticle(article, teams)), nil
}

func formatArticle(article content.Article, teams []content.Team) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", article.Title)
	if names := teamNames(teams, article.TeamIDs); len(names) > 0 {
		fmt.Fprintf(&b, "**Teams**: %s\n", strings.Join(names, ", "))
	}
	if article.ProcessOwner != "" {
		fmt.Fprintf(&b, "**Owner**: %s\n", article.ProcessOwner)
	}
	if article.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", article.Summary)
	}
	if article.Trigger != "" {
		fmt.Fprintf(&b, "\n## Trigger\n%s\n", article.Trigger)
	}
	if article.ShortAnswer != "" {
		fmt.Fprintf(&b, "\n## Short answer\n%s\n", article.ShortAnswer)
	}

	if len(article.ProcessSteps) > 0 {
		b.WriteString("\n## Steps\n")
		for i, step := range article.ProcessSteps {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, step.Title, content.ResolveStep(step).PlainText())
		}
	}
	if len(article.Outcomes) > 0 {
		b.WriteString("\n## Outcomes\n")
		for _, outcome := range article.Outcomes {
			fmt.Fprintf(&b, "- %s: %s\n", outcome.Label, outcome.Action)
		}
	}
	if article.Troubleshooting != "" {
		fmt.Fprintf(&b, "\n## Troubleshooting\n%s\n", article.Troubleshooting)
	}
	if len(article.Attachments) > 0 {
		b.WriteString("\n## Attachments\n")
		for _, attachment := range article.Attachments {
			fmt.Fprintf(&b, "- %s (%s): %s\n", attachment.Name, attachment.Type, attachment.URL)
		}
	}
	return b.String()
}
