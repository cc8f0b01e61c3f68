// Package mcptools exposes the knowledge base to MCP clients over stdio.
//
// Each tool follows the same shape:
// - a struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Tools only read published articles that agents can see.
package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sopdesk/api/internal/assistant"
	"sopdesk/api/internal/content"
)

// ArticleSource is the read side of the knowledge-base store.
type ArticleSource interface {
	Articles(ctx context.Context) ([]content.Article, error)
	Teams(ctx context.Context) ([]content.Team, error)
}

type Asker interface {
	Ask(ctx context.Context, q assistant.Question) (assistant.Answer, error)
}

// NewServer registers every knowledge-base tool on a new MCP server.
func NewServer(version string, source ArticleSource, asker Asker) *server.MCPServer {
	s := server.NewMCPServer(
		"sopdesk",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Search and read the internal SOP knowledge base, or ask its assistant."),
	)

	searchTool := NewSearchTool(source)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	articleTool := NewArticleTool(source)
	s.AddTool(articleTool.Definition(), articleTool.Handle)

	askTool := NewAskTool(asker)
	s.AddTool(askTool.Definition(), askTool.Handle)

	return s
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func teamNames(teams []content.Team, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if team, ok := content.FindTeam(teams, id); ok {
			names = append(names, team.Name)
		}
	}
	return names
}
