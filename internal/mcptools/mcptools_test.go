package mcptools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"sopdesk/api/internal/assistant"
	"sopdesk/api/internal/content"
)

var ctx = context.Background()

type fakeSource struct {
	articles []content.Article
	teams    []content.Team
	err      error
}

func (f *fakeSource) Articles(context.Context) ([]content.Article, error) { return f.articles, f.err }
func (f *fakeSource) Teams(context.Context) ([]content.Team, error)       { return f.teams, f.err }

func newSource() *fakeSource {
	return &fakeSource{
		articles: content.DefaultArticles(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)),
		teams:    content.DefaultTeams(),
	}
}

type fakeAsker struct {
	got    assistant.Question
	answer assistant.Answer
	err    error
}

func (f *fakeAsker) Ask(_ context.Context, q assistant.Question) (assistant.Answer, error) {
	f.got = q
	return f.answer, f.err
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

// mustBeToolError asserts the Handle call returns a tool error (not a Go error).
func mustBeToolError(t *testing.T, r *mcp.CallToolResult, err error, wantSubstr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !r.IsError {
		t.Fatalf("expected tool error containing %q, got success: %s", wantSubstr, resultText(r))
	}
	if wantSubstr != "" && !strings.Contains(resultText(r), wantSubstr) {
		t.Errorf("error text %q does not contain %q", resultText(r), wantSubstr)
	}
}

func TestSearchTool_Definition(t *testing.T) {
	def := NewSearchTool(newSource()).Definition()
	if def.Name != "kb_search_articles" {
		t.Errorf("name = %q", def.Name)
	}
	for _, prop := range []string{"query", "team_id", "limit"} {
		if _, ok := def.InputSchema.Properties[prop]; !ok {
			t.Errorf("missing property %q", prop)
		}
	}
	if len(def.InputSchema.Required) != 0 {
		t.Errorf("expected no required params, got %v", def.InputSchema.Required)
	}
}

func TestSearchTool_FindsResults(t *testing.T) {
	tool := NewSearchTool(newSource())

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{"query": "refund"}))
	mustNotError(t, r, err)
	text := resultText(r)

	if !strings.Contains(text, "Refund Policy: Missing Items") || !strings.Contains(text, "id: a1") {
		t.Errorf("expected refund article, got: %s", text)
	}
	if strings.Contains(text, "Rider Accident Protocol") {
		t.Errorf("unexpected accident article in: %s", text)
	}
}

func TestSearchTool_TeamFilterAndLimit(t *testing.T) {
	tool := NewSearchTool(newSource())

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{"team_id": "t4"}))
	mustNotError(t, r, err)
	if text := resultText(r); !strings.Contains(text, "Found 1 articles") || !strings.Contains(text, "Rider Accident Protocol") {
		t.Errorf("expected only the t4 article, got: %s", text)
	}

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{"limit": float64(1)}))
	mustNotError(t, r, err)
	if text := resultText(r); !strings.Contains(text, "... and 1 more") {
		t.Errorf("expected truncation note, got: %s", text)
	}
}

func TestSearchTool_SkipsDrafts(t *testing.T) {
	source := newSource()
	source.articles[0].Status = content.StatusDraft
	tool := NewSearchTool(source)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{"query": "refund"}))
	mustNotError(t, r, err)
	if text := resultText(r); !strings.Contains(text, "No articles found") {
		t.Errorf("expected no results, got: %s", text)
	}
}

func TestSearchTool_StoreError(t *testing.T) {
	tool := NewSearchTool(&fakeSource{err: errors.New("redis down")})

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{}))
	mustBeToolError(t, r, err, "redis down")
}

func TestArticleTool_Definition(t *testing.T) {
	def := NewArticleTool(newSource()).Definition()
	if def.Name != "kb_get_article" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "id" {
		t.Errorf("expected id to be required, got %v", def.InputSchema.Required)
	}
}

func TestArticleTool_FormatsSteps(t *testing.T) {
	tool := NewArticleTool(newSource())

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{"id": "a1"}))
	mustNotError(t, r, err)
	text := resultText(r)

	for _, want := range []string{
		"# Refund Policy: Missing Items",
		"## Steps",
		"1. **Verify Package Integrity**",
		"5. **Log Incident**",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}
}

func TestArticleTool_RichStepContent(t *testing.T) {
	source := newSource()
	source.articles[0].ProcessSteps[0].HTMLContent = "<p>Check the <strong>seal</strong></p>"
	tool := NewArticleTool(source)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{"id": "a1"}))
	mustNotError(t, r, err)
	text := resultText(r)
	if !strings.Contains(text, "Check the seal") || strings.Contains(text, "<strong>") {
		t.Errorf("expected html step as plain text, got:\n%s", text)
	}
}

func TestArticleTool_Errors(t *testing.T) {
	hidden := newSource()
	hidden.articles[1].IsVisibleToAgents = false

	tests := []struct {
		name   string
		source *fakeSource
		args   map[string]interface{}
		want   string
	}{
		{name: "missing id", source: newSource(), args: map[string]interface{}{}, want: "id"},
		{name: "unknown id", source: newSource(), args: map[string]interface{}{"id": "nope"}, want: "not found"},
		{name: "hidden article", source: hidden, args: map[string]interface{}{"id": "a2"}, want: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewArticleTool(tt.source).Handle(ctx, makeReq(tt.args))
			mustBeToolError(t, r, err, tt.want)
		})
	}
}

func TestAskTool_Definition(t *testing.T) {
	def := NewAskTool(&fakeAsker{}).Definition()
	if def.Name != "kb_ask_assistant" {
		t.Errorf("name = %q", def.Name)
	}
	for _, prop := range []string{"query", "team_id", "conversation_id"} {
		if _, ok := def.InputSchema.Properties[prop]; !ok {
			t.Errorf("missing property %q", prop)
		}
	}
}

func TestAskTool_PassesQuestion(t *testing.T) {
	asker := &fakeAsker{answer: assistant.Answer{Text: "### Refund\nCall the restaurant.", Outcome: assistant.OutcomeAnswered}}
	tool := NewAskTool(asker)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query":           " missing fries ",
		"team_id":         "t1",
		"conversation_id": "c9",
	}))
	mustNotError(t, r, err)

	if resultText(r) != "### Refund\nCall the restaurant." {
		t.Errorf("unexpected text %q", resultText(r))
	}
	if asker.got.Query != "missing fries" || asker.got.TeamID != "t1" || asker.got.ConversationID != "c9" {
		t.Errorf("unexpected question %+v", asker.got)
	}
}

func TestAskTool_Failures(t *testing.T) {
	tests := []struct {
		name  string
		asker *fakeAsker
		args  map[string]interface{}
		want  string
	}{
		{name: "empty query", asker: &fakeAsker{}, args: map[string]interface{}{"query": "  "}, want: "query"},
		{name: "store error", asker: &fakeAsker{err: errors.New("boom")}, args: map[string]interface{}{"query": "x"}, want: "boom"},
		{
			name:  "not configured",
			asker: &fakeAsker{answer: assistant.Answer{Text: assistant.NotConfiguredMessage, Outcome: assistant.OutcomeNotConfigured}},
			args:  map[string]interface{}{"query": "x"},
			want:  assistant.NotConfiguredMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewAskTool(tt.asker).Handle(ctx, makeReq(tt.args))
			mustBeToolError(t, r, err, tt.want)
		})
	}
}

func TestNewServer(t *testing.T) {
	if s := NewServer("test", newSource(), &fakeAsker{}); s == nil {
		t.Fatal("expected server")
	}
}
