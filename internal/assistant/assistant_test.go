package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/settings"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []Request
	reply    string
	err      error
	hook     func()
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

type fakeSource struct {
	mu       sync.Mutex
	cfg      settings.AIControlSettings
	articles []content.Article
	teams    []content.Team
	usage    int
}

func (f *fakeSource) AISettings(context.Context) (settings.AIControlSettings, error) {
	return f.cfg, nil
}

func (f *fakeSource) Articles(context.Context) ([]content.Article, error) {
	return f.articles, nil
}

func (f *fakeSource) Teams(context.Context) ([]content.Team, error) {
	return f.teams, nil
}

func (f *fakeSource) IncrementAIUsage(context.Context) (settings.AIStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage++
	return settings.AIStats{Count: f.usage}, nil
}

func article(id string, teams ...string) content.Article {
	return content.Article{
		ID:                id,
		TeamIDs:           teams,
		Title:             "Process " + id,
		Summary:           "Summary " + id,
		Trigger:           "Trigger " + id,
		ShortAnswer:       "Short " + id,
		ProcessSteps:      []content.ProcessStep{{Title: "Check", Description: "Look at it"}},
		Outcomes:          []content.Outcome{{Label: "Done", Action: "Close"}},
		Attachments:       []content.Attachment{},
		IsVisibleToAgents: true,
		IsAvailableToAI:   true,
		Status:            content.StatusPublished,
	}
}

func newSource() *fakeSource {
	return &fakeSource{
		cfg:      settings.DefaultAIControlSettings(),
		articles: []content.Article{article("a1", "t1"), article("a2", "t2")},
		teams:    content.DefaultTeams(),
	}
}

func TestAskWithoutGeneratorReportsNotConfigured(t *testing.T) {
	src := newSource()
	src.cfg.Enabled = false
	a := New(src, nil, nil)

	answer, err := a.Ask(context.Background(), Question{Query: "hi"})
	require.NoError(t, err)
	assert.Equal(t, NotConfiguredMessage, answer.Text)
	assert.Equal(t, OutcomeNotConfigured, answer.Outcome)
	assert.False(t, a.Configured())
}

func TestAskDisabledNeverCallsGenerator(t *testing.T) {
	src := newSource()
	src.cfg.Enabled = false
	gen := &fakeGenerator{reply: "nope"}
	a := New(src, gen, nil)

	answer, err := a.Ask(context.Background(), Question{Query: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DisabledMessage, answer.Text)
	assert.Equal(t, OutcomeDisabled, answer.Outcome)
	assert.Empty(t, gen.requests)
	assert.Equal(t, 0, src.usage)
}

func TestAskSuccessCountsUsageOnce(t *testing.T) {
	src := newSource()
	gen := &fakeGenerator{reply: "### Refund\nDo it"}
	a := New(src, gen, nil)

	answer, err := a.Ask(context.Background(), Question{
		Query:   "how do I refund?",
		History: []Message{{Role: "user", Content: "hello"}, {Role: "assistant", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, answer.Outcome)
	assert.Equal(t, "### Refund\nDo it", answer.Text)
	assert.Contains(t, answer.HTML, "<h3")
	assert.Equal(t, 1, src.usage)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, "how do I refund?", req.Query)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hello"}, {Role: RoleModel, Content: "hi"}}, req.History)
}

func TestAskEmptyReplyUsesFallbackAndCounts(t *testing.T) {
	src := newSource()
	a := New(src, &fakeGenerator{reply: ""}, nil)

	answer, err := a.Ask(context.Background(), Question{Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, EmptyResponseMessage, answer.Text)
	assert.Equal(t, 1, src.usage)
}

func TestAskUpstreamErrorIsLoggedNotCounted(t *testing.T) {
	src := newSource()
	logger, hook := test.NewNullLogger()
	a := New(src, &fakeGenerator{err: errors.New("boom")}, logger)

	answer, err := a.Ask(context.Background(), Question{Query: "x", ConversationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, UpstreamErrorMessage, answer.Text)
	assert.Equal(t, OutcomeUpstreamError, answer.Outcome)
	assert.Equal(t, 0, src.usage)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestAskTeamNarrowsContext(t *testing.T) {
	src := newSource()
	gen := &fakeGenerator{reply: "ok"}
	a := New(src, gen, nil)

	_, err := a.Ask(context.Background(), Question{Query: "x", TeamID: "t2"})
	require.NoError(t, err)
	require.Len(t, gen.requests, 1)
	assert.NotContains(t, gen.requests[0].System, "PROCESS: Process a1")
	assert.Contains(t, gen.requests[0].System, "PROCESS: Process a2")
}

func TestAskSerializesSameConversation(t *testing.T) {
	src := newSource()
	var mu sync.Mutex
	active, peak := 0, 0
	gen := &fakeGenerator{reply: "ok", hook: func() {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}}
	a := New(src, gen, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Ask(context.Background(), Question{Query: "x", ConversationID: "same"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
	assert.Equal(t, 5, src.usage)
	assert.Empty(t, a.tails)
}

func conversationTail(a *Assistant, id string) chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tails[id]
}

// enqueue starts an Ask and returns once the request holds the tail of the
// conversation queue.
func enqueue(t *testing.T, ctx context.Context, a *Assistant, wg *sync.WaitGroup, query string, check func(error)) {
	t.Helper()
	before := conversationTail(a, "same")
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := a.Ask(ctx, Question{Query: query, ConversationID: "same"})
		check(err)
	}()
	require.Eventually(t, func() bool {
		tail := conversationTail(a, "same")
		return tail != nil && tail != before
	}, time.Second, time.Millisecond)
}

func TestAskRunsSameConversationInArrivalOrder(t *testing.T) {
	gate := make(chan struct{})
	gen := &fakeGenerator{reply: "ok", hook: func() { <-gate }}
	a := New(newSource(), gen, nil)
	noError := func(err error) { assert.NoError(t, err) }

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		enqueue(t, context.Background(), a, &wg, fmt.Sprintf("q%d", i), noError)
	}
	close(gate)
	wg.Wait()

	var got []string
	for _, req := range gen.requests {
		got = append(got, req.Query)
	}
	assert.Equal(t, []string{"q0", "q1", "q2", "q3", "q4", "q5"}, got)
	assert.Empty(t, a.tails)
}

func TestAskCancelledWhileQueuedKeepsOrder(t *testing.T) {
	gate := make(chan struct{})
	gen := &fakeGenerator{reply: "ok", hook: func() { <-gate }}
	a := New(newSource(), gen, nil)
	noError := func(err error) { assert.NoError(t, err) }

	var wg sync.WaitGroup
	enqueue(t, context.Background(), a, &wg, "first", noError)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	enqueue(t, ctx, a, &wg, "cancelled", func(err error) { cancelled <- err })
	enqueue(t, context.Background(), a, &wg, "last", noError)

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	close(gate)
	wg.Wait()

	require.Len(t, gen.requests, 2)
	assert.Equal(t, "first", gen.requests[0].Query)
	assert.Equal(t, "last", gen.requests[1].Query)
	require.Eventually(t, func() bool { return conversationTail(a, "same") == nil }, time.Second, time.Millisecond)
}

func TestAssembleFiltersByTeamStatusAndAvailability(t *testing.T) {
	cfg := settings.DefaultAIControlSettings()
	cfg.AllowedTeamIDs = []string{"t1"}

	draft := article("draft", "t1")
	draft.Status = content.StatusDraft
	hidden := article("hidden", "t1")
	hidden.IsAvailableToAI = false
	orphan := article("orphan")

	decision := Assemble(Input{
		Settings: cfg,
		Articles: []content.Article{article("keep", "t1", "t3"), article("other", "t2"), draft, hidden, orphan},
		Teams:    content.DefaultTeams(),
	})
	require.False(t, decision.Refused())
	system := decision.Request.System
	assert.Contains(t, system, "PROCESS: Process keep")
	for _, id := range []string{"other", "draft", "hidden", "orphan"} {
		assert.NotContains(t, system, "PROCESS: Process "+id+"\n")
	}
	assert.True(t, strings.HasSuffix(system, "TEAMS INFO:\nService Champs (ID: t1)\n"), system)
}

func TestAssembleDisabledRefuses(t *testing.T) {
	cfg := settings.DefaultAIControlSettings()
	cfg.Enabled = false
	decision := Assemble(Input{Settings: cfg})
	assert.True(t, decision.Refused())
	assert.Equal(t, DisabledMessage, decision.Refusal)
}

func TestAssembleStrictModeAndTemperature(t *testing.T) {
	cfg := settings.DefaultAIControlSettings()

	cfg.StrictMode = true
	strict := Assemble(Input{Settings: cfg}).Request
	assert.Equal(t, StrictTemperature, strict.Temperature)
	assert.Contains(t, strict.System, "respond EXACTLY with: '> ⚠️ **Unknown Scenario**: This scenario is not documented. Please escalate.'")

	cfg.StrictMode = false
	relaxed := Assemble(Input{Settings: cfg}).Request
	assert.Equal(t, RelaxedTemperature, relaxed.Temperature)
	assert.Contains(t, relaxed.System, "You may use general professional knowledge to bridge gaps")
	assert.NotContains(t, relaxed.System, "STRICT MODE ACTIVE")
}

func TestToneInstruction(t *testing.T) {
	tests := []struct {
		tone settings.Tone
		want string
	}{
		{settings.ToneOperational, "Be operational and professional."},
		{settings.ToneDirect, "Be extremely concise, direct, and short. Do not use filler words."},
		{settings.ToneCoaching, "Adopt a coaching tone, explaining the 'why' behind procedures to help the agent learn."},
		{settings.Tone("unknown"), "Be operational and professional."},
	}
	for _, tt := range tests {
		t.Run(string(tt.tone), func(t *testing.T) {
			assert.Equal(t, tt.want, ToneInstruction(tt.tone))
		})
	}
}

func TestContextBlockCapsRecords(t *testing.T) {
	cfg := settings.DefaultAIControlSettings()
	articles := make([]content.Article, 20)
	for i := range articles {
		articles[i] = article(fmt.Sprintf("n%02d", i), "t1")
	}
	block := ContextBlock(cfg, articles)
	assert.Equal(t, MaxContextArticles, strings.Count(block, "PROCESS: "))
	assert.Contains(t, block, "PROCESS: Process n14\n")
	assert.NotContains(t, block, "PROCESS: Process n15\n")
}

func TestRecordScope(t *testing.T) {
	a := article("a1", "t1")
	a.Attachments = []content.Attachment{{Name: "Form.pdf"}, {Name: "Sheet.xlsx"}}

	full := Record(settings.AIScope{UseShortAnswers: true, UseFullContent: true, UseAttachments: true}, a)
	assert.Equal(t, "PROCESS: Process a1\n"+
		"SUMMARY: Summary a1\n"+
		"TRIGGER: Trigger a1\n"+
		"SHORT ANSWER: Short a1\n"+
		"STEPS:\n1. Check: Look at it\n"+
		"OUTCOMES:\n- Done: Close\n"+
		"TROUBLESHOOTING: N/A\n"+
		"ATTACHMENTS AVAILABLE: Form.pdf, Sheet.xlsx\n"+
		"---\n", full)

	minimal := Record(settings.AIScope{}, a)
	assert.Equal(t, "PROCESS: Process a1\n---\n", minimal)

	short := Record(settings.AIScope{UseShortAnswers: true}, a)
	assert.Equal(t, "PROCESS: Process a1\nSHORT ANSWER: Short a1\n---\n", short)
}

func TestRecordStepFallsBackToResolvedContent(t *testing.T) {
	a := article("a1", "t1")
	a.ProcessSteps = []content.ProcessStep{{Title: "Verify", HTMLContent: "<p>Open the <b>panel</b></p>"}}

	record := Record(settings.AIScope{UseFullContent: true}, a)
	assert.Contains(t, record, "1. Verify: Open the panel")
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleUser, NormalizeRole("user"))
	assert.Equal(t, RoleModel, NormalizeRole("assistant"))
	assert.Equal(t, RoleModel, NormalizeRole(""))
}

func TestContentsOrder(t *testing.T) {
	contents := Contents(Request{
		History: []Message{{Role: RoleUser, Content: "a"}, {Role: RoleModel, Content: "b"}},
		Query:   "c",
	})
	require.Len(t, contents, 3)
	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))
	assert.Equal(t, "c", contents[2].Parts[0].Text)
}
