package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/markdown"
	"sopdesk/api/internal/settings"
)

// Generator produces a reply for an assembled request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Source supplies the live store contents the assistant reads on every call.
type Source interface {
	AISettings(ctx context.Context) (settings.AIControlSettings, error)
	Articles(ctx context.Context) ([]content.Article, error)
	Teams(ctx context.Context) ([]content.Team, error)
	IncrementAIUsage(ctx context.Context) (settings.AIStats, error)
}

type Outcome string

const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeNotConfigured Outcome = "not_configured"
	OutcomeDisabled      Outcome = "disabled"
	OutcomeUpstreamError Outcome = "upstream_error"
)

type Question struct {
	Query          string    `json:"query"`
	History        []Message `json:"history"`
	ConversationID string    `json:"conversationId,omitempty"`
	TeamID         string    `json:"teamId,omitempty"`
}

type Answer struct {
	Text    string  `json:"text"`
	HTML    string  `json:"html"`
	Outcome Outcome `json:"outcome"`
}

type Assistant struct {
	source    Source
	generator Generator
	log       logrus.FieldLogger

	mu sync.Mutex
	// tails holds the done channel of the last queued request per
	// conversation.
	tails map[string]chan struct{}
}

// New builds an assistant. A nil generator means no API key is configured.
func New(source Source, generator Generator, log logrus.FieldLogger) *Assistant {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Assistant{
		source:    source,
		generator: generator,
		log:       log,
		tails:     make(map[string]chan struct{}),
	}
}

func (a *Assistant) Configured() bool {
	return a.generator != nil
}

// Ask answers one question. Generation failures become fixed replies; only
// store read failures are returned as errors.
func (a *Assistant) Ask(ctx context.Context, q Question) (Answer, error) {
	if a.generator == nil {
		return a.reply(NotConfiguredMessage, OutcomeNotConfigured, ""), nil
	}

	leave, err := a.enterConversation(ctx, q.ConversationID)
	if err != nil {
		return Answer{}, fmt.Errorf("wait for conversation: %w", err)
	}
	defer leave()

	cfg, err := a.source.AISettings(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("load ai settings: %w", err)
	}
	if !cfg.Enabled {
		return a.reply(DisabledMessage, OutcomeDisabled, cfg.AIAccentColor), nil
	}
	articles, err := a.source.Articles(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("load articles: %w", err)
	}
	teams, err := a.source.Teams(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("load teams: %w", err)
	}
	if teamID := strings.TrimSpace(q.TeamID); teamID != "" {
		articles = forTeam(articles, teamID)
	}

	decision := Assemble(Input{
		Settings: cfg,
		Articles: articles,
		Teams:    teams,
		History:  q.History,
		Query:    q.Query,
	})
	if decision.Refused() {
		return a.reply(decision.Refusal, OutcomeDisabled, cfg.AIAccentColor), nil
	}

	text, err := a.generator.Generate(ctx, decision.Request)
	if err != nil {
		a.log.WithError(err).WithField("conversation_id", q.ConversationID).Error("assistant generation failed")
		return a.reply(UpstreamErrorMessage, OutcomeUpstreamError, cfg.AIAccentColor), nil
	}
	if _, err := a.source.IncrementAIUsage(ctx); err != nil {
		a.log.WithError(err).Warn("record ai usage")
	}
	if strings.TrimSpace(text) == "" {
		text = EmptyResponseMessage
	}
	return a.reply(text, OutcomeAnswered, cfg.AIAccentColor), nil
}

func (a *Assistant) reply(text string, outcome Outcome, accent string) Answer {
	if accent == "" {
		accent = settings.DefaultAIControlSettings().AIAccentColor
	}
	return Answer{Text: text, HTML: markdown.Render(text, accent), Outcome: outcome}
}

// enterConversation queues the request behind earlier ones with the same
// conversation id and returns once they have all finished. Requests run in
// arrival order. Requests without an id are not queued.
func (a *Assistant) enterConversation(ctx context.Context, id string) (func(), error) {
	if id == "" {
		return func() {}, nil
	}
	done := make(chan struct{})
	a.mu.Lock()
	prev := a.tails[id]
	a.tails[id] = done
	a.mu.Unlock()

	leave := func() {
		a.mu.Lock()
		if a.tails[id] == done {
			delete(a.tails, id)
		}
		a.mu.Unlock()
		close(done)
	}
	if prev == nil {
		return leave, nil
	}
	select {
	case <-prev:
		return leave, nil
	case <-ctx.Done():
		// Keep the slot until the predecessor finishes so later requests
		// still wait for it.
		go func() {
			<-prev
			leave()
		}()
		return nil, ctx.Err()
	}
}

func forTeam(articles []content.Article, teamID string) []content.Article {
	out := make([]content.Article, 0, len(articles))
	for _, article := range articles {
		if article.HasTeam(teamID) {
			out = append(out, article)
		}
	}
	return out
}
