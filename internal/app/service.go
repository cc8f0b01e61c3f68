package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sopdesk/api/internal/archive"
	"sopdesk/api/internal/assistant"
	"sopdesk/api/internal/auth"
	"sopdesk/api/internal/authpw"
	"sopdesk/api/internal/content"
	"sopdesk/api/internal/export"
	"sopdesk/api/internal/mindmap"
	"sopdesk/api/internal/rbac"
	"sopdesk/api/internal/settings"
	"sopdesk/api/internal/storage"
)

// Session is the caller identity resolved from a bearer token. Requests
// without a token are anonymous agents.
type Session struct {
	Token     string
	TokenID   string
	Role      rbac.Role
	ExpiresAt time.Time
}

func (s Session) IsAdmin() bool {
	return s.Role == rbac.RoleAdmin
}

// KnowledgeStore is the typed key-value store behind every operation.
type KnowledgeStore interface {
	Ping(ctx context.Context) error
	Teams(ctx context.Context) ([]content.Team, error)
	SaveTeams(ctx context.Context, teams []content.Team) error
	Articles(ctx context.Context) ([]content.Article, error)
	SaveArticles(ctx context.Context, articles []content.Article) error
	Article(ctx context.Context, id string) (content.Article, error)
	Settings(ctx context.Context) (settings.AppSettings, error)
	SaveSettings(ctx context.Context, value settings.AppSettings) error
	AISettings(ctx context.Context) (settings.AIControlSettings, error)
	SaveAISettings(ctx context.Context, value settings.AIControlSettings) error
	AIStats(ctx context.Context) (settings.AIStats, error)
	Theme(ctx context.Context) (settings.Theme, error)
	SaveTheme(ctx context.Context, theme settings.Theme) error
	RecoveryEmail(ctx context.Context) (string, error)
	SetRecoveryEmail(ctx context.Context, email string) error
	Snapshot(ctx context.Context) (map[string][]byte, error)
}

type Authenticator interface {
	SignIn(ctx context.Context, password string) (*authpw.SignInResponse, error)
	Authenticate(ctx context.Context, token string) (auth.Claims, error)
	SignOut(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, newPassword string) error
	RequestPasswordReset(ctx context.Context) (*authpw.ResetRequest, error)
	ResetPassword(ctx context.Context, code, newPassword string) error
}

type Asker interface {
	Ask(ctx context.Context, q assistant.Question) (assistant.Answer, error)
	Configured() bool
}

type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type AttachmentStore interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (content.Attachment, error)
	Delete(ctx context.Context, id, name string) error
}

type Archiver interface {
	Snapshot(entries map[string][]byte, message string) (archive.Commit, bool, error)
	History(limit int) ([]archive.Commit, error)
	Entries(hash string) (map[string][]byte, error)
}

// Dependencies wires the service. Attachments and Archive are optional.
type Dependencies struct {
	Store       KnowledgeStore
	Auth        Authenticator
	Assistant   Asker
	Exporter    Exporter
	Attachments AttachmentStore
	Archive     Archiver
	Log         logrus.FieldLogger
	Now         func() time.Time
}

type Service struct {
	store       KnowledgeStore
	auth        Authenticator
	assistant   Asker
	exporter    Exporter
	attachments AttachmentStore
	archive     Archiver
	log         logrus.FieldLogger
	now         func() time.Time
}

func New(deps Dependencies) *Service {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		store:       deps.Store,
		auth:        deps.Auth,
		assistant:   deps.Assistant,
		exporter:    deps.Exporter,
		attachments: deps.Attachments,
		archive:     deps.Archive,
		log:         deps.Log,
		now:         deps.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Can(session Session, action rbac.Action) bool {
	return rbac.Can(session.Role, action)
}

// SessionFromToken resolves a bearer token. An empty token is an agent.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{Role: rbac.RoleAgent}, nil
	}
	claims, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return Session{}, err
	}
	session := Session{Token: token, TokenID: claims.ID, Role: rbac.Normalize(claims.Role)}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func (s *Service) Login(ctx context.Context, password string) (*authpw.SignInResponse, error) {
	resp, err := s.auth.SignIn(ctx, password)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return nil, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid password", nil)
		}
		return nil, err
	}
	s.log.Info("admin signed in")
	return resp, nil
}

func (s *Service) Logout(ctx context.Context, session Session) error {
	if session.Token == "" {
		return nil
	}
	return s.auth.SignOut(ctx, session.Token)
}

func (s *Service) RequestPasswordReset(ctx context.Context) (*authpw.ResetRequest, error) {
	resp, err := s.auth.RequestPasswordReset(ctx)
	if err != nil {
		switch {
		case errors.Is(err, authpw.ErrNoRecoveryEmail):
			return nil, domainError(http.StatusConflict, "NO_RECOVERY_EMAIL", "No recovery email is configured", nil)
		case errors.Is(err, authpw.ErrMailNotConfigured):
			return nil, domainError(http.StatusServiceUnavailable, "MAIL_NOT_CONFIGURED", "Password reset needs a mail server", nil)
		}
		return nil, err
	}
	return resp, nil
}

func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	err := s.auth.ResetPassword(ctx, code, newPassword)
	switch {
	case errors.Is(err, authpw.ErrEmptyPassword):
		return validationError("New password is required", map[string]string{"newPassword": "required"})
	case errors.Is(err, authpw.ErrInvalidResetToken):
		return domainError(http.StatusBadRequest, "INVALID_RESET_CODE", "Invalid or expired reset code", nil)
	}
	return err
}

// Bootstrap is everything the client needs to draw its first screen.
func (s *Service) Bootstrap(ctx context.Context) (map[string]any, error) {
	app, err := s.store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	ai, err := s.store.AISettings(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := s.store.Teams(ctx)
	if err != nil {
		return nil, err
	}
	theme, err := s.store.Theme(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"settings": app,
		"teams":    teams,
		"theme":    theme,
		"assistant": map[string]any{
			"configured":  s.assistant != nil && s.assistant.Configured(),
			"enabled":     ai.Enabled,
			"accentColor": ai.AIAccentColor,
		},
	}, nil
}

func (s *Service) Teams(ctx context.Context) ([]content.Team, error) {
	return s.store.Teams(ctx)
}

// BrowseArticles applies the agent filter. The status filter is honoured for
// admins only; agent sessions always list published articles, matching what
// ArticleDetail lets them open.
func (s *Service) BrowseArticles(ctx context.Context, session Session, filter content.Filter) (map[string]any, error) {
	if filter.Status != "" && filter.Status != content.StatusAll && !content.Status(filter.Status).Valid() {
		return nil, validationError("Unknown status filter", map[string]string{"status": filter.Status})
	}
	if !session.IsAdmin() {
		filter.Status = string(content.StatusPublished)
	}
	articles, err := s.store.Articles(ctx)
	if err != nil {
		return nil, err
	}
	matched := content.FilterArticles(articles, filter)
	return map[string]any{
		"articles": matched,
		"total":    len(matched),
	}, nil
}

// ArticleDetail returns an article with its steps resolved for display and
// its decision tree laid out. Agents only see published, visible articles.
func (s *Service) ArticleDetail(ctx context.Context, session Session, id string) (map[string]any, error) {
	article, err := s.store.Article(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsAdmin() && (article.Status != content.StatusPublished || !article.IsVisibleToAgents) {
		return nil, storage.ErrNotFound
	}
	teams, err := s.store.Teams(ctx)
	if err != nil {
		return nil, err
	}

	steps := make([]content.StepContent, 0, len(article.ProcessSteps))
	for _, step := range article.ProcessSteps {
		steps = append(steps, content.ResolveStep(step))
	}
	articleTeams := make([]content.Team, 0, len(article.TeamIDs))
	for _, teamID := range article.TeamIDs {
		if team, ok := content.FindTeam(teams, teamID); ok {
			articleTeams = append(articleTeams, team)
		}
	}

	payload := map[string]any{
		"article": article,
		"steps":   steps,
		"teams":   articleTeams,
	}
	if article.MindMap != nil {
		tree, err := mindMapPayload(*article.MindMap, article.MindMapStyle)
		if err != nil {
			return nil, err
		}
		payload["mindMap"] = tree
	}
	return payload, nil
}

func (s *Service) Export(ctx context.Context, session Session, id string, format export.Format) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	if !format.Valid() {
		return nil, validationError("Format must be html, pdf or docx", map[string]string{"format": string(format)})
	}
	return s.exporter.Export(ctx, export.Request{
		ArticleID:   id,
		Format:      format,
		AllowDrafts: session.IsAdmin(),
	})
}

func (s *Service) Ask(ctx context.Context, q assistant.Question) (assistant.Answer, error) {
	if strings.TrimSpace(q.Query) == "" {
		return assistant.Answer{}, validationError("Query is required", map[string]string{"query": "required"})
	}
	if s.assistant == nil {
		return assistant.Answer{Text: assistant.NotConfiguredMessage, Outcome: assistant.OutcomeNotConfigured}, nil
	}
	answer, err := s.assistant.Ask(ctx, q)
	if err != nil {
		return assistant.Answer{}, err
	}
	s.log.WithFields(logrus.Fields{
		"outcome":         answer.Outcome,
		"conversation_id": q.ConversationID,
	}).Debug("assistant answered")
	return answer, nil
}

func (s *Service) Theme(ctx context.Context) (settings.Theme, error) {
	return s.store.Theme(ctx)
}

func (s *Service) SetTheme(ctx context.Context, theme settings.Theme) (settings.Theme, error) {
	if !theme.Valid() {
		return "", validationError("Theme must be light or dark", map[string]string{"theme": string(theme)})
	}
	if err := s.store.SaveTheme(ctx, theme); err != nil {
		return "", err
	}
	return theme, nil
}

func mindMapPayload(tree mindmap.Node, style *mindmap.Style) (map[string]any, error) {
	html, err := mindmap.RenderHTML(tree, style)
	if err != nil {
		return nil, fmt.Errorf("render mind map: %w", err)
	}
	return map[string]any{
		"tree":   tree,
		"layout": mindmap.Arrange(tree, style),
		"html":   html,
	}, nil
}
