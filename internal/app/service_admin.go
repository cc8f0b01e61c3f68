package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"

	"sopdesk/api/internal/archive"
	"sopdesk/api/internal/content"
	"sopdesk/api/internal/mindmap"
	"sopdesk/api/internal/settings"
	"sopdesk/api/internal/util"
)

const (
	defaultArchiveLimit = 50
	manualSnapshotLabel = "manual snapshot"
)

// Dashboard summarises the knowledge base for the admin landing page.
func (s *Service) Dashboard(ctx context.Context) (map[string]any, error) {
	articles, err := s.store.Articles(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := s.store.Teams(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.AIStats(ctx)
	if err != nil {
		return nil, err
	}
	ai, err := s.store.AISettings(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"articles": content.Count(articles),
		"teams":    len(teams),
		"aiStats":  stats,
		"assistant": map[string]any{
			"configured": s.assistant != nil && s.assistant.Configured(),
			"enabled":    ai.Enabled,
		},
		"attachmentsEnabled": s.attachments != nil,
		"archiveEnabled":     s.archive != nil,
	}, nil
}

// AdminArticles lists every article regardless of status or visibility,
// optionally narrowed by a title/summary query.
func (s *Service) AdminArticles(ctx context.Context, query string) ([]content.Article, error) {
	articles, err := s.store.Articles(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return articles, nil
	}
	out := make([]content.Article, 0, len(articles))
	for _, article := range articles {
		if strings.Contains(strings.ToLower(article.Title), q) || strings.Contains(strings.ToLower(article.Summary), q) {
			out = append(out, article)
		}
	}
	return out, nil
}

func (s *Service) AdminArticle(ctx context.Context, id string) (content.Article, error) {
	return s.store.Article(ctx, id)
}

// NewArticleDraft is the unsaved skeleton the editor starts from.
func (s *Service) NewArticleDraft() content.Article {
	draft := content.NewArticle()
	root := mindmap.NewRoot()
	draft.MindMap = &root
	return draft
}

// CreateArticle assigns a fresh id, ignoring any id in the input.
func (s *Service) CreateArticle(ctx context.Context, article content.Article) (content.Article, error) {
	articles, err := s.store.Articles(ctx)
	if err != nil {
		return content.Article{}, err
	}
	if err := validateArticle(article); err != nil {
		return content.Article{}, err
	}
	s.warnUnknownTeams(ctx, article)

	now := s.now()
	article.ID = ""
	article.Stamp(now)
	for {
		if _, taken := content.FindArticle(articles, article.ID); !taken {
			break
		}
		article.ID = util.SuffixedID(now, 3)
	}

	if err := s.store.SaveArticles(ctx, content.Upsert(articles, article)); err != nil {
		return content.Article{}, err
	}
	s.log.WithField("article_id", article.ID).Info("article created")
	return article, nil
}

// UpdateArticle replaces the stored article with id.
func (s *Service) UpdateArticle(ctx context.Context, id string, article content.Article) (content.Article, error) {
	articles, err := s.store.Articles(ctx)
	if err != nil {
		return content.Article{}, err
	}
	if _, ok := content.FindArticle(articles, id); !ok {
		return content.Article{}, notFound("Article")
	}
	if err := validateArticle(article); err != nil {
		return content.Article{}, err
	}
	s.warnUnknownTeams(ctx, article)

	article.ID = id
	article.Stamp(s.now())
	if err := s.store.SaveArticles(ctx, content.Upsert(articles, article)); err != nil {
		return content.Article{}, err
	}
	s.log.WithField("article_id", id).Info("article updated")
	return article, nil
}

func (s *Service) DeleteArticle(ctx context.Context, id string) error {
	articles, err := s.store.Articles(ctx)
	if err != nil {
		return err
	}
	remaining, ok := content.Remove(articles, id)
	if !ok {
		return notFound("Article")
	}
	if err := s.store.SaveArticles(ctx, remaining); err != nil {
		return err
	}
	s.log.WithField("article_id", id).Info("article deleted")
	return nil
}

// warnUnknownTeams logs team ids with no matching team. Deleted teams leave
// such references behind and they stay editable.
func (s *Service) warnUnknownTeams(ctx context.Context, article content.Article) {
	teams, err := s.store.Teams(ctx)
	if err != nil {
		s.log.WithError(err).Warn("team lookup failed")
		return
	}
	for _, teamID := range article.TeamIDs {
		if _, ok := content.FindTeam(teams, teamID); !ok {
			s.log.WithFields(logrus.Fields{"article_id": article.ID, "team_id": teamID}).Warn("article references unknown team")
		}
	}
}

func validateArticle(article content.Article) error {
	problems := map[string]string{}
	if strings.TrimSpace(article.Title) == "" {
		problems["title"] = "required"
	}
	if article.Status != "" && !article.Status.Valid() {
		problems["status"] = "must be draft, published or archived"
	}
	for i, attachment := range article.Attachments {
		switch attachment.Type {
		case content.AttachmentPDF, content.AttachmentDOCX, content.AttachmentXLSX, content.AttachmentImage, content.AttachmentLink:
		default:
			problems[fmt.Sprintf("attachments[%d].type", i)] = "must be pdf, docx, xlsx, image or link"
		}
	}
	if article.MindMap != nil {
		if err := mindmap.Validate(*article.MindMap); err != nil {
			problems["mindMap"] = err.Error()
		}
	}
	if len(problems) > 0 {
		return validationError("Article is invalid", problems)
	}
	return nil
}

// MindMapEditInput is one edit against a working copy of a decision tree.
// When Tree is nil the stored tree of ArticleID is used, or a fresh root.
type MindMapEditInput struct {
	ArticleID string         `json:"articleId"`
	Tree      *mindmap.Node  `json:"tree"`
	Style     *mindmap.Style `json:"style"`
	Op        string         `json:"op"`
	NodeID    string         `json:"nodeId"`
	Label     string         `json:"label"`
	Index     int            `json:"index"`
	Field     string         `json:"field"`
	Value     string         `json:"value"`
	// Save writes the result back to ArticleID.
	Save bool `json:"save"`
}

const (
	opRelabel     = "relabel"
	opAddChild    = "add_child"
	opDeleteChild = "delete_child"
	opDeleteNode  = "delete_node"
	opSetStyle    = "set_style"
	opLayout      = "layout"
)

func (s *Service) EditMindMap(ctx context.Context, input MindMapEditInput) (map[string]any, error) {
	var article content.Article
	if input.ArticleID != "" {
		stored, err := s.store.Article(ctx, input.ArticleID)
		if err != nil {
			return nil, err
		}
		article = stored
	}

	tree := mindmap.NewRoot()
	style := input.Style
	switch {
	case input.Tree != nil:
		tree = *input.Tree
	case article.MindMap != nil:
		tree = *article.MindMap
	}
	if style == nil {
		style = article.MindMapStyle
	}
	if err := mindmap.Validate(tree); err != nil {
		return nil, err
	}

	var (
		next    mindmap.Node
		err     error
		addedID string
	)
	switch input.Op {
	case opRelabel:
		next, err = mindmap.Relabel(tree, input.NodeID, input.Label)
	case opAddChild:
		addedID = mindmap.NewNodeID()
		next, err = mindmap.AddChild(tree, input.NodeID, addedID)
	case opDeleteChild:
		next, err = mindmap.DeleteChild(tree, input.NodeID, input.Index)
	case opDeleteNode:
		next, err = mindmap.DeleteNode(tree, input.NodeID)
	case opSetStyle:
		next, err = mindmap.SetStyle(tree, input.NodeID, mindmap.StyleField(input.Field), input.Value)
	case opLayout, "":
		next = tree
	default:
		return nil, validationError("Unknown mind map operation", map[string]string{"op": input.Op})
	}
	if err != nil {
		return nil, err
	}

	if input.Save {
		if input.ArticleID == "" {
			return nil, validationError("articleId is required to save", map[string]string{"articleId": "required"})
		}
		article.MindMap = &next
		article.MindMapStyle = style
		if _, err := s.UpdateArticle(ctx, article.ID, article); err != nil {
			return nil, err
		}
	}

	payload, err := mindMapPayload(next, style)
	if err != nil {
		return nil, err
	}
	if addedID != "" {
		payload["addedId"] = addedID
	}
	payload["nodeCount"] = mindmap.Count(next)
	return payload, nil
}

// CreateTeam assigns "t" plus a timestamp when no id is given.
func (s *Service) CreateTeam(ctx context.Context, team content.Team) (content.Team, error) {
	if err := validateTeam(team); err != nil {
		return content.Team{}, err
	}
	teams, err := s.store.Teams(ctx)
	if err != nil {
		return content.Team{}, err
	}
	if team.ID == "" {
		team.ID = "t" + util.TimestampID(s.now())
	}
	if _, exists := content.FindTeam(teams, team.ID); exists {
		return content.Team{}, domainError(http.StatusConflict, "TEAM_EXISTS", "A team with this id already exists", map[string]string{"id": team.ID})
	}
	if err := s.store.SaveTeams(ctx, content.UpsertTeam(teams, team)); err != nil {
		return content.Team{}, err
	}
	s.log.WithField("team_id", team.ID).Info("team created")
	return team, nil
}

func (s *Service) UpdateTeam(ctx context.Context, id string, team content.Team) (content.Team, error) {
	if err := validateTeam(team); err != nil {
		return content.Team{}, err
	}
	teams, err := s.store.Teams(ctx)
	if err != nil {
		return content.Team{}, err
	}
	if _, ok := content.FindTeam(teams, id); !ok {
		return content.Team{}, notFound("Team")
	}
	team.ID = id
	if err := s.store.SaveTeams(ctx, content.UpsertTeam(teams, team)); err != nil {
		return content.Team{}, err
	}
	return team, nil
}

// DeleteTeam removes the team only. Articles keep the id in teamIds.
func (s *Service) DeleteTeam(ctx context.Context, id string) error {
	teams, err := s.store.Teams(ctx)
	if err != nil {
		return err
	}
	remaining, ok := content.RemoveTeam(teams, id)
	if !ok {
		return notFound("Team")
	}
	if err := s.store.SaveTeams(ctx, remaining); err != nil {
		return err
	}
	s.log.WithField("team_id", id).Info("team deleted")
	return nil
}

func validateTeam(team content.Team) error {
	if strings.TrimSpace(team.Name) == "" {
		return validationError("Team is invalid", map[string]string{"name": "required"})
	}
	return nil
}

func (s *Service) AppSettings(ctx context.Context) (settings.AppSettings, error) {
	return s.store.Settings(ctx)
}

// UpdateAppSettings applies the fields present in layer over the stored settings.
func (s *Service) UpdateAppSettings(ctx context.Context, layer settings.AppSettingsLayer) (settings.AppSettings, error) {
	current, err := s.store.Settings(ctx)
	if err != nil {
		return settings.AppSettings{}, err
	}
	next := layer.Apply(current)
	if problems := next.Validate(); problems != nil {
		return settings.AppSettings{}, validationError("Settings are invalid", problems)
	}
	if err := s.store.SaveSettings(ctx, next); err != nil {
		return settings.AppSettings{}, err
	}
	return next, nil
}

func (s *Service) AISettings(ctx context.Context) (settings.AIControlSettings, error) {
	return s.store.AISettings(ctx)
}

func (s *Service) UpdateAISettings(ctx context.Context, layer settings.AIControlSettingsLayer) (settings.AIControlSettings, error) {
	current, err := s.store.AISettings(ctx)
	if err != nil {
		return settings.AIControlSettings{}, err
	}
	next := layer.Apply(current)
	if problems := next.Validate(); problems != nil {
		return settings.AIControlSettings{}, validationError("AI settings are invalid", problems)
	}
	if err := s.store.SaveAISettings(ctx, next); err != nil {
		return settings.AIControlSettings{}, err
	}
	s.log.WithFields(logrus.Fields{
		"enabled":     next.Enabled,
		"strict_mode": next.StrictMode,
		"tone":        next.Tone,
	}).Info("ai settings updated")
	return next, nil
}

func (s *Service) ChangePassword(ctx context.Context, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return validationError("New password is required", map[string]string{"newPassword": "required"})
	}
	if err := s.auth.ChangePassword(ctx, newPassword); err != nil {
		return err
	}
	s.log.Info("admin password changed")
	return nil
}

func (s *Service) RecoveryEmail(ctx context.Context) (string, error) {
	return s.store.RecoveryEmail(ctx)
}

// SetRecoveryEmail stores a normalised address. An empty value clears it.
func (s *Service) SetRecoveryEmail(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return "", validationError("Recovery email is invalid", map[string]string{"email": "must be an email address"})
		}
		email = addr.Address
	}
	if err := s.store.SetRecoveryEmail(ctx, email); err != nil {
		return "", err
	}
	return email, nil
}

// UploadAttachment stores a file and, when articleID is set, appends the
// attachment to that article.
func (s *Service) UploadAttachment(ctx context.Context, articleID, name string, r io.Reader, size int64, contentType string) (content.Attachment, error) {
	if s.attachments == nil {
		return content.Attachment{}, domainError(http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachment storage is not configured", nil)
	}
	if articleID != "" {
		if _, err := s.store.Article(ctx, articleID); err != nil {
			return content.Attachment{}, err
		}
	}
	attachment, err := s.attachments.Upload(ctx, name, r, size, contentType)
	if err != nil {
		return content.Attachment{}, err
	}
	if articleID == "" {
		return attachment, nil
	}

	articles, err := s.store.Articles(ctx)
	if err != nil {
		return content.Attachment{}, err
	}
	article, ok := content.FindArticle(articles, articleID)
	if !ok {
		return content.Attachment{}, notFound("Article")
	}
	article.Attachments = append(article.Attachments, attachment)
	article.Stamp(s.now())
	if err := s.store.SaveArticles(ctx, content.Upsert(articles, article)); err != nil {
		return content.Attachment{}, err
	}
	s.log.WithFields(logrus.Fields{"article_id": articleID, "attachment_id": attachment.ID}).Info("attachment added")
	return attachment, nil
}

// DeleteAttachment removes the stored file and every article reference to it.
func (s *Service) DeleteAttachment(ctx context.Context, id, name string) ([]string, error) {
	if s.attachments == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachment storage is not configured", nil)
	}
	if err := s.attachments.Delete(ctx, id, name); err != nil {
		return nil, err
	}
	articles, err := s.store.Articles(ctx)
	if err != nil {
		return nil, err
	}
	updated := make([]string, 0)
	now := s.now()
	for i, article := range articles {
		kept := make([]content.Attachment, 0, len(article.Attachments))
		for _, attachment := range article.Attachments {
			if attachment.ID != id {
				kept = append(kept, attachment)
			}
		}
		if len(kept) == len(article.Attachments) {
			continue
		}
		article.Attachments = kept
		article.Stamp(now)
		articles[i] = article
		updated = append(updated, article.ID)
	}
	if len(updated) > 0 {
		if err := s.store.SaveArticles(ctx, articles); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func (s *Service) requireArchive() error {
	if s.archive == nil {
		return domainError(http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "Store archive is not configured", nil)
	}
	return nil
}

func (s *Service) ArchiveHistory(limit int) ([]archive.Commit, error) {
	if err := s.requireArchive(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultArchiveLimit
	}
	return s.archive.History(limit)
}

// SnapshotArchive commits the current store contents. created is false when
// nothing changed since the previous snapshot.
func (s *Service) SnapshotArchive(ctx context.Context, message string) (archive.Commit, bool, error) {
	if err := s.requireArchive(); err != nil {
		return archive.Commit{}, false, err
	}
	entries, err := s.store.Snapshot(ctx)
	if err != nil {
		return archive.Commit{}, false, err
	}
	if strings.TrimSpace(message) == "" {
		message = manualSnapshotLabel
	}
	commit, created, err := s.archive.Snapshot(entries, message)
	if err != nil {
		return archive.Commit{}, false, err
	}
	if created {
		s.log.WithField("commit", commit.Hash).Info("store archived")
	}
	return commit, created, nil
}

func (s *Service) ArchiveEntries(hash string) (map[string]json.RawMessage, error) {
	if err := s.requireArchive(); err != nil {
		return nil, err
	}
	entries, err := s.archive.Entries(hash)
	if err != nil {
		if errors.Is(err, archive.ErrUnknownSnapshot) {
			return nil, notFound("Snapshot")
		}
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(entries))
	for key, value := range entries {
		out[key] = json.RawMessage(value)
	}
	return out, nil
}
