package export

import (
	"context"
	"fmt"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/settings"
)

// ArticleSource defines the store reads an export needs
type ArticleSource interface {
	Article(ctx context.Context, id string) (content.Article, error)
	Teams(ctx context.Context) ([]content.Team, error)
	Settings(ctx context.Context) (settings.AppSettings, error)
}

type converter func(ctx context.Context, html, title string) (*Result, error)

// Service provides article export functionality
type Service struct {
	source ArticleSource
	pdf    converter
	docx   converter
}

// NewService creates a new export service
func NewService(source ArticleSource) *Service {
	return &Service{source: source, pdf: exportPDF, docx: exportDOCX}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	if !req.Format.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	article, err := s.source.Article(ctx, req.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if !req.AllowDrafts && (article.Status != content.StatusPublished || !article.IsVisibleToAgents) {
		return nil, ErrNotExportable
	}
	teams, err := s.source.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("get teams: %w", err)
	}
	app, err := s.source.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	data, err := BuildTemplateData(article, teams, app)
	if err != nil {
		return nil, fmt.Errorf("build template data: %w", err)
	}
	html, err := RenderArticleHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return s.pdf(ctx, html, article.Title)
	case FormatDOCX:
		return s.docx(ctx, html, article.Title)
	default:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(article.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	}
}
