// Package content holds the knowledge-base data model: teams, articles and
// the rich content that makes up each process step.
package content

import (
	"time"

	"sopdesk/api/internal/mindmap"
	"sopdesk/api/internal/util"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type Team struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	IconName    string `json:"iconName"`
	Description string `json:"description,omitempty"`
}

type AttachmentType string

const (
	AttachmentPDF   AttachmentType = "pdf"
	AttachmentDOCX  AttachmentType = "docx"
	AttachmentXLSX  AttachmentType = "xlsx"
	AttachmentImage AttachmentType = "image"
	AttachmentLink  AttachmentType = "link"
)

type Attachment struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Type AttachmentType `json:"type"`
	URL  string         `json:"url"`
}

type ProcessStep struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ImageURL      string `json:"imageUrl,omitempty"`
	ContentBlocks Blocks `json:"contentBlocks,omitempty"`
	HTMLContent   string `json:"htmlContent,omitempty"`
}

type Outcome struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

type Article struct {
	ID                string         `json:"id"`
	TeamIDs           []string       `json:"teamIds"`
	Title             string         `json:"title"`
	Summary           string         `json:"summary"`
	Trigger           string         `json:"trigger"`
	ShortAnswer       string         `json:"shortAnswer"`
	ProcessSteps      []ProcessStep  `json:"processSteps"`
	Outcomes          []Outcome      `json:"outcomes"`
	ProcessOwner      string         `json:"processOwner,omitempty"`
	Troubleshooting   string         `json:"troubleshooting,omitempty"`
	MindMap           *mindmap.Node  `json:"mindMap,omitempty"`
	MindMapStyle      *mindmap.Style `json:"mindMapStyle,omitempty"`
	Attachments       []Attachment   `json:"attachments"`
	IsVisibleToAgents bool           `json:"isVisibleToAgents"`
	IsAvailableToAI   bool           `json:"isAvailableToAi"`
	Status            Status         `json:"status"`
	LastUpdated       int64          `json:"lastUpdated"`
}

// NewArticle returns the empty skeleton the admin editor starts from. The id
// stays empty until the first save.
func NewArticle() Article {
	return Article{
		TeamIDs:           []string{},
		ProcessSteps:      []ProcessStep{},
		Outcomes:          []Outcome{},
		Attachments:       []Attachment{},
		IsVisibleToAgents: true,
		IsAvailableToAI:   true,
		Status:            StatusDraft,
	}
}

// Stamp assigns an id on first save and refreshes LastUpdated.
func (a *Article) Stamp(now time.Time) {
	if a.ID == "" {
		a.ID = util.TimestampID(now)
	}
	a.LastUpdated = now.UnixMilli()
	if a.TeamIDs == nil {
		a.TeamIDs = []string{}
	}
	if a.ProcessSteps == nil {
		a.ProcessSteps = []ProcessStep{}
	}
	if a.Outcomes == nil {
		a.Outcomes = []Outcome{}
	}
	if a.Attachments == nil {
		a.Attachments = []Attachment{}
	}
	if a.Status == "" {
		a.Status = StatusDraft
	}
}

func (a Article) HasTeam(teamID string) bool {
	for _, id := range a.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// Upsert replaces the article with the same id or appends it.
func Upsert(articles []Article, article Article) []Article {
	out := make([]Article, 0, len(articles)+1)
	replaced := false
	for _, existing := range articles {
		if existing.ID == article.ID {
			out = append(out, article)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, article)
	}
	return out
}

// Remove drops the article with the given id. Missing ids are a no-op.
func Remove(articles []Article, id string) ([]Article, bool) {
	out := make([]Article, 0, len(articles))
	removed := false
	for _, existing := range articles {
		if existing.ID == id {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	return out, removed
}

func UpsertTeam(teams []Team, team Team) []Team {
	out := make([]Team, 0, len(teams)+1)
	replaced := false
	for _, existing := range teams {
		if existing.ID == team.ID {
			out = append(out, team)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, team)
	}
	return out
}

// RemoveTeam drops a team. Articles keep their references to it.
func RemoveTeam(teams []Team, id string) ([]Team, bool) {
	out := make([]Team, 0, len(teams))
	removed := false
	for _, existing := range teams {
		if existing.ID == id {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	return out, removed
}

func FindArticle(articles []Article, id string) (Article, bool) {
	for _, article := range articles {
		if article.ID == id {
			return article, true
		}
	}
	return Article{}, false
}

func FindTeam(teams []Team, id string) (Team, bool) {
	for _, team := range teams {
		if team.ID == id {
			return team, true
		}
	}
	return Team{}, false
}
