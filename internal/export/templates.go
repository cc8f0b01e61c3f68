package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/mindmap"
	"sopdesk/api/internal/settings"
)

//go:embed templates/*.html
var templateFS embed.FS

var articleTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"upper": strings.ToUpper,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/article.html")
	if err != nil {
		articleTemplate = template.Must(template.New("article").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}
	articleTemplate = template.Must(template.New("article").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for article template rendering
type TemplateData struct {
	AppName         string
	PrimaryColor    string
	FontFamily      string
	TextColor       string
	Title           string
	Status          string
	Teams           []string
	Summary         string
	Trigger         string
	ShortAnswer     string
	ProcessOwner    string
	Steps           []TemplateStep
	Outcomes        []content.Outcome
	Troubleshooting string
	MindMapHTML     template.HTML
	Attachments     []content.Attachment
	UpdatedAt       time.Time
}

type TemplateStep struct {
	Number   int
	Title    string
	ImageURL string
	Body     template.HTML
}

// BuildTemplateData flattens an article into template data. Step bodies use
// the resolved rich content; plain descriptions are escaped.
func BuildTemplateData(article content.Article, teams []content.Team, app settings.AppSettings) (TemplateData, error) {
	data := TemplateData{
		AppName:         app.AppName,
		PrimaryColor:    app.PrimaryColor,
		FontFamily:      app.ContentStyle.FontFamily,
		TextColor:       app.ContentStyle.TextColor,
		Title:           article.Title,
		Status:          string(article.Status),
		Summary:         article.Summary,
		Trigger:         article.Trigger,
		ShortAnswer:     article.ShortAnswer,
		ProcessOwner:    article.ProcessOwner,
		Outcomes:        article.Outcomes,
		Troubleshooting: article.Troubleshooting,
		Attachments:     article.Attachments,
		UpdatedAt:       time.UnixMilli(article.LastUpdated).UTC(),
	}
	for _, id := range article.TeamIDs {
		if team, ok := content.FindTeam(teams, id); ok {
			data.Teams = append(data.Teams, team.Name)
		}
	}
	for i, step := range article.ProcessSteps {
		data.Steps = append(data.Steps, TemplateStep{
			Number:   i + 1,
			Title:    step.Title,
			ImageURL: step.ImageURL,
			Body:     stepBody(content.ResolveStep(step)),
		})
	}
	if article.MindMap != nil {
		tree, err := mindmap.RenderHTML(*article.MindMap, article.MindMapStyle)
		if err != nil {
			return TemplateData{}, err
		}
		data.MindMapHTML = template.HTML(tree)
	}
	return data, nil
}

func stepBody(c content.StepContent) template.HTML {
	if c.Kind == content.KindText {
		if strings.TrimSpace(c.Text) == "" {
			return ""
		}
		escaped := template.HTMLEscapeString(c.Text)
		return template.HTML("<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>")
	}
	return template.HTML(c.HTML)
}

// RenderArticleHTML renders the article template with provided data
func RenderArticleHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := articleTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>{{.Summary}}</p>
  {{range .Steps}}<h3>{{.Number}}. {{.Title}}</h3><div>{{.Body}}</div>{{end}}
</body>
</html>`
