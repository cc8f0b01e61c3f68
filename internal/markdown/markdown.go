// Package markdown renders the small markdown subset the assistant is asked
// to answer in: level 3 and 4 headings, callout quotes, flat lists, paragraphs
// and **bold** spans. Everything else is treated as paragraph text.
package markdown

import (
	"html"
	"regexp"
	"strings"
)

const (
	WarningMarker = "⚠️"
	SuccessMarker = "✅"
)

var listItemPattern = regexp.MustCompile(`^(- |\d+\.\s)`)

// Render converts text to HTML. Level 3 headings take accentColor when set.
// Consecutive list items, including ones separated by blank lines, share one
// list.
func Render(text, accentColor string) string {
	if text == "" {
		return ""
	}

	var out strings.Builder
	var list []string
	flush := func() {
		if len(list) == 0 {
			return
		}
		out.WriteString(`<ul class="md-list">`)
		for _, item := range list {
			out.WriteString("<li>" + item + "</li>")
		}
		out.WriteString("</ul>")
		list = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "### "):
			flush()
			style := ""
			if accentColor != "" {
				style = ` style="color: ` + html.EscapeString(accentColor) + `"`
			}
			out.WriteString("<h3" + style + ">" + html.EscapeString(strings.TrimPrefix(trimmed, "### ")) + "</h3>")
		case strings.HasPrefix(trimmed, "#### "):
			flush()
			out.WriteString("<h4>" + html.EscapeString(strings.TrimPrefix(trimmed, "#### ")) + "</h4>")
		case strings.HasPrefix(trimmed, "> "):
			flush()
			body := strings.TrimPrefix(trimmed, "> ")
			out.WriteString(`<div class="md-callout md-callout-` + calloutKind(body) + `">` + inline(body) + "</div>")
		case listItemPattern.MatchString(trimmed):
			list = append(list, inline(listItemPattern.ReplaceAllString(trimmed, "")))
		case trimmed != "":
			flush()
			out.WriteString("<p>" + inline(trimmed) + "</p>")
		}
	}
	flush()
	return out.String()
}

func calloutKind(body string) string {
	switch {
	case strings.Contains(body, WarningMarker):
		return "warning"
	case strings.Contains(body, SuccessMarker):
		return "success"
	default:
		return "note"
	}
}

// inline escapes text and turns every odd **-delimited segment bold.
func inline(text string) string {
	parts := strings.Split(text, "**")
	var b strings.Builder
	for i, part := range parts {
		escaped := html.EscapeString(part)
		if i%2 == 1 {
			b.WriteString("<strong>" + escaped + "</strong>")
			continue
		}
		b.WriteString(escaped)
	}
	return b.String()
}
