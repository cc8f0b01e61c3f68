package content

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var calloutBorder = map[CalloutType]string{
	CalloutWarning: "#f59e0b",
	CalloutTip:     "#10b981",
	CalloutNote:    "#3b82f6",
}

// RenderBlocksHTML renders blocks in order. Block text is escaped.
func RenderBlocksHTML(blocks Blocks) string {
	var b strings.Builder
	for _, block := range blocks {
		b.WriteString(renderBlock(block))
	}
	return b.String()
}

func renderBlock(block Block) string {
	switch v := block.(type) {
	case TextBlock:
		return "<p>" + html.EscapeString(v.Content) + "</p>"
	case ListBlock:
		tag := "ul"
		if v.ListType == ListNumber {
			tag = "ol"
		}
		var items strings.Builder
		for _, item := range v.Items {
			items.WriteString("<li>" + html.EscapeString(item) + "</li>")
		}
		return "<" + tag + ">" + items.String() + "</" + tag + ">"
	case CalloutBlock:
		border, ok := calloutBorder[v.CalloutType]
		if !ok {
			border = calloutBorder[CalloutNote]
		}
		return fmt.Sprintf(`<div class="callout callout-%s" style="border-left: 4px solid %s; padding: 10px; background: #f8fafc;"><strong>%s:</strong> %s</div>`,
			html.EscapeString(string(v.CalloutType)), border, html.EscapeString(strings.ToUpper(string(v.CalloutType))), html.EscapeString(v.Content))
	case ImageBlock:
		if v.URL == "" {
			return ""
		}
		figure := `<figure><img src="` + html.EscapeString(v.URL) + `" alt="` + html.EscapeString(v.Caption) + `">`
		if v.Caption != "" {
			figure += "<figcaption>" + html.EscapeString(v.Caption) + "</figcaption>"
		}
		return figure + "</figure>"
	default:
		panic(fmt.Sprintf("content: unhandled block %T", block))
	}
}

// BlocksPlainText flattens blocks to text, one line per paragraph or item.
func BlocksPlainText(blocks Blocks) string {
	lines := make([]string, 0, len(blocks))
	for _, block := range blocks {
		switch v := block.(type) {
		case TextBlock:
			lines = append(lines, v.Content)
		case ListBlock:
			for i, item := range v.Items {
				if v.ListType == ListNumber {
					lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
				} else {
					lines = append(lines, "- "+item)
				}
			}
		case CalloutBlock:
			lines = append(lines, strings.ToUpper(string(v.CalloutType))+": "+v.Content)
		case ImageBlock:
			if v.Caption != "" {
				lines = append(lines, v.Caption)
			}
		default:
			panic(fmt.Sprintf("content: unhandled block %T", block))
		}
	}
	return strings.Join(lines, "\n")
}

var (
	blockTagPattern = regexp.MustCompile(`(?i)</?(p|div|li|ul|ol|h[1-6]|br)[^>]*>`)
	anyTagPattern   = regexp.MustCompile(`<[^>]*>`)
	blankRunPattern = regexp.MustCompile(`\n\s*\n+`)
)

// HTMLPlainText strips markup from editor HTML, keeping block boundaries as
// line breaks.
func HTMLPlainText(markup string) string {
	text := blockTagPattern.ReplaceAllString(markup, "\n")
	text = anyTagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = blankRunPattern.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
