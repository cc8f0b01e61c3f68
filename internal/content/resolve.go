package content

import "strings"

type ContentKind string

const (
	KindHTML   ContentKind = "html"
	KindBlocks ContentKind = "blocks"
	KindText   ContentKind = "text"
)

// StepContent is the display form of a step. HTML is set for the html and
// blocks kinds; Text is set for the text kind.
type StepContent struct {
	Kind ContentKind `json:"kind"`
	HTML string      `json:"html,omitempty"`
	Text string      `json:"text,omitempty"`
}

// ResolveStep picks htmlContent, then contentBlocks, then description. Any
// non-empty htmlContent wins, whitespace included.
func ResolveStep(step ProcessStep) StepContent {
	if step.HTMLContent != "" {
		return StepContent{Kind: KindHTML, HTML: step.HTMLContent}
	}
	if len(step.ContentBlocks) > 0 {
		return StepContent{Kind: KindBlocks, HTML: RenderBlocksHTML(step.ContentBlocks)}
	}
	return StepContent{Kind: KindText, Text: step.Description}
}

// PlainText returns the resolved content without markup.
func (c StepContent) PlainText() string {
	if c.Kind == KindText {
		return c.Text
	}
	return HTMLPlainText(c.HTML)
}

// StepPlainText is the plain description of a step, falling back to its rich
// content when the description is empty.
func StepPlainText(step ProcessStep) string {
	if strings.TrimSpace(step.Description) != "" {
		return step.Description
	}
	if strings.TrimSpace(step.HTMLContent) != "" {
		return HTMLPlainText(step.HTMLContent)
	}
	if len(step.ContentBlocks) > 0 {
		return BlocksPlainText(step.ContentBlocks)
	}
	return ""
}
