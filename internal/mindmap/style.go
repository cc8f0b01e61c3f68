package mindmap

import "fmt"

// Style holds the visual overrides for a node or an article-wide default.
// Empty fields fall through to the next layer.
type Style struct {
	NodeBg     string `json:"nodeBg,omitempty"`
	NodeBorder string `json:"nodeBorder,omitempty"`
	NodeRadius string `json:"nodeRadius,omitempty"`
	NodeColor  string `json:"nodeColor,omitempty"`
	LineColor  string `json:"lineColor,omitempty"`
}

type StyleField string

const (
	FieldNodeBg     StyleField = "nodeBg"
	FieldNodeBorder StyleField = "nodeBorder"
	FieldNodeRadius StyleField = "nodeRadius"
	FieldNodeColor  StyleField = "nodeColor"
	FieldLineColor  StyleField = "lineColor"
)

var StyleFields = []StyleField{FieldNodeBg, FieldNodeBorder, FieldNodeRadius, FieldNodeColor, FieldLineColor}

// DefaultStyle is the innermost layer of every merge.
var DefaultStyle = Style{
	NodeBg:     "#ffffff",
	NodeBorder: "#cbd5e1",
	NodeRadius: "0.5rem",
	NodeColor:  "#1e293b",
	LineColor:  "#cbd5e1",
}

// Resolve merges node over article over DefaultStyle, field by field.
func Resolve(node, article *Style) Style {
	merged := DefaultStyle
	merged = overlay(merged, article)
	merged = overlay(merged, node)
	return merged
}

func overlay(base Style, top *Style) Style {
	if top == nil {
		return base
	}
	if top.NodeBg != "" {
		base.NodeBg = top.NodeBg
	}
	if top.NodeBorder != "" {
		base.NodeBorder = top.NodeBorder
	}
	if top.NodeRadius != "" {
		base.NodeRadius = top.NodeRadius
	}
	if top.NodeColor != "" {
		base.NodeColor = top.NodeColor
	}
	if top.LineColor != "" {
		base.LineColor = top.LineColor
	}
	return base
}

// With returns a copy of s with one field replaced. An empty value clears it.
func (s Style) With(field StyleField, value string) (Style, error) {
	switch field {
	case FieldNodeBg:
		s.NodeBg = value
	case FieldNodeBorder:
		s.NodeBorder = value
	case FieldNodeRadius:
		s.NodeRadius = value
	case FieldNodeColor:
		s.NodeColor = value
	case FieldLineColor:
		s.LineColor = value
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return s, nil
}

func (s Style) IsZero() bool {
	return s == Style{}
}
