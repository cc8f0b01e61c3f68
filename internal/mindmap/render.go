package mindmap

import (
	"bytes"
	"html/template"
)

var treeTemplate = template.Must(template.New("tree").Parse(`{{define "node"}}<div class="mm-node" data-node-id="{{.ID}}">` +
	`<div class="mm-label" style="background:{{.Style.NodeBg}};border:2px solid {{.Style.NodeBorder}};border-radius:{{.Style.NodeRadius}};color:{{.Style.NodeColor}}">{{.Label}}</div>` +
	`{{if .Children}}<div class="mm-stem" style="border-left:2px solid {{.Style.LineColor}}"></div>` +
	`<div class="mm-children{{if .Bus}} mm-bus{{end}}"{{if .Bus}} style="border-top:2px solid {{.Style.LineColor}}"{{end}}>` +
	`{{range .Children}}<div class="mm-branch">{{template "node" .}}</div>{{end}}</div>{{end}}</div>{{end}}` +
	`<div class="mm-tree">{{template "node" .}}</div>`))

type nodeView struct {
	ID       string
	Label    string
	Style    Style
	Bus      bool
	Children []nodeView
}

func buildView(node Node, article *Style) nodeView {
	view := nodeView{
		ID:    node.ID,
		Label: node.Label,
		Style: Resolve(node.Style, article),
		Bus:   len(node.Children) > 1,
	}
	for _, child := range node.Children {
		view.Children = append(view.Children, buildView(child, article))
	}
	return view
}

// RenderHTML renders the tree as nested blocks with merged inline styles.
func RenderHTML(root Node, article *Style) (string, error) {
	var buf bytes.Buffer
	if err := treeTemplate.Execute(&buf, buildView(root, article)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
