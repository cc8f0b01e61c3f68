package mindmap

// Placement is a node positioned on a unit grid. Every leaf is one column
// wide and a parent spans all of its children; Depth counts rows from the root.
type Placement struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Depth  int     `json:"depth"`
	Left   int     `json:"left"`
	Span   int     `json:"span"`
	Center float64 `json:"center"`
	Style  Style   `json:"style"`
}

type SegmentKind string

const (
	SegmentStem SegmentKind = "stem"
	SegmentBus  SegmentKind = "bus"
)

// Segment is a connector line in grid coordinates.
type Segment struct {
	Kind  SegmentKind `json:"kind"`
	X1    float64     `json:"x1"`
	Y1    float64     `json:"y1"`
	X2    float64     `json:"x2"`
	Y2    float64     `json:"y2"`
	Color string      `json:"color"`
}

type Layout struct {
	Nodes    []Placement `json:"nodes"`
	Segments []Segment   `json:"segments"`
	Width    int         `json:"width"`
	Depth    int         `json:"depth"`
}

// Arrange lays the tree out top-down with children in slice order from left
// to right. Nodes are emitted in depth-first pre-order.
func Arrange(root Node, article *Style) Layout {
	var out Layout
	out.Width = arrange(root, article, 0, 0, &out)
	return out
}

func arrange(node Node, article *Style, depth, left int, out *Layout) int {
	style := Resolve(node.Style, article)
	index := len(out.Nodes)
	out.Nodes = append(out.Nodes, Placement{ID: node.ID, Label: node.Label, Depth: depth, Left: left, Style: style})
	if depth > out.Depth {
		out.Depth = depth
	}

	if len(node.Children) == 0 {
		out.Nodes[index].Span = 1
		out.Nodes[index].Center = float64(left) + 0.5
		return 1
	}

	span := 0
	centers := make([]float64, 0, len(node.Children))
	for _, child := range node.Children {
		childIndex := len(out.Nodes)
		span += arrange(child, article, depth+1, left+span, out)
		centers = append(centers, out.Nodes[childIndex].Center)
	}

	center := float64(left) + float64(span)/2
	out.Nodes[index].Span = span
	out.Nodes[index].Center = center

	busY := float64(depth) + 0.5
	out.Segments = append(out.Segments, Segment{Kind: SegmentStem, X1: center, Y1: float64(depth), X2: center, Y2: busY, Color: style.LineColor})
	if len(centers) > 1 {
		out.Segments = append(out.Segments, Segment{Kind: SegmentBus, X1: centers[0], Y1: busY, X2: centers[len(centers)-1], Y2: busY, Color: style.LineColor})
	}
	for _, x := range centers {
		out.Segments = append(out.Segments, Segment{Kind: SegmentStem, X1: x, Y1: busY, X2: x, Y2: float64(depth + 1), Color: style.LineColor})
	}
	return span
}
