// Package mindmap implements the decision tree attached to an article: an
// ordered, recursively nested label tree with per-node style overrides.
package mindmap

import (
	"errors"
	"fmt"
	"time"

	"sopdesk/api/internal/util"
)

const (
	RootID       = "root"
	RootLabel    = "Start Decision"
	NewNodeLabel = "New Decision"
)

var (
	ErrNodeNotFound = errors.New("mindmap: node not found")
	ErrRootDelete   = errors.New("mindmap: root node cannot be deleted")
	ErrChildIndex   = errors.New("mindmap: child index out of range")
	ErrDuplicateID  = errors.New("mindmap: duplicate node id")
	ErrUnknownField = errors.New("mindmap: unknown style field")
	ErrEmptyNodeID  = errors.New("mindmap: node id is required")
)

// Node is one decision in the tree. Each child is owned by exactly one parent.
type Node struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Children []Node `json:"children,omitempty"`
	Style    *Style `json:"style,omitempty"`
}

func NewRoot() Node {
	return Node{ID: RootID, Label: RootLabel}
}

// NewNodeID returns a millisecond timestamp with a short random suffix.
func NewNodeID() string {
	return util.SuffixedID(time.Now(), 3)
}

// Find returns the node with the given id.
func Find(root Node, id string) (Node, bool) {
	if root.ID == id {
		return root, true
	}
	for _, child := range root.Children {
		if found, ok := Find(child, id); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Count returns the number of nodes in the tree.
func Count(root Node) int {
	total := 1
	for _, child := range root.Children {
		total += Count(child)
	}
	return total
}

// Validate rejects trees that reuse an id anywhere, which is the only way a
// stored tree could alias a child under two parents.
func Validate(root Node) error {
	seen := make(map[string]struct{})
	return validate(root, seen)
}

func validate(node Node, seen map[string]struct{}) error {
	if node.ID == "" {
		return ErrEmptyNodeID
	}
	if _, ok := seen[node.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, node.ID)
	}
	seen[node.ID] = struct{}{}
	for _, child := range node.Children {
		if err := validate(child, seen); err != nil {
			return err
		}
	}
	return nil
}
