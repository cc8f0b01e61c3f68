package mindmap

import "fmt"

// The edit functions never mutate their input. Each returns a new root in
// which only the nodes on the path to the edited node are copied.

func Relabel(root Node, id, label string) (Node, error) {
	return update(root, id, func(n Node) (Node, error) {
		n.Label = label
		return n, nil
	})
}

// AddChild appends a child with the default label to the node with parentID.
// childID must not already exist in the tree.
func AddChild(root Node, parentID, childID string) (Node, error) {
	if childID == "" {
		return root, ErrEmptyNodeID
	}
	if _, exists := Find(root, childID); exists {
		return root, fmt.Errorf("%w: %s", ErrDuplicateID, childID)
	}
	return update(root, parentID, func(n Node) (Node, error) {
		children := make([]Node, len(n.Children), len(n.Children)+1)
		copy(children, n.Children)
		n.Children = append(children, Node{ID: childID, Label: NewNodeLabel})
		return n, nil
	})
}

// DeleteChild removes the child at index from the node with parentID. The
// root is never anyone's child, so it cannot be removed this way.
func DeleteChild(root Node, parentID string, index int) (Node, error) {
	return update(root, parentID, func(n Node) (Node, error) {
		if index < 0 || index >= len(n.Children) {
			return n, fmt.Errorf("%w: %d", ErrChildIndex, index)
		}
		children := make([]Node, 0, len(n.Children)-1)
		children = append(children, n.Children[:index]...)
		children = append(children, n.Children[index+1:]...)
		if len(children) == 0 {
			children = nil
		}
		n.Children = children
		return n, nil
	})
}

// DeleteNode removes the node with id and its subtree.
func DeleteNode(root Node, id string) (Node, error) {
	if root.ID == id {
		return root, ErrRootDelete
	}
	parentID, index, ok := parentOf(root, id)
	if !ok {
		return root, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return DeleteChild(root, parentID, index)
}

// SetStyle sets one style field on a single node. Descendants are untouched.
func SetStyle(root Node, id string, field StyleField, value string) (Node, error) {
	return update(root, id, func(n Node) (Node, error) {
		var current Style
		if n.Style != nil {
			current = *n.Style
		}
		next, err := current.With(field, value)
		if err != nil {
			return n, err
		}
		if next.IsZero() {
			n.Style = nil
		} else {
			n.Style = &next
		}
		return n, nil
	})
}

func update(node Node, id string, fn func(Node) (Node, error)) (Node, error) {
	next, found, err := updateNode(node, id, fn)
	if err != nil {
		return node, err
	}
	if !found {
		return node, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return next, nil
}

func updateNode(node Node, id string, fn func(Node) (Node, error)) (Node, bool, error) {
	if node.ID == id {
		next, err := fn(node)
		return next, true, err
	}
	for i, child := range node.Children {
		replaced, found, err := updateNode(child, id, fn)
		if err != nil {
			return node, true, err
		}
		if !found {
			continue
		}
		children := make([]Node, len(node.Children))
		copy(children, node.Children)
		children[i] = replaced
		node.Children = children
		return node, true, nil
	}
	return node, false, nil
}

func parentOf(node Node, id string) (string, int, bool) {
	for i, child := range node.Children {
		if child.ID == id {
			return node.ID, i, true
		}
		if parentID, index, ok := parentOf(child, id); ok {
			return parentID, index, true
		}
	}
	return "", 0, false
}
