package pagewait

import "context"

// Node is a node of a lazily expanding UI tree: a tree view item, a folder
// of a content navigator, an entry of a cascading menu.
//
// The resolution engine consumes nodes only through this interface. Labels
// may be cached by an implementation once read; every other accessor must
// query the live UI on each call, since content can become expandable, or
// gain children, only after it rendered.
//
// Trees are assumed finite and acyclic. They are rendered UI, not arbitrary
// graphs, and no traversal in this package detects cycles.
type Node interface {
	// Label returns the human readable label used in paths.
	Label(ctx context.Context) (string, error)

	// Displayed reports whether the node is currently visible.
	Displayed(ctx context.Context) (bool, error)

	// Expandable reports whether the node can be expanded.
	Expandable(ctx context.Context) (bool, error)

	// Expanded reports whether the node is currently expanded.
	Expanded(ctx context.Context) (bool, error)

	// Expand expands the node. Expanding an expanded node does nothing.
	Expand(ctx context.Context) error

	// Collapse collapses the node. Collapsing a collapsed node does nothing.
	Collapse(ctx context.Context) error

	// Children returns the current child nodes, in display order.
	Children(ctx context.Context) ([]Node, error)
}

// Container is implemented by nodes that distinguish containers from
// leaves by something other than Expandable, for instance an empty folder
// that can never be expanded.
type Container interface {
	IsContainer(ctx context.Context) (bool, error)
}

// Parented is implemented by nodes that know their parent. The parent is a
// back-reference only: it is never owned through it.
type Parented interface {
	Parent() Node
}

// IsContainer classifies n as a container, falling back to Expandable for
// nodes not implementing Container.
func IsContainer(ctx context.Context, n Node) (bool, error) {
	if c, ok := n.(Container); ok {
		return c.IsContainer(ctx)
	}
	return n.Expandable(ctx)
}

// ensureExpanded expands n when it is expandable and not yet expanded.
func ensureExpanded(ctx context.Context, n Node) error {
	ok, err := n.Expandable(ctx)
	if err != nil || !ok {
		return err
	}
	if ok, err = n.Expanded(ctx); err != nil || ok {
		return err
	}
	return n.Expand(ctx)
}

// PathOf returns the path of n from the topmost ancestor reachable through
// Parented, excluding that ancestor. It returns an empty path for nodes
// that do not implement Parented or have no parent.
func PathOf(ctx context.Context, n Node) (Path, error) {
	var p Path
	for {
		pn, ok := n.(Parented)
		if !ok || pn.Parent() == nil {
			break
		}
		label, err := n.Label(ctx)
		if err != nil {
			return nil, err
		}
		p = append(p, label)
		n = pn.Parent()
	}
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
	return p, nil
}
