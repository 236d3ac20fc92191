package pagewaittest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pagewait/pagewait"
)

// Node is an in-memory pagewait.Node. Children of an expandable node are
// only reported while it is expanded, like a tree view that renders items
// lazily.
type Node struct {
	mu sync.Mutex

	label      string
	hidden     bool
	expandable bool
	expanded   bool
	container  *bool
	parent     *Node
	children   []*Node
	stale      int

	expandCalls   int
	expands       int
	collapseCalls int
	collapses     int
	childrenCalls int
	labelCalls    int
}

// Folder returns an expandable, collapsed node holding children.
func Folder(label string, children ...*Node) *Node {
	n := &Node{label: label, expandable: true}
	for _, c := range children {
		n.Add(c)
	}
	return n
}

// Leaf returns a node that cannot be expanded.
func Leaf(label string) *Node {
	return &Node{label: label}
}

// Add appends c to the children of n.
func (n *Node) Add(c *Node) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	c.mu.Lock()
	c.parent = n
	c.mu.Unlock()
	n.children = append(n.children, c)
	return n
}

// Remove detaches c from the children of n.
func (n *Node) Remove(c *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, k := range n.children {
		if k == c {
			n.children = append(n.children[:i:i], n.children[i+1:]...)
			return
		}
	}
}

// Hide makes n report itself as not displayed.
func (n *Node) Hide() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hidden = true
	return n
}

// Show makes n report itself as displayed.
func (n *Node) Show() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hidden = false
	return n
}

// SetExpandable changes whether n can be expanded.
func (n *Node) SetExpandable(v bool) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expandable = v
	return n
}

// SetContainer makes n implement its container classification explicitly
// instead of deriving it from Expandable.
func (n *Node) SetContainer(v bool) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.container = &v
	return n
}

// Open marks n as already expanded, without counting an expansion.
func (n *Node) Open() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expanded = true
	return n
}

// GoStale makes the next count calls to Label or Children fail with
// pagewait.ErrStaleReference.
func (n *Node) GoStale(count int) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stale = count
	return n
}

func (n *Node) takeStale() error {
	if n.stale > 0 {
		n.stale--
		return fmt.Errorf("node %q: %w", n.label, pagewait.ErrStaleReference)
	}
	return nil
}

// Label satisfies pagewait.Node.
func (n *Node) Label(context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.labelCalls++
	if err := n.takeStale(); err != nil {
		return "", err
	}
	return n.label, nil
}

// Displayed satisfies pagewait.Node.
func (n *Node) Displayed(context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.hidden, nil
}

// Expandable satisfies pagewait.Node.
func (n *Node) Expandable(context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.expandable, nil
}

// Expanded satisfies pagewait.Node.
func (n *Node) Expanded(context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.expanded, nil
}

// Expand satisfies pagewait.Node.
func (n *Node) Expand(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expandCalls++
	if n.expandable && !n.expanded {
		n.expanded = true
		n.expands++
	}
	return nil
}

// Collapse satisfies pagewait.Node.
func (n *Node) Collapse(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.collapseCalls++
	if n.expanded {
		n.expanded = false
		n.collapses++
	}
	return nil
}

// Children satisfies pagewait.Node.
func (n *Node) Children(context.Context) ([]pagewait.Node, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.childrenCalls++
	if err := n.takeStale(); err != nil {
		return nil, err
	}
	if n.expandable && !n.expanded {
		return nil, nil
	}
	kids := make([]pagewait.Node, len(n.children))
	for i, c := range n.children {
		kids[i] = c
	}
	return kids, nil
}

// IsContainer satisfies pagewait.Container.
func (n *Node) IsContainer(context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.container != nil {
		return *n.container, nil
	}
	return n.expandable, nil
}

// Parent satisfies pagewait.Parented.
func (n *Node) Parent() pagewait.Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Child returns the direct child of n labeled label, or nil.
func (n *Node) Child(label string) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.children {
		if c.label == label {
			return c
		}
	}
	return nil
}

// Stats counts the calls made on a Node.
type Stats struct {
	ExpandCalls   int
	Expands       int
	CollapseCalls int
	Collapses     int
	ChildrenCalls int
	LabelCalls    int
}

// Stats returns the call counters of n.
func (n *Node) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Stats{
		ExpandCalls:   n.expandCalls,
		Expands:       n.expands,
		CollapseCalls: n.collapseCalls,
		Collapses:     n.collapses,
		ChildrenCalls: n.childrenCalls,
		LabelCalls:    n.labelCalls,
	}
}

// IsExpanded reports whether n is expanded, for assertions.
func (n *Node) IsExpanded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.expanded
}

// Walk calls fn for n and every node below it, expanded or not, parents
// first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	n.mu.Lock()
	kids := append([]*Node(nil), n.children...)
	n.mu.Unlock()
	for _, c := range kids {
		c.Walk(fn)
	}
}

// String satisfies fmt.Stringer.
func (n *Node) String() string {
	return n.label
}
