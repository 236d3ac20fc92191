package domnode

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pagewait/pagewait"
)

// Port is the port backing nodes: element queries plus text and attribute
// reads.
type Port interface {
	pagewait.Port
	pagewait.Inspector
}

// Node is a pagewait.Node backed by a page element. The label is cached
// once read; every other accessor queries the page.
type Node struct {
	kind   Kind
	style  Style
	port   Port
	el     pagewait.Element
	parent *Node
	root   bool

	label  string
	cached bool
}

// New returns a node of the given kind for el.
func New(kind Kind, port pagewait.Port, el pagewait.Element) (*Node, error) {
	s, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("domnode: kind %d is not registered", int(kind))
	}
	p, ok := port.(Port)
	if !ok {
		return nil, fmt.Errorf("domnode: port %T cannot read text and attributes", port)
	}
	if el == nil {
		return nil, fmt.Errorf("domnode: nil element")
	}
	return &Node{kind: kind, style: s, port: p, el: el}, nil
}

// Root waits for the tree container located by loc and returns it as the
// root node of a tree of the given kind. The root is never expandable and
// its children are the items located directly below it. With the Optional
// wait option, Root returns nil and no error when the container does not
// appear.
func Root(ctx context.Context, w *pagewait.Waiter, kind Kind, loc pagewait.Locator, opts ...pagewait.WaitOption) (*Node, error) {
	el, err := w.WaitOne(ctx, loc, opts...)
	if err != nil || el == nil {
		return nil, err
	}
	n, err := New(kind, w.Port(), el)
	if err != nil {
		return nil, err
	}
	n.root = true
	return n, nil
}

// Kind returns the kind of n.
func (n *Node) Kind() Kind { return n.kind }

// Element returns the element backing n.
func (n *Node) Element() pagewait.Element { return n.el }

// Parent satisfies pagewait.Parented.
func (n *Node) Parent() pagewait.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Label satisfies pagewait.Node.
func (n *Node) Label(ctx context.Context) (string, error) {
	if n.cached {
		return n.label, nil
	}
	label, err := n.readLabel(ctx)
	if err != nil {
		return "", fmt.Errorf("domnode: label: %w", err)
	}
	n.label, n.cached = label, true
	return label, nil
}

func (n *Node) readLabel(ctx context.Context) (string, error) {
	if n.style.LabelAttr != "" {
		v, ok, err := n.port.Attribute(ctx, n.el, n.style.LabelAttr)
		if err != nil {
			return "", err
		}
		if ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	el := n.el
	if !n.style.Label.IsZero() {
		els, err := n.port.Children(ctx, n.el, n.style.Label)
		if err != nil {
			return "", err
		}
		if len(els) != 0 {
			el = els[0]
		}
	}
	text, err := n.port.Text(ctx, el)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Displayed satisfies pagewait.Node.
func (n *Node) Displayed(ctx context.Context) (bool, error) {
	return n.port.Displayed(ctx, n.el)
}

func (n *Node) classes(ctx context.Context) ([]string, error) {
	if n.style.ExpandedClass == "" && n.style.CollapsedClass == "" && n.style.ContainerClass == "" {
		return nil, nil
	}
	v, _, err := n.port.Attribute(ctx, n.el, "class")
	if err != nil {
		return nil, err
	}
	return strings.Fields(v), nil
}

func hasClass(classes []string, token string) bool {
	return token != "" && slices.Contains(classes, token)
}

// Expandable satisfies pagewait.Node.
func (n *Node) Expandable(ctx context.Context) (bool, error) {
	if n.root {
		return false, nil
	}
	if a := n.style.PopupAttr; a != "" {
		v, ok, err := n.port.Attribute(ctx, n.el, a)
		if err != nil {
			return false, err
		}
		if ok && v != "false" {
			return true, nil
		}
	}
	if a := n.style.ExpandedAttr; a != "" {
		_, ok, err := n.port.Attribute(ctx, n.el, a)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	classes, err := n.classes(ctx)
	if err != nil {
		return false, err
	}
	return hasClass(classes, n.style.ExpandedClass) || hasClass(classes, n.style.CollapsedClass), nil
}

// Expanded satisfies pagewait.Node.
func (n *Node) Expanded(ctx context.Context) (bool, error) {
	if n.root {
		return false, nil
	}
	if a := n.style.ExpandedAttr; a != "" {
		v, ok, err := n.port.Attribute(ctx, n.el, a)
		if err != nil {
			return false, err
		}
		if ok {
			return v == "true", nil
		}
	}
	if n.style.ExpandedClass == "" {
		return false, nil
	}
	classes, err := n.classes(ctx)
	if err != nil {
		return false, err
	}
	return hasClass(classes, n.style.ExpandedClass), nil
}

// IsContainer satisfies pagewait.Container.
func (n *Node) IsContainer(ctx context.Context) (bool, error) {
	if n.root {
		return true, nil
	}
	if n.style.ContainerClass == "" {
		return n.Expandable(ctx)
	}
	classes, err := n.classes(ctx)
	if err != nil {
		return false, err
	}
	return hasClass(classes, n.style.ContainerClass), nil
}

// Expand satisfies pagewait.Node.
func (n *Node) Expand(ctx context.Context) error {
	return n.toggle(ctx, true)
}

// Collapse satisfies pagewait.Node.
func (n *Node) Collapse(ctx context.Context) error {
	return n.toggle(ctx, false)
}

func (n *Node) toggle(ctx context.Context, expand bool) error {
	ok, err := n.Expandable(ctx)
	if err != nil || !ok {
		return err
	}
	if ok, err = n.Expanded(ctx); err != nil || ok == expand {
		return err
	}
	action := pagewait.Collapse
	if expand {
		action = pagewait.Expand
	}
	target := n.el
	if !n.style.Toggle.IsZero() {
		els, err := n.port.Children(ctx, n.el, n.style.Toggle)
		if err != nil {
			return fmt.Errorf("domnode: %v: %w", action, err)
		}
		if len(els) != 0 {
			target, action = els[0], pagewait.Click
		}
	}
	if err := n.port.Invoke(ctx, target, action); err != nil {
		return fmt.Errorf("domnode: %v: %w", action, err)
	}
	return nil
}

// Children satisfies pagewait.Node. Children of a collapsed node are
// whatever the page still renders, usually nothing.
func (n *Node) Children(ctx context.Context) ([]pagewait.Node, error) {
	groups := []pagewait.Element{n.el}
	if !n.root && !n.style.Group.IsZero() {
		var err error
		if groups, err = n.port.Children(ctx, n.el, n.style.Group); err != nil {
			return nil, fmt.Errorf("domnode: children: %w", err)
		}
	}
	var out []pagewait.Node
	for _, g := range groups {
		els, err := n.port.Children(ctx, g, n.style.Item)
		if err != nil {
			return nil, fmt.Errorf("domnode: children: %w", err)
		}
		for _, el := range els {
			out = append(out, &Node{
				kind:   n.kind,
				style:  n.style,
				port:   n.port,
				el:     el,
				parent: n,
			})
		}
	}
	return out, nil
}

// String satisfies fmt.Stringer.
func (n *Node) String() string {
	if n.cached {
		return fmt.Sprintf("%v %q", n.kind, n.label)
	}
	return fmt.Sprintf("%v %v", n.kind, n.el)
}

var (
	_ pagewait.Node      = (*Node)(nil)
	_ pagewait.Container = (*Node)(nil)
	_ pagewait.Parented  = (*Node)(nil)
)
