// Package domnode provides pagewait.Node implementations for trees rendered
// in a page: ARIA tree views, class-toggled folder lists and cascading
// menus. Nodes are backed by any pagewait.Port that also implements
// pagewait.Inspector.
//
// The variant of a node is a Kind, whose Style tells how to find children
// and labels and how the expanded state is exposed. Styles are registered
// up front, so the variant is picked at run time without reflection:
//
//	root, err := domnode.Root(ctx, w, domnode.TreeItem, pagewait.CSS("#nav"))
//	if err != nil {
//		// handle error
//	}
//	n, err := w.Resolve(ctx, root, "Reports/Daily.*")
package domnode

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/pagewait/pagewait"
)

// Kind is a registered node variant.
type Kind int

// Built-in kinds.
const (
	// TreeItem is an ARIA tree view item whose children live in a
	// role=group element and whose state is aria-expanded.
	TreeItem Kind = iota + 1

	// Folder is a list based folder whose state is toggled through the
	// expanded and collapsed classes by clicking its label.
	Folder

	// Menu is a cascading menu entry opening a submenu popup.
	Menu
)

// Style describes how a node variant is rendered.
//
// Locators are relative to the node element and are usually scoped with
// ":scope > ". The expandable and expanded state is derived, in order, from
// PopupAttr, ExpandedAttr and the ExpandedClass and CollapsedClass class
// tokens, whichever are set.
type Style struct {
	// Name is the name of the kind, as accepted by ParseKind.
	Name string

	// Group locates the elements holding the children. When zero the
	// children are located directly below the node.
	Group pagewait.Locator

	// Item locates the children, relative to each group.
	Item pagewait.Locator

	// LabelAttr names an attribute holding the label.
	LabelAttr string

	// Label locates the element holding the label text. When zero, or when
	// it matches nothing, the text of the node element is used.
	Label pagewait.Locator

	// Toggle locates the element clicked to expand or collapse the node.
	// When zero the node element receives the Expand and Collapse actions.
	Toggle pagewait.Locator

	// ExpandedAttr names an attribute set to "true" or "false" on
	// expandable nodes.
	ExpandedAttr string

	// ExpandedClass and CollapsedClass are class tokens carried by
	// expandable nodes.
	ExpandedClass  string
	CollapsedClass string

	// PopupAttr names an attribute marking nodes that open a popup, such
	// as aria-haspopup. A value of "false" does not count.
	PopupAttr string

	// ContainerClass is a class token marking containers. When empty,
	// exactly the expandable nodes are containers.
	ContainerClass string
}

// Validate checks that s can locate children.
func (s Style) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("domnode: style has no name")
	}
	if err := s.Item.Validate(); err != nil {
		return fmt.Errorf("domnode: style %s: item: %w", s.Name, err)
	}
	if !s.Group.IsZero() {
		if err := s.Group.Validate(); err != nil {
			return fmt.Errorf("domnode: style %s: group: %w", s.Name, err)
		}
	}
	return nil
}

var (
	mu     sync.RWMutex
	styles = map[Kind]Style{
		TreeItem: {
			Name:         "treeitem",
			Group:        pagewait.CSS(":scope > [role=group]"),
			Item:         pagewait.CSS(":scope > [role=treeitem]"),
			LabelAttr:    "aria-label",
			Label:        pagewait.CSS(":scope > [role=presentation]"),
			ExpandedAttr: "aria-expanded",
		},
		Folder: {
			Name:           "folder",
			Group:          pagewait.CSS(":scope > ul"),
			Item:           pagewait.CSS(":scope > li"),
			Label:          pagewait.CSS(":scope > span"),
			Toggle:         pagewait.CSS(":scope > span"),
			ExpandedClass:  "expanded",
			CollapsedClass: "collapsed",
			ContainerClass: "folder",
		},
		Menu: {
			Name:         "menu",
			Group:        pagewait.CSS(":scope > [role=menu]"),
			Item:         pagewait.CSS(":scope > [role=menuitem]"),
			LabelAttr:    "aria-label",
			ExpandedAttr: "aria-expanded",
			PopupAttr:    "aria-haspopup",
		},
	}
)

// Register registers or replaces the style of kind. Applications register
// their own kinds at init time, using values above the built-in ones.
func Register(kind Kind, s Style) error {
	if err := s.Validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	for k, other := range styles {
		if k != kind && strings.EqualFold(other.Name, s.Name) {
			return fmt.Errorf("domnode: style name %q already used by kind %d", s.Name, k)
		}
	}
	styles[kind] = s
	return nil
}

// Lookup returns the style of kind.
func Lookup(kind Kind) (Style, bool) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := styles[kind]
	return s, ok
}

// Kinds returns the registered kinds in ascending order.
func Kinds() []Kind {
	mu.RLock()
	defer mu.RUnlock()
	kinds := maps.Keys(styles)
	slices.Sort(kinds)
	return kinds
}

// ParseKind returns the kind registered under name, ignoring case.
func ParseKind(name string) (Kind, error) {
	var names []string
	for _, k := range Kinds() {
		s, _ := Lookup(k)
		if strings.EqualFold(s.Name, name) {
			return k, nil
		}
		names = append(names, s.Name)
	}
	return 0, fmt.Errorf("domnode: unknown kind %q, want one of %s", name, strings.Join(names, ", "))
}

// String satisfies fmt.Stringer.
func (k Kind) String() string {
	if s, ok := Lookup(k); ok {
		return s.Name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}
