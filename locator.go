package pagewait

import "fmt"

// By is the query language of a Locator.
type By int

// Locator query languages.
const (
	// ByCSS selects elements with a CSS selector, like
	// element.querySelectorAll().
	ByCSS By = iota + 1

	// ByXPath selects elements with an XPath expression.
	ByXPath

	// ByID selects a single element by its id attribute.
	ByID
)

// String satisfies fmt.Stringer.
func (b By) String() string {
	switch b {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	case ByID:
		return "id"
	}
	return fmt.Sprintf("By(%d)", int(b))
}

// Element is an opaque handle to a UI element owned by a Port. Handles can
// go stale when the UI re-renders.
type Element interface{}

// Locator is an immutable query descriptor, optionally scoped to a parent
// element. Locators are comparable: two locators with the same descriptor
// and scope are interchangeable.
type Locator struct {
	By    By
	Value string
	// Scope restricts the query to the subtree of an element. A nil Scope
	// queries the whole document.
	Scope Element
}

// CSS returns a document scoped CSS locator.
func CSS(sel string) Locator {
	return Locator{By: ByCSS, Value: sel}
}

// XPath returns a document scoped XPath locator.
func XPath(expr string) Locator {
	return Locator{By: ByXPath, Value: expr}
}

// ID returns a locator matching the element with the given id.
func ID(id string) Locator {
	return Locator{By: ByID, Value: id}
}

// Within returns a copy of l scoped to the subtree of el.
func (l Locator) Within(el Element) Locator {
	l.Scope = el
	return l
}

// IsZero reports whether l was never initialised.
func (l Locator) IsZero() bool {
	return l.By == 0 && l.Value == ""
}

// Validate returns ErrInvalidLocator when l cannot be queried.
func (l Locator) Validate() error {
	if l.By < ByCSS || l.By > ByID || l.Value == "" {
		return fmt.Errorf("%w: %s", ErrInvalidLocator, l)
	}
	return nil
}

// String satisfies fmt.Stringer.
func (l Locator) String() string {
	if l.Scope != nil {
		return fmt.Sprintf("%s(%q) within %v", l.By, l.Value, l.Scope)
	}
	return fmt.Sprintf("%s(%q)", l.By, l.Value)
}
