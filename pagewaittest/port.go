package pagewaittest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pagewait/pagewait"
)

// Elem is an element of the in-memory document served by Port.
//
// Locators match an Elem by tag rather than by real selector syntax: a CSS
// or XPath locator matches every Elem carrying its value as a tag, an ID
// locator matches on the id. A ":scope > " prefix restricts the match to
// direct children of the scope.
type Elem struct {
	mu sync.Mutex

	id       string
	tags     []string
	text     string
	attrs    map[string]string
	hidden   bool
	parent   *Elem
	children []*Elem
	detached bool

	failClicks   int
	clicks       int
	scriptClicks int
	onClick      func(*Elem)
	onFailed     func(*Elem)
}

// E returns a new Elem with the given id and tags.
func E(id string, tags ...string) *Elem {
	return &Elem{id: id, tags: tags, attrs: make(map[string]string)}
}

// Append adds children to e and returns e.
func (e *Elem) Append(children ...*Elem) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range children {
		c.mu.Lock()
		c.parent = e
		c.detached = false
		c.mu.Unlock()
		e.children = append(e.children, c)
	}
	return e
}

// Remove detaches e and everything below it from the document. Handles to
// detached elements are stale.
func (e *Elem) Remove() {
	e.mu.Lock()
	p := e.parent
	e.parent = nil
	e.mu.Unlock()
	if p != nil {
		p.mu.Lock()
		for i, c := range p.children {
			if c == e {
				p.children = append(p.children[:i:i], p.children[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
	}
	e.markDetached()
}

func (e *Elem) markDetached() {
	e.mu.Lock()
	e.detached = true
	kids := append([]*Elem(nil), e.children...)
	e.mu.Unlock()
	for _, c := range kids {
		c.markDetached()
	}
}

// SetText sets the text of e.
func (e *Elem) SetText(s string) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = s
	return e
}

// SetAttr sets an attribute of e.
func (e *Elem) SetAttr(name, value string) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
	return e
}

// DelAttr removes an attribute of e.
func (e *Elem) DelAttr(name string) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.attrs, name)
	return e
}

// SetHidden sets whether e is hidden. Hidden elements hide their
// descendants.
func (e *Elem) SetHidden(v bool) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = v
	return e
}

// FailClicks makes the next n native clicks on e fail with
// pagewait.ErrStaleReference.
func (e *Elem) FailClicks(n int) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failClicks = n
	return e
}

// OnClick sets a func run on every successful click of e, native or
// scripted.
func (e *Elem) OnClick(fn func(*Elem)) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClick = fn
	return e
}

// OnFailedClick sets a func run after a native click failed, such as a
// re-render detaching e.
func (e *Elem) OnFailedClick(fn func(*Elem)) *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFailed = fn
	return e
}

// Clicks returns the number of successful native and script clicks on e.
func (e *Elem) Clicks() (native, script int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks, e.scriptClicks
}

// Attr returns an attribute of e, for assertions.
func (e *Elem) Attr(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs[name]
}

// String satisfies fmt.Stringer.
func (e *Elem) String() string {
	return "#" + e.id
}

func (e *Elem) matches(loc pagewait.Locator, value string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if loc.By == pagewait.ByID {
		return e.id == value
	}
	for _, t := range e.tags {
		if t == value {
			return true
		}
	}
	return false
}

func (e *Elem) snapshot() ([]*Elem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Elem(nil), e.children...), e.detached
}

// Port is an in-memory pagewait.Port and pagewait.Inspector over a tree of
// Elem.
type Port struct {
	root *Elem

	mu      sync.Mutex
	queries int
	actions []string
}

// NewPort returns a Port serving the document below root. The root itself
// is never matched.
func NewPort(root *Elem) *Port {
	return &Port{root: root}
}

// Root returns the document root.
func (p *Port) Root() *Elem {
	return p.root
}

// Queries returns the number of Query and Children calls so far.
func (p *Port) Queries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

// Actions returns the actions invoked so far, as "action #id".
func (p *Port) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

func elem(el pagewait.Element) (*Elem, error) {
	e, ok := el.(*Elem)
	if !ok || e == nil {
		return nil, fmt.Errorf("pagewaittest: foreign element %T", el)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return nil, fmt.Errorf("pagewaittest: %s: %w", e, pagewait.ErrStaleReference)
	}
	return e, nil
}

// Query satisfies pagewait.Port.
func (p *Port) Query(ctx context.Context, loc pagewait.Locator) ([]pagewait.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.queries++
	p.mu.Unlock()

	scope := p.root
	if loc.Scope != nil {
		var err error
		if scope, err = elem(loc.Scope); err != nil {
			return nil, err
		}
	}
	value, direct := strings.CutPrefix(loc.Value, ":scope > ")
	var out []pagewait.Element
	var visit func(*Elem)
	visit = func(e *Elem) {
		kids, _ := e.snapshot()
		for _, c := range kids {
			if c.matches(loc, value) {
				out = append(out, c)
			}
			if !direct {
				visit(c)
			}
		}
	}
	visit(scope)
	return out, nil
}

// Displayed satisfies pagewait.Port.
func (p *Port) Displayed(_ context.Context, el pagewait.Element) (bool, error) {
	e, err := elem(el)
	if err != nil {
		return false, err
	}
	for ; e != nil; e = e.parentOf() {
		e.mu.Lock()
		hidden := e.hidden
		e.mu.Unlock()
		if hidden {
			return false, nil
		}
	}
	return true, nil
}

func (e *Elem) parentOf() *Elem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent
}

// Children satisfies pagewait.Port.
func (p *Port) Children(ctx context.Context, el pagewait.Element, child pagewait.Locator) ([]pagewait.Element, error) {
	return p.Query(ctx, child.Within(el))
}

// Invoke satisfies pagewait.Port. Expand and Collapse set the
// aria-expanded attribute.
func (p *Port) Invoke(_ context.Context, el pagewait.Element, action pagewait.Action) error {
	e, err := elem(el)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.actions = append(p.actions, action.String()+" "+e.String())
	p.mu.Unlock()

	e.mu.Lock()
	var fn func(*Elem)
	switch action {
	case pagewait.Click:
		if e.failClicks > 0 {
			e.failClicks--
			failed := e.onFailed
			e.mu.Unlock()
			if failed != nil {
				failed(e)
			}
			return fmt.Errorf("pagewaittest: click %s: %w", e, pagewait.ErrStaleReference)
		}
		e.clicks++
		fn = e.onClick
	case pagewait.ScriptClick:
		e.scriptClicks++
		fn = e.onClick
	case pagewait.Expand:
		e.attrs["aria-expanded"] = "true"
	case pagewait.Collapse:
		e.attrs["aria-expanded"] = "false"
	default:
		e.mu.Unlock()
		return fmt.Errorf("pagewaittest: %v: %w", action, pagewait.ErrUnsupportedAction)
	}
	e.mu.Unlock()
	if fn != nil {
		fn(e)
	}
	return nil
}

// Text satisfies pagewait.Inspector.
func (p *Port) Text(_ context.Context, el pagewait.Element) (string, error) {
	e, err := elem(el)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, nil
}

// Attribute satisfies pagewait.Inspector.
func (p *Port) Attribute(_ context.Context, el pagewait.Element, name string) (string, bool, error) {
	e, err := elem(el)
	if err != nil {
		return "", false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok, nil
}

var (
	_ pagewait.Port      = (*Port)(nil)
	_ pagewait.Inspector = (*Port)(nil)
	_ pagewait.Node      = (*Node)(nil)
	_ pagewait.Container = (*Node)(nil)
	_ pagewait.Parented  = (*Node)(nil)
	_ pagewait.Clock     = (*Clock)(nil)
)
