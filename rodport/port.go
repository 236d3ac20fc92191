// Package rodport implements pagewait.Port over go-rod.
//
// Elements are *rod.Element values. The context passed to each call bounds
// the underlying rod call.
package rodport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"

	"github.com/pagewait/pagewait"
)

// DefaultActionTimeout bounds a native click, which rod delays until the
// element is interactable.
const DefaultActionTimeout = 5 * time.Second

// Port is a pagewait.Port and pagewait.Inspector over a rod page.
type Port struct {
	page          *rod.Page
	actionTimeout time.Duration
}

// Option is a Port option.
type Option = func(*Port)

// WithActionTimeout sets the time a native click may wait for its element
// to become interactable.
func WithActionTimeout(d time.Duration) Option {
	return func(p *Port) {
		if d > 0 {
			p.actionTimeout = d
		}
	}
}

// New creates a Port querying page.
func New(page *rod.Page, opts ...Option) *Port {
	p := &Port{
		page:          page,
		actionTimeout: DefaultActionTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Page returns the page the port queries.
func (p *Port) Page() *rod.Page {
	return p.page
}

func element(el pagewait.Element) (*rod.Element, error) {
	e, ok := el.(*rod.Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("rodport: element is %T, not *rod.Element", el)
	}
	return e, nil
}

// connected reports a stale reference for elements no longer attached to
// the document. rod keeps detached elements alive as remote objects, so
// they must be checked explicitly.
func connected(ctx context.Context, el *rod.Element) error {
	res, err := el.Context(ctx).Eval(`() => this.isConnected`)
	if err != nil {
		return wrap("connected", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("rodport: element detached: %w", pagewait.ErrStaleReference)
	}
	return nil
}

// Query satisfies pagewait.Port.
func (p *Port) Query(ctx context.Context, loc pagewait.Locator) ([]pagewait.Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	sel := loc.Value
	if loc.By == pagewait.ByID {
		sel = "#" + strings.TrimPrefix(sel, "#")
	}

	var (
		els rod.Elements
		err error
	)
	if loc.Scope != nil {
		scope, serr := element(loc.Scope)
		if serr != nil {
			return nil, serr
		}
		if serr = connected(ctx, scope); serr != nil {
			return nil, serr
		}
		scope = scope.Context(ctx)
		if loc.By == pagewait.ByXPath {
			els, err = scope.ElementsX(sel)
		} else {
			els, err = scope.Elements(sel)
		}
	} else {
		page := p.page.Context(ctx)
		if loc.By == pagewait.ByXPath {
			els, err = page.ElementsX(sel)
		} else {
			els, err = page.Elements(sel)
		}
	}
	if err != nil {
		return nil, wrap("query "+loc.String(), err)
	}
	out := make([]pagewait.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

// Displayed satisfies pagewait.Port.
func (p *Port) Displayed(ctx context.Context, el pagewait.Element) (bool, error) {
	e, err := element(el)
	if err != nil {
		return false, err
	}
	ok, err := e.Context(ctx).Visible()
	if err != nil {
		return false, wrap("displayed", err)
	}
	return ok, nil
}

// Children satisfies pagewait.Port.
func (p *Port) Children(ctx context.Context, el pagewait.Element, child pagewait.Locator) ([]pagewait.Element, error) {
	return p.Query(ctx, child.Within(el))
}

// Invoke satisfies pagewait.Port. Expand and Collapse are delivered as
// native clicks, so callers check the current state first.
func (p *Port) Invoke(ctx context.Context, el pagewait.Element, action pagewait.Action) error {
	e, err := element(el)
	if err != nil {
		return err
	}
	if err := connected(ctx, e); err != nil {
		return err
	}
	switch action {
	case pagewait.Click, pagewait.Expand, pagewait.Collapse:
		actx, cancel := context.WithTimeout(ctx, p.actionTimeout)
		defer cancel()
		err = e.Context(actx).Click(proto.InputMouseButtonLeft, 1)
	case pagewait.ScriptClick:
		_, err = e.Context(ctx).Eval(`() => this.click()`)
	default:
		return fmt.Errorf("rodport: %v: %w", action, pagewait.ErrUnsupportedAction)
	}
	if err != nil {
		return wrap(action.String(), err)
	}
	return nil
}

// Text satisfies pagewait.Inspector.
func (p *Port) Text(ctx context.Context, el pagewait.Element) (string, error) {
	e, err := element(el)
	if err != nil {
		return "", err
	}
	s, err := e.Context(ctx).Text()
	if err != nil {
		return "", wrap("text", err)
	}
	return s, nil
}

// Attribute satisfies pagewait.Inspector.
func (p *Port) Attribute(ctx context.Context, el pagewait.Element, name string) (string, bool, error) {
	e, err := element(el)
	if err != nil {
		return "", false, err
	}
	v, err := e.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, wrap("attribute "+name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// staleMessages are the protocol error messages reported for objects that
// no longer belong to the live document.
var staleMessages = []string{
	"Cannot find context with specified id",
	"Could not find object with given id",
	"Could not find node with given id",
	"No node with given id found",
	"Node is detached from document",
}

func isStale(err error) bool {
	if errors.Is(err, &rod.ObjectNotFoundError{}) {
		return true
	}
	var e *cdp.Error
	if !errors.As(err, &e) {
		return false
	}
	for _, m := range staleMessages {
		if strings.Contains(e.Message, m) {
			return true
		}
	}
	return false
}

// wrap annotates err with op, marking stale object errors with
// pagewait.ErrStaleReference.
func wrap(op string, err error) error {
	if isStale(err) {
		return fmt.Errorf("rodport: %s: %w: %w", op, pagewait.ErrStaleReference, err)
	}
	return fmt.Errorf("rodport: %s: %w", op, err)
}

var (
	_ pagewait.Port      = (*Port)(nil)
	_ pagewait.Inspector = (*Port)(nil)
)
