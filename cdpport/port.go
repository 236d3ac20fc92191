// Package cdpport implements pagewait.Port over the Chrome DevTools
// Protocol, using chromedp.
//
// Elements are *cdp.Node values. Every context passed to the port,
// directly or through a pagewait.Waiter, must descend from a context
// created with chromedp.NewContext whose browser is already running.
package cdpport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/pagewait/pagewait"
)

// DefaultQueryTimeout bounds a single query round trip.
const DefaultQueryTimeout = 2 * time.Second

// MinQueryTimeout is the least time a query is given, even when the wait
// it serves has no time left.
const MinQueryTimeout = 100 * time.Millisecond

// Port is a pagewait.Port and pagewait.Inspector backed by chromedp.
type Port struct {
	queryTimeout time.Duration
	debugf       func(string, ...interface{})
}

// Option is a Port option.
type Option = func(*Port)

// New creates a chromedp backed Port.
func New(opts ...Option) *Port {
	p := &Port{
		queryTimeout: DefaultQueryTimeout,
		debugf:       func(string, ...interface{}) {},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// WithQueryTimeout sets the time a single query may take. chromedp retries
// failing queries until their context is done, so a query against a page
// in the middle of a navigation is cut short after d, or earlier when the
// wait it serves runs out, and reported as a stale reference for the wait
// to retry.
func WithQueryTimeout(d time.Duration) Option {
	return func(p *Port) {
		if d > 0 {
			p.queryTimeout = d
		}
	}
}

// WithDebugf is a Port option to specify a func to receive debug logging.
func WithDebugf(f func(string, ...interface{})) Option {
	return func(p *Port) { p.debugf = f }
}

// node asserts el is a *cdp.Node.
func node(el pagewait.Element) (*cdp.Node, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("cdpport: element is %T, not *cdp.Node", el)
	}
	return n, nil
}

// Query satisfies pagewait.Port.
func (p *Port) Query(ctx context.Context, loc pagewait.Locator) ([]pagewait.Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	switch loc.By {
	case pagewait.ByCSS:
		opts = append(opts, chromedp.ByQueryAll)
	case pagewait.ByID:
		opts = append(opts, chromedp.ByID)
	case pagewait.ByXPath:
		// DOM.performSearch always searches the whole document
		if loc.Scope != nil {
			return nil, fmt.Errorf("cdpport: %w: xpath locators cannot be scoped: %s", pagewait.ErrInvalidLocator, loc)
		}
		opts = append(opts, chromedp.BySearch)
	}
	if loc.Scope != nil {
		scope, err := node(loc.Scope)
		if err != nil {
			return nil, err
		}
		// a detached scope would make chromedp retry until the query
		// times out
		err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := dom.DescribeNode().WithNodeID(scope.NodeID).Do(ctx)
			return err
		}))
		if err != nil {
			return nil, wrap("scope of "+loc.String(), err)
		}
		opts = append(opts, chromedp.FromNode(scope))
	}

	timeout := p.timeout(ctx)
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var nodes []*cdp.Node
	if err := chromedp.Run(qctx, chromedp.Nodes(loc.Value, &nodes, opts...)); err != nil {
		return nil, p.queryError(ctx, loc, timeout, err)
	}
	els := make([]pagewait.Element, len(nodes))
	for i, n := range nodes {
		els[i] = n
	}
	return els, nil
}

// timeout returns the time a query under ctx may take: the query timeout,
// capped at what is left of the calling wait.
func (p *Port) timeout(ctx context.Context) time.Duration {
	d := p.queryTimeout
	if rem, ok := pagewait.Remaining(ctx); ok && rem < d {
		d = max(rem, MinQueryTimeout)
	}
	return d
}

// queryError maps the error of a query run under ctx. A query cut short by
// its own timeout tells nothing about the element, so it is reported as
// stale rather than as an empty result.
func (p *Port) queryError(ctx context.Context, loc pagewait.Locator, timeout time.Duration, err error) error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		p.debugf("cdpport: query %s cut short after %v", loc, timeout)
		return fmt.Errorf("cdpport: query %s: no answer within %v: %w", loc, timeout, pagewait.ErrStaleReference)
	}
	return wrap("query "+loc.String(), err)
}

// Displayed satisfies pagewait.Port. An element is displayed when it has a
// box model and a non empty client rect.
func (p *Port) Displayed(ctx context.Context, el pagewait.Element) (bool, error) {
	n, err := node(el)
	if err != nil {
		return false, err
	}
	var visible bool
	err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx); err != nil {
			if isCouldNotComputeBoxModelError(err) {
				return nil
			}
			return err
		}
		return callFunctionOnNode(ctx, n, visibleJS, &visible)
	}))
	if err != nil {
		return false, wrap("displayed", err)
	}
	return visible, nil
}

// Children satisfies pagewait.Port.
func (p *Port) Children(ctx context.Context, el pagewait.Element, child pagewait.Locator) ([]pagewait.Element, error) {
	return p.Query(ctx, child.Within(el))
}

// Invoke satisfies pagewait.Port. Expand and Collapse are delivered as
// native clicks, so callers check the current state first.
func (p *Port) Invoke(ctx context.Context, el pagewait.Element, action pagewait.Action) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	var a chromedp.Action
	switch action {
	case pagewait.Click, pagewait.Expand, pagewait.Collapse:
		a = chromedp.MouseClickNode(n)
	case pagewait.ScriptClick:
		a = chromedp.ActionFunc(func(ctx context.Context) error {
			return callFunctionOnNode(ctx, n, clickJS, nil)
		})
	default:
		return fmt.Errorf("cdpport: %v: %w", action, pagewait.ErrUnsupportedAction)
	}
	if err := chromedp.Run(ctx, a); err != nil {
		return wrap(action.String(), err)
	}
	return nil
}

// Text satisfies pagewait.Inspector.
func (p *Port) Text(ctx context.Context, el pagewait.Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	var text string
	err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return callFunctionOnNode(ctx, n, textJS, &text)
	}))
	if err != nil {
		return "", wrap("text", err)
	}
	return text, nil
}

// Attribute satisfies pagewait.Inspector. It reads the live attribute
// list rather than the attributes cached on the node.
func (p *Port) Attribute(ctx context.Context, el pagewait.Element, name string) (string, bool, error) {
	n, err := node(el)
	if err != nil {
		return "", false, err
	}
	var attrs []string
	err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		attrs, err = dom.GetAttributes(n.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, wrap("attribute "+name, err)
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true, nil
		}
	}
	return "", false, nil
}

// PageBusy is a pagewait.Condition holding while the document is loading
// or any element carries aria-busy="true". Use it with Waiter.WaitWhile.
func PageBusy(ctx context.Context) (bool, error) {
	var busy bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(busyJS, &busy)); err != nil {
		return false, wrap("busy", err)
	}
	return busy, nil
}

// callFunctionOnNode calls function with the given node as this.
func callFunctionOnNode(ctx context.Context, n *cdp.Node, function string, res interface{}, args ...interface{}) error {
	r, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
	if err != nil {
		return err
	}
	err = chromedp.CallFunctionOn(function, res,
		func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(r.ObjectID)
		},
		args...,
	).Do(ctx)
	if err != nil {
		return err
	}

	// the object is gone anyway when the page navigated
	_ = runtime.ReleaseObject(r.ObjectID).Do(ctx)
	return nil
}

var (
	_ pagewait.Port      = (*Port)(nil)
	_ pagewait.Inspector = (*Port)(nil)
)
