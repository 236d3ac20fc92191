package pagewait

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Resolve walks the '/'-separated path from root and returns the node it
// addresses.
//
// At every level the current node is expanded when expandable, then its
// displayed children are re-enumerated on each polling pass until one of
// them matches the next segment: a case-insensitive literal match is tried
// on all children first, then the segment as a whole-label regular
// expression. Resolution descends into the first matching child only.
//
// Each level waits for the call's timeout, but never longer than what is
// left of the top level budget. When a segment never matches, Resolve
// returns a TimeoutError naming it, or nil and no error with Optional.
// Only the chain of matched ancestors is ever expanded.
func (w *Waiter) Resolve(ctx context.Context, root Node, path string, opts ...WaitOption) (Node, error) {
	p, err := ParsePath(path)
	if err != nil {
		return w.invalid(err, opts)
	}
	return w.ResolvePath(ctx, root, p, opts...)
}

// ResolvePath is Resolve for an already parsed path. Its segments are used
// as they are, so a segment may contain PathSeparator.
func (w *Waiter) ResolvePath(ctx context.Context, root Node, p Path, opts ...WaitOption) (Node, error) {
	err := p.Validate()
	if err == nil && root == nil {
		err = &InvalidPathError{Path: p.String(), Reason: "nil root"}
	}
	if err != nil {
		return w.invalid(err, opts)
	}
	o := w.options(opts)
	return w.resolve(ctx, root, p, 0, o, deadline(w.clock, o.timeout))
}

// invalid reports a resolution that cannot start, honouring Optional.
func (w *Waiter) invalid(err error, opts []WaitOption) (Node, error) {
	if !w.options(opts).fail {
		w.debugf("resolve: %v", err)
		return nil, nil
	}
	return nil, err
}

// resolve matches p[i] among the children of n, then recurses.
func (w *Waiter) resolve(ctx context.Context, n Node, p Path, i int, o waitOptions, outer int64) (Node, error) {
	seg := p[i]
	what := fmt.Sprintf("segment %q of path %q", seg, p.String())

	ok, err := n.Expandable(ctx)
	if err == nil && ok {
		w.debugf("resolve %q: expanding %s", p.String(), Path(p[:i]))
		err = n.Expand(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %q: expand %q: %w", p.String(), Path(p[:i]).String(), err)
	}

	start := w.clock.NowMillis()
	end := start + o.timeout.Milliseconds()
	if end > outer {
		end = outer
	}
	budget := time.Duration(end-start) * time.Millisecond

	m := newMatcher(seg)
	child, ok, err := poll(ctx, w, pollTask{
		op:             "resolve",
		what:           what,
		budget:         budget,
		deadline:       end,
		propagateStale: o.propagateStale,
	}, func(ctx context.Context) (Node, bool, error) {
		return matchChild(ctx, n, m)
	})
	switch {
	case err != nil:
		return nil, err
	case !ok:
		return nil, w.timedOut(o, "resolve", what, budget, start)
	case i == len(p)-1:
		return child, nil
	}
	return w.resolve(ctx, child, p, i+1, o, outer)
}

// matchChild enumerates the children of n once and returns the first
// displayed child matching m, literal matches taking precedence over
// pattern matches.
func matchChild(ctx context.Context, n Node, m matcher) (Node, bool, error) {
	kids, err := n.Children(ctx)
	if err != nil {
		return nil, false, err
	}
	var (
		shown  []Node
		labels []string
	)
	for _, kid := range kids {
		ok, err := kid.Displayed(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		label, err := kid.Label(ctx)
		if err != nil {
			return nil, false, err
		}
		shown, labels = append(shown, kid), append(labels, label)
	}
	for i, label := range labels {
		if m.exact(label) {
			return shown[i], true, nil
		}
	}
	for i, label := range labels {
		if m.pattern(label) {
			return shown[i], true, nil
		}
	}
	return nil, false, nil
}

// ExpandAll expands root and every expandable node below it, parents
// before children.
func ExpandAll(ctx context.Context, root Node) error {
	ok, err := root.Expandable(ctx)
	if err != nil || !ok {
		return err
	}
	if err := root.Expand(ctx); err != nil {
		return err
	}
	kids, err := root.Children(ctx)
	if err != nil {
		return err
	}
	for _, kid := range kids {
		if err := ExpandAll(ctx, kid); err != nil {
			return err
		}
	}
	return nil
}

// CollapseAll collapses every expanded node below root and then root,
// children before parents. Collapsed subtrees are not visited. A root that
// cannot be expanded, such as the container of a tree view, only has its
// children collapsed.
func CollapseAll(ctx context.Context, root Node) error {
	expandable, err := root.Expandable(ctx)
	if err != nil {
		return err
	}
	if expandable {
		ok, err := root.Expanded(ctx)
		if err != nil || !ok {
			return err
		}
	}
	kids, err := root.Children(ctx)
	if err != nil {
		return err
	}
	for _, kid := range kids {
		if err := CollapseAll(ctx, kid); err != nil {
			return err
		}
	}
	if !expandable {
		return nil
	}
	return root.Collapse(ctx)
}

// visitFunc is called by walk for every node below the walk root. p is the
// path of n relative to the walk root.
type visitFunc func(n Node, p Path, container bool) error

// errStop ends a walk early without error.
var errStop = errors.New("stop walk")

// walk visits the tree below n depth first, in display order, expanding
// every container on the way.
func walk(ctx context.Context, n Node, p Path, fn visitFunc) error {
	if err := ensureExpanded(ctx, n); err != nil {
		return err
	}
	kids, err := n.Children(ctx)
	if err != nil {
		return err
	}
	for _, kid := range kids {
		label, err := kid.Label(ctx)
		if err != nil {
			return err
		}
		container, err := IsContainer(ctx, kid)
		if err != nil {
			return err
		}
		kp := p.Join(label)
		if err := fn(kid, kp, container); err != nil {
			return err
		}
		if !container {
			continue
		}
		if err := walk(ctx, kid, kp, fn); err != nil {
			return err
		}
	}
	return nil
}

// AllNodes returns every node below root in depth-first order, expanding
// all containers.
func AllNodes(ctx context.Context, root Node) ([]Node, error) {
	var nodes []Node
	err := walk(ctx, root, nil, func(n Node, _ Path, _ bool) error {
		nodes = append(nodes, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// AllLeaves returns every leaf below root in depth-first order, expanding
// all containers.
func AllLeaves(ctx context.Context, root Node) ([]Node, error) {
	var leaves []Node
	err := walk(ctx, root, nil, func(n Node, _ Path, container bool) error {
		if !container {
			leaves = append(leaves, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return leaves, nil
}

// AllLeafPaths returns the path, relative to root, of every leaf below
// root.
func AllLeafPaths(ctx context.Context, root Node) ([]Path, error) {
	var paths []Path
	err := walk(ctx, root, nil, func(_ Node, p Path, container bool) error {
		if !container {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// findOptions are the settings of FindFolder and FindLeaf.
type findOptions struct {
	parent    string
	hasParent bool
	unique    bool
}

// FindOption is a FindFolder and FindLeaf option.
type FindOption = func(*findOptions)

// UnderParent only accepts nodes whose immediate parent is labeled label.
// The search root counts as the parent of its children.
func UnderParent(label string) FindOption {
	return func(o *findOptions) {
		o.parent = label
		o.hasParent = true
	}
}

// Unique makes a search walk the whole tree and fail with an
// AmbiguousMatchError when more than one node matches. By default the
// first match in depth-first order is returned.
func Unique() FindOption {
	return func(o *findOptions) { o.unique = true }
}

// FindFolder returns the first container below root labeled label.
func FindFolder(ctx context.Context, root Node, label string, opts ...FindOption) (Node, error) {
	return find(ctx, root, label, true, opts)
}

// FindLeaf returns the first leaf below root labeled label.
func FindLeaf(ctx context.Context, root Node, label string, opts ...FindOption) (Node, error) {
	return find(ctx, root, label, false, opts)
}

func find(ctx context.Context, root Node, label string, folder bool, opts []FindOption) (Node, error) {
	var o findOptions
	for _, f := range opts {
		f(&o)
	}
	var rootLabel string
	if o.hasParent {
		var err error
		if rootLabel, err = root.Label(ctx); err != nil {
			return nil, err
		}
	}

	var (
		found Node
		count int
	)
	err := walk(ctx, root, nil, func(n Node, p Path, container bool) error {
		if container != folder || !strings.EqualFold(p[len(p)-1], label) {
			return nil
		}
		if o.hasParent {
			parent := rootLabel
			if len(p) > 1 {
				parent = p[len(p)-2]
			}
			if !strings.EqualFold(parent, o.parent) {
				return nil
			}
		}
		count++
		if found == nil {
			found = n
		}
		if !o.unique {
			return errStop
		}
		return nil
	})
	switch {
	case err != nil && err != errStop:
		return nil, err
	case found == nil:
		return nil, fmt.Errorf("find %q: %w", label, ErrNoResults)
	case count > 1:
		return nil, &AmbiguousMatchError{Label: label, Count: count}
	}
	return found, nil
}
