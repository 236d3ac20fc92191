package pagewait

import (
	"context"
	"fmt"
)

// Action is a UI action a Port can invoke on an element.
type Action int

// Actions.
const (
	// Click is a native (driver level) click.
	Click Action = iota + 1

	// ScriptClick is a click dispatched from page script. It is the
	// alternate invocation path used after a native click hit a stale
	// element.
	ScriptClick

	// Expand opens a collapsed container.
	Expand

	// Collapse closes an expanded container.
	Collapse
)

// String satisfies fmt.Stringer.
func (a Action) String() string {
	switch a {
	case Click:
		return "click"
	case ScriptClick:
		return "script-click"
	case Expand:
		return "expand"
	case Collapse:
		return "collapse"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Port is the element query capability the engine consumes. It is
// implemented by browser and mobile driver adapters, see the cdpport and
// rodport packages.
//
// Implementations report a handle that no longer maps to live content by
// returning an error wrapping ErrStaleReference.
type Port interface {
	// Query returns the elements currently matching loc, in document order.
	// An empty result is not an error.
	Query(ctx context.Context, loc Locator) ([]Element, error)

	// Displayed reports whether el is currently rendered and visible.
	Displayed(ctx context.Context, el Element) (bool, error)

	// Children returns the elements matching child within el.
	Children(ctx context.Context, el Element, child Locator) ([]Element, error)

	// Invoke performs action on el.
	Invoke(ctx context.Context, el Element, action Action) error
}

// Inspector is implemented by ports able to read element content.
type Inspector interface {
	// Text returns the rendered text of el.
	Text(ctx context.Context, el Element) (string, error)

	// Attribute returns the named attribute of el and whether it is set.
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)
}

// Exists reports whether loc currently resolves to at least one element.
func Exists(ctx context.Context, port Port, loc Locator) (bool, error) {
	els, err := port.Query(ctx, loc)
	if err != nil {
		return false, err
	}
	return len(els) > 0, nil
}
