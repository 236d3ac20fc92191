package pagewait

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WaitOne waits until loc resolves to an element and returns the first
// match. With Visible, only displayed elements count.
//
// When the timeout elapses WaitOne returns a TimeoutError, or nil and no
// error when the Optional option is set.
func (w *Waiter) WaitOne(ctx context.Context, loc Locator, opts ...WaitOption) (Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	o := w.options(opts)
	start := w.clock.NowMillis()
	el, ok, err := poll(ctx, w, pollTask{
		op:             "wait one",
		what:           describe(loc, o.visible),
		budget:         o.timeout,
		deadline:       start + o.timeout.Milliseconds(),
		propagateStale: o.propagateStale,
	}, func(ctx context.Context) (Element, bool, error) {
		return w.match(ctx, loc, o.visible)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, w.timedOut(o, "wait one", describe(loc, o.visible), o.timeout, start)
	}
	return el, nil
}

// WaitAny waits until at least one of locs resolves to an element. Every
// locator is evaluated on every pass, so the returned slice, index aligned
// with locs, holds an element for each locator that matched on the
// successful pass and nil for the others.
//
// DisplayFlags sets the visibility requirement per slot. When no locator
// ever matched, WaitAny returns a TimeoutError, or nil and no error when the
// Optional option is set.
func (w *Waiter) WaitAny(ctx context.Context, locs []Locator, opts ...WaitOption) ([]Element, error) {
	if len(locs) == 0 {
		return nil, fmt.Errorf("%w: no locators", ErrInvalidLocator)
	}
	for _, loc := range locs {
		if err := loc.Validate(); err != nil {
			return nil, err
		}
	}
	o := w.options(opts)
	what := describeAll(locs, o)
	start := w.clock.NowMillis()
	res, ok, err := poll(ctx, w, pollTask{
		op:             "wait any",
		what:           what,
		budget:         o.timeout,
		deadline:       start + o.timeout.Milliseconds(),
		propagateStale: o.propagateStale,
	}, func(ctx context.Context) ([]Element, bool, error) {
		out := make([]Element, len(locs))
		found := false
		for i, loc := range locs {
			el, ok, err := w.match(ctx, loc, o.displayed(i))
			switch {
			case err != nil && !o.propagateStale && errors.Is(err, ErrStaleReference):
				// the slot simply did not match on this pass
				continue
			case err != nil:
				return nil, false, err
			case ok:
				out[i] = el
				found = true
			}
		}
		return out, found, nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, w.timedOut(o, "wait any", what, o.timeout, start)
	}
	return res, nil
}

// WaitWhile waits until cond reports false, typically for a busy or loading
// indicator to clear. A UI that stays busy past timeout is a structural
// failure: WaitWhile always returns a fatal TimeoutError in that case.
func (w *Waiter) WaitWhile(ctx context.Context, what string, cond Condition, timeout time.Duration) error {
	start := w.clock.NowMillis()
	_, ok, err := poll(ctx, w, pollTask{
		op:       "wait while",
		what:     what,
		budget:   timeout,
		deadline: start + timeout.Milliseconds(),
	}, func(ctx context.Context) (struct{}, bool, error) {
		busy, err := cond(ctx)
		return struct{}{}, !busy, err
	})
	if err != nil {
		return err
	}
	if !ok {
		err := &TimeoutError{Op: "wait while", What: what, Timeout: timeout, Elapsed: w.since(start), Fatal: true}
		w.errf("%v", err)
		return err
	}
	return nil
}

// WaitBusy waits while loc resolves to a displayed element, such as a
// spinner or a loading overlay.
func (w *Waiter) WaitBusy(ctx context.Context, loc Locator, timeout time.Duration) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	return w.WaitWhile(ctx, "busy indicator "+loc.String()+" to clear", func(ctx context.Context) (bool, error) {
		_, ok, err := w.match(ctx, loc, true)
		return ok, err
	}, timeout)
}

// WaitCountIncrease calls enumerate until it returns more than baseline
// items and returns that longer sequence. It is used to detect that a new
// item was added when the UI gives no other completion signal.
func WaitCountIncrease[T any](ctx context.Context, w *Waiter, what string, baseline int, enumerate func(context.Context) ([]T, error), opts ...WaitOption) ([]T, error) {
	o := w.options(opts)
	what = fmt.Sprintf("%s to grow past %d", what, baseline)
	start := w.clock.NowMillis()
	items, ok, err := poll(ctx, w, pollTask{
		op:             "wait count",
		what:           what,
		budget:         o.timeout,
		deadline:       start + o.timeout.Milliseconds(),
		propagateStale: o.propagateStale,
	}, func(ctx context.Context) ([]T, bool, error) {
		items, err := enumerate(ctx)
		if err != nil {
			return nil, false, err
		}
		return items, len(items) > baseline, nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, w.timedOut(o, "wait count", what, o.timeout, start)
	}
	return items, nil
}

// WaitNewElements waits until loc resolves to more than baseline elements
// and returns them all.
func (w *Waiter) WaitNewElements(ctx context.Context, loc Locator, baseline int, opts ...WaitOption) ([]Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return WaitCountIncrease(ctx, w, loc.String(), baseline, func(ctx context.Context) ([]Element, error) {
		return w.port.Query(ctx, loc)
	}, opts...)
}

// Count returns the number of elements loc currently resolves to.
func (w *Waiter) Count(ctx context.Context, loc Locator) (int, error) {
	els, err := w.port.Query(ctx, loc)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

// match returns the first element matching loc, skipping hidden elements
// when visible is set.
func (w *Waiter) match(ctx context.Context, loc Locator, visible bool) (Element, bool, error) {
	els, err := w.port.Query(ctx, loc)
	if err != nil {
		return nil, false, err
	}
	if !visible {
		if len(els) == 0 {
			return nil, false, nil
		}
		return els[0], true, nil
	}
	for _, el := range els {
		shown, err := w.port.Displayed(ctx, el)
		if err != nil {
			return nil, false, err
		}
		if shown {
			return el, true, nil
		}
	}
	return nil, false, nil
}

func describe(loc Locator, visible bool) string {
	if visible {
		return "visible " + loc.String()
	}
	return loc.String()
}

func describeAll(locs []Locator, o waitOptions) string {
	parts := make([]string, len(locs))
	for i, loc := range locs {
		parts[i] = describe(loc, o.displayed(i))
	}
	return "any of [" + strings.Join(parts, ", ") + "]"
}

// Exists reports whether loc currently resolves to at least one element,
// without waiting.
func (w *Waiter) Exists(ctx context.Context, loc Locator) (bool, error) {
	if err := loc.Validate(); err != nil {
		return false, err
	}
	return Exists(ctx, w.port, loc)
}
