package pagewait

import (
	"context"
	"errors"
	"fmt"
)

// Click waits for loc to resolve to a displayed element and clicks it.
//
// A click is not idempotent, so it is never retried blindly: when the
// native click hits a stale element, Click looks the element up once more
// (stale references propagated, no polling) and dispatches a single script
// click on it. A second failure is returned to the caller.
//
// With Optional, an element that never shows up is not clicked and Click
// returns nil.
func (w *Waiter) Click(ctx context.Context, loc Locator, opts ...WaitOption) error {
	el, err := w.WaitOne(ctx, loc, append([]WaitOption{Visible()}, opts...)...)
	if err != nil || el == nil {
		return err
	}
	err = w.port.Invoke(ctx, el, Click)
	if err == nil || !errors.Is(err, ErrStaleReference) {
		return err
	}

	w.debugf("click %s: %v; retrying once with a script click", loc, err)
	fresh, qerr := w.WaitOne(ctx, loc, Visible(), Timeout(0), Optional(), PropagateStale())
	if qerr != nil {
		return fmt.Errorf("click %s: %w", loc, qerr)
	}
	if fresh == nil {
		return fmt.Errorf("click %s: element gone after %w", loc, err)
	}
	if err := w.port.Invoke(ctx, fresh, ScriptClick); err != nil {
		return fmt.Errorf("click %s: script click: %w", loc, err)
	}
	return nil
}

// Act invokes action on el. A Click hitting a stale reference is retried
// exactly once as a ScriptClick on the same handle, and only when the port
// still answers for the handle. A handle to an element that left the UI
// cannot be revived: use Click with a locator to have it looked up again.
func (w *Waiter) Act(ctx context.Context, el Element, action Action) error {
	err := w.port.Invoke(ctx, el, action)
	if action != Click || !errors.Is(err, ErrStaleReference) {
		return err
	}
	if _, derr := w.port.Displayed(ctx, el); derr != nil {
		return fmt.Errorf("%v: element gone, look it up again: %w", action, err)
	}
	w.debugf("%v on %v: %v; retrying once with a script click", action, el, err)
	if err := w.port.Invoke(ctx, el, ScriptClick); err != nil {
		return fmt.Errorf("script click: %w", err)
	}
	return nil
}
