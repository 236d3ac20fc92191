package pagewait

import (
	"context"
	"errors"
	"time"
)

// Condition is a predicate polled by the wait operations. It may return an
// error wrapping ErrStaleReference, which the polling loop treats as "not
// yet satisfied".
type Condition func(ctx context.Context) (bool, error)

// PollFunc is a polled function producing a value once its condition holds.
type PollFunc[T any] func(ctx context.Context) (T, bool, error)

// pollTask holds the settings of a single run of the polling loop.
type pollTask struct {
	op       string
	what     string
	budget   time.Duration
	deadline int64

	propagateStale bool
}

// poll evaluates fn until it reports success or the clock passes the
// deadline. The last evaluation happens at the deadline at the latest, and
// a deadline already reached evaluates fn exactly once.
//
// Stale reference errors are absorbed unless the task propagates them; any
// other error from fn aborts the loop. Each pass hands fn a context
// carrying the time left, see Remaining.
func poll[T any](ctx context.Context, w *Waiter, s pollTask, fn PollFunc[T]) (T, bool, error) {
	var zero T
	ev := &WaitEvent{Op: s.op, What: s.what, Timeout: s.budget}
	w.hooks.start(ctx, ev)
	start := w.clock.NowMillis()
	finish := func(o Outcome, err error) {
		ev.Outcome = o
		ev.Elapsed = w.since(start)
		ev.Err = err
		w.hooks.done(ctx, ev)
	}

	for {
		ev.Polls++
		v, ok, err := fn(withRemaining(ctx, w.clock, s.deadline))
		switch {
		case err == nil && ok:
			finish(Satisfied, nil)
			return v, true, nil
		case err != nil && (s.propagateStale || !errors.Is(err, ErrStaleReference)):
			finish(Failed, err)
			return zero, false, err
		case err != nil:
			w.debugf("%s %s: pass %d hit a stale reference: %v", s.op, s.what, ev.Polls, err)
		}

		now := w.clock.NowMillis()
		if now >= s.deadline {
			finish(TimedOut, nil)
			return zero, false, nil
		}
		d := w.interval
		if rem := time.Duration(s.deadline-now) * time.Millisecond; rem < d {
			d = rem
		}
		if err := w.clock.Sleep(ctx, d); err != nil {
			finish(Failed, err)
			return zero, false, err
		}
	}
}

// since returns the time elapsed since the millisecond timestamp start.
func (w *Waiter) since(start int64) time.Duration {
	return time.Duration(w.clock.NowMillis()-start) * time.Millisecond
}

// Until polls cond until it returns true or the call's timeout elapses, and
// reports whether it succeeded. It never returns a TimeoutError: a timed
// out condition is reported as false.
func (w *Waiter) Until(ctx context.Context, what string, cond Condition, opts ...WaitOption) (bool, error) {
	o := w.options(opts)
	_, ok, err := poll(ctx, w, pollTask{
		op:             "until",
		what:           what,
		budget:         o.timeout,
		deadline:       deadline(w.clock, o.timeout),
		propagateStale: o.propagateStale,
	}, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := cond(ctx)
		return struct{}{}, ok, err
	})
	return ok, err
}

// Poll polls fn until it produces a value. On timeout it returns a
// TimeoutError naming what, or the zero value and no error when the
// Optional option is set.
func Poll[T any](ctx context.Context, w *Waiter, what string, fn PollFunc[T], opts ...WaitOption) (T, error) {
	o := w.options(opts)
	start := w.clock.NowMillis()
	v, ok, err := poll(ctx, w, pollTask{
		op:             "poll",
		what:           what,
		budget:         o.timeout,
		deadline:       start + o.timeout.Milliseconds(),
		propagateStale: o.propagateStale,
	}, fn)
	if err != nil || ok {
		return v, err
	}
	var zero T
	return zero, w.timedOut(o, "poll", what, o.timeout, start)
}

// timedOut builds the error for an expired wait, honouring the fail flag.
func (w *Waiter) timedOut(o waitOptions, op, what string, budget time.Duration, start int64) error {
	elapsed := w.since(start)
	if !o.fail {
		w.debugf("%s %s: absent after %v", op, what, elapsed)
		return nil
	}
	return &TimeoutError{Op: op, What: what, Timeout: budget, Elapsed: elapsed}
}
