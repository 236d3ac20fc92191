package pagewait

import "time"

// DefaultInterval is the default delay between two polling passes.
const DefaultInterval = 100 * time.Millisecond

// Waiter runs the polling and tree resolution operations against a Port.
//
// A Waiter holds no per-call state; it is the explicit session context
// every page object passes around instead of ambient globals. It is not
// safe for concurrent use when its Port is not.
type Waiter struct {
	port     Port
	clock    Clock
	interval time.Duration
	policy   TimeoutPolicy
	hooks    Hooks

	logf   func(string, ...interface{})
	errf   func(string, ...interface{})
	debugf func(string, ...interface{})
}

// Option is a Waiter option.
type Option = func(*Waiter)

// New creates a Waiter for port. The port may be nil when only the tree
// operations are used.
func New(port Port, opts ...Option) *Waiter {
	w := &Waiter{
		port:     port,
		clock:    SystemClock(),
		interval: DefaultInterval,
		policy:   DefaultPolicy,
		logf:     Logger.Printf,
		debugf:   nopf,
	}
	w.errf = func(s string, v ...interface{}) { w.logf("ERROR: "+s, v...) }

	// apply options
	for _, o := range opts {
		o(w)
	}
	return w
}

// WithClock sets the clock used for deadlines and inter-poll sleeps.
func WithClock(c Clock) Option {
	return func(w *Waiter) {
		w.clock = c
	}
}

// WithInterval sets the delay between two polling passes. Non-positive
// values keep the default.
func WithInterval(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithPolicy sets the timeout policy.
func WithPolicy(p TimeoutPolicy) Option {
	return func(w *Waiter) {
		w.policy = p
	}
}

// WithHooks sets the lifecycle hooks invoked around every wait.
func WithHooks(h Hooks) Option {
	return func(w *Waiter) {
		w.hooks = h
	}
}

// WithLogf is a Waiter option to specify a func to receive general logging.
func WithLogf(f func(string, ...interface{})) Option {
	return func(w *Waiter) { w.logf = f }
}

// WithErrorf is a Waiter option to specify a func to receive error logging.
func WithErrorf(f func(string, ...interface{})) Option {
	return func(w *Waiter) { w.errf = f }
}

// WithDebugf is a Waiter option to specify a func to receive debug logging
// (every polling pass and tree step).
func WithDebugf(f func(string, ...interface{})) Option {
	return func(w *Waiter) { w.debugf = f }
}

// Port returns the Waiter's port.
func (w *Waiter) Port() Port { return w.port }

// Clock returns the Waiter's clock.
func (w *Waiter) Clock() Clock { return w.clock }

// Policy returns the Waiter's timeout policy.
func (w *Waiter) Policy() TimeoutPolicy { return w.policy }

// waitOptions holds the per call settings of a wait.
type waitOptions struct {
	timeout        time.Duration
	hasTimeout     bool
	tiny           bool
	fail           bool
	visible        bool
	flags          []bool
	propagateStale bool
}

// WaitOption is a per call wait option.
type WaitOption = func(*waitOptions)

// Timeout sets an explicit budget for the call, overriding the policy.
// A zero timeout checks exactly once.
func Timeout(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.timeout = d
		o.hasTimeout = true
	}
}

// Tiny selects the policy's tiny timeout while keeping the failure mode.
func Tiny() WaitOption {
	return func(o *waitOptions) { o.tiny = true }
}

// Optional makes a timed out call return an absent (nil) result instead of
// a TimeoutError. Unless Timeout is given, optional calls use the tiny
// timeout.
func Optional() WaitOption {
	return func(o *waitOptions) { o.fail = false }
}

// Visible requires matched elements to be displayed.
func Visible() WaitOption {
	return func(o *waitOptions) { o.visible = true }
}

// DisplayFlags sets, per locator slot of WaitAny, whether the slot requires
// a displayed element. Slots without a flag fall back to Visible.
func DisplayFlags(flags ...bool) WaitOption {
	return func(o *waitOptions) { o.flags = flags }
}

// PropagateStale makes stale reference errors abort the wait instead of
// being treated as "not yet satisfied".
func PropagateStale() WaitOption {
	return func(o *waitOptions) { o.propagateStale = true }
}

func (w *Waiter) options(opts []WaitOption) waitOptions {
	o := waitOptions{fail: true}
	for _, f := range opts {
		f(&o)
	}
	if !o.hasTimeout {
		o.timeout = w.policy.For(o.fail && !o.tiny)
	}
	return o
}

// displayed reports whether slot i requires visibility.
func (o waitOptions) displayed(i int) bool {
	if i < len(o.flags) {
		return o.flags[i]
	}
	return o.visible
}
