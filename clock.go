package pagewait

import (
	"context"
	"time"
)

// Clock supplies the monotonic time used for every deadline.
type Clock interface {
	// NowMillis returns a monotonic timestamp in milliseconds.
	NowMillis() int64
	// Sleep blocks for d, returning early with the context's error when ctx
	// is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock returns a Clock backed by the runtime monotonic clock.
func SystemClock() Clock {
	return systemClock{base: time.Now()}
}

type systemClock struct {
	base time.Time
}

func (c systemClock) NowMillis() int64 {
	return time.Since(c.base).Milliseconds()
}

func (c systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TimeoutPolicy holds the two timeout classes used by the engine.
type TimeoutPolicy struct {
	// Tiny is used by lookups that are allowed to come back empty.
	Tiny time.Duration
	// Full is used by lookups that must succeed.
	Full time.Duration
}

// DefaultPolicy is the timeout policy used when none is configured.
var DefaultPolicy = TimeoutPolicy{
	Tiny: 2 * time.Second,
	Full: 30 * time.Second,
}

// For returns the timeout for a call site: Full when fail is set, Tiny
// otherwise.
func (p TimeoutPolicy) For(fail bool) time.Duration {
	if fail {
		return p.Full
	}
	return p.Tiny
}

// Seconds builds a policy from whole seconds.
func Seconds(tiny, full int) TimeoutPolicy {
	return TimeoutPolicy{
		Tiny: time.Duration(tiny) * time.Second,
		Full: time.Duration(full) * time.Second,
	}
}

// deadline returns the millisecond deadline for timeout counted from now.
func deadline(c Clock, timeout time.Duration) int64 {
	if timeout < 0 {
		timeout = 0
	}
	return c.NowMillis() + timeout.Milliseconds()
}

type remainingKey struct{}

// Remaining returns the time left before the deadline of the wait whose
// polling loop handed ctx to a condition. Ports use it to bound round trips
// that would otherwise outlive the wait.
func Remaining(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(remainingKey{}).(time.Duration)
	return d, ok
}

func withRemaining(ctx context.Context, c Clock, deadline int64) context.Context {
	rem := time.Duration(deadline-c.NowMillis()) * time.Millisecond
	if rem < 0 {
		rem = 0
	}
	return context.WithValue(ctx, remainingKey{}, rem)
}
