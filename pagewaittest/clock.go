// Package pagewaittest provides in-memory implementations of the pagewait
// collaborators (Clock, Port and Node) for deterministic tests of page
// objects and of pagewait itself.
package pagewaittest

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Clock is a fake pagewait.Clock. Time only moves when a wait sleeps or
// when Advance is called, so a 30 second wait completes instantly.
//
// Mutations scheduled with At run when the clock reaches their time, which
// lets a test change the UI in the middle of a wait.
type Clock struct {
	mu     sync.Mutex
	now    int64
	sleeps int
	events []event
}

type event struct {
	at int64
	fn func()
}

// NewClock returns a Clock at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// NowMillis satisfies pagewait.Clock.
func (c *Clock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep satisfies pagewait.Clock. It advances the clock by d, unless ctx
// is already done.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps++
	c.mu.Unlock()
	c.Advance(d)
	return nil
}

// Sleeps returns the number of Sleep calls so far.
func (c *Clock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

// Elapsed returns the time since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	return time.Duration(c.NowMillis()) * time.Millisecond
}

// At schedules fn to run once the clock reaches t, measured from time
// zero. A time already passed runs fn immediately.
func (c *Clock) At(t time.Duration, fn func()) {
	c.mu.Lock()
	at := t.Milliseconds()
	if at <= c.now {
		c.mu.Unlock()
		fn()
		return
	}
	c.events = append(c.events, event{at: at, fn: fn})
	sort.SliceStable(c.events, func(i, j int) bool {
		return c.events[i].at < c.events[j].at
	})
	c.mu.Unlock()
}

// Advance moves the clock forward by d, running due scheduled functions in
// time order.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d.Milliseconds()
	for len(c.events) > 0 && c.events[0].at <= target {
		ev := c.events[0]
		c.events = c.events[1:]
		c.now = ev.at
		c.mu.Unlock()
		ev.fn()
		c.mu.Lock()
	}
	if target > c.now {
		c.now = target
	}
	c.mu.Unlock()
}
