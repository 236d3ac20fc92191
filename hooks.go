package pagewait

import (
	"context"
	"time"
)

// Outcome is the way a wait ended.
type Outcome int

// Outcomes.
const (
	Satisfied Outcome = iota + 1
	TimedOut
	Failed
)

// String satisfies fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Satisfied:
		return "satisfied"
	case TimedOut:
		return "timeout"
	case Failed:
		return "error"
	}
	return "unknown"
}

// WaitEvent describes one wait, as seen by Hooks.
type WaitEvent struct {
	Op      string
	What    string
	Timeout time.Duration

	// Set once the wait is done.
	Outcome Outcome
	Elapsed time.Duration
	Polls   int
	Err     error
}

// Hooks are callbacks invoked around every wait. Nil funcs are skipped.
type Hooks struct {
	OnWaitStart func(ctx context.Context, e *WaitEvent)
	OnWaitDone  func(ctx context.Context, e *WaitEvent)
}

func (h Hooks) start(ctx context.Context, e *WaitEvent) {
	if h.OnWaitStart != nil {
		h.OnWaitStart(ctx, e)
	}
}

func (h Hooks) done(ctx context.Context, e *WaitEvent) {
	if h.OnWaitDone != nil {
		h.OnWaitDone(ctx, e)
	}
}
