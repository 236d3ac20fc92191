package pagewait

import (
	"fmt"
	"time"
)

// Error is a pagewait sentinel error.
type Error string

// Error satisfies the error interface.
func (err Error) Error() string {
	return string(err)
}

// Error values.
const (
	// ErrTimeout is matched by every TimeoutError.
	ErrTimeout Error = "timeout"

	// ErrStaleReference is the error a Port wraps when an element handle no
	// longer corresponds to live UI content.
	ErrStaleReference Error = "stale element reference"

	// ErrInvalidPath is matched by every InvalidPathError.
	ErrInvalidPath Error = "invalid path"

	// ErrAmbiguousMatch is matched by every AmbiguousMatchError.
	ErrAmbiguousMatch Error = "ambiguous match"

	// ErrNoResults is the error returned when a tree search found no node.
	ErrNoResults Error = "no results"

	// ErrInvalidLocator is the error returned for a zero or malformed
	// Locator.
	ErrInvalidLocator Error = "invalid locator"

	// ErrUnsupportedAction is returned by a Port that cannot perform an
	// Action.
	ErrUnsupportedAction Error = "unsupported action"
)

// TimeoutError is the error returned when a wait or a resolution deadline
// elapses without its condition being satisfied.
type TimeoutError struct {
	// Op is the waiting operation, such as "wait one" or "resolve".
	Op string
	// What describes what was awaited: a locator, a path segment or a
	// caller supplied description.
	What string
	// Timeout is the budget the wait was given.
	Timeout time.Duration
	// Elapsed is the time actually spent waiting.
	Elapsed time.Duration
	// Fatal marks timeouts the caller could not opt out of, such as a busy
	// indicator that never cleared.
	Fatal bool
}

// Error satisfies the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %v (budget %v) waiting for %s", e.Op, e.Elapsed, e.Timeout, e.What)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// InvalidPathError is the error returned for a malformed tree path.
type InvalidPathError struct {
	Path   string
	Reason string
}

// Error satisfies the error interface.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// Is reports whether target is ErrInvalidPath.
func (e *InvalidPathError) Is(target error) bool {
	return target == ErrInvalidPath
}

// AmbiguousMatchError is returned by searches run with Unique when more
// than one node carries the requested label.
type AmbiguousMatchError struct {
	Label string
	Count int
}

// Error satisfies the error interface.
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("label %q matched %d nodes", e.Label, e.Count)
}

// Is reports whether target is ErrAmbiguousMatch.
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}
