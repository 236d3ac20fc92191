// Package pagewait is the synchronization core of page-object UI tests.
//
// It reconciles test code with an asynchronously rendering UI through two
// mechanisms: a timeout-bounded polling engine (WaitOne, WaitAny,
// WaitWhile, WaitCountIncrease, Until and the generic Poll), and a
// path-addressed resolver for lazily expanding trees (Resolve, ExpandAll,
// AllLeaves, FindFolder and friends).
//
// The engine never talks to a browser directly. Element lookups go through
// a Port, implemented for chromedp by package cdpport and for go-rod by
// package rodport, and tree nodes are consumed through the Node interface,
// implemented for common DOM widgets by package domnode.
//
// Every call blocks the calling goroutine until its condition holds or its
// deadline passes. Deadlines are measured on the Waiter's Clock, which
// package pagewaittest replaces with a fake for deterministic tests.
package pagewait
