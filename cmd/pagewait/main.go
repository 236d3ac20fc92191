// pagewait is a command line tool for inspecting the trees and elements of a
// live page with the pagewait engine.
//
// It opens the page in Chrome, through chromedp or go-rod, and then
// resolves paths, lists the leaves of a tree, dumps a tree or waits for
// elements:
//
//	pagewait --url http://localhost:8080 --root '#nav' resolve 'Reports/Daily.*'
//	pagewait --url http://localhost:8080 --root '#nav' dump --force
//	pagewait --url http://localhost:8080 wait '#welcome' '.error'
//
// Settings come from a YAML file given with --config; see package config.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := newApp()
	err := a.execute(ctx, a.command())
	stop()
	if err != nil {
		os.Exit(1)
	}
}
