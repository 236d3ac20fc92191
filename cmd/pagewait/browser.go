package main

import (
	"context"
	"fmt"
	"log"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/pagewait/pagewait"
	"github.com/pagewait/pagewait/cdpport"
	"github.com/pagewait/pagewait/rodport"
)

// openBrowser opens the page with the configured driver.
func openBrowser(ctx context.Context, a *app) (*session, error) {
	switch a.cfg.Browser.Driver {
	case "rod":
		return openRod(a)
	default:
		return openCDP(ctx, a)
	}
}

// openCDP opens the page through chromedp, attaching to the remote browser
// when one is configured.
func openCDP(ctx context.Context, a *app) (*session, error) {
	b := a.cfg.Browser
	var (
		allocCtx context.Context
		cancel   context.CancelFunc
	)
	if b.Remote != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(ctx, b.Remote)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", b.Headless),
		)
		if b.Exec != "" {
			opts = append(opts, chromedp.ExecPath(b.Exec))
		}
		allocCtx, cancel = chromedp.NewExecAllocator(ctx, opts...)
	}
	ctxOpts := []chromedp.ContextOption{chromedp.WithLogf(log.Printf)}
	if a.debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(log.Printf))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)
	closeAll := func() {
		tabCancel()
		cancel()
	}
	if err := chromedp.Run(tabCtx, chromedp.Navigate(a.url)); err != nil {
		closeAll()
		return nil, fmt.Errorf("open %s: %w", a.url, err)
	}

	port := cdpport.New(cdpport.WithDebugf(a.debugf))
	return &session{
		ctx:    tabCtx,
		port:   port,
		busy:   cdpport.PageBusy,
		settle: func() pagewait.Condition { return cdpport.Settle() },
		close:  closeAll,
	}, nil
}

// openRod opens the page through go-rod, launching a browser unless a
// remote one is configured.
func openRod(a *app) (*session, error) {
	b := a.cfg.Browser
	u := b.Remote
	var kill func()
	if u == "" {
		l := launcher.New().Headless(b.Headless)
		if b.Exec != "" {
			l = l.Bin(b.Exec)
		}
		var err error
		if u, err = l.Launch(); err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		kill = l.Kill
	}
	browser := rod.New().ControlURL(u)
	closeAll := func() {
		_ = browser.Close()
		if kill != nil {
			kill()
		}
	}
	if err := browser.Connect(); err != nil {
		closeAll()
		return nil, fmt.Errorf("connect %s: %w", u, err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: a.url})
	if err == nil {
		err = page.WaitLoad()
	}
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("open %s: %w", a.url, err)
	}
	return &session{
		port:  rodport.New(page),
		close: closeAll,
	}, nil
}
