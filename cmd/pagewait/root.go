package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pagewait/pagewait"
	"github.com/pagewait/pagewait/config"
	"github.com/pagewait/pagewait/domnode"
	"github.com/pagewait/pagewait/waitmetrics"
)

// app holds the state shared by the commands.
type app struct {
	cfgPath     string
	url         string
	driver      string
	kind        string
	root        string
	debug       bool
	metricsFile string

	cfg     *config.Config
	reg     *prometheus.Registry
	metrics *waitmetrics.Metrics

	// open starts a browser session on the page.
	open func(ctx context.Context, a *app) (*session, error)

	// extra options for every Waiter.
	waitOpts []pagewait.Option
}

// session is an open page.
type session struct {
	// ctx carries the browser connection; waits run under it.
	ctx  context.Context
	port pagewait.Port

	// busy holds while the page is loading, when the driver can tell.
	busy pagewait.Condition

	// settle returns a condition holding while the page renders, when the
	// driver can take screenshots.
	settle func() pagewait.Condition

	close func()
}

func newApp() *app {
	return &app{open: openBrowser}
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pagewait",
		Short:        "Inspect the trees and elements of a live page",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	f := cmd.PersistentFlags()
	f.StringVar(&a.cfgPath, "config", "", "YAML configuration file")
	f.StringVar(&a.url, "url", "", "page to open")
	f.StringVar(&a.driver, "driver", "", "browser driver, cdp or rod (default from config)")
	f.StringVar(&a.kind, "kind", "", "tree kind: "+kindNames()+" (default from config)")
	f.StringVar(&a.root, "root", "", "CSS selector of the tree container (default from config)")
	f.BoolVar(&a.debug, "debug", false, "log debug output")
	f.StringVar(&a.metricsFile, "metrics-file", "", "write wait metrics to this file on exit")

	cmd.AddCommand(
		a.resolveCommand(),
		a.leavesCommand(),
		a.dumpCommand(),
		a.waitCommand(),
	)
	return cmd
}

// execute runs cmd and then writes the metrics file, failed runs included.
func (a *app) execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if a.metricsFile == "" || a.reg == nil {
		return err
	}
	if werr := prometheus.WriteToTextfile(a.metricsFile, a.reg); werr != nil {
		werr = fmt.Errorf("write metrics: %w", werr)
		cmd.PrintErrln("Error:", werr)
		err = errors.Join(err, werr)
	}
	return err
}

func kindNames() string {
	var names []string
	for _, k := range domnode.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

// load reads the configuration and applies the flags set on the command
// line over it.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(a.cfgPath)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("driver") {
		cfg.Browser.Driver = a.driver
	}
	if f.Changed("kind") {
		cfg.Tree.Kind = a.kind
	}
	if f.Changed("root") {
		cfg.Tree.Root = a.root
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := domnode.ParseKind(cfg.Tree.Kind); err != nil {
		return err
	}
	a.cfg = cfg

	a.reg = prometheus.NewRegistry()
	a.metrics, err = waitmetrics.New(a.reg)
	return err
}

func (a *app) debugf(format string, v ...interface{}) {
	if a.debug {
		log.Printf(format, v...)
	}
}

// start opens the page and returns a Waiter over it. The caller closes
// the session and runs its waits under s.ctx.
func (a *app) start(ctx context.Context) (*session, *pagewait.Waiter, error) {
	if a.url == "" {
		return nil, nil, fmt.Errorf("no --url given")
	}
	s, err := a.open(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	if s.ctx == nil {
		s.ctx = ctx
	}
	opts := append(a.cfg.Options(),
		pagewait.WithHooks(a.metrics.Hooks()),
		pagewait.WithDebugf(a.debugf),
	)
	opts = append(opts, a.waitOpts...)
	return s, pagewait.New(s.port, opts...), nil
}

// tree waits for the configured tree container.
func (a *app) tree(ctx context.Context, w *pagewait.Waiter) (*domnode.Node, error) {
	if a.cfg.Tree.Root == "" {
		return nil, fmt.Errorf("no tree root: set --root or tree.root")
	}
	kind, err := domnode.ParseKind(a.cfg.Tree.Kind)
	if err != nil {
		return nil, err
	}
	return domnode.Root(ctx, w, kind, pagewait.CSS(a.cfg.Tree.Root))
}
