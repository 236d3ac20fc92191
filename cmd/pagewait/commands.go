package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/mailru/easyjson"
	"github.com/spf13/cobra"

	"github.com/pagewait/pagewait"
	"github.com/pagewait/pagewait/treedump"
)

// waitFlags are the flags shaping a wait.
type waitFlags struct {
	tiny     bool
	optional bool
	timeout  time.Duration
}

func (f *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.tiny, "tiny", false, "use the tiny timeout")
	cmd.Flags().BoolVar(&f.optional, "optional", false, "report absence instead of failing")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "explicit timeout, overriding the configured ones")
}

func (f *waitFlags) options() []pagewait.WaitOption {
	var opts []pagewait.WaitOption
	if f.tiny {
		opts = append(opts, pagewait.Tiny())
	}
	if f.optional {
		opts = append(opts, pagewait.Optional())
	}
	if f.timeout > 0 {
		opts = append(opts, pagewait.Timeout(f.timeout))
	}
	return opts
}

func (a *app) resolveCommand() *cobra.Command {
	var wf waitFlags
	cmd := &cobra.Command{
		Use:   "resolve PATH",
		Short: "Resolve a '/'-separated path in the tree",
		Long: `Resolve walks PATH from the tree root, expanding nodes on the way.
Each segment matches a label case-insensitively, or else as a regular
expression over the whole label. On timeout the tree as rendered is
printed to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, w, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			ctx := s.ctx

			root, err := a.tree(ctx, w)
			if err != nil {
				return err
			}
			n, err := w.Resolve(ctx, root, args[0], wf.options()...)
			if errors.Is(err, pagewait.ErrTimeout) {
				if snap, derr := treedump.Take(ctx, root); derr == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "tree when giving up:\n%s", snap)
				}
			}
			switch {
			case err != nil:
				return err
			case n == nil:
				fmt.Fprintln(cmd.OutOrStdout(), "not found")
				return nil
			}
			p, err := pagewait.PathOf(ctx, n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	wf.register(cmd)
	return cmd
}

func (a *app) leavesCommand() *cobra.Command {
	var folders bool
	cmd := &cobra.Command{
		Use:   "leaves",
		Short: "List the path of every leaf in the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, w, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			ctx := s.ctx

			root, err := a.tree(ctx, w)
			if err != nil {
				return err
			}
			if !folders {
				paths, err := pagewait.AllLeafPaths(ctx, root)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}
			nodes, err := pagewait.AllNodes(ctx, root)
			if err != nil {
				return err
			}
			for _, n := range nodes {
				ok, err := pagewait.IsContainer(ctx, n)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				p, err := pagewait.PathOf(ctx, n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s/\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&folders, "folders", false, "list containers instead of leaves")
	return cmd
}

func (a *app) dumpCommand() *cobra.Command {
	var (
		force bool
		depth int
		json  bool
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the tree as currently rendered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, w, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			ctx := s.ctx

			root, err := a.tree(ctx, w)
			if err != nil {
				return err
			}
			var opts []treedump.Option
			if force {
				opts = append(opts, treedump.Force())
			}
			if depth > 0 {
				opts = append(opts, treedump.MaxDepth(depth))
			}
			snap, err := treedump.Take(ctx, root, opts...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !json {
				_, err = snap.WriteTo(out)
				return err
			}
			if _, err := easyjson.MarshalToWriter(snap, out); err != nil {
				return err
			}
			_, err = fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "expand collapsed containers")
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum depth, 0 for no limit")
	cmd.Flags().BoolVar(&json, "json", false, "print JSON")
	return cmd
}

func (a *app) waitCommand() *cobra.Command {
	var (
		wf      waitFlags
		visible bool
		idle    bool
		settle  bool
		gone    string
	)
	cmd := &cobra.Command{
		Use:   "wait [SELECTOR...]",
		Short: "Wait for the page to settle and for any of the selectors",
		Long: `Wait first waits for the page to stop loading (--idle), for an element
to disappear (--gone) and for rendering to stop (--settle), in that order.
It then waits until any of the CSS selectors matches and prints, for each
selector, whether it matched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !idle && !settle && gone == "" {
				return fmt.Errorf("nothing to wait for")
			}
			s, w, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			ctx := s.ctx
			full := a.cfg.Policy().Full
			if wf.timeout > 0 {
				full = wf.timeout
			}

			if idle {
				if s.busy == nil {
					return fmt.Errorf("--idle is not supported by driver %s", a.cfg.Browser.Driver)
				}
				if err := w.WaitWhile(ctx, "page load", s.busy, full); err != nil {
					return err
				}
			}
			if gone != "" {
				if err := w.WaitBusy(ctx, pagewait.CSS(gone), full); err != nil {
					return err
				}
			}
			if settle {
				if s.settle == nil {
					return fmt.Errorf("--settle is not supported by driver %s", a.cfg.Browser.Driver)
				}
				if err := w.WaitWhile(ctx, "rendering", s.settle(), full); err != nil {
					return err
				}
			}
			if len(args) == 0 {
				return nil
			}

			locs := make([]pagewait.Locator, len(args))
			for i, sel := range args {
				locs[i] = pagewait.CSS(sel)
			}
			opts := wf.options()
			if visible {
				opts = append(opts, pagewait.Visible())
			}
			res, err := w.WaitAny(ctx, locs, opts...)
			if err != nil {
				return err
			}
			for i, sel := range args {
				state := "absent"
				if res != nil && res[i] != nil {
					state = "found"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", sel, state)
			}
			return nil
		},
	}
	wf.register(cmd)
	cmd.Flags().BoolVar(&visible, "visible", false, "only count displayed elements")
	cmd.Flags().BoolVar(&idle, "idle", false, "wait while the page is loading")
	cmd.Flags().BoolVar(&settle, "settle", false, "wait while the page renders (cdp only)")
	cmd.Flags().StringVar(&gone, "gone", "", "wait while an element matching this selector is displayed")
	return cmd
}
