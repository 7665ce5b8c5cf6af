// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/filter"
	"github.com/loglens/loglens/internal/logfile"
	"github.com/loglens/loglens/internal/observability"
	"github.com/loglens/loglens/pkg/errutil"
	pluginpkg "github.com/loglens/loglens/pkg/plugin"
	"github.com/loglens/loglens/pkg/style"
)

// inspectOptions holds the inspect command's flags.
type inspectOptions struct {
	filterExpr string
	follow     bool
	selectIdx  int
	color      bool
	surfaces   bool
}

// NewInspectCmd creates the inspect subcommand.
func NewInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <logfile>",
		Short: "Load a log and run it through the active plugins",
		Long: `Load a log file, deliver every record to the active decoder and
viewer plugins, and print the decoded view. With --follow the host keeps
polling the file and streams appended records through the same plugins.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.filterExpr, "filter", "", `filter expression, e.g. 'source == "ecu-1" && text contains "error"'`)
	cmd.Flags().BoolVar(&opts.follow, "follow", false, "keep polling the log for appended records")
	cmd.Flags().IntVar(&opts.selectIdx, "select", -1, "report a selection of this message index to viewers")
	cmd.Flags().BoolVar(&opts.color, "color", false, "colorize output")
	cmd.Flags().BoolVar(&opts.surfaces, "surfaces", false, "render plugin surfaces after loading")

	return cmd
}

func runInspect(cmd *cobra.Command, path string, opts *inspectOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := newHost(ctx, cmd)
	if err != nil {
		return err
	}

	var flt *filter.Filter
	if opts.filterExpr != "" {
		if flt, err = filter.Compile(opts.filterExpr); err != nil {
			return err
		}
	}

	if opts.follow && h.cfg.MetricsAddr != "" {
		obs := observability.NewServer(h.cfg.MetricsAddr, func() bool { return true })
		if _, err := obs.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
	}

	file, err := logfile.Open(path)
	if err != nil {
		return err
	}

	if err := h.pipeline.OpenLog(ctx, file); err != nil {
		errutil.LogError(slog.Default(), "bulk load failed", err)
		return err
	}
	defer h.pipeline.Close()

	palette := style.Palette{Enabled: opts.color}
	printMessages(cmd, palette, flt, file, 0, file.MessageCount())

	if opts.selectIdx >= 0 {
		if err := h.pipeline.Select(opts.selectIdx); err != nil {
			return err
		}
	}

	if opts.surfaces {
		renderSurfaces(cmd, h)
	}

	if !opts.follow {
		return nil
	}
	return followLog(ctx, cmd, h, palette, flt, file)
}

// followLog streams appended records through the pipeline until the
// context is cancelled.
func followLog(ctx context.Context, cmd *cobra.Command, h *host, palette style.Palette, flt *filter.Filter, file *logfile.File) error {
	ticker := time.NewTicker(h.cfg.FollowInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		added, err := file.Poll()
		if err != nil {
			return err
		}
		if len(added) == 0 {
			continue
		}
		if err := h.pipeline.Append(ctx, added); err != nil {
			return err
		}
		for _, msg := range added {
			printMessage(cmd, palette, flt, msg)
		}
	}
}

func printMessages(cmd *cobra.Command, palette style.Palette, flt *filter.Filter, file *logfile.File, from, to int) {
	for i := from; i < to; i++ {
		msg, err := file.MessageAt(i)
		if err != nil {
			continue
		}
		printMessage(cmd, palette, flt, msg)
	}
}

func printMessage(cmd *cobra.Command, palette style.Palette, flt *filter.Filter, msg *pluginpkg.Message) {
	if flt != nil && !flt.Match(msg) {
		return
	}
	cmd.Println(palette.Line(msg))
}

func renderSurfaces(cmd *cobra.Command, h *host) {
	for _, ns := range h.pipeline.Surfaces() {
		cmd.Printf("--- %s (%s) ---\n", ns.Surface.Title(), ns.Plugin)
		if err := ns.Surface.Render(cmd.OutOrStdout()); err != nil {
			cmd.PrintErrf("surface %s failed to render: %v\n", ns.Plugin, err)
		}
	}
}
