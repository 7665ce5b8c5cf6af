// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	hostplugin "github.com/loglens/loglens/internal/plugin"
)

// NewExecCmd creates the exec subcommand.
func NewExecCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "exec <plugin> <command> [params...]",
		Short: "Execute a plugin command and wait for its result",
		Long: `Execute a command on a command-capable plugin. The host polls the
plugin to completion and prints the returned value. Interrupting the run
(or hitting --timeout) requests cancellation; a partial result, if the
plugin produced one, is still printed.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			h, err := newHost(ctx, cmd)
			if err != nil {
				return err
			}

			value, err := h.dispatcher.Execute(ctx, args[0], args[1], args[2:])
			if err != nil {
				if oopsErr, ok := oops.AsOops(err); ok &&
					oopsErr.Code() == hostplugin.CodeCommandCancelled && value != "" {
					cmd.Println(value)
				}
				return err
			}

			cmd.Println(value)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "cancel the command after this duration (0 = no limit)")
	return cmd
}
