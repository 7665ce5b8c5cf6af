// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the loglens CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loglens",
		Short: "LogLens - a plugin-driven log inspection host",
		Long: `LogLens loads a log file and drives capability-gated plugins over
it: decoders translate raw records, viewers follow the message lifecycle,
controllers track endpoint connectivity, and command plugins run
long-running jobs the host polls to completion.`,
	}

	defaults := config.Default()

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("plugins_dir", defaults.PluginsDir, "plugin manifest directory")
	cmd.PersistentFlags().String("metrics_addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.PersistentFlags().String("log.format", defaults.Log.Format, "log format (json or text)")
	cmd.PersistentFlags().String("log.level", defaults.Log.Level, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().Duration("follow_interval", defaults.FollowInterval, "poll interval in follow mode")

	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewPluginsCmd())
	cmd.AddCommand(NewExecCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
