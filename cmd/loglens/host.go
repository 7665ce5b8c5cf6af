// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/control"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/plugin"
	"github.com/loglens/loglens/internal/plugin/capability"
	pluginpkg "github.com/loglens/loglens/pkg/plugin"
	"github.com/loglens/loglens/plugins/conntrack"
	"github.com/loglens/loglens/plugins/exporter"
	"github.com/loglens/loglens/plugins/luadecoder"
	"github.com/loglens/loglens/plugins/nonverbose"
)

// host is the assembled inspection host: configuration, the plugin
// registry and manager, the message pipeline, the command dispatcher, and
// the control topology.
type host struct {
	cfg        config.Config
	registry   *plugin.Registry
	manager    *plugin.Manager
	pipeline   *plugin.Pipeline
	dispatcher *plugin.Dispatcher
	topology   *control.Manager
}

// registerBuiltins wires the plugin implementations this build carries.
// A manifest is still required to activate any of them.
func registerBuiltins(m *plugin.Manager) {
	m.RegisterFactory("nonverbose", func() pluginpkg.Plugin { return nonverbose.New() })
	m.RegisterFactory("exporter", func() pluginpkg.Plugin { return exporter.New() })
	m.RegisterFactory("luadecoder", func() pluginpkg.Plugin { return luadecoder.New() })
	m.RegisterFactory("conntrack", func() pluginpkg.Plugin { return conntrack.New() })
}

// newHost loads configuration, sets up logging, and activates every
// discovered plugin.
func newHost(ctx context.Context, cmd *cobra.Command) (*host, error) {
	cfg, err := config.Load(configFile, configFile != "", cmd.Flags())
	if err != nil {
		return nil, err
	}

	logging.SetDefault("loglens", version, logging.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})

	registry := plugin.NewRegistry(capability.NewEnforcer())
	manager := plugin.NewManager(cfg.PluginsDir, registry)
	registerBuiltins(manager)
	if err := manager.LoadAll(ctx); err != nil {
		return nil, err
	}

	connector := control.NewConnector()
	topology := control.NewManager(registry, connector, slog.Default())
	if len(cfg.Endpoints) > 0 {
		connector.SetEndpoints(cfg.Endpoints)
		topology.SetTopology(cfg.Endpoints)
	}

	h := &host{
		cfg:      cfg,
		registry: registry,
		manager:  manager,
		pipeline: plugin.NewPipeline(registry),
		dispatcher: plugin.NewDispatcher(registry,
			plugin.WithPollInterval(cfg.Command.PollInterval),
			plugin.WithDrainTimeout(cfg.Command.DrainTimeout),
		),
		topology: topology,
	}
	h.pipeline.Activate()
	return h, nil
}
