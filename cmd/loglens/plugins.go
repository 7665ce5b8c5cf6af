// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	hostplugin "github.com/loglens/loglens/internal/plugin"
	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// NewPluginsCmd creates the plugins subcommand.
func NewPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect discovered and active plugins",
	}

	cmd.AddCommand(newPluginsListCmd())
	cmd.AddCommand(newPluginsValidateCmd())

	return cmd
}

func newPluginsListCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active plugins with their capabilities and grants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := newHost(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			names := h.manager.Active()
			if len(names) == 0 {
				cmd.Println("no active plugins")
				return nil
			}

			for _, name := range names {
				inst, ok := h.registry.Get(name)
				if !ok {
					continue
				}
				manifest, _ := h.manager.ActiveManifest(name)

				cmd.Printf("%s %s\n", name, inst.PluginVersion())
				if desc := inst.Description(); desc != "" {
					cmd.Printf("  %s\n", desc)
				}
				cmd.Printf("  capabilities: %s\n", strings.Join(pluginCapabilities(inst), ", "))
				if manifest != nil {
					cmd.Printf("  grants: %s\n", strings.Join(manifest.Capabilities, ", "))
				}
				if c, ok := inst.(pluginpkg.Commander); ok {
					cmd.Printf("  commands: %s\n", strings.Join(c.CommandList(), ", "))
				}
				if verbose {
					if cfg, ok := inst.(pluginpkg.Configurable); ok {
						for _, line := range cfg.ConfigInfo() {
							cmd.Printf("  config: %s\n", line)
						}
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include plugin configuration details")
	return cmd
}

func newPluginsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plugin.yaml>",
		Short: "Validate a plugin manifest against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := hostplugin.ValidateSchema(data); err != nil {
				return err
			}
			manifest, err := hostplugin.ParseManifest(data)
			if err != nil {
				return err
			}
			cmd.Printf("%s %s: valid\n", manifest.Name, manifest.Version)
			return nil
		},
	}
}

// pluginCapabilities reports which optional contract surfaces the plugin
// instance implements.
func pluginCapabilities(p pluginpkg.Plugin) []string {
	caps := []string{"plugin"}
	if _, ok := p.(pluginpkg.Decoder); ok {
		caps = append(caps, "decoder")
	}
	if _, ok := p.(pluginpkg.Viewer); ok {
		caps = append(caps, "viewer")
	}
	if _, ok := p.(pluginpkg.Controller); ok {
		caps = append(caps, "controller")
	}
	if _, ok := p.(pluginpkg.Commander); ok {
		caps = append(caps, "commander")
	}
	if _, ok := p.(pluginpkg.Configurable); ok {
		caps = append(caps, "configurable")
	}
	return caps
}
