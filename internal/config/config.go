// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package config loads host configuration from an optional YAML file with
// command-line flag overrides.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/loglens/loglens/internal/xdg"
)

// Config is the host configuration.
type Config struct {
	// PluginsDir is where plugin manifests are discovered.
	PluginsDir string `koanf:"plugins_dir"`

	// Log selects the host logger's output.
	Log LogConfig `koanf:"log"`

	// MetricsAddr is the observability listen address. Empty disables the
	// endpoint.
	MetricsAddr string `koanf:"metrics_addr"`

	// FollowInterval is how often the inspect command polls the log for
	// appended records in follow mode.
	FollowInterval time.Duration `koanf:"follow_interval"`

	// Command tunes how plugin command executions are polled.
	Command CommandConfig `koanf:"command"`

	// Endpoints is the ordered control topology handed to controller
	// plugins.
	Endpoints []string `koanf:"endpoints"`
}

// LogConfig selects logger format and verbosity.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// CommandConfig tunes the command dispatcher.
type CommandConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	DrainTimeout time.Duration `koanf:"drain_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PluginsDir:     xdg.PluginsDir(),
		Log:            LogConfig{Format: "json", Level: "info"},
		FollowInterval: 500 * time.Millisecond,
		Command: CommandConfig{
			PollInterval: 50 * time.Millisecond,
			DrainTimeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then flag overrides. A missing file is only an error when the
// operator named it explicitly.
func Load(path string, explicit bool, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			// The default config file is optional.
		default:
			return cfg, oops.With("path", path).Wrapf(err, "loading config file")
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, oops.Wrapf(err, "loading flag overrides")
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.Wrapf(err, "unmarshalling config")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration constraints.
func (c *Config) Validate() error {
	if c.PluginsDir == "" {
		return oops.Errorf("plugins_dir cannot be empty")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.With("format", c.Log.Format).Errorf("log.format must be json or text")
	}
	if c.FollowInterval <= 0 {
		return oops.Errorf("follow_interval must be positive")
	}
	if c.Command.PollInterval <= 0 {
		return oops.Errorf("command.poll_interval must be positive")
	}
	if c.Command.DrainTimeout <= 0 {
		return oops.Errorf("command.drain_timeout must be positive")
	}
	return nil
}
