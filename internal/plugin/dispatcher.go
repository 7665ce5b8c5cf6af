// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import (
	"context"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// Default polling configuration for command execution.
const (
	// DefaultPollInterval is how often the dispatcher samples
	// CommandProgress while an execution is in flight.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultDrainTimeout bounds how long the dispatcher keeps polling
	// after requesting cancellation. The contract guarantees a cancelled
	// execution reaches Completed; the timeout is the host's defence when
	// a plugin breaks that guarantee.
	DefaultDrainTimeout = 10 * time.Second
)

// Dispatcher drives plugin command executions from the host side: grant
// check, Command call, progress polling to completion, cancellation
// propagation, and return-value collection.
type Dispatcher struct {
	registry     *Registry
	pollInterval time.Duration
	drainTimeout time.Duration
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithPollInterval sets the progress polling interval.
func WithPollInterval(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.pollInterval = d
	}
}

// WithDrainTimeout sets how long the dispatcher polls after cancellation
// before giving up on the plugin.
func WithDrainTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.drainTimeout = d
	}
}

// NewDispatcher creates a command dispatcher over the registry.
// Panics if registry is nil.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	if registry == nil {
		panic("plugin: registry cannot be nil")
	}
	d := &Dispatcher{
		registry:     registry,
		pollInterval: DefaultPollInterval,
		drainTimeout: DefaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs one command on a plugin and polls it to completion. It
// covers both execution modes of the contract: a synchronous plugin
// returns from Command with progress already complete and the loop exits
// on its first check; an asynchronous plugin is polled at the configured
// interval. When ctx is cancelled the dispatcher calls Cancel once and
// keeps polling: a cancelled execution still completes and yields a
// return value (possibly partial), which is returned alongside a
// CodeCommandCancelled error.
func (d *Dispatcher) Execute(ctx context.Context, pluginName, command string, params []string) (value string, err error) {
	c, err := d.registry.Commander(pluginName, command)
	if err != nil {
		RecordCommandExecution(pluginName, command, StatusDenied)
		return "", err
	}

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("plugin.name", pluginName),
			attribute.String("command.name", command),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	if cmdErr := c.Command(command, params); cmdErr != nil {
		RecordCommandExecution(pluginName, command, StatusRejected)
		return "", oops.Code(CodeCommandRejected).
			With("plugin", pluginName).
			With("command", command).
			With("last_error", lastError(d.registry, pluginName)).
			Wrap(cmdErr)
	}

	cancelled, err := d.pollToCompletion(ctx, c)
	if err != nil {
		RecordCommandExecution(pluginName, command, StatusError)
		return "", err
	}

	value = c.CommandReturnValue()
	RecordCommandDuration(pluginName, command, time.Since(start))

	if cancelled {
		RecordCommandExecution(pluginName, command, StatusCancelled)
		return value, oops.Code(CodeCommandCancelled).
			With("plugin", pluginName).
			With("command", command).
			Errorf("command %s was cancelled", command)
	}
	RecordCommandExecution(pluginName, command, StatusSuccess)
	return value, nil
}

// pollToCompletion samples progress until it reaches ProgressDone,
// propagating ctx cancellation as a single Cancel call.
func (d *Dispatcher) pollToCompletion(ctx context.Context, c pluginpkg.Commander) (cancelled bool, err error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	done := ctx.Done()
	var drainDeadline time.Time

	for c.CommandProgress() < pluginpkg.ProgressDone {
		select {
		case <-done:
			c.Cancel()
			cancelled = true
			drainDeadline = time.Now().Add(d.drainTimeout)
			done = nil // from here on, only the ticker drives the loop
		case <-ticker.C:
			if cancelled && time.Now().After(drainDeadline) {
				return true, oops.Code(CodeCommandCancelled).
					Errorf("plugin did not complete within %s of cancellation", d.drainTimeout)
			}
		}
	}
	return cancelled, nil
}

// lastError reads a plugin's last-error slot for error context, tolerating
// a plugin that vanished mid-dispatch.
func lastError(r *Registry, name string) string {
	if p, ok := r.Get(name); ok {
		return p.LastError()
	}
	return ""
}
