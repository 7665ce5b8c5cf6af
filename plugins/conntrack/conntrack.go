// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package conntrack watches the host's endpoint topology and connection
// states. It provides the control and command capabilities: the control
// side mirrors the host's view of every endpoint, and the command side
// answers "status" queries and issues "ping" requests through the control
// channel.
package conntrack

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// endpoint is the tracked state of one topology slot.
type endpoint struct {
	name     string
	state    pluginpkg.ConnectionState
	lastSeen string // last control response text, "" when none
}

// Plugin tracks endpoint connectivity.
type Plugin struct {
	*pluginpkg.Base
	runner *pluginpkg.Runner

	mu        sync.Mutex
	channel   pluginpkg.ControlChannel
	endpoints []endpoint
}

// New creates the plugin with an empty topology.
func New() *Plugin {
	p := &Plugin{
		Base: pluginpkg.NewBase("conntrack", "tracks endpoint connectivity and answers pings", "1.0.0"),
	}
	p.runner = pluginpkg.NewRunner(pluginpkg.WithErrorSink(p.RecordError))
	return p
}

// InitControl stores the host's control handle. A nil handle is rejected.
func (p *Plugin) InitControl(ch pluginpkg.ControlChannel) error {
	if ch == nil {
		return p.Failf("control channel is nil")
	}
	p.mu.Lock()
	p.channel = ch
	p.mu.Unlock()
	return nil
}

// InitConnections replaces the tracked topology. All previously known
// indices and states are dropped.
func (p *Plugin) InitConnections(topology []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.endpoints = make([]endpoint, len(topology))
	for i, name := range topology {
		p.endpoints[i] = endpoint{name: name, state: pluginpkg.ConnDisconnected}
	}
	return nil
}

// ControlMsg records the latest response from an endpoint.
func (p *Plugin) ControlMsg(index int, msg *pluginpkg.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.endpoints) {
		return p.Failf("control response for unknown endpoint index %d", index)
	}
	p.endpoints[index].lastSeen = msg.Text()
	return nil
}

// StateChanged records an endpoint's connection-state transition.
func (p *Plugin) StateChanged(index int, state pluginpkg.ConnectionState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.endpoints) {
		return p.Failf("state change for unknown endpoint index %d", index)
	}
	p.endpoints[index].state = state
	return nil
}

// CommandList names the commands this plugin accepts.
func (p *Plugin) CommandList() []string {
	return []string{"status", "ping"}
}

// Command starts an execution. "status" answers synchronously with one
// line per endpoint; "ping <index>" asynchronously sends a ping through
// the control channel.
func (p *Plugin) Command(name string, params []string) error {
	switch name {
	case "status":
		return p.Fail(p.runner.Run(func(_ context.Context, _ *pluginpkg.Task) (string, error) {
			return p.status(), nil
		}))
	case "ping":
		if len(params) != 1 {
			return p.Failf("ping needs exactly one argument: the endpoint index")
		}
		index, err := strconv.Atoi(params[0])
		if err != nil {
			return p.Failf("endpoint index %q is not a number", params[0])
		}
		ch, err := p.pingTarget(index)
		if err != nil {
			return err
		}
		return p.Fail(p.runner.Go(func(ctx context.Context, task *pluginpkg.Task) (string, error) {
			task.SetProgress(50)
			if err := ch.Send(ctx, index, []byte("ping")); err != nil {
				return "", fmt.Errorf("ping endpoint %d: %w", index, err)
			}
			return fmt.Sprintf("ping sent to endpoint %d", index), nil
		}))
	default:
		return p.Failf("unknown command %q", name)
	}
}

// pingTarget validates a ping before the execution starts.
func (p *Plugin) pingTarget(index int) (pluginpkg.ControlChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return nil, p.Failf("no control channel handed by the host")
	}
	if index < 0 || index >= len(p.endpoints) {
		return nil, p.Failf("endpoint index %d is not in the topology", index)
	}
	return p.channel, nil
}

// status renders one line per endpoint.
func (p *Plugin) status() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return "no endpoints"
	}
	var b strings.Builder
	for i, e := range p.endpoints {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d %s %s", i, e.name, e.state)
		if e.lastSeen != "" {
			fmt.Fprintf(&b, " last=%q", e.lastSeen)
		}
	}
	return b.String()
}

// CommandProgress reports the running execution's progress.
func (p *Plugin) CommandProgress() int { return p.runner.Progress() }

// CommandReturnValue collects the completed execution's result.
func (p *Plugin) CommandReturnValue() string { return p.runner.ReturnValue() }

// Cancel requests cancellation of a running ping.
func (p *Plugin) Cancel() { p.runner.Cancel() }

var (
	_ pluginpkg.Controller = (*Plugin)(nil)
	_ pluginpkg.Commander  = (*Plugin)(nil)
)
