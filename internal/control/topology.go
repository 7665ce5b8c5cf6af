// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package control drives controller plugins: it owns the ordered endpoint
// topology, fans out topology and connection-state changes, and delivers
// inbound control responses. It also provides the host side of the control
// channel plugins send requests through.
package control

import (
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/loglens/loglens/internal/plugin"
	"github.com/loglens/loglens/pkg/errutil"
	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// Error codes for topology operations.
const (
	CodeEndpointUnknown = "ENDPOINT_UNKNOWN"
)

// Manager owns the ordered endpoint topology and keeps controller plugins
// informed. Endpoint indices are positions in the current topology; every
// SetTopology invalidates all previously handed-out indices.
//
// Plugin failures are recoverable by contract: a controller that errors is
// logged and skipped for that delivery, and one that rejects its control
// handle is excluded from all further deliveries.
type Manager struct {
	registry *plugin.Registry
	channel  pluginpkg.ControlChannel
	log      *slog.Logger

	mu        sync.Mutex
	endpoints []string
	states    []pluginpkg.ConnectionState
	handed    map[string]bool // InitControl already offered
	rejected  map[string]bool // InitControl returned an error
}

// NewManager creates a topology manager. channel is the host-owned send
// path handed to each controller exactly once. Panics if registry is nil.
func NewManager(registry *plugin.Registry, channel pluginpkg.ControlChannel, log *slog.Logger) *Manager {
	if registry == nil {
		panic("control: registry cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		registry: registry,
		channel:  channel,
		log:      log,
		handed:   make(map[string]bool),
		rejected: make(map[string]bool),
	}
}

// controllers returns the granted controllers that accepted (or are now
// offered) the control handle. Must be called with mu held.
func (m *Manager) controllers() []plugin.BoundController {
	var out []plugin.BoundController
	for _, bc := range m.registry.Controllers() {
		if m.rejected[bc.Name] {
			continue
		}
		if !m.handed[bc.Name] {
			m.handed[bc.Name] = true
			if err := bc.Controller.InitControl(m.channel); err != nil {
				m.rejected[bc.Name] = true
				errutil.LogWarn(m.log, "controller rejected control handle, excluding it", err)
				continue
			}
		}
		out = append(out, bc)
	}
	return out
}

// SetTopology replaces the ordered endpoint list and fans it out to every
// controller. All connection states reset to disconnected.
func (m *Manager) SetTopology(endpoints []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.endpoints = make([]string, len(endpoints))
	copy(m.endpoints, endpoints)
	m.states = make([]pluginpkg.ConnectionState, len(endpoints))

	for _, bc := range m.controllers() {
		topo := make([]string, len(m.endpoints))
		copy(topo, m.endpoints)
		if err := bc.Controller.InitConnections(topo); err != nil {
			m.log.Warn("controller could not adapt to new topology",
				"plugin", bc.Name,
				"last_error", m.lastError(bc.Name),
				"error", err)
		}
	}
}

// Topology returns a copy of the current ordered endpoint list.
func (m *Manager) Topology() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.endpoints))
	copy(out, m.endpoints)
	return out
}

// SetState records a connection-state transition for the endpoint at index
// and fans it out to every controller.
func (m *Manager) SetState(index int, state pluginpkg.ConnectionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.endpoints) {
		return errEndpointUnknown(index, len(m.endpoints))
	}
	m.states[index] = state

	for _, bc := range m.controllers() {
		if err := bc.Controller.StateChanged(index, state); err != nil {
			m.log.Warn("controller failed to handle state change",
				"plugin", bc.Name,
				"endpoint", index,
				"state", state.String(),
				"error", err)
		}
	}
	return nil
}

// State returns the last recorded connection state of the endpoint at
// index.
func (m *Manager) State(index int) (pluginpkg.ConnectionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.states) {
		return pluginpkg.ConnDisconnected, errEndpointUnknown(index, len(m.states))
	}
	return m.states[index], nil
}

// Deliver hands an inbound control response from the endpoint at index to
// every controller.
func (m *Manager) Deliver(index int, msg *pluginpkg.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.endpoints) {
		return errEndpointUnknown(index, len(m.endpoints))
	}

	for _, bc := range m.controllers() {
		if err := bc.Controller.ControlMsg(index, msg); err != nil {
			m.log.Warn("controller failed to handle control response",
				"plugin", bc.Name,
				"endpoint", index,
				"error", err)
		}
	}
	return nil
}

func (m *Manager) lastError(name string) string {
	if p, ok := m.registry.Get(name); ok {
		return p.LastError()
	}
	return ""
}

func errEndpointUnknown(index, count int) error {
	return oops.Code(CodeEndpointUnknown).
		With("index", index).
		With("endpoints", count).
		Errorf("endpoint index %d is not in the current topology", index)
}
