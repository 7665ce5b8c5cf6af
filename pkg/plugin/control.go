// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import "context"

// ConnectionState enumerates the lifecycle of one endpoint connection.
type ConnectionState int

const (
	ConnDisconnected ConnectionState = iota
	ConnConnecting
	ConnConnected
	ConnError
)

func (s ConnectionState) String() string {
	switch s {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnError:
		return "error"
	default:
		return "unknown"
	}
}

// ControlChannel is the opaque host-owned send path handed to controllers
// at InitControl. Only the call shape is part of the contract; transport
// and framing belong to the host.
type ControlChannel interface {
	// Send issues a control request to the endpoint at the given topology
	// index.
	Send(ctx context.Context, endpoint int, payload []byte) error
}

// Controller receives device/connection topology and state changes plus
// inbound control-channel responses.
//
// Endpoint indices are positions in the host-maintained ordered topology
// list, not stable identifiers: every InitConnections call invalidates all
// previously known indices. Errors returned from these methods are
// recoverable; the host logs them and keeps driving other plugins.
type Controller interface {
	// InitControl is called once and grants the plugin a handle through
	// which it may later issue control requests. A non-nil error rejects
	// the handle (e.g. on version mismatch).
	InitControl(ch ControlChannel) error

	// InitConnections is called whenever the ordered endpoint list
	// changes. A non-nil error signals the plugin cannot adapt to the new
	// topology but does not block the host from proceeding.
	InitConnections(topology []string) error

	// ControlMsg delivers an inbound control-channel response addressed to
	// the endpoint at index.
	ControlMsg(index int, msg *Message) error

	// StateChanged delivers a connection-state transition for the
	// endpoint at index.
	StateChanged(index int, state ConnectionState) error
}
