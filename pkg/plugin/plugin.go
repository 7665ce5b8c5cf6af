// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package plugin defines the capability contract between the loglens host
// and its plugins. Every plugin satisfies the mandatory Plugin identity
// interface; the optional capabilities (Decoder, Viewer, Controller,
// Commander, Configurable) are independent interfaces a plugin instance
// implements as needed. The host discovers capabilities by type assertion,
// never by a monolithic interface, so plugins are not forced into no-op
// method bodies for capabilities they do not provide.
package plugin

import (
	"fmt"
	"sync"
)

// InterfaceVersion is the contract version this host speaks. Plugins report
// the version they were built against via PluginInterfaceVersion; the host
// refuses activation when the versions are incompatible.
const InterfaceVersion = "1.0.0"

// Plugin is the mandatory identity contract every plugin satisfies.
//
// The accessors are pure: no side effects, never failing. LastError is the
// shared error slot for the whole instance: it returns the message recorded
// by the most recent failing operation on any capability, or the empty
// string when no error is pending. Its content is transient and only valid
// until the instance's next operation.
type Plugin interface {
	// Name returns the plugin identifier used in manifests and grants.
	Name() string

	// Description returns a human-readable summary of the plugin.
	Description() string

	// PluginVersion returns the plugin's own version as an X.Y.Z string.
	PluginVersion() string

	// PluginInterfaceVersion returns the contract version the plugin was
	// built against, normally the InterfaceVersion constant.
	PluginInterfaceVersion() string

	// LastError returns the message of the most recent failing call on any
	// capability of this instance, or "" if none is pending.
	//
	// Named LastError (not Error) so plugin types do not accidentally
	// satisfy the built-in error interface.
	LastError() string
}

// Base carries the identity metadata and the shared last-error slot.
// Plugins embed a *Base instead of re-implementing the Plugin interface.
//
// The error slot is mutex-guarded because command capabilities record
// failures from background goroutines while the host reads LastError from
// its own control flow.
type Base struct {
	name        string
	description string
	version     string

	mu      sync.Mutex
	lastErr string
}

// NewBase creates the identity block for a plugin.
func NewBase(name, description, version string) *Base {
	return &Base{
		name:        name,
		description: description,
		version:     version,
	}
}

// Name returns the plugin identifier.
func (b *Base) Name() string { return b.name }

// Description returns the plugin summary.
func (b *Base) Description() string { return b.description }

// PluginVersion returns the plugin's version string.
func (b *Base) PluginVersion() string { return b.version }

// PluginInterfaceVersion returns the contract version compiled into this
// SDK. Plugins built from source against this module always match the host.
func (b *Base) PluginInterfaceVersion() string { return InterfaceVersion }

// LastError returns the most recently recorded failure message.
func (b *Base) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Fail records err in the last-error slot and returns it unchanged. It is
// the plugin-side helper keeping the invariant that every operation
// returning a non-nil error leaves a non-empty LastError behind.
// A nil err is returned as-is without touching the slot.
func (b *Base) Fail(err error) error {
	if err == nil {
		return nil
	}
	b.mu.Lock()
	b.lastErr = err.Error()
	b.mu.Unlock()
	return err
}

// Failf formats a new error, records it, and returns it.
func (b *Base) Failf(format string, args ...any) error {
	return b.Fail(fmt.Errorf(format, args...))
}

// RecordError stores err for later retrieval via LastError without
// returning it. Void lifecycle callbacks use this to surface internal
// failures while continuing in a best-effort degraded state.
func (b *Base) RecordError(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.lastErr = err.Error()
	b.mu.Unlock()
}
