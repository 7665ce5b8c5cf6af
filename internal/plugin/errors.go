// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import (
	"github.com/samber/oops"
)

// Error codes for host-side plugin driving failures.
const (
	CodeUnknownPlugin    = "UNKNOWN_PLUGIN"
	CodeCapabilityDenied = "CAPABILITY_DENIED"
	CodeNotACommander    = "NOT_A_COMMANDER"
	CodeWrongPhase       = "WRONG_PHASE"
	CodeIndexUnknown     = "INDEX_NOT_DELIVERED"
	CodeCommandRejected  = "COMMAND_REJECTED"
	CodeCommandCancelled = "COMMAND_CANCELLED"
)

// ErrUnknownPlugin creates an error for a plugin name the registry does
// not know.
func ErrUnknownPlugin(name string) error {
	return oops.Code(CodeUnknownPlugin).
		With("plugin", name).
		Errorf("unknown plugin: %s", name)
}

// ErrCapabilityDenied creates an error for a capability the plugin was not
// granted.
func ErrCapabilityDenied(plugin, capName string) error {
	return oops.Code(CodeCapabilityDenied).
		With("plugin", plugin).
		With("capability", capName).
		Errorf("plugin %s lacks capability %s", plugin, capName)
}

// ErrNotACommander creates an error for command dispatch to a plugin
// without the command capability interface.
func ErrNotACommander(plugin string) error {
	return oops.Code(CodeNotACommander).
		With("plugin", plugin).
		Errorf("plugin %s does not accept commands", plugin)
}

// ErrWrongPhase creates an error for a pipeline call outside its legal
// lifecycle phase.
func ErrWrongPhase(op string, phase Phase) error {
	return oops.Code(CodeWrongPhase).
		With("operation", op).
		With("phase", phase.String()).
		Errorf("%s is not legal in phase %s", op, phase)
}

// ErrIndexGap creates an error for an appended batch whose indices do not
// continue contiguously from the last delivered index.
func ErrIndexGap(index, want int) error {
	return oops.Code(CodeIndexUnknown).
		With("index", index).
		With("want", want).
		Errorf("appended message index %d does not continue from %d", index, want)
}

// ErrIndexUnknown creates an error for a selection of a message index that
// was never delivered.
func ErrIndexUnknown(index, delivered int) error {
	return oops.Code(CodeIndexUnknown).
		With("index", index).
		With("delivered", delivered).
		Errorf("message index %d has not been delivered", index)
}
