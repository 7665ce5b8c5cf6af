// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

// ExecState enumerates the command execution state machine:
//
//	Idle -> Running -> {Completed | Cancelling -> Completed} -> Idle
//
// Transitions are monotonic within one execution; the only way back to
// Idle is collecting the return value or starting the next command.
type ExecState int

const (
	StateIdle ExecState = iota
	StateRunning
	StateCancelling
	StateCompleted
)

func (s ExecState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ProgressDone is the progress threshold at which an execution counts as
// Completed and the return value is safe to read.
const ProgressDone = 100

// Commander accepts imperative commands and runs them synchronously or
// asynchronously. Exactly one execution may be in flight per plugin
// instance at a time.
//
// A synchronous implementation performs the work inside Command and
// returns with CommandProgress already at ProgressDone and the return
// value ready. An asynchronous implementation starts background work and
// returns promptly while CommandProgress climbs toward ProgressDone as the
// host polls it from a separate control-flow context. The Runner helper in
// this package implements these semantics; plugins normally embed it
// rather than hand-rolling the state machine.
type Commander interface {
	// CommandList returns the commands this plugin supports, for
	// discovery. No side effects.
	CommandList() []string

	// Command starts executing name with the given ordered parameters. It
	// is rejected with a non-nil error (also recorded in the last-error
	// slot) when an execution is already running; the in-flight
	// execution's progress and return value are unaffected by the
	// rejection.
	Command(name string, params []string) error

	// CommandProgress reports execution progress in [0,100]. It is
	// monotonically non-decreasing within one execution; a value of
	// ProgressDone or more means the execution completed and
	// CommandReturnValue is safe to read. Idle reports 0.
	CommandProgress() int

	// CommandReturnValue returns the completed execution's result. It is
	// valid exactly once per execution: reading it resets the state
	// machine to Idle.
	CommandReturnValue() string

	// Cancel requests early termination of a running execution.
	// Cancellation is cooperative: the execution still eventually reaches
	// Completed with some return value, possibly a partial result. Cancel
	// is safe to call at any time, from any goroutine, multiple times.
	Cancel()
}
