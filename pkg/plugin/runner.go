// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
)

// CodeCommandBusy marks a Command call rejected because an execution is
// already in flight.
const CodeCommandBusy = "COMMAND_BUSY"

// TaskFunc is the body of a command execution. It reports progress through
// the task handle and observes ctx for cooperative cancellation at its own
// safe points. The returned string becomes the command's return value;
// a cancelled execution may return a partial result. A non-nil error is
// routed to the runner's error sink (normally Base.RecordError) and the
// execution still completes.
type TaskFunc func(ctx context.Context, task *Task) (string, error)

// Task is the handle a TaskFunc uses to publish progress.
type Task struct {
	r *Runner
}

// SetProgress publishes execution progress. Values are clamped to [0,99]
// (ProgressDone is published by the runner itself at completion) and
// decreases are ignored so the observable progress is monotonic.
func (t *Task) SetProgress(p int) {
	t.r.setProgress(p)
}

// snapshot is the atomically published view of one execution. The polling
// context reads whole snapshots, never individual fields, so there are no
// torn reads between state, progress, and result.
type snapshot struct {
	state    ExecState
	progress int
	result   string
}

var idleSnapshot = &snapshot{state: StateIdle}

// Runner implements the Commander execution state machine for plugins:
// single execution in flight, atomically published progress/result,
// idempotent cooperative cancellation, and reset to Idle when the return
// value is collected. Plugins embed a Runner and delegate
// CommandProgress/CommandReturnValue/Cancel to it.
//
// The zero value is not usable; call NewRunner.
type Runner struct {
	mu     sync.Mutex
	snap   atomic.Pointer[snapshot]
	cancel context.CancelFunc

	errSink func(error)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithErrorSink routes execution errors to sink, typically
// Base.RecordError so failures surface via LastError.
func WithErrorSink(sink func(error)) RunnerOption {
	return func(r *Runner) {
		r.errSink = sink
	}
}

// NewRunner creates an idle runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	r.snap.Store(idleSnapshot)
	return r
}

// Go starts fn on a background goroutine. It returns promptly; the host
// observes completion by polling Progress. Rejected when an execution is
// already running or cancelling; the rejection does not alter the in-flight
// execution.
func (r *Runner) Go(fn TaskFunc) error {
	ctx, err := r.begin()
	if err != nil {
		return err
	}
	go func() {
		result, ferr := fn(ctx, &Task{r: r})
		r.complete(result, ferr)
	}()
	return nil
}

// Run executes fn synchronously: when it returns, progress is already at
// ProgressDone and the return value is ready. The same single-execution
// rejection rules as Go apply. fn's error is returned to the caller in
// addition to being routed to the error sink.
func (r *Runner) Run(fn TaskFunc) error {
	ctx, err := r.begin()
	if err != nil {
		return err
	}
	result, ferr := fn(ctx, &Task{r: r})
	r.complete(result, ferr)
	return ferr
}

// begin transitions Idle/Completed -> Running. Starting a new execution
// while a completed result was never collected discards that result.
func (r *Runner) begin() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.snap.Load().state {
	case StateRunning, StateCancelling:
		return nil, oops.Code(CodeCommandBusy).Errorf("a command is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.snap.Store(&snapshot{state: StateRunning})
	return ctx, nil
}

// complete publishes the terminal snapshot for the current execution.
func (r *Runner) complete(result string, err error) {
	if err != nil && r.errSink != nil {
		r.errSink(err)
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel() // release the context regardless of how fn returned
		r.cancel = nil
	}
	r.snap.Store(&snapshot{state: StateCompleted, progress: ProgressDone, result: result})
	r.mu.Unlock()
}

func (r *Runner) setProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > ProgressDone-1 {
		p = ProgressDone - 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	if cur.state != StateRunning && cur.state != StateCancelling {
		return
	}
	if p <= cur.progress {
		return
	}
	r.snap.Store(&snapshot{state: cur.state, progress: p, result: cur.result})
}

// State returns the current execution state.
func (r *Runner) State() ExecState {
	return r.snap.Load().state
}

// Progress implements the Commander progress contract: 0 while Idle,
// the last published value while Running/Cancelling, ProgressDone once
// Completed.
func (r *Runner) Progress() int {
	s := r.snap.Load()
	if s.state == StateCompleted {
		return ProgressDone
	}
	return s.progress
}

// ReturnValue collects the completed execution's result and resets the
// state machine to Idle. Before completion it returns "" and leaves the
// state untouched.
func (r *Runner) ReturnValue() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	if cur.state != StateCompleted {
		return ""
	}
	r.snap.Store(idleSnapshot)
	return cur.result
}

// Cancel requests cooperative termination of a running execution and
// transitions it to Cancelling. It is idempotent and safe to call at any
// time from any goroutine; calls outside Running/Cancelling are no-ops.
// The execution still reaches Completed on its own.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	if cur.state != StateRunning {
		return
	}
	r.snap.Store(&snapshot{state: StateCancelling, progress: cur.progress, result: cur.result})
	if r.cancel != nil {
		r.cancel()
	}
}
