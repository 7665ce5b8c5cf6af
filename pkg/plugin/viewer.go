// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import "io"

// Surface is the opaque display handle a viewer returns from InitViewer.
// The host owns embedding: it renders the surface into its own output and
// drops it when the plugin is deactivated. Plugins must not assume the
// surface outlives deactivation.
type Surface interface {
	// Title identifies the surface in the host UI.
	Title() string

	// Render writes the surface's current content to w. It is called from
	// the host's rendering context and must not block indefinitely.
	Render(w io.Writer) error
}

// LogFile is the read-only handle the host grants viewers at the start of
// the bulk phase. The on-disk format is host-private.
type LogFile interface {
	// Path returns the location of the underlying log.
	Path() string

	// MessageCount returns the number of messages currently loaded.
	MessageCount() int

	// MessageAt returns the message at the given index, which must have
	// been assigned already.
	MessageAt(index int) (*Message, error)
}

// Viewer receives the full message lifecycle for a loaded log. Per log the
// phases are entered strictly in this order:
//
//	Uninitialized -> BulkLoading -> BulkLoaded -> (Streaming <-> BulkLoaded) -> Closed
//
// During the bulk phase every pre-existing message is delivered exactly
// once via InitMsg, in strictly increasing contiguous index order starting
// at 0, with at most one InitMsgDecoded per index (only when a decoder
// accepted the message). Streaming triads (UpdateFileStart, UpdateMsg /
// UpdateMsgDecoded per new index, UpdateFileFinish) repeat while the log is
// open, indices continuing from the bulk phase.
//
// None of these callbacks has an error return: a viewer that hits an
// internal failure records it via its last-error slot and continues
// best-effort. The pipeline never aborts because one viewer misbehaves.
type Viewer interface {
	// InitViewer is called once at plugin activation and returns the
	// plugin-owned display surface, or nil when the plugin has no usable
	// surface. It must not fail.
	InitViewer() Surface

	// InitFileStart enters the bulk phase for a newly opened log.
	InitFileStart(file LogFile)

	// InitMsg delivers one undecoded pre-existing message.
	InitMsg(index int, msg *Message)

	// InitMsgDecoded delivers the decoded form of a pre-existing message
	// some decoder accepted.
	InitMsgDecoded(index int, msg *Message)

	// InitFileFinish ends the bulk phase; called exactly once per log
	// open, after all InitMsg/InitMsgDecoded calls.
	InitFileFinish()

	// UpdateFileStart enters a streaming pass for newly appended entries.
	UpdateFileStart()

	// UpdateMsg delivers one newly appended undecoded message.
	UpdateMsg(index int, msg *Message)

	// UpdateMsgDecoded delivers the decoded form of a newly appended
	// message some decoder accepted.
	UpdateMsgDecoded(index int, msg *Message)

	// UpdateFileFinish ends the streaming pass.
	UpdateFileFinish()

	// SelectedIdxMsg reports a user selection of an already delivered
	// message, at most once per selection event.
	SelectedIdxMsg(index int, msg *Message)

	// SelectedIdxMsgDecoded reports a user selection of an already
	// delivered message that carries a decoded form.
	SelectedIdxMsgDecoded(index int, msg *Message)
}
