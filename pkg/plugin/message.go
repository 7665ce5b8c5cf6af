// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import "time"

// Message is one log record as seen by plugins. The host assigns the index
// (monotonically increasing, unique within a session, stable for the
// lifetime of the loaded log) and the raw payload; both are immutable to
// plugins. Decoders attach a decoded representation in place via
// SetDecoded; that representation is the only part of a message a plugin
// may mutate.
type Message struct {
	index int
	raw   []byte

	// Timestamp is when the record was produced, if the log carries one.
	Timestamp time.Time

	// Source names the endpoint the record originated from, if known.
	Source string

	decoded *Decoded
}

// Decoded is the textual/structured representation a decoder attaches to a
// message. Attrs carries optional structured fields alongside the text.
type Decoded struct {
	Text  string
	Attrs map[string]string
}

// NewMessage creates a message with its host-assigned index and raw
// payload. The raw slice is owned by the message after this call.
func NewMessage(index int, raw []byte) *Message {
	return &Message{index: index, raw: raw}
}

// Index returns the host-assigned message index.
func (m *Message) Index() int { return m.index }

// Raw returns the undecoded payload. Callers must not modify the returned
// slice; the raw payload is immutable for the lifetime of the loaded log.
func (m *Message) Raw() []byte { return m.raw }

// Decoded returns the attached decoded representation, or nil if no
// decoder has handled this message.
func (m *Message) Decoded() *Decoded { return m.decoded }

// SetDecoded attaches (or replaces) the decoded representation.
func (m *Message) SetDecoded(d *Decoded) { m.decoded = d }

// ClearDecoded drops the decoded representation, reverting the message to
// raw-only form.
func (m *Message) ClearDecoded() { m.decoded = nil }

// Text returns the decoded text when present, falling back to the raw
// payload otherwise. Hosts use this to render messages whether or not a
// decoder accepted them.
func (m *Message) Text() string {
	if m.decoded != nil && m.decoded.Text != "" {
		return m.decoded.Text
	}
	return string(m.raw)
}
