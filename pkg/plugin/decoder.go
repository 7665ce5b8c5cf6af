// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

// Trigger tells a decoder why it is being invoked.
type Trigger int

const (
	// TriggerAuto marks the bulk/automatic pass the host runs over a log.
	TriggerAuto Trigger = iota

	// TriggerUser marks an explicit user action such as an export. A
	// decoder may choose to decode more expensively in this case.
	TriggerUser
)

func (t Trigger) String() string {
	switch t {
	case TriggerAuto:
		return "auto"
	case TriggerUser:
		return "user"
	default:
		return "unknown"
	}
}

// Decoder classifies and transforms raw messages into decoded form.
//
// Decoder calls for a given log are delivered in increasing index order and
// are never re-entrant per plugin instance; implementations need no
// internal locking against the host.
type Decoder interface {
	// IsMsg reports whether this decoder handles msg. It must be
	// deterministic for the same raw bytes and configuration, and must not
	// mutate msg when it returns false. False means "not mine", not an
	// error.
	IsMsg(msg *Message, trigger Trigger) bool

	// DecodeMsg attaches the decoded representation to msg in place. It
	// must be idempotent: re-decoding the same raw payload with unchanged
	// configuration yields the same decoded output, since the host may
	// invoke it again on re-filter or export. A non-nil error (also
	// recorded in the instance's last-error slot) leaves the raw payload
	// and index valid; the host falls back to showing the raw form.
	DecodeMsg(msg *Message, trigger Trigger) error
}
