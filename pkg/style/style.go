// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package style renders log messages for terminals, with ANSI coloring
// keyed off the message text's apparent severity.
package style

import (
	"fmt"
	"strings"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// ANSI escape sequences used by the palette.
const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// severityMarkers map lower-cased substrings to the color they trigger.
// First match wins, errors before warnings.
var severityMarkers = []struct {
	marker string
	color  string
}{
	{"fatal", ansiRed},
	{"error", ansiRed},
	{"fail", ansiRed},
	{"warn", ansiYellow},
}

// Palette renders message parts. The zero value renders plain text; set
// Enabled for ANSI output.
type Palette struct {
	Enabled bool
}

func (p Palette) wrap(color, s string) string {
	if !p.Enabled || s == "" {
		return s
	}
	return color + s + ansiReset
}

// Index renders a message index, dimmed.
func (p Palette) Index(i int) string {
	return p.wrap(ansiDim, fmt.Sprintf("%6d", i))
}

// Source renders an endpoint name.
func (p Palette) Source(s string) string {
	return p.wrap(ansiCyan, s)
}

// Text renders the message text, colored by apparent severity.
func (p Palette) Text(s string) string {
	lower := strings.ToLower(s)
	for _, m := range severityMarkers {
		if strings.Contains(lower, m.marker) {
			return p.wrap(m.color, s)
		}
	}
	return s
}

// Line renders one message as a display line: index, optional source, and
// the decoded-or-raw text.
func (p Palette) Line(msg *pluginpkg.Message) string {
	var b strings.Builder
	b.WriteString(p.Index(msg.Index()))
	b.WriteString("  ")
	if msg.Source != "" {
		b.WriteString(p.Source(msg.Source))
		b.WriteString("  ")
	}
	b.WriteString(p.Text(msg.Text()))
	return b.String()
}
