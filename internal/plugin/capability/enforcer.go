// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package capability provides runtime capability gating for plugins.
//
// A plugin's manifest grants it capability patterns; the host checks a
// concrete capability name against those grants before routing any call to
// the plugin. Capabilities are dot-separated names:
//
//   - "decoder", "viewer", "control" gate the corresponding lifecycle
//     capabilities as a whole
//   - "command.<name>" gates one command, so "command.*" grants every
//     command and "command.export" grants exactly one
//
// Matching uses gobwas/glob with '.' as the segment separator: '*' matches
// a single segment and '**' crosses segments.
package capability

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

// Capability names checked by the host drivers.
const (
	Decoder = "decoder"
	Viewer  = "viewer"
	Control = "control"

	// CommandPrefix is prepended to a command name to form the capability
	// checked by the command dispatcher.
	CommandPrefix = "command."
)

// Command returns the capability name gating one plugin command.
func Command(name string) string {
	return CommandPrefix + name
}

// grant pairs a pattern with its compiled glob.
type grant struct {
	pattern string
	glob    glob.Glob
}

// Enforcer checks plugin capability grants at runtime. Deny by default:
// unknown plugins and unmatched capabilities are refused without error.
// Safe for concurrent use; the zero value is ready.
type Enforcer struct {
	grants map[string][]grant
	mu     sync.RWMutex
}

// NewEnforcer creates an empty enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{grants: make(map[string][]grant)}
}

// ValidatePattern reports whether a capability pattern is well-formed.
// Used by manifest validation so a bad pattern is caught at discovery,
// not at first check.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return errors.New("empty capability pattern")
	}
	if _, err := glob.Compile(pattern, '.'); err != nil {
		return fmt.Errorf("capability pattern %q: %w", pattern, err)
	}
	return nil
}

// SetGrants replaces a plugin's capability grants. All patterns are
// compiled before any state changes, so a validation failure leaves the
// enforcer untouched (all-or-nothing). The patterns slice is copied.
func (e *Enforcer) SetGrants(plugin string, patterns []string) error {
	if plugin == "" {
		return errors.New("plugin name cannot be empty")
	}

	compiled := make([]grant, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			return fmt.Errorf("capability %d: empty capability pattern", i)
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return fmt.Errorf("capability %d (%q): %w", i, pattern, err)
		}
		compiled[i] = grant{pattern: pattern, glob: g}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.grants == nil {
		e.grants = make(map[string][]grant)
	}
	e.grants[plugin] = compiled
	return nil
}

// RemoveGrants unregisters a plugin. Safe for unknown plugins.
func (e *Enforcer) RemoveGrants(plugin string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.grants, plugin)
}

// Grants returns a copy of the patterns granted to a plugin, or nil when
// the plugin is unknown.
func (e *Enforcer) Grants(plugin string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	gs, ok := e.grants[plugin]
	if !ok {
		return nil
	}
	patterns := make([]string, len(gs))
	for i, g := range gs {
		patterns[i] = g.pattern
	}
	return patterns
}

// Check reports whether plugin holds the requested capability. Empty
// names, unknown plugins, and unmatched capabilities all answer false.
func (e *Enforcer) Check(plugin, capName string) bool {
	if capName == "" {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, g := range e.grants[plugin] {
		if g.glob.Match(capName) {
			return true
		}
	}
	return false
}
