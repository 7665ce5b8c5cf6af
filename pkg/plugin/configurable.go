// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

// Configurable is the optional contract for file-backed plugin
// configuration. The path handed to LoadConfig/SaveConfig is a file or
// directory whose meaning and format are plugin-private; the host treats it
// opaquely.
type Configurable interface {
	// LoadConfig replaces the plugin's active configuration from path.
	// The replacement is atomic: either the whole new configuration takes
	// effect or, on error, the previous configuration is retained. An
	// invalid, unreadable, or malformed path yields a non-nil error (also
	// recorded in the last-error slot), never a crash.
	LoadConfig(path string) error

	// SaveConfig persists the active configuration to path. On failure no
	// partially written file may be left behind; write-temp-then-rename or
	// equivalent is the implementer's responsibility.
	SaveConfig(path string) error

	// ConfigInfo describes the configuration currently in effect, one
	// human-readable line per element. After a failed load it still
	// reflects the last successfully loaded configuration.
	ConfigInfo() []string
}
