// Package plugin provides host-side plugin registration, capability
// discovery, and the drivers that feed registered plugins the message
// lifecycle, control events, and commands.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/loglens/loglens/internal/plugin/capability"
)

// Manifest represents a plugin.yaml file. The loader that instantiates
// plugin implementations is external; the manifest tells the host which
// builtin implementation to activate, which capabilities to grant it, and
// optionally which configuration to hand it at activation.
type Manifest struct {
	Name         string   `yaml:"name" json:"name"`
	Version      string   `yaml:"version" json:"version"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`

	// Config is a file or directory handed opaquely to the plugin's
	// Configurable capability at activation. Relative paths resolve
	// against the manifest's directory.
	Config string `yaml:"config,omitempty" json:"config,omitempty"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: lowercase letter first, then
// lowercase letters, digits, or hyphens, not ending with a hyphen.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid X.Y.Z semver: %w", m.Version, err)
	}

	if len(m.Capabilities) == 0 {
		return fmt.Errorf("at least one capability grant is required")
	}
	for _, pattern := range m.Capabilities {
		if err := capability.ValidatePattern(pattern); err != nil {
			return err
		}
	}

	return nil
}
