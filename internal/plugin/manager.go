package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// Factory instantiates a builtin plugin implementation. The dynamic
// loading mechanism is outside this contract; factories stand in for the
// external loader and hand the host already constructed instances.
type Factory func() pluginpkg.Plugin

// Manager discovers plugin manifests and activates the matching builtin
// implementations against the registry.
type Manager struct {
	pluginsDir string
	registry   *Registry
	factories  map[string]Factory
	active     map[string]*DiscoveredPlugin
	mu         sync.RWMutex
}

// NewManager creates a plugin manager. Panics if registry is nil.
func NewManager(pluginsDir string, registry *Registry) *Manager {
	if registry == nil {
		panic("plugin: registry cannot be nil")
	}
	return &Manager{
		pluginsDir: pluginsDir,
		registry:   registry,
		factories:  make(map[string]Factory),
		active:     make(map[string]*DiscoveredPlugin),
	}
}

// RegisterFactory associates a manifest name with a builtin constructor.
func (m *Manager) RegisterFactory(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = f
}

// DiscoveredPlugin contains a manifest and its directory.
type DiscoveredPlugin struct {
	Manifest *Manifest
	Dir      string
}

// Discover finds all valid plugin manifests in the plugins directory.
// Invalid manifests are logged and skipped.
func (m *Manager) Discover(_ context.Context) ([]*DiscoveredPlugin, error) {
	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No plugins directory
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	var plugins []*DiscoveredPlugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(m.pluginsDir, entry.Name())
		manifestPath := filepath.Join(pluginDir, "plugin.yaml")

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			slog.Warn("skipping plugin without manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		plugins = append(plugins, &DiscoveredPlugin{
			Manifest: manifest,
			Dir:      pluginDir,
		})
	}

	return plugins, nil
}

// LoadAll discovers manifests and activates every plugin with a known
// factory. Individual activation failures are logged as warnings and do
// not fail the whole load, so the host starts even when some plugins have
// issues.
func (m *Manager) LoadAll(ctx context.Context) error {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	for _, dp := range discovered {
		if err := m.activate(dp); err != nil {
			slog.Error("failed to activate plugin",
				"plugin", dp.Manifest.Name,
				"error", err)
			continue
		}
	}

	return nil
}

// activate instantiates one discovered plugin and registers it.
//
// Returns nil (not an error) for manifests without a matching factory so
// the host degrades gracefully when a manifest names an implementation
// this build does not carry.
func (m *Manager) activate(dp *DiscoveredPlugin) error {
	m.mu.Lock()
	factory, ok := m.factories[dp.Manifest.Name]
	m.mu.Unlock()
	if !ok {
		slog.Warn("no builtin implementation for plugin, skipping",
			"plugin", dp.Manifest.Name)
		return nil
	}

	inst := factory()
	if err := m.registry.Register(inst); err != nil {
		return fmt.Errorf("register plugin %s: %w", dp.Manifest.Name, err)
	}
	if err := m.registry.Enforcer().SetGrants(dp.Manifest.Name, dp.Manifest.Capabilities); err != nil {
		m.registry.Unregister(dp.Manifest.Name)
		return fmt.Errorf("grant capabilities for %s: %w", dp.Manifest.Name, err)
	}

	if dp.Manifest.Config != "" {
		m.loadConfig(dp, inst)
	}

	m.mu.Lock()
	m.active[dp.Manifest.Name] = dp
	m.mu.Unlock()

	slog.Info("activated plugin",
		"plugin", dp.Manifest.Name,
		"version", dp.Manifest.Version,
		"capabilities", dp.Manifest.Capabilities)

	return nil
}

// loadConfig hands the manifest's config path to a Configurable plugin.
// A load failure is recoverable: the plugin keeps its previous (or empty)
// configuration and the host proceeds.
func (m *Manager) loadConfig(dp *DiscoveredPlugin, inst pluginpkg.Plugin) {
	cfg, ok := inst.(pluginpkg.Configurable)
	if !ok {
		slog.Warn("manifest names a config but plugin is not configurable",
			"plugin", dp.Manifest.Name,
			"config", dp.Manifest.Config)
		return
	}

	path := dp.Manifest.Config
	if !filepath.IsAbs(path) {
		path = filepath.Join(dp.Dir, path)
	}
	if err := cfg.LoadConfig(path); err != nil {
		slog.Warn("plugin configuration load failed",
			"plugin", dp.Manifest.Name,
			"config", path,
			"last_error", inst.LastError())
	}
}

// Deactivate removes an active plugin from the registry and drops its
// grants and surfaces.
func (m *Manager) Deactivate(name string) {
	m.mu.Lock()
	delete(m.active, name)
	m.mu.Unlock()
	m.registry.Unregister(name)
}

// Active returns names of all activated plugins, sorted.
func (m *Manager) Active() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveManifest returns the manifest an active plugin was activated from.
func (m *Manager) ActiveManifest(name string) (*Manifest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dp, ok := m.active[name]
	if !ok {
		return nil, false
	}
	return dp.Manifest, true
}
