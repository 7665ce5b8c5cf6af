package plugin

import (
	"log/slog"
	"sort"
	"sync"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"

	"github.com/loglens/loglens/internal/plugin/capability"
)

// Registry holds the instantiated plugins the external loader handed to
// the host, gated by interface version at registration and by capability
// grants at lookup. It is safe for concurrent use.
type Registry struct {
	enforcer *capability.Enforcer
	plugins  map[string]pluginpkg.Plugin
	order    []string
	mu       sync.RWMutex
}

// NewRegistry creates a registry backed by the given enforcer.
// Panics if enforcer is nil.
func NewRegistry(enforcer *capability.Enforcer) *Registry {
	if enforcer == nil {
		panic("plugin: enforcer cannot be nil")
	}
	return &Registry{
		enforcer: enforcer,
		plugins:  make(map[string]pluginpkg.Plugin),
	}
}

// Register gates p on its reported interface version and adds it. A plugin
// with the same name replaces the previous instance with a warning;
// last-registered wins. Lookup order is registration order.
func (r *Registry) Register(p pluginpkg.Plugin) error {
	if err := pluginpkg.CheckInterfaceVersion(p.PluginInterfaceVersion()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, ok := r.plugins[name]; ok {
		slog.Warn("plugin conflict: overwriting existing instance",
			"plugin", name,
			"version", p.PluginVersion())
	} else {
		r.order = append(r.order, name)
	}
	r.plugins[name] = p
	return nil
}

// Unregister removes a plugin instance and its grants.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[name]; !ok {
		return
	}
	delete(r.plugins, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.enforcer.RemoveGrants(name)
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (pluginpkg.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns all registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enforcer exposes the capability enforcer backing this registry.
func (r *Registry) Enforcer() *capability.Enforcer {
	return r.enforcer
}

// BoundDecoder pairs a granted decoder capability with its plugin name.
type BoundDecoder struct {
	Name    string
	Decoder pluginpkg.Decoder
}

// BoundViewer pairs a granted viewer capability with its plugin name.
type BoundViewer struct {
	Name   string
	Viewer pluginpkg.Viewer
}

// BoundController pairs a granted control capability with its plugin name.
type BoundController struct {
	Name       string
	Controller pluginpkg.Controller
}

// Decoders returns, in registration order, the plugins that implement
// Decoder and hold the decoder grant.
func (r *Registry) Decoders() []BoundDecoder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []BoundDecoder
	for _, name := range r.order {
		d, ok := r.plugins[name].(pluginpkg.Decoder)
		if !ok || !r.enforcer.Check(name, capability.Decoder) {
			continue
		}
		out = append(out, BoundDecoder{Name: name, Decoder: d})
	}
	return out
}

// Viewers returns, in registration order, the plugins that implement
// Viewer and hold the viewer grant.
func (r *Registry) Viewers() []BoundViewer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []BoundViewer
	for _, name := range r.order {
		v, ok := r.plugins[name].(pluginpkg.Viewer)
		if !ok || !r.enforcer.Check(name, capability.Viewer) {
			continue
		}
		out = append(out, BoundViewer{Name: name, Viewer: v})
	}
	return out
}

// Controllers returns, in registration order, the plugins that implement
// Controller and hold the control grant.
func (r *Registry) Controllers() []BoundController {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []BoundController
	for _, name := range r.order {
		c, ok := r.plugins[name].(pluginpkg.Controller)
		if !ok || !r.enforcer.Check(name, capability.Control) {
			continue
		}
		out = append(out, BoundController{Name: name, Controller: c})
	}
	return out
}

// Commander returns the named plugin's command capability after checking
// the command grant for the specific command name.
func (r *Registry) Commander(name, command string) (pluginpkg.Commander, error) {
	r.mu.RLock()
	p, ok := r.plugins[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownPlugin(name)
	}

	c, ok := p.(pluginpkg.Commander)
	if !ok {
		return nil, ErrNotACommander(name)
	}
	if !r.enforcer.Check(name, capability.Command(command)) {
		return nil, ErrCapabilityDenied(name, capability.Command(command))
	}
	return c, nil
}
