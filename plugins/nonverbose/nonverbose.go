// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package nonverbose decodes compact non-verbose records. Such records
// carry a numeric message ID and positional arguments instead of text:
//
//	NV|<id>|arg1 arg2 ...
//
// A key table, loaded from a YAML file, maps each ID to a format template
// whose %s verbs consume the arguments in order.
package nonverbose

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

const prefix = "NV|"

// keyTable is the parsed configuration file.
type keyTable struct {
	Messages map[string]string `yaml:"messages"`
}

// Plugin decodes non-verbose records against its key table. It provides
// the decoder and configuration capabilities.
type Plugin struct {
	*pluginpkg.Base

	mu    sync.RWMutex
	table map[string]string
	from  string
}

// New creates the plugin with an empty key table. Until a table is loaded
// it claims non-verbose records but fails to decode them, leaving them in
// raw form.
func New() *Plugin {
	return &Plugin{
		Base:  pluginpkg.NewBase("nonverbose", "decodes non-verbose records using a key table", "1.0.0"),
		table: map[string]string{},
	}
}

// IsMsg claims every record carrying the non-verbose framing, whether or
// not the key table knows its ID. The trigger does not matter here.
func (p *Plugin) IsMsg(msg *pluginpkg.Message, _ pluginpkg.Trigger) bool {
	return strings.HasPrefix(string(msg.Raw()), prefix)
}

// DecodeMsg resolves the record's ID against the key table and renders the
// template with the record's arguments.
func (p *Plugin) DecodeMsg(msg *pluginpkg.Message, _ pluginpkg.Trigger) error {
	raw := string(msg.Raw())
	body, ok := strings.CutPrefix(raw, prefix)
	if !ok {
		return p.Failf("record %d is not a non-verbose record", msg.Index())
	}

	id, argstr, _ := strings.Cut(body, "|")
	if id == "" {
		return p.Failf("record %d has no message ID", msg.Index())
	}

	p.mu.RLock()
	tmpl, known := p.table[id]
	p.mu.RUnlock()
	if !known {
		return p.Failf("message ID %s is not in the key table", id)
	}

	var args []any
	if argstr != "" {
		for _, a := range strings.Fields(argstr) {
			args = append(args, a)
		}
	}
	text := fmt.Sprintf(tmpl, args...)
	if strings.Contains(text, "%!") {
		return p.Failf("message ID %s: template wants different arguments than the record carries", id)
	}

	msg.SetDecoded(&pluginpkg.Decoded{
		Text:  text,
		Attrs: map[string]string{"nonverbose.id": id},
	})
	return nil
}

// LoadConfig replaces the key table from a YAML file. The swap is
// all-or-nothing: a parse or validation failure keeps the previous table.
func (p *Plugin) LoadConfig(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the manifest
	if err != nil {
		return p.Fail(fmt.Errorf("reading key table: %w", err))
	}

	var kt keyTable
	if err := yaml.Unmarshal(data, &kt); err != nil {
		return p.Fail(fmt.Errorf("parsing key table: %w", err))
	}
	if len(kt.Messages) == 0 {
		return p.Failf("key table %s defines no messages", path)
	}
	for id, tmpl := range kt.Messages {
		if strings.TrimSpace(id) == "" {
			return p.Failf("key table %s has an empty message ID", path)
		}
		if strings.TrimSpace(tmpl) == "" {
			return p.Failf("key table %s: message ID %s has an empty template", path, id)
		}
	}

	p.mu.Lock()
	p.table = kt.Messages
	p.from = path
	p.mu.Unlock()
	return nil
}

// SaveConfig writes the active key table to path via a temp file and
// rename, so a failure never leaves a partial table behind.
func (p *Plugin) SaveConfig(path string) error {
	p.mu.RLock()
	kt := keyTable{Messages: make(map[string]string, len(p.table))}
	for id, tmpl := range p.table {
		kt.Messages[id] = tmpl
	}
	p.mu.RUnlock()

	data, err := yaml.Marshal(&kt)
	if err != nil {
		return p.Fail(fmt.Errorf("marshalling key table: %w", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".nonverbose-*.yaml")
	if err != nil {
		return p.Fail(fmt.Errorf("creating temp file: %w", err))
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return p.Fail(fmt.Errorf("writing key table: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return p.Fail(fmt.Errorf("closing temp file: %w", err))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return p.Fail(fmt.Errorf("replacing key table: %w", err))
	}
	return nil
}

// ConfigInfo lists the loaded table's origin and its entries, sorted by
// message ID.
func (p *Plugin) ConfigInfo() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.table) == 0 {
		return []string{"no key table loaded"}
	}

	ids := make([]string, 0, len(p.table))
	for id := range p.table {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	info := make([]string, 0, len(ids)+1)
	info = append(info, fmt.Sprintf("key table %s (%d messages)", p.from, len(ids)))
	for _, id := range ids {
		info = append(info, fmt.Sprintf("id %s: %s", id, p.table[id]))
	}
	return info
}

var (
	_ pluginpkg.Decoder      = (*Plugin)(nil)
	_ pluginpkg.Configurable = (*Plugin)(nil)
)
