// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package exporter collects the messages a session delivers and exports
// them to a file on command. It provides the viewer and command
// capabilities: the viewer side accumulates messages and tracks the user's
// selection, the command side runs exports asynchronously with progress
// reporting and cooperative cancellation.
package exporter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// entry is one collected message in display form.
type entry struct {
	index   int
	source  string
	text    string
	decoded bool
}

// Plugin collects delivered messages for export.
type Plugin struct {
	*pluginpkg.Base
	runner *pluginpkg.Runner

	mu       sync.Mutex
	entries  []entry
	selected int // last selected index, -1 when none
	bulk     bool
}

// New creates an exporter with nothing collected.
func New() *Plugin {
	p := &Plugin{
		Base:     pluginpkg.NewBase("exporter", "collects messages and exports them to a file", "1.0.0"),
		selected: -1,
	}
	p.runner = pluginpkg.NewRunner(pluginpkg.WithErrorSink(p.RecordError))
	return p
}

// InitViewer returns the exporter's status surface.
func (p *Plugin) InitViewer() pluginpkg.Surface {
	return &surface{plugin: p}
}

// InitFileStart resets the collection for a new log.
func (p *Plugin) InitFileStart(_ pluginpkg.LogFile) {
	p.mu.Lock()
	p.entries = nil
	p.selected = -1
	p.bulk = true
	p.mu.Unlock()
}

// InitMsg collects one pre-existing message.
func (p *Plugin) InitMsg(index int, msg *pluginpkg.Message) {
	p.collect(index, msg, false)
}

// InitMsgDecoded upgrades the collected form to the decoded text.
func (p *Plugin) InitMsgDecoded(index int, msg *pluginpkg.Message) {
	p.collect(index, msg, true)
}

// InitFileFinish ends the bulk phase.
func (p *Plugin) InitFileFinish() {
	p.mu.Lock()
	p.bulk = false
	p.mu.Unlock()
}

// UpdateFileStart begins a streaming pass. Nothing to prepare.
func (p *Plugin) UpdateFileStart() {}

// UpdateMsg collects one appended message.
func (p *Plugin) UpdateMsg(index int, msg *pluginpkg.Message) {
	p.collect(index, msg, false)
}

// UpdateMsgDecoded upgrades an appended message to its decoded text.
func (p *Plugin) UpdateMsgDecoded(index int, msg *pluginpkg.Message) {
	p.collect(index, msg, true)
}

// UpdateFileFinish ends a streaming pass.
func (p *Plugin) UpdateFileFinish() {}

// SelectedIdxMsg tracks the user's selection for the surface.
func (p *Plugin) SelectedIdxMsg(index int, _ *pluginpkg.Message) {
	p.mu.Lock()
	p.selected = index
	p.mu.Unlock()
}

// SelectedIdxMsgDecoded tracks selection of a decoded message. The surface
// does not distinguish the two forms.
func (p *Plugin) SelectedIdxMsgDecoded(index int, _ *pluginpkg.Message) {
	p.mu.Lock()
	p.selected = index
	p.mu.Unlock()
}

// collect records (or upgrades) the entry for index. The pipeline delivers
// the undecoded call first and the decoded call immediately after, so an
// upgrade always targets the last entry.
func (p *Plugin) collect(index int, msg *pluginpkg.Message, decoded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if decoded && len(p.entries) > 0 && p.entries[len(p.entries)-1].index == index {
		p.entries[len(p.entries)-1].text = msg.Text()
		p.entries[len(p.entries)-1].decoded = true
		return
	}
	p.entries = append(p.entries, entry{
		index:  index,
		source: msg.Source,
		text:   msg.Text(),
	})
}

// snapshotEntries copies the collected entries for an export.
func (p *Plugin) snapshotEntries() []entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// CommandList names the commands this plugin accepts.
func (p *Plugin) CommandList() []string {
	return []string{"export", "reset"}
}

// Command starts an execution. "export <path>" runs asynchronously and
// writes the collected messages to path; "reset" drops the collection
// synchronously, so its progress is complete when Command returns.
func (p *Plugin) Command(name string, params []string) error {
	switch name {
	case "export":
		if len(params) != 1 || params[0] == "" {
			return p.Failf("export needs exactly one argument: the output path")
		}
		path := params[0]
		return p.Fail(p.runner.Go(func(ctx context.Context, task *pluginpkg.Task) (string, error) {
			return p.export(ctx, task, path)
		}))
	case "reset":
		return p.Fail(p.runner.Run(func(_ context.Context, _ *pluginpkg.Task) (string, error) {
			p.mu.Lock()
			n := len(p.entries)
			p.entries = nil
			p.selected = -1
			p.mu.Unlock()
			return fmt.Sprintf("dropped %d collected messages", n), nil
		}))
	default:
		return p.Failf("unknown command %q", name)
	}
}

// CommandProgress reports the running execution's progress.
func (p *Plugin) CommandProgress() int { return p.runner.Progress() }

// CommandReturnValue collects the completed execution's result.
func (p *Plugin) CommandReturnValue() string { return p.runner.ReturnValue() }

// Cancel requests cancellation of a running export.
func (p *Plugin) Cancel() { p.runner.Cancel() }

// export writes the collected messages to path, reporting progress and
// honouring cancellation between writes. A cancelled export keeps the
// partial file and reports how far it got.
func (p *Plugin) export(ctx context.Context, task *pluginpkg.Task, path string) (string, error) {
	entries := p.snapshotEntries()

	f, err := os.Create(path) //nolint:gosec // path is the operator's export target
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	w := bufio.NewWriter(f)

	written := 0
	var n int64
	for i, e := range entries {
		select {
		case <-ctx.Done():
			if err := finish(w, f); err != nil {
				return "", err
			}
			return fmt.Sprintf("cancelled after %d of %d messages (%d bytes)", written, len(entries), n), nil
		default:
		}

		line := formatEntry(e)
		wn, err := w.WriteString(line)
		if err != nil {
			_ = f.Close()
			return "", fmt.Errorf("writing export: %w", err)
		}
		n += int64(wn)
		written++
		if len(entries) > 0 {
			task.SetProgress(i * 100 / len(entries))
		}
	}

	if err := finish(w, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d messages (%d bytes) to %s", written, n, path), nil
}

func finish(w *bufio.Writer, f io.Closer) error {
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flushing export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export: %w", err)
	}
	return nil
}

func formatEntry(e entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\t", e.index)
	if e.source != "" {
		b.WriteString(e.source)
	}
	b.WriteByte('\t')
	b.WriteString(e.text)
	b.WriteByte('\n')
	return b.String()
}

// surface is the exporter's status panel.
type surface struct {
	plugin *Plugin
}

func (s *surface) Title() string { return "Exporter" }

func (s *surface) Render(w io.Writer) error {
	s.plugin.mu.Lock()
	count := len(s.plugin.entries)
	selected := s.plugin.selected
	bulk := s.plugin.bulk
	s.plugin.mu.Unlock()

	phase := "idle"
	if bulk {
		phase = "loading"
	}
	if _, err := fmt.Fprintf(w, "collected %d messages (%s)\n", count, phase); err != nil {
		return err
	}
	if selected >= 0 {
		if _, err := fmt.Fprintf(w, "selected index %d\n", selected); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ pluginpkg.Viewer    = (*Plugin)(nil)
	_ pluginpkg.Commander = (*Plugin)(nil)
)
