// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin_test

import (
	"fmt"
	"strings"
	"sync"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// memFile is a slice-backed read-only log handle for tests.
type memFile struct {
	path string
	msgs []*pluginpkg.Message
}

func newMemFile(path string, raws ...string) *memFile {
	f := &memFile{path: path}
	for i, raw := range raws {
		f.msgs = append(f.msgs, pluginpkg.NewMessage(i, []byte(raw)))
	}
	return f
}

func (f *memFile) append(raws ...string) []*pluginpkg.Message {
	var added []*pluginpkg.Message
	for _, raw := range raws {
		m := pluginpkg.NewMessage(len(f.msgs), []byte(raw))
		f.msgs = append(f.msgs, m)
		added = append(added, m)
	}
	return added
}

func (f *memFile) Path() string      { return f.path }
func (f *memFile) MessageCount() int { return len(f.msgs) }
func (f *memFile) MessageAt(index int) (*pluginpkg.Message, error) {
	if index < 0 || index >= len(f.msgs) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	return f.msgs[index], nil
}

// recordingViewer records every lifecycle callback it receives.
type recordingViewer struct {
	*pluginpkg.Base
	mu     sync.Mutex
	events []string
}

func newRecordingViewer(name string) *recordingViewer {
	return &recordingViewer{Base: pluginpkg.NewBase(name, "records lifecycle callbacks", "1.0.0")}
}

func (v *recordingViewer) record(format string, args ...any) {
	v.mu.Lock()
	v.events = append(v.events, fmt.Sprintf(format, args...))
	v.mu.Unlock()
}

func (v *recordingViewer) Events() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.events))
	copy(out, v.events)
	return out
}

func (v *recordingViewer) InitViewer() pluginpkg.Surface { return nil }
func (v *recordingViewer) InitFileStart(file pluginpkg.LogFile) {
	v.record("initFileStart:%s", file.Path())
}
func (v *recordingViewer) InitMsg(i int, _ *pluginpkg.Message) { v.record("initMsg:%d", i) }
func (v *recordingViewer) InitMsgDecoded(i int, _ *pluginpkg.Message) {
	v.record("initMsgDecoded:%d", i)
}
func (v *recordingViewer) InitFileFinish()  { v.record("initFileFinish") }
func (v *recordingViewer) UpdateFileStart() { v.record("updateFileStart") }
func (v *recordingViewer) UpdateMsg(i int, _ *pluginpkg.Message) {
	v.record("updateMsg:%d", i)
}
func (v *recordingViewer) UpdateMsgDecoded(i int, _ *pluginpkg.Message) {
	v.record("updateMsgDecoded:%d", i)
}
func (v *recordingViewer) UpdateFileFinish() { v.record("updateFileFinish") }
func (v *recordingViewer) SelectedIdxMsg(i int, _ *pluginpkg.Message) {
	v.record("selectedIdxMsg:%d", i)
}
func (v *recordingViewer) SelectedIdxMsgDecoded(i int, _ *pluginpkg.Message) {
	v.record("selectedIdxMsgDecoded:%d", i)
}

// prefixDecoder claims messages starting with its prefix and decodes them
// by attaching the upper-cased remainder. failDecode makes DecodeMsg fail
// after claiming, to exercise the raw fallback.
type prefixDecoder struct {
	*pluginpkg.Base
	prefix     string
	failDecode bool
}

func newPrefixDecoder(name, prefix string) *prefixDecoder {
	return &prefixDecoder{
		Base:   pluginpkg.NewBase(name, "test prefix decoder", "1.0.0"),
		prefix: prefix,
	}
}

func (d *prefixDecoder) IsMsg(msg *pluginpkg.Message, _ pluginpkg.Trigger) bool {
	return strings.HasPrefix(string(msg.Raw()), d.prefix)
}

func (d *prefixDecoder) DecodeMsg(msg *pluginpkg.Message, _ pluginpkg.Trigger) error {
	if d.failDecode {
		return d.Failf("decode failed for index %d", msg.Index())
	}
	rest := strings.TrimPrefix(string(msg.Raw()), d.prefix)
	msg.SetDecoded(&pluginpkg.Decoded{Text: strings.ToUpper(rest)})
	return nil
}

// scriptedCommander replays a fixed progress sequence, one value per poll,
// mirroring the host's polling contract without real concurrency.
type scriptedCommander struct {
	*pluginpkg.Base
	mu        sync.Mutex
	script    []int
	pos       int
	running   bool
	value     string
	cancelled int
}

func newScriptedCommander(name string, script []int, value string) *scriptedCommander {
	return &scriptedCommander{
		Base:   pluginpkg.NewBase(name, "scripted command plugin", "1.0.0"),
		script: script,
		value:  value,
	}
}

func (c *scriptedCommander) CommandList() []string { return []string{"export", "reset"} }

func (c *scriptedCommander) Command(name string, _ []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return c.Failf("a command is already running")
	}
	if name != "export" && name != "reset" {
		return c.Failf("unknown command %q", name)
	}
	c.running = true
	c.pos = 0
	return nil
}

func (c *scriptedCommander) CommandProgress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0
	}
	p := c.script[c.pos]
	if c.pos < len(c.script)-1 {
		c.pos++
	}
	return p
}

func (c *scriptedCommander) CommandReturnValue() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ""
	}
	c.running = false
	return c.value
}

func (c *scriptedCommander) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled++
}

// runnerCommander is a realistic asynchronous commander built on the SDK
// Runner, with a controllable body.
type runnerCommander struct {
	*pluginpkg.Base
	runner *pluginpkg.Runner
	body   pluginpkg.TaskFunc
}

func newRunnerCommander(name string, body pluginpkg.TaskFunc) *runnerCommander {
	c := &runnerCommander{
		Base: pluginpkg.NewBase(name, "runner-backed command plugin", "1.0.0"),
		body: body,
	}
	c.runner = pluginpkg.NewRunner(pluginpkg.WithErrorSink(c.RecordError))
	return c
}

func (c *runnerCommander) CommandList() []string { return []string{"work"} }

func (c *runnerCommander) Command(name string, _ []string) error {
	if name != "work" {
		return c.Failf("unknown command %q", name)
	}
	if err := c.runner.Go(c.body); err != nil {
		return c.Fail(err)
	}
	return nil
}

func (c *runnerCommander) CommandProgress() int       { return c.runner.Progress() }
func (c *runnerCommander) CommandReturnValue() string { return c.runner.ReturnValue() }
func (c *runnerCommander) Cancel()                    { c.runner.Cancel() }

var _ pluginpkg.Commander = (*runnerCommander)(nil)
var _ pluginpkg.Commander = (*scriptedCommander)(nil)
var _ pluginpkg.Viewer = (*recordingViewer)(nil)
var _ pluginpkg.Decoder = (*prefixDecoder)(nil)
var _ pluginpkg.LogFile = (*memFile)(nil)

// staleVersionPlugin reports an interface version the host does not speak.
type staleVersionPlugin struct {
	*pluginpkg.Base
	reported string
}

func (p *staleVersionPlugin) PluginInterfaceVersion() string { return p.reported }

func newStaleVersionPlugin(name, reported string) *staleVersionPlugin {
	return &staleVersionPlugin{
		Base:     pluginpkg.NewBase(name, "built against another contract", "1.0.0"),
		reported: reported,
	}
}
