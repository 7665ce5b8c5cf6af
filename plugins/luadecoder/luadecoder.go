// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package luadecoder decodes messages with an operator-supplied Lua
// script, so new record formats can be handled without rebuilding the
// host. The script runs sandboxed (base, string, table, math only; no io,
// os, or filesystem access) and must define two functions:
//
//	is_msg(text)     -> bool
//	decode_msg(text) -> string
//
// is_msg decides whether the script claims a record; decode_msg returns
// the decoded text for a claimed record, or raises an error.
package luadecoder

import (
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
)

// Script function names the contract requires.
const (
	fnIsMsg     = "is_msg"
	fnDecodeMsg = "decode_msg"
)

// safeLibrary is a Lua library safe to load in the sandbox.
type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

// Safe: base, table, string, math. Blocked: os, io, debug, package.
var safeLibraries = []safeLibrary{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// unsafeBaseFunctions are base-library functions that reach the
// filesystem and must be blocked.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load"}

// Plugin runs a sandboxed Lua script as a decoder. Lua states are not
// goroutine-safe, so all script calls serialize on the plugin's lock.
type Plugin struct {
	*pluginpkg.Base

	mu    sync.Mutex
	state *lua.LState
	from  string
}

// New creates the plugin with no script loaded. Until a script is loaded
// it claims nothing.
func New() *Plugin {
	return &Plugin{
		Base: pluginpkg.NewBase("luadecoder", "decodes records with an operator-supplied Lua script", "1.0.0"),
	}
}

// newState builds a sandboxed Lua state and runs the script in it.
func newState(script string) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range safeLibraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("opening library %s: %w", lib.name, err)
		}
	}
	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}

	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("running script: %w", err)
	}

	for _, fn := range []string{fnIsMsg, fnDecodeMsg} {
		if _, ok := L.GetGlobal(fn).(*lua.LFunction); !ok {
			L.Close()
			return nil, fmt.Errorf("script does not define function %s", fn)
		}
	}
	return L, nil
}

// LoadConfig loads the Lua script at path into a fresh sandbox. The swap
// is all-or-nothing: a script that fails to run or lacks the required
// functions leaves the previous script active.
func (p *Plugin) LoadConfig(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the manifest
	if err != nil {
		return p.Fail(fmt.Errorf("reading script: %w", err))
	}

	state, err := newState(string(data))
	if err != nil {
		return p.Fail(err)
	}

	p.mu.Lock()
	if p.state != nil {
		p.state.Close()
	}
	p.state = state
	p.from = path
	p.mu.Unlock()
	return nil
}

// SaveConfig writes the active script back out via temp-then-rename. The
// plugin never edits the script, so this is a copy of what was loaded.
func (p *Plugin) SaveConfig(path string) error {
	p.mu.Lock()
	from := p.from
	p.mu.Unlock()

	if from == "" {
		return p.Failf("no script loaded")
	}
	data, err := os.ReadFile(from) //nolint:gosec // recorded at load time
	if err != nil {
		return p.Fail(fmt.Errorf("re-reading script: %w", err))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return p.Fail(fmt.Errorf("writing script copy: %w", err))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return p.Fail(fmt.Errorf("replacing script: %w", err))
	}
	return nil
}

// ConfigInfo describes the loaded script.
func (p *Plugin) ConfigInfo() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return []string{"no script loaded"}
	}
	return []string{fmt.Sprintf("script %s (sandboxed: base, table, string, math)", p.from)}
}

// IsMsg asks the script whether it claims the record. Script failures are
// recorded and answered with false, so a broken script degrades to
// claiming nothing.
func (p *Plugin) IsMsg(msg *pluginpkg.Message, _ pluginpkg.Trigger) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == nil {
		return false
	}
	ret, err := p.call(fnIsMsg, string(msg.Raw()))
	if err != nil {
		p.RecordError(err)
		return false
	}
	return lua.LVAsBool(ret)
}

// DecodeMsg runs the script's decoder over the record.
func (p *Plugin) DecodeMsg(msg *pluginpkg.Message, _ pluginpkg.Trigger) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == nil {
		return p.Failf("no script loaded")
	}
	ret, err := p.call(fnDecodeMsg, string(msg.Raw()))
	if err != nil {
		return p.Fail(err)
	}
	text, ok := ret.(lua.LString)
	if !ok || text == "" {
		return p.Failf("%s returned no text for record %d", fnDecodeMsg, msg.Index())
	}

	msg.SetDecoded(&pluginpkg.Decoded{Text: string(text)})
	return nil
}

// call invokes one script function with a single string argument. Must be
// called with mu held.
func (p *Plugin) call(fn, arg string) (lua.LValue, error) {
	if err := p.state.CallByParam(lua.P{
		Fn:      p.state.GetGlobal(fn),
		NRet:    1,
		Protect: true,
	}, lua.LString(arg)); err != nil {
		return nil, fmt.Errorf("script %s failed: %w", fn, err)
	}
	ret := p.state.Get(-1)
	p.state.Pop(1)
	return ret, nil
}

var (
	_ pluginpkg.Decoder      = (*Plugin)(nil)
	_ pluginpkg.Configurable = (*Plugin)(nil)
)
