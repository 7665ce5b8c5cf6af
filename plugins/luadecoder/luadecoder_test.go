// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package luadecoder_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
	"github.com/loglens/loglens/plugins/luadecoder"
)

const hexScript = `
function is_msg(text)
	return string.sub(text, 1, 4) == "HEX|"
end

function decode_msg(text)
	local body = string.sub(text, 5)
	local out = {}
	for pair in string.gmatch(body, "%x%x") do
		table.insert(out, string.char(tonumber(pair, 16)))
	end
	if #out == 0 then
		error("no hex payload")
	end
	return table.concat(out)
end
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decoder.lua")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func loadedPlugin(t *testing.T) *luadecoder.Plugin {
	t.Helper()
	p := luadecoder.New()
	require.NoError(t, p.LoadConfig(writeScript(t, hexScript)))
	return p
}

func TestIsMsg(t *testing.T) {
	p := loadedPlugin(t)

	assert.True(t, p.IsMsg(pluginpkg.NewMessage(0, []byte("HEX|68690a")), pluginpkg.TriggerAuto))
	assert.False(t, p.IsMsg(pluginpkg.NewMessage(0, []byte("plain")), pluginpkg.TriggerAuto))
}

func TestIsMsgWithoutScript(t *testing.T) {
	p := luadecoder.New()
	assert.False(t, p.IsMsg(pluginpkg.NewMessage(0, []byte("HEX|00")), pluginpkg.TriggerAuto))
}

func TestDecodeMsg(t *testing.T) {
	p := loadedPlugin(t)

	msg := pluginpkg.NewMessage(0, []byte("HEX|6869"))
	require.NoError(t, p.DecodeMsg(msg, pluginpkg.TriggerUser))
	require.NotNil(t, msg.Decoded())
	assert.Equal(t, "hi", msg.Decoded().Text)
}

func TestDecodeMsgIdempotent(t *testing.T) {
	p := loadedPlugin(t)

	first := pluginpkg.NewMessage(0, []byte("HEX|6869"))
	require.NoError(t, p.DecodeMsg(first, pluginpkg.TriggerAuto))
	require.NoError(t, p.DecodeMsg(first, pluginpkg.TriggerUser))
	assert.Equal(t, "hi", first.Decoded().Text)

	again := pluginpkg.NewMessage(9, []byte("HEX|6869"))
	require.NoError(t, p.DecodeMsg(again, pluginpkg.TriggerAuto))
	assert.Equal(t, first.Decoded().Text, again.Decoded().Text)
}

func TestDecodeMsgScriptError(t *testing.T) {
	p := loadedPlugin(t)

	msg := pluginpkg.NewMessage(3, []byte("HEX|"))
	err := p.DecodeMsg(msg, pluginpkg.TriggerAuto)
	require.Error(t, err)
	assert.Nil(t, msg.Decoded())
	assert.NotEmpty(t, p.LastError())
}

func TestLoadConfigRejectsBrokenScripts(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "syntax error", script: "function is_msg(text( end"},
		{name: "missing is_msg", script: "function decode_msg(t) return t end"},
		{name: "missing decode_msg", script: "function is_msg(t) return true end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := luadecoder.New()
			require.Error(t, p.LoadConfig(writeScript(t, tt.script)))
			assert.NotEmpty(t, p.LastError())
		})
	}
}

func TestLoadConfigKeepsPreviousScriptOnFailure(t *testing.T) {
	p := loadedPlugin(t)
	require.Error(t, p.LoadConfig(writeScript(t, "not lua at all (")))

	msg := pluginpkg.NewMessage(0, []byte("HEX|6869"))
	require.NoError(t, p.DecodeMsg(msg, pluginpkg.TriggerAuto))
	assert.Equal(t, "hi", msg.Decoded().Text)
}

func TestSandboxBlocksFilesystemAccess(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{
			name: "io library absent",
			script: `
function is_msg(t) return io ~= nil end
function decode_msg(t) return "x" end
`,
		},
		{
			name: "os library absent",
			script: `
function is_msg(t) return os ~= nil end
function decode_msg(t) return "x" end
`,
		},
		{
			name: "dofile blocked",
			script: `
function is_msg(t) return dofile ~= nil end
function decode_msg(t) return "x" end
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := luadecoder.New()
			require.NoError(t, p.LoadConfig(writeScript(t, tt.script)))
			assert.False(t, p.IsMsg(pluginpkg.NewMessage(0, []byte("x")), pluginpkg.TriggerAuto))
		})
	}
}

func TestConfigInfo(t *testing.T) {
	assert.Equal(t, []string{"no script loaded"}, luadecoder.New().ConfigInfo())

	p := loadedPlugin(t)
	info := p.ConfigInfo()
	require.Len(t, info, 1)
	assert.Contains(t, info[0], "decoder.lua")
}

func TestSaveConfigCopiesScript(t *testing.T) {
	p := loadedPlugin(t)

	out := filepath.Join(t.TempDir(), "copy.lua")
	require.NoError(t, p.SaveConfig(out))

	fresh := luadecoder.New()
	require.NoError(t, fresh.LoadConfig(out))
	msg := pluginpkg.NewMessage(0, []byte("HEX|6869"))
	require.NoError(t, fresh.DecodeMsg(msg, pluginpkg.TriggerAuto))
	assert.Equal(t, "hi", msg.Decoded().Text)
}
