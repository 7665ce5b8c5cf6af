// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package nonverbose_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pluginpkg "github.com/loglens/loglens/pkg/plugin"
	"github.com/loglens/loglens/plugins/nonverbose"
)

const table = `
messages:
  "42": "cold start (reason %s)"
  "7": "shutdown requested"
`

func loadedPlugin(t *testing.T) *nonverbose.Plugin {
	t.Helper()

	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(table), 0o600))

	p := nonverbose.New()
	require.NoError(t, p.LoadConfig(path))
	return p
}

func TestIsMsgClaimsFramedRecords(t *testing.T) {
	p := nonverbose.New()

	assert.True(t, p.IsMsg(pluginpkg.NewMessage(0, []byte("NV|42|thermal")), pluginpkg.TriggerAuto))
	assert.False(t, p.IsMsg(pluginpkg.NewMessage(0, []byte("plain text line")), pluginpkg.TriggerAuto))
	assert.False(t, p.IsMsg(pluginpkg.NewMessage(0, []byte("nv|42|wrong case")), pluginpkg.TriggerUser))
}

func TestDecodeMsg(t *testing.T) {
	p := loadedPlugin(t)

	t.Run("with arguments", func(t *testing.T) {
		msg := pluginpkg.NewMessage(0, []byte("NV|42|thermal"))
		require.NoError(t, p.DecodeMsg(msg, pluginpkg.TriggerAuto))
		require.NotNil(t, msg.Decoded())
		assert.Equal(t, "cold start (reason thermal)", msg.Decoded().Text)
		assert.Equal(t, "42", msg.Decoded().Attrs["nonverbose.id"])
	})

	t.Run("without arguments", func(t *testing.T) {
		msg := pluginpkg.NewMessage(1, []byte("NV|7"))
		require.NoError(t, p.DecodeMsg(msg, pluginpkg.TriggerUser))
		assert.Equal(t, "shutdown requested", msg.Decoded().Text)
	})
}

func TestDecodeMsgIdempotent(t *testing.T) {
	p := loadedPlugin(t)

	first := pluginpkg.NewMessage(0, []byte("NV|42|thermal"))
	require.NoError(t, p.DecodeMsg(first, pluginpkg.TriggerAuto))
	assert.Equal(t, "cold start (reason thermal)", first.Decoded().Text)

	// Re-decoding the same message in place yields the same output.
	require.NoError(t, p.DecodeMsg(first, pluginpkg.TriggerUser))
	assert.Equal(t, "cold start (reason thermal)", first.Decoded().Text)

	// So does a fresh message with identical raw bytes.
	again := pluginpkg.NewMessage(5, []byte("NV|42|thermal"))
	require.NoError(t, p.DecodeMsg(again, pluginpkg.TriggerAuto))
	assert.Equal(t, first.Decoded().Text, again.Decoded().Text)
	assert.Equal(t, first.Decoded().Attrs, again.Decoded().Attrs)
}

func TestDecodeMsgFailures(t *testing.T) {
	p := loadedPlugin(t)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "unknown id", raw: "NV|999|x"},
		{name: "missing id", raw: "NV|"},
		{name: "argument count mismatch", raw: "NV|42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := pluginpkg.NewMessage(0, []byte(tt.raw))
			err := p.DecodeMsg(msg, pluginpkg.TriggerAuto)
			require.Error(t, err)
			assert.Nil(t, msg.Decoded())
			assert.NotEmpty(t, p.LastError(), "a failing operation must leave a last error")
		})
	}
}

func TestLoadConfigKeepsPreviousTableOnFailure(t *testing.T) {
	p := loadedPlugin(t)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("messages: {}"), 0o600))
	require.Error(t, p.LoadConfig(bad))

	// The previous table still decodes and ConfigInfo still reports it.
	msg := pluginpkg.NewMessage(0, []byte("NV|7"))
	require.NoError(t, p.DecodeMsg(msg, pluginpkg.TriggerAuto))
	assert.Equal(t, "shutdown requested", msg.Decoded().Text)

	info := p.ConfigInfo()
	require.Len(t, info, 3)
	assert.Contains(t, info[0], "2 messages")
	assert.Equal(t, "id 7: shutdown requested", info[2])

	require.Error(t, p.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.NotEmpty(t, p.LastError())
}

func TestSaveConfigRoundTrip(t *testing.T) {
	p := loadedPlugin(t)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, p.SaveConfig(out))

	fresh := nonverbose.New()
	require.NoError(t, fresh.LoadConfig(out))

	msg := pluginpkg.NewMessage(0, []byte("NV|42|thermal"))
	require.NoError(t, fresh.DecodeMsg(msg, pluginpkg.TriggerAuto))
	assert.Equal(t, "cold start (reason thermal)", msg.Decoded().Text)
}

func TestConfigInfo(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, []string{"no key table loaded"}, nonverbose.New().ConfigInfo())
	})

	t.Run("loaded", func(t *testing.T) {
		info := loadedPlugin(t).ConfigInfo()
		require.Len(t, info, 3)
		assert.Contains(t, info[0], "2 messages")
		assert.Equal(t, "id 42: cold start (reason %s)", info[1])
		assert.Equal(t, "id 7: shutdown requested", info[2])
	})
}
