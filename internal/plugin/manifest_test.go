// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/plugin"
)

func TestParseManifestValid(t *testing.T) {
	data := []byte(`
name: nonverbose
version: 1.2.0
description: Decodes non-verbose entries using a key table
capabilities:
  - decoder
  - command.*
config: tables/default.yaml
`)

	m, err := plugin.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "nonverbose", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, []string{"decoder", "command.*"}, m.Capabilities)
	assert.Equal(t, "tables/default.yaml", m.Config)
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "empty input",
			data:    "",
			wantErr: "empty",
		},
		{
			name:    "broken yaml",
			data:    "name: [unclosed",
			wantErr: "invalid YAML",
		},
		{
			name:    "missing name",
			data:    "version: 1.0.0\ncapabilities: [decoder]",
			wantErr: "name",
		},
		{
			name:    "uppercase name",
			data:    "name: Exporter\nversion: 1.0.0\ncapabilities: [viewer]",
			wantErr: "name",
		},
		{
			name:    "trailing hyphen",
			data:    "name: exporter-\nversion: 1.0.0\ncapabilities: [viewer]",
			wantErr: "name",
		},
		{
			name:    "missing version",
			data:    "name: exporter\ncapabilities: [viewer]",
			wantErr: "version is required",
		},
		{
			name:    "loose semver",
			data:    "name: exporter\nversion: v1\ncapabilities: [viewer]",
			wantErr: "semver",
		},
		{
			name:    "no capabilities",
			data:    "name: exporter\nversion: 1.0.0",
			wantErr: "at least one capability",
		},
		{
			name:    "empty capability pattern",
			data:    "name: exporter\nversion: 1.0.0\ncapabilities: ['']",
			wantErr: "empty capability pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plugin.ParseManifest([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManifestValidateNameLength(t *testing.T) {
	m := &plugin.Manifest{
		Name:         strings.Repeat("a", 65),
		Version:      "1.0.0",
		Capabilities: []string{"decoder"},
	}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "64 characters")

	m.Name = strings.Repeat("a", 64)
	assert.NoError(t, m.Validate())
}
