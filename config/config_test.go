//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  http_addr: ":9000"
  name: meshd
  version: "1.2.3"
log:
  level: debug
workflows:
  dir: /etc/toolmesh/workflows
  watch: true
  pool_size: 8
model:
  name: gpt-4o
driver:
  max_rounds: 7
  system_prompt: be helpful
remotes:
  - name: files
    transport: stdio
    command: file-server
    args: ["--root", "/data"]
  - name: search
    transport: http
    url: http://search.internal:8080/rpc
    headers:
      Authorization: Bearer abc
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "meshd", cfg.Server.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Workflows.PoolSize)
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, 7, cfg.Driver.MaxRounds)

	require.Len(t, cfg.Remotes, 2)
	assert.Equal(t, "files", cfg.Remotes[0].Name)
	assert.Equal(t, []string{"--root", "/data"}, cfg.Remotes[0].Args)
	assert.Equal(t, "Bearer abc", cfg.Remotes[1].Headers["Authorization"])
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.HTTPAddr, cfg.Server.HTTPAddr)
	assert.Equal(t, Default().Driver.MaxRounds, cfg.Driver.MaxRounds)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [broken"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TOOLMESH_HTTP_ADDR", ":7777")
	t.Setenv("TOOLMESH_LOG_LEVEL", "warn")
	t.Setenv("TOOLMESH_API_KEY", "sk-env")
	t.Setenv("TOOLMESH_MAX_ROUNDS", "9")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.HTTPAddr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-env", cfg.Model.APIKey)
	assert.Equal(t, 9, cfg.Driver.MaxRounds)
}

func TestEnvMaxRoundsIgnoresGarbage(t *testing.T) {
	t.Setenv("TOOLMESH_MAX_ROUNDS", "not-a-number")
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Driver.MaxRounds)
}

func TestValidateRemotes(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing name", `
remotes:
  - transport: http
    url: http://x
`},
		{"duplicate name", `
remotes:
  - name: a
    transport: http
    url: http://x
  - name: a
    transport: http
    url: http://y
`},
		{"stdio without command", `
remotes:
  - name: a
    transport: stdio
`},
		{"http without url", `
remotes:
  - name: a
    transport: http
`},
		{"unknown transport", `
remotes:
  - name: a
    transport: smoke-signal
`},
		{"non-positive rounds", `
driver:
  max_rounds: 0
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.doc))
			require.Error(t, err)
		})
	}
}
