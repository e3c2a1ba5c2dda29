//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package workflow

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolmesh/toolmesh/registry"
)

const sampleManifest = `
name: files
description: file helpers
priority: 10
tools:
  - name: show
    description: prints the given text
    command: echo
    args: ["{text}"]
    properties:
      text:
        type: string
        description: text to print
    required: [text]
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	assert.Equal(t, "files", m.Name)
	assert.Equal(t, 10, m.Priority)
	require.Len(t, m.Tools, 1)
	assert.Equal(t, "show", m.Tools[0].Name)
	assert.Equal(t, "echo", m.Tools[0].Command)
	assert.Equal(t, []string{"text"}, m.Tools[0].Required)
}

func TestParseManifestRejectsMissingName(t *testing.T) {
	_, err := ParseManifest([]byte("description: nameless"))
	require.Error(t, err)
}

func TestParseManifestRejectsToolWithoutCommand(t *testing.T) {
	doc := `
name: broken
tools:
  - name: half
`
	_, err := ParseManifest([]byte(doc))
	require.Error(t, err)
}

func TestManifestFactoryLoadsAndInvokes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on echo")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "files.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	reg := registry.New()
	l := NewLoader(reg)
	l.RegisterSource("files", ManifestFactory(path))
	require.NoError(t, l.Load(context.Background(), "files"))

	require.True(t, reg.HasTool("files.show"))
	result := reg.Invoke(context.Background(), "files.show", map[string]any{"text": "hello"})
	require.True(t, result.Success)
	assert.Equal(t, "hello", result.Data)
}

func TestManifestEnabledFlag(t *testing.T) {
	doc := `
name: dormant
enabled: false
tools:
  - name: noop
    command: "true"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "dormant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	reg := registry.New()
	l := NewLoader(reg)
	l.RegisterSource("dormant", ManifestFactory(path))
	require.NoError(t, l.Load(context.Background(), "dormant"))
	assert.False(t, reg.HasTool("dormant.noop"))
}

func TestManifestMissingRequiredArgument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "files.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	reg := registry.New()
	l := NewLoader(reg)
	l.RegisterSource("files", ManifestFactory(path))
	require.NoError(t, l.Load(context.Background(), "files"))

	result := reg.Invoke(context.Background(), "files.show", map[string]any{})
	require.False(t, result.Success)
	assert.Equal(t, registry.ErrMissingArgument, result.Error.Kind)
}
