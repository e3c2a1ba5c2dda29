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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolmesh/toolmesh/registry"
)

func writeManifest(t *testing.T, path, name, reply string) {
	t.Helper()
	doc := `
name: ` + name + `
tools:
  - name: speak
    command: echo
    args: ["` + reply + `"]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func TestWatcherLoadsExistingManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, filepath.Join(dir, "pre.yaml"), "pre", "hi")

	reg := registry.New()
	l := NewLoader(reg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := l.Watch(ctx, dir)
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, reg.HasTool("pre.speak"))
}

func TestWatcherCreateAndRemove(t *testing.T) {
	dir := t.TempDir()

	reg := registry.New()
	l := NewLoader(reg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := l.Watch(ctx, dir)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "late.yaml")
	writeManifest(t, path, "late", "hello")

	require.Eventually(t, func() bool {
		return reg.HasTool("late.speak")
	}, 5*time.Second, 20*time.Millisecond, "manifest creation should load the workflow")

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		return !reg.HasTool("late.speak")
	}, 5*time.Second, 20*time.Millisecond, "manifest removal should unload the workflow")
}

func TestWatcherReloadOnEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edit.yaml")
	writeManifest(t, path, "edit", "v1")

	reg := registry.New()
	l := NewLoader(reg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := l.Watch(ctx, dir)
	require.NoError(t, err)
	defer w.Close()

	require.True(t, reg.HasTool("edit.speak"))
	result := reg.Invoke(ctx, "edit.speak", map[string]any{})
	require.True(t, result.Success)
	require.Equal(t, "v1", result.Data)

	writeManifest(t, path, "edit", "v2")
	require.Eventually(t, func() bool {
		r := reg.Invoke(ctx, "edit.speak", map[string]any{})
		return r.Success && r.Data == "v2"
	}, 5*time.Second, 20*time.Millisecond, "manifest edit should reload the workflow")
}

func TestSourceIDForPath(t *testing.T) {
	assert.Equal(t, "files", sourceIDForPath("/tmp/x/files.yaml"))
	assert.Equal(t, "files", sourceIDForPath("files.yml"))
}
