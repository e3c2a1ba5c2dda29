//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolmesh/toolmesh/registry"
)

func TestProxyRegisterImportsTools(t *testing.T) {
	ts := newBackendServer(t)
	defer ts.Close()

	reg := registry.New()
	p := NewProxy(reg)
	defer p.Close()

	err := p.Register(context.Background(), ServerConfig{
		Name:      "mathd",
		Transport: TransportHTTP,
		URL:       ts.URL,
	})
	require.NoError(t, err)

	require.True(t, reg.HasTool("remote.mathd.math.double"))

	result := reg.Invoke(context.Background(), "remote.mathd.math.double", map[string]any{"n": 4.0})
	require.True(t, result.Success)
	assert.Equal(t, float64(8), result.Data)
}

func TestProxyDeclarationRewritesName(t *testing.T) {
	ts := newBackendServer(t)
	defer ts.Close()

	reg := registry.New()
	p := NewProxy(reg)
	defer p.Close()

	require.NoError(t, p.Register(context.Background(), ServerConfig{
		Name:      "mathd",
		Transport: TransportHTTP,
		URL:       ts.URL,
	}))

	decls := reg.Tools("remote")
	require.Len(t, decls, 1)
	assert.Equal(t, "remote.mathd.math.double", decls[0].Name)
	assert.Equal(t, "doubles a number", decls[0].Description)
}

func TestProxyActivateSelection(t *testing.T) {
	ts := newBackendServer(t)
	defer ts.Close()

	reg := registry.New()
	p := NewProxy(reg)
	defer p.Close()

	configs := []ServerConfig{
		{Name: "one", Transport: TransportHTTP, URL: ts.URL},
		{Name: "two", Transport: TransportHTTP, URL: ts.URL},
	}
	p.Activate(context.Background(), configs, []string{"two"})

	assert.Equal(t, []string{"two"}, p.Servers())
	assert.False(t, reg.HasTool("remote.one.math.double"))
	assert.True(t, reg.HasTool("remote.two.math.double"))
}

func TestProxyActivateSkipsFailedServer(t *testing.T) {
	ts := newBackendServer(t)
	defer ts.Close()

	reg := registry.New()
	p := NewProxy(reg)
	defer p.Close()

	configs := []ServerConfig{
		{Name: "dead", Transport: TransportHTTP, URL: "http://127.0.0.1:1"},
		{Name: "live", Transport: TransportHTTP, URL: ts.URL},
	}
	p.Activate(context.Background(), configs, nil)

	assert.Equal(t, []string{"live"}, p.Servers())
	assert.True(t, reg.HasTool("remote.live.math.double"))
}

func TestProxyUnregisterRemovesImports(t *testing.T) {
	ts := newBackendServer(t)
	defer ts.Close()

	reg := registry.New()
	p := NewProxy(reg)

	require.NoError(t, p.Register(context.Background(), ServerConfig{
		Name:      "mathd",
		Transport: TransportHTTP,
		URL:       ts.URL,
	}))
	require.True(t, reg.HasTool("remote.mathd.math.double"))

	p.Unregister("mathd")
	assert.False(t, reg.HasTool("remote.mathd.math.double"))
	assert.Empty(t, p.Servers())
	assert.Equal(t, 0, reg.ToolCount())
}

func TestProxyRejectsDuplicateServer(t *testing.T) {
	ts := newBackendServer(t)
	defer ts.Close()

	reg := registry.New()
	p := NewProxy(reg)
	defer p.Close()

	cfg := ServerConfig{Name: "mathd", Transport: TransportHTTP, URL: ts.URL}
	require.NoError(t, p.Register(context.Background(), cfg))
	require.Error(t, p.Register(context.Background(), cfg))
}

func TestProxyRejectsBadConfig(t *testing.T) {
	reg := registry.New()
	p := NewProxy(reg)

	require.Error(t, p.Register(context.Background(), ServerConfig{Transport: TransportHTTP, URL: "http://x"}))
	require.Error(t, p.Register(context.Background(), ServerConfig{Name: "x", Transport: "carrier-pigeon"}))
	require.Error(t, p.Register(context.Background(), ServerConfig{Name: "x", Transport: TransportHTTP}))
	require.Error(t, p.Register(context.Background(), ServerConfig{Name: "x", Transport: TransportStdio}))
}
