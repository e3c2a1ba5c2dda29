//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package remote

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatTransport(t *testing.T) *StdioTransport {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("relies on cat")
	}
	tr, err := NewStdioTransport(StdioConfig{Command: "cat"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestStdioTransportRoundTrip(t *testing.T) {
	tr := newCatTransport(t)

	ctx := context.Background()
	require.NoError(t, tr.Send(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	line, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(line))
}

func TestStdioTransportSequentialMessages(t *testing.T) {
	tr := newCatTransport(t)

	ctx := context.Background()
	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, tr.Send(ctx, []byte(msg)))
	}
	for _, want := range []string{"one", "two", "three"} {
		line, err := tr.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, string(line))
	}
}

func TestStdioTransportSendAfterClose(t *testing.T) {
	tr := newCatTransport(t)
	_ = tr.Close()

	err := tr.Send(context.Background(), []byte("late"))
	require.Error(t, err)
}

func TestStdioTransportReceiveAfterProcessExit(t *testing.T) {
	tr := newCatTransport(t)
	_ = tr.Close()

	_, err := tr.Receive(context.Background())
	require.Error(t, err)
}

func TestStdioTransportMissingCommand(t *testing.T) {
	_, err := NewStdioTransport(StdioConfig{Command: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)
}
