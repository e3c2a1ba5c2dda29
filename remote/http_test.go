//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolmesh/toolmesh/protocol"
	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/tool/function"
)

// newBackendServer exposes a real protocol server over HTTP the way a remote
// tool daemon would.
func newBackendServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := registry.New()
	reg.Register("math.double", function.New(func(_ context.Context, args struct {
		N float64 `json:"n"`
	}) (float64, error) {
		return args.N * 2, nil
	}, function.WithName("math.double"), function.WithDescription("doubles a number")))
	server := protocol.NewServer(reg)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		out := server.HandleMessage(r.Context(), body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	}))
}

func TestHTTPClientRoundTrip(t *testing.T) {
	ts := newBackendServer(t)
	defer ts.Close()

	c := NewHTTPClient("mathd", ts.URL, nil)
	defer c.Close()

	result, err := c.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, protocol.Version, result.ProtocolVersion)

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "math.double", tools[0].Name)

	value, err := c.CallTool(context.Background(), "math.double", map[string]any{"n": 21.0})
	require.NoError(t, err)
	assert.Equal(t, float64(42), value)
}

func TestHTTPClientSendsHeaders(t *testing.T) {
	var gotAuth atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		var req protocol.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp, _ := protocol.NewResponse(req.ID, struct{}{})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	c := NewHTTPClient("secure", ts.URL, map[string]string{"Authorization": "Bearer tok"})
	defer c.Close()

	_, err := c.call(context.Background(), protocol.MethodPing, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth.Load())
}

func TestHTTPClientRetriesTransientFailures(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req protocol.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp, _ := protocol.NewResponse(req.ID, struct{}{})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	c := NewHTTPClient("flaky", ts.URL, nil, WithRetryConfig(RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  2.0,
		MaxBackoff:     10 * time.Millisecond,
	}))
	defer c.Close()

	_, err := c.call(context.Background(), protocol.MethodPing, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestHTTPClientNoRetryOnPermanentFailure(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewHTTPClient("denied", ts.URL, nil, WithRetryConfig(RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  2.0,
		MaxBackoff:     10 * time.Millisecond,
	}))
	defer c.Close()

	_, err := c.call(context.Background(), protocol.MethodPing, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestHTTPClientTimeoutErrorKind(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c := NewHTTPClient("sluggish", ts.URL, nil,
		WithHTTPTimeout(20*time.Millisecond),
		WithRetryConfig(RetryConfig{MaxRetries: 0}))
	defer c.Close()

	_, err := c.call(context.Background(), protocol.MethodPing, nil)
	require.Error(t, err)

	var regErr *registry.Error
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, registry.ErrTransportTimeout, regErr.Kind)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryable(errors.New("read: connection reset by peer")))
	assert.True(t, isRetryable(errors.New(`remote "x" returned status 503`)))
	assert.False(t, isRetryable(errors.New(`remote "x" returned status 401`)))
	assert.False(t, isRetryable(nil))
}
