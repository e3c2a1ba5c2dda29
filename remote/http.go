//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/protocol"
	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/tool"
)

// RetryConfig defines retry behavior for HTTP tool calls.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	BackoffFactor  float64
	MaxBackoff     time.Duration
}

// defaultRetryConfig uses conservative values: two retries with exponential
// backoff capped at 8s.
var defaultRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialBackoff: 500 * time.Millisecond,
	BackoffFactor:  2.0,
	MaxBackoff:     8 * time.Second,
}

// HTTPClient issues one JSON-RPC exchange per HTTP POST.
type HTTPClient struct {
	server  string
	url     string
	headers map[string]string
	client  *http.Client
	retry   RetryConfig
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPTimeout bounds each HTTP exchange.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg RetryConfig) HTTPOption {
	return func(c *HTTPClient) {
		c.retry = cfg
	}
}

// NewHTTPClient creates a client for a remote tool server at url.
func NewHTTPClient(server, url string, headers map[string]string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		server:  server,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultCallTimeout},
		retry:   defaultRetryConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) call(ctx context.Context, method string, params any) (*protocol.Response, error) {
	req := protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      protocol.NewStringRequestID(uuid.NewString()),
		Method:  method,
	}
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = encoded
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp *protocol.Response
	err = c.withRetry(ctx, method, func() error {
		var callErr error
		resp, callErr = c.exchange(ctx, body)
		return callErr
	})
	return resp, err
}

func (c *HTTPClient) exchange(ctx context.Context, body []byte) (*protocol.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, &registry.Error{
				Kind:    registry.ErrTransportTimeout,
				Message: fmt.Sprintf("remote %q did not answer within %s", c.server, c.client.Timeout),
			}
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote %q returned status %d", c.server, httpResp.StatusCode)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse response from %q: %w", c.server, err)
	}
	return &resp, nil
}

// withRetry runs fn with exponential backoff on retryable transport errors.
func (c *HTTPClient) withRetry(ctx context.Context, method string, fn func() error) error {
	backoff := c.retry.InitialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || attempt >= c.retry.MaxRetries || !isRetryable(err) {
			return err
		}

		log.Warnf("remote %q: %s failed (attempt %d/%d), retrying in %s: %v",
			c.server, method, attempt+1, c.retry.MaxRetries, backoff, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(float64(backoff) * c.retry.BackoffFactor)
		if backoff > c.retry.MaxBackoff {
			backoff = c.retry.MaxBackoff
		}
	}
}

// isRetryable matches transient transport failures. Unknown errors default to
// non-retryable to avoid retry loops on permanent failures.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"i/o timeout",
		"status 502",
		"status 503",
		"status 504",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// Initialize performs the protocol handshake.
func (c *HTTPClient) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	resp, err := c.call(ctx, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.Version,
		ClientInfo:      protocol.Implementation{Name: "toolmesh", Version: "1.0.0"},
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("initialize %q: %w", c.server, resp.Error)
	}
	var result protocol.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("parse initialize result: %w", err)
	}
	return &result, nil
}

// ListTools fetches the remote server's tool declarations.
func (c *HTTPClient) ListTools(ctx context.Context) ([]*tool.Declaration, error) {
	resp, err := c.call(ctx, protocol.MethodToolsList, nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/list on %q: %w", c.server, resp.Error)
	}
	var result protocol.ToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("parse tools/list result: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes one remote tool over a single HTTP exchange.
func (c *HTTPClient) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	resp, err := c.call(ctx, protocol.MethodToolsCall, protocol.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/call %q on %q: %w", name, c.server, resp.Error)
	}
	var result protocol.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("parse tools/call result: %w", err)
	}
	return NormalizeResult(result)
}

// Close implements Caller; HTTP clients hold no persistent connection state.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
