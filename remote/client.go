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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/protocol"
	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/tool"
)

// defaultCallTimeout bounds how long a correlated call waits for its
// response line.
const defaultCallTimeout = 30 * time.Second

// Caller issues protocol calls against a remote tool server. Both the
// correlating line client and the HTTP client implement it.
type Caller interface {
	Initialize(ctx context.Context) (*protocol.InitializeResult, error)
	ListTools(ctx context.Context) ([]*tool.Declaration, error)
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
	Close() error
}

// Client correlates requests and responses over a duplex line transport.
// Every call carries a fresh correlation id; the background read loop
// delivers each response line to the waiter with the matching id.
type Client struct {
	server    string
	transport Transport
	timeout   time.Duration

	mu      sync.Mutex
	pending map[string]chan *protocol.Response
	closed  bool

	done         chan struct{}
	onDisconnect func(error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCallTimeout bounds each call's wait for a correlated response.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDisconnectHandler installs a callback fired once when the transport
// dies (process exit, closed pipe).
func WithDisconnectHandler(fn func(error)) ClientOption {
	return func(c *Client) {
		c.onDisconnect = fn
	}
}

// NewClient starts the read loop over t.
func NewClient(server string, t Transport, opts ...ClientOption) *Client {
	c := &Client{
		server:    server,
		transport: t,
		timeout:   defaultCallTimeout,
		pending:   make(map[string]chan *protocol.Response),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	for {
		msg, err := c.transport.Receive(context.Background())
		if err != nil {
			c.mu.Lock()
			alreadyClosed := c.closed
			c.closed = true
			c.mu.Unlock()
			close(c.done)
			if !alreadyClosed {
				log.Warnf("remote %q disconnected: %v", c.server, err)
				if c.onDisconnect != nil {
					c.onDisconnect(err)
				}
			}
			return
		}

		var resp protocol.Response
		if err := json.Unmarshal(msg, &resp); err != nil || resp.ID == nil {
			// Deliberate leniency: malformed or uncorrelated lines are
			// dropped, the connection stays up.
			log.Warnf("remote %q: skipping malformed line", c.server)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID.String()]
		c.mu.Unlock()
		if !ok {
			log.Debugf("remote %q: no waiter for id %s", c.server, resp.ID.String())
			continue
		}
		ch <- &resp
	}
}

// call sends one request and waits for the correlated response. The pending
// entry is removed on every exit path, so repeated timeouts do not leak.
func (c *Client) call(ctx context.Context, method string, params any) (*protocol.Response, error) {
	id := uuid.NewString()
	req := protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      protocol.NewStringRequestID(id),
		Method:  method,
	}
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = encoded
	}
	msg, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ch := make(chan *protocol.Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("remote %q is closed", c.server)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.transport.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send %s to %q: %w", method, c.server, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		return nil, &registry.Error{
			Kind:    registry.ErrTransportTimeout,
			Message: fmt.Sprintf("remote %q did not answer %s within %s", c.server, method, c.timeout),
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("remote %q disconnected", c.server)
	}
}

// Initialize performs the protocol handshake.
func (c *Client) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
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
func (c *Client) ListTools(ctx context.Context) ([]*tool.Declaration, error) {
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

// CallTool invokes one remote tool and normalizes the content envelope back
// into a plain value.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
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

// Close stops the read loop and tears down the transport.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.transport.Close()
}

// NormalizeResult converts the wire content envelope back into the plain
// success/error shape the registry uses, so callers cannot tell a tool is
// remote except by its name prefix.
func NormalizeResult(result protocol.CallToolResult) (any, error) {
	var text string
	for _, content := range result.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}
	if result.IsError {
		return nil, tool.NewError(text)
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		// Not JSON: surface the raw text.
		return text, nil
	}
	return decoded, nil
}
