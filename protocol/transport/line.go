//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/protocol"
)

// Legacy message types accepted on line-delimited connections for backward
// compatibility with pre-JSON-RPC peers.
const (
	legacyCallTool      = "call_tool"
	legacyListTools     = "list_tools"
	legacyListResources = "list_resources"
	legacyListPrompts   = "list_prompts"
	legacyGetTool       = "get_tool"
	legacyPing          = "ping"
)

// LineServer speaks the protocol over line-delimited JSON: every line is one
// complete message, parsed independently. Malformed lines are logged and
// skipped; the connection stays open.
type LineServer struct {
	server *protocol.Server
}

// NewLineServer builds the line-delimited binding for server.
func NewLineServer(server *protocol.Server) *LineServer {
	return &LineServer{server: server}
}

// ServeStdio runs the line loop over the process's standard input and output,
// for use when toolmesh itself is someone else's subprocess tool server.
func (l *LineServer) ServeStdio(ctx context.Context) error {
	return l.Serve(ctx, os.Stdin, os.Stdout)
}

// Listen accepts connections on the given listener and serves each one on its
// own goroutine until the context is cancelled.
func (l *LineServer) Listen(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go func() {
			defer conn.Close()
			if err := l.Serve(ctx, conn, conn); err != nil && err != io.EOF {
				log.Debugf("line connection closed: %v", err)
			}
		}()
	}
}

// Serve reads lines from r and writes responses to w until EOF or context
// cancellation.
func (l *LineServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var writeMu sync.Mutex
	reader := bufio.NewReader(r)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			l.handleLine(ctx, line, w, &writeMu)
		}
		if err != nil {
			return err
		}
	}
}

func (l *LineServer) handleLine(ctx context.Context, line []byte, w io.Writer, writeMu *sync.Mutex) {
	trimmed := trimLine(line)
	if len(trimmed) == 0 {
		return
	}

	// Peek at the envelope: a "type" field selects the legacy dialect, a
	// "jsonrpc" field the standard one.
	var probe struct {
		Type    string `json:"type"`
		JSONRPC string `json:"jsonrpc"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		// Deliberate leniency: a malformed line is dropped, not fatal.
		log.Warnf("line transport: skipping malformed line: %v", err)
		return
	}

	var resp []byte
	switch {
	case probe.Type != "":
		resp = l.handleLegacy(ctx, probe.Type, trimmed)
	default:
		resp = l.server.HandleMessage(ctx, trimmed)
	}
	if resp == nil {
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	if _, err := w.Write(append(resp, '\n')); err != nil {
		log.Errorf("line transport: write response: %v", err)
	}
}

type legacyCallMessage struct {
	Type      string         `json:"type"`
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

func (l *LineServer) handleLegacy(ctx context.Context, msgType string, raw []byte) []byte {
	reg := l.server.Registry()
	switch msgType {
	case legacyPing:
		return marshalLegacy(map[string]any{
			"type":      "pong",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	case legacyListTools:
		tools := reg.Tools("")
		return marshalLegacy(map[string]any{"type": "tools", "tools": tools, "count": len(tools)})
	case legacyListResources:
		return marshalLegacy(map[string]any{"type": "resources", "resources": reg.Resources()})
	case legacyListPrompts:
		return marshalLegacy(map[string]any{"type": "prompts", "prompts": reg.Prompts()})
	case legacyGetTool:
		var msg legacyCallMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Name == "" {
			return marshalLegacy(map[string]any{"type": "error", "error": "tool name is required"})
		}
		for _, decl := range reg.Tools("") {
			if decl.Name == msg.Name {
				return marshalLegacy(map[string]any{"type": "tool", "tool": decl})
			}
		}
		return marshalLegacy(map[string]any{"type": "error", "error": "tool not found: " + msg.Name})
	case legacyCallTool:
		var msg legacyCallMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Name == "" {
			return marshalLegacy(map[string]any{"type": "error", "error": "tool name is required"})
		}
		result := reg.Invoke(ctx, msg.Name, msg.Arguments)
		payload := map[string]any{"type": "tool_result", "name": msg.Name, "success": result.Success}
		if result.Success {
			payload["content"] = result.Data
		} else {
			payload["error"] = result.Error.Message
		}
		return marshalLegacy(payload)
	default:
		return marshalLegacy(map[string]any{"type": "error", "error": "unknown message type: " + msgType})
	}
}

func marshalLegacy(payload map[string]any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("line transport: marshal legacy response: %v", err)
		return nil
	}
	return data
}

func trimLine(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
