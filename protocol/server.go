//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/registry"
)

// Server answers the fixed JSON-RPC method set from a registry. It is shared
// by every transport binding; each binding feeds it one request at a time.
//
// The server is lenient about initialization: every method is accepted before
// or after initialize. This is documented behavior, not an oversight — peers
// that skip the handshake still get answers.
type Server struct {
	info Implementation
	reg  *registry.Registry

	mu          sync.Mutex
	initialized bool
	clientInfo  *Implementation
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerInfo overrides the advertised server name and version.
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) {
		s.info = Implementation{Name: name, Version: version}
	}
}

// NewServer creates a protocol server answering from reg.
func NewServer(reg *registry.Registry, opts ...ServerOption) *Server {
	s := &Server{
		info: Implementation{Name: "toolmesh", Version: "1.0.0"},
		reg:  reg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the backing registry to transport bindings that need
// counts for status payloads.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

// HandleMessage parses one raw JSON-RPC message and dispatches it. The
// returned bytes are nil for notifications. A malformed envelope yields a
// well-formed error response, never a dropped reply.
func (s *Server) HandleMessage(ctx context.Context, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return mustMarshal(NewErrorResponse(nil, NewError(CodeParseError, "invalid JSON", nil)))
	}
	if req.JSONRPC != JSONRPCVersion || req.Method == "" {
		return mustMarshal(NewErrorResponse(req.ID, NewError(CodeInvalidRequest, "malformed JSON-RPC envelope", nil)))
	}

	resp := s.Handle(ctx, &req)
	if resp == nil {
		return nil
	}
	return mustMarshal(resp)
}

// Handle dispatches one request through the method table. It returns nil for
// notifications; otherwise the response is always well-formed, unknown
// methods included.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	start := time.Now()
	result, rpcErr := s.dispatch(ctx, req)
	log.Debugf("protocol: %s handled in %s (id=%s)", req.Method, time.Since(start), req.ID.String())

	if req.ID == nil {
		// Notification: no response regardless of the outcome.
		return nil
	}
	if rpcErr != nil {
		return NewErrorResponse(req.ID, rpcErr)
	}
	resp, err := NewResponse(req.ID, result)
	if err != nil {
		return NewErrorResponse(req.ID, NewError(CodeInternalError, err.Error(), nil))
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, *Error) {
	switch req.Method {
	case MethodInitialize:
		return s.handleInitialize(req.Params)
	case MethodPing:
		return struct{}{}, nil
	case MethodToolsList:
		return s.handleToolsList(req.Params)
	case MethodToolsCall:
		return s.handleToolsCall(ctx, req.Params)
	case MethodResourcesList:
		return ResourcesListResult{Resources: s.reg.Resources()}, nil
	case MethodResourcesRead:
		return s.handleResourcesRead(ctx, req.Params)
	case MethodPromptsList:
		return PromptsListResult{Prompts: s.reg.Prompts()}, nil
	case MethodPromptsGet:
		return s.handlePromptsGet(ctx, req.Params)
	default:
		return nil, NewError(CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

func (s *Server) handleInitialize(params json.RawMessage) (any, *Error) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, NewError(CodeInvalidParams, fmt.Sprintf("invalid initialize params: %v", err), nil)
		}
	}

	if p.ProtocolVersion != "" && p.ProtocolVersion != Version {
		log.Warnf("protocol: client version %q differs from server version %q", p.ProtocolVersion, Version)
	}

	s.mu.Lock()
	s.initialized = true
	if p.ClientInfo.Name != "" {
		s.clientInfo = &p.ClientInfo
	}
	s.mu.Unlock()

	return InitializeResult{
		ProtocolVersion: Version,
		Capabilities: Capabilities{
			Tools:     &struct{}{},
			Resources: &struct{}{},
			Prompts:   &struct{}{},
		},
		ServerInfo: s.info,
	}, nil
}

func (s *Server) handleToolsList(params json.RawMessage) (any, *Error) {
	var p ToolsListParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, NewError(CodeInvalidParams, fmt.Sprintf("invalid tools/list params: %v", err), nil)
		}
	}
	return ToolsListResult{Tools: s.reg.Tools(p.Stream)}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(CodeInvalidParams, fmt.Sprintf("invalid tools/call params: %v", err), nil)
	}
	if p.Name == "" {
		return nil, NewError(CodeInvalidParams, "tool name is required", nil)
	}

	result := s.reg.Invoke(ctx, p.Name, p.Arguments)
	if !result.Success && result.Error.Kind == registry.ErrUnknownTool {
		return nil, NewError(CodeMethodNotFound, result.Error.Message, nil)
	}
	return WrapResult(result), nil
}

func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(CodeInvalidParams, fmt.Sprintf("invalid resources/read params: %v", err), nil)
	}

	res, ok := s.reg.Resource(p.URI)
	if !ok {
		return nil, NewError(CodeMethodNotFound, fmt.Sprintf("resource not found: %s", p.URI), nil)
	}
	contents, err := res.Handler(ctx)
	if err != nil {
		return nil, NewError(CodeInternalError, fmt.Sprintf("read resource %s: %v", p.URI, err), nil)
	}
	return ReadResourceResult{Contents: []registry.ResourceContents{contents}}, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p GetPromptParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(CodeInvalidParams, fmt.Sprintf("invalid prompts/get params: %v", err), nil)
	}

	prompt, ok := s.reg.Prompt(p.Name)
	if !ok {
		return nil, NewError(CodeMethodNotFound, fmt.Sprintf("prompt not found: %s", p.Name), nil)
	}
	for _, arg := range prompt.Arguments {
		if !arg.Required {
			continue
		}
		if _, ok := p.Arguments[arg.Name]; !ok {
			return nil, NewError(CodeInvalidParams, fmt.Sprintf("missing required prompt argument %q", arg.Name), nil)
		}
	}

	messages, err := prompt.Handler(ctx, p.Arguments)
	if err != nil {
		return nil, NewError(CodeInternalError, fmt.Sprintf("render prompt %s: %v", p.Name, err), nil)
	}
	return GetPromptResult{Description: prompt.Description, Messages: messages}, nil
}

// WrapResult encodes a registry result into the wire content envelope.
func WrapResult(result registry.Result) CallToolResult {
	var text string
	if result.Success {
		encoded, err := json.Marshal(result.Data)
		if err != nil {
			return CallToolResult{
				Content: []Content{{Type: "text", Text: fmt.Sprintf("marshal tool result: %v", err)}},
				IsError: true,
			}
		}
		text = string(encoded)
	} else {
		text = result.Error.Message
	}
	return CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
		IsError: !result.Success,
	}
}

func mustMarshal(resp *Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// The envelope contains only marshalable fields; this is unreachable
		// short of memory corruption.
		log.Errorf("protocol: marshal response: %v", err)
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}
