//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package protocol

import (
	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/tool"
)

// Version is the protocol revision this server speaks.
const Version = "2024-11-05"

// Method names of the fixed JSON-RPC method set.
const (
	MethodInitialize    = "initialize"
	MethodPing          = "ping"
	MethodToolsList     = "tools/list"
	MethodToolsCall     = "tools/call"
	MethodResourcesList = "resources/list"
	MethodResourcesRead = "resources/read"
	MethodPromptsList   = "prompts/list"
	MethodPromptsGet    = "prompts/get"
)

// Implementation identifies a protocol peer.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities advertises which method families the server answers.
type Capabilities struct {
	Tools     *struct{} `json:"tools,omitempty"`
	Resources *struct{} `json:"resources,omitempty"`
	Prompts   *struct{} `json:"prompts,omitempty"`
}

// InitializeParams is the client half of the initialize handshake.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion,omitempty"`
	ClientInfo      Implementation `json:"clientInfo,omitempty"`
}

// InitializeResult is the server half of the initialize handshake.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
}

// ToolsListParams optionally restricts the listing to one workflow namespace.
type ToolsListParams struct {
	Stream string `json:"stream,omitempty"`
}

// ToolsListResult carries the registry snapshot.
type ToolsListResult struct {
	Tools []*tool.Declaration `json:"tools"`
}

// CallToolParams names the tool and its arguments.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Content is one piece of a tool call result envelope.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult wraps a tool outcome for the wire: the registry result is
// JSON-encoded into a single text content item.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// ResourcesListResult carries the resource snapshot.
type ResourcesListResult struct {
	Resources []*registry.Resource `json:"resources"`
}

// ReadResourceParams names the resource to read.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult carries the resource contents.
type ReadResourceResult struct {
	Contents []registry.ResourceContents `json:"contents"`
}

// PromptsListResult carries the prompt snapshot.
type PromptsListResult struct {
	Prompts []*registry.Prompt `json:"prompts"`
}

// GetPromptParams names the prompt and its arguments.
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// GetPromptResult carries the rendered prompt messages.
type GetPromptResult struct {
	Description string                   `json:"description,omitempty"`
	Messages    []registry.PromptMessage `json:"messages"`
}
