//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package model defines the conversation types exchanged with a language
// model and the streaming interface the driver consumes.
package model

import (
	"context"

	"github.com/toolmesh/toolmesh/tool"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reasons reported at the end of a stream.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
)

// ToolCall is a fully assembled request from the model to invoke a tool.
// Arguments is the raw JSON argument payload as emitted by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallDelta is one streamed fragment of a tool call. Index identifies
// which call within the response the fragment belongs to; ID, Name and
// Arguments each carry only the portion present in this chunk and are
// concatenated in arrival order.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Message is one entry in the conversation transcript.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewToolMessage creates a tool result message correlated to a call id.
func NewToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// Request is one generation request: the transcript so far plus the tool
// declarations the model may call.
type Request struct {
	Messages []Message
	Tools    []*tool.Declaration
}

// Response is one streamed event. Intermediate events carry Content text or
// ToolCallDeltas; the final event has Done set and FinishReason populated.
// Err is set instead of a payload when the stream failed.
type Response struct {
	Content        string
	ToolCallDeltas []ToolCallDelta
	FinishReason   string
	Done           bool
	Err            error
}

// Model generates streamed responses. The returned channel is closed by the
// implementation once the final event has been delivered.
type Model interface {
	GenerateStream(ctx context.Context, req *Request) (<-chan *Response, error)
}
