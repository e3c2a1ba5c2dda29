//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package tool provides tool interfaces and data types for the workflow system.
package tool

import "context"

// Schema is a JSON-Schema-like description of a tool's input or output.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Default     any                `json:"default,omitempty"`
}

// Declaration describes a tool: its globally unique name, a human readable
// description and the schema of its JSON arguments.
//
// Tool names are namespaced with a dot separator, e.g. "desktop.run" or
// "remote.search.query". Names must otherwise match ^[a-zA-Z0-9_.-]+$ so
// model APIs accept them.
type Declaration struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	InputSchema  *Schema `json:"inputSchema,omitempty"`
	OutputSchema *Schema `json:"outputSchema,omitempty"`
}

// Tool is the minimal interface implemented by every tool.
type Tool interface {
	// Declaration returns the tool's metadata.
	Declaration() *Declaration
}

// CallableTool is a tool that can be executed with JSON-encoded arguments.
type CallableTool interface {
	Tool

	// Call executes the tool. jsonArgs is the JSON-encoded argument object.
	Call(ctx context.Context, jsonArgs []byte) (any, error)
}

// Error represents an error that occurred during tool execution.
type Error struct {
	Message string
}

// Error returns the error message.
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new tool Error.
func NewError(message string) error {
	return &Error{Message: message}
}
