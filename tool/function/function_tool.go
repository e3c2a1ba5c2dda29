//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package function provides function-based tool implementations.
package function

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/toolmesh/toolmesh/internal/schema"
	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/tool"
)

// FunctionTool wraps an ordinary Go function as a CallableTool. The input
// type's fields define the tool's JSON argument schema; the function is called
// with the arguments unmarshaled into I.
type FunctionTool[I, O any] struct {
	name        string
	description string
	inputSchema *tool.Schema
	fn          func(context.Context, I) (O, error)
}

// Option configures a FunctionTool.
type Option func(*options)

type options struct {
	name        string
	description string
	inputSchema *tool.Schema
}

// WithName sets the name of the function tool.
//
// Tool names must match ^[a-zA-Z0-9_.-]+$ so model APIs accept them.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDescription sets the description of the function tool.
func WithDescription(description string) Option {
	return func(o *options) {
		o.description = description
	}
}

// WithInputSchema sets a custom input schema. When provided, the automatic
// schema generation from the input type is skipped.
func WithInputSchema(s *tool.Schema) Option {
	return func(o *options) {
		o.inputSchema = s
	}
}

// New creates a FunctionTool from fn and the provided options.
func New[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *FunctionTool[I, O] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.name == "" {
		log.Warnf("function tool: name is empty")
	}
	if o.description == "" {
		log.Warnf("function tool: description is empty")
	}

	inputSchema := o.inputSchema
	if inputSchema == nil {
		var emptyI I
		inputSchema = schema.Generate(reflect.TypeOf(emptyI))
	}

	return &FunctionTool[I, O]{
		name:        o.name,
		description: o.description,
		inputSchema: inputSchema,
		fn:          fn,
	}
}

// Call executes the function tool with the provided JSON arguments.
func (ft *FunctionTool[I, O]) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	var input I
	if len(jsonArgs) > 0 {
		if err := json.Unmarshal(jsonArgs, &input); err != nil {
			return nil, err
		}
	}
	return ft.fn(ctx, input)
}

// Declaration returns the tool's declaration information.
func (ft *FunctionTool[I, O]) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        ft.name,
		Description: ft.description,
		InputSchema: ft.inputSchema,
	}
}
