//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package tool

import "context"

// BeforeCallback is called before a tool is executed.
// Returns (customResult, skip, error).
//   - customResult: if not nil, this result is returned and execution is skipped.
//   - skip: if true, tool execution is skipped.
//   - error: if not nil, tool execution is stopped with this error.
type BeforeCallback func(ctx context.Context, toolName string, declaration *Declaration, jsonArgs []byte) (any, bool, error)

// AfterCallback is called after a tool is executed.
// Returns (customResult, override, error).
//   - customResult: if not nil and override is true, replaces the actual result.
//   - override: if true, customResult is used.
//   - error: if not nil, this error is returned instead.
type AfterCallback func(ctx context.Context, toolName string, declaration *Declaration, jsonArgs []byte, result any, runErr error) (any, bool, error)

// Callbacks holds callback chains for tool operations.
type Callbacks struct {
	Before []BeforeCallback
	After  []AfterCallback
}

// NewCallbacks creates a new Callbacks instance.
func NewCallbacks() *Callbacks {
	return &Callbacks{}
}

// RegisterBefore registers a before-tool callback.
func (c *Callbacks) RegisterBefore(cb BeforeCallback) {
	c.Before = append(c.Before, cb)
}

// RegisterAfter registers an after-tool callback.
func (c *Callbacks) RegisterAfter(cb AfterCallback) {
	c.After = append(c.After, cb)
}

// RunBefore runs all before-tool callbacks in order.
// If any callback returns a custom result or skip=true, stop and return.
func (c *Callbacks) RunBefore(ctx context.Context, toolName string, declaration *Declaration, jsonArgs []byte) (any, bool, error) {
	for _, cb := range c.Before {
		customResult, skip, err := cb(ctx, toolName, declaration, jsonArgs)
		if err != nil {
			return nil, false, err
		}
		if customResult != nil || skip {
			return customResult, skip, nil
		}
	}
	return nil, false, nil
}

// RunAfter runs all after-tool callbacks in order.
// If any callback returns a custom result with override=true, stop and return.
func (c *Callbacks) RunAfter(ctx context.Context, toolName string, declaration *Declaration, jsonArgs []byte, result any, runErr error) (any, bool, error) {
	for _, cb := range c.After {
		customResult, override, err := cb(ctx, toolName, declaration, jsonArgs, result, runErr)
		if err != nil {
			return nil, false, err
		}
		if customResult != nil && override {
			return customResult, true, nil
		}
	}
	return nil, false, nil
}
