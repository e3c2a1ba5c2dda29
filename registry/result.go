//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package registry

import "fmt"

// ErrorKind classifies a failed invocation.
type ErrorKind string

// Error kinds returned by the registry and its transports.
const (
	// ErrUnknownTool indicates the requested tool name is not registered.
	ErrUnknownTool ErrorKind = "unknown_tool"
	// ErrMissingArgument indicates a required argument was not supplied.
	ErrMissingArgument ErrorKind = "missing_argument"
	// ErrTypeMismatch indicates an argument failed a schema type check.
	ErrTypeMismatch ErrorKind = "type_mismatch"
	// ErrHandlerFailure indicates the tool handler returned an error or panicked.
	ErrHandlerFailure ErrorKind = "handler_failure"
	// ErrTransportTimeout indicates a remote call did not answer in time.
	ErrTransportTimeout ErrorKind = "transport_timeout"
	// ErrMalformedMessage indicates an unparseable envelope or argument payload.
	ErrMalformedMessage ErrorKind = "malformed_message"
	// ErrModuleLoadFailure indicates a workflow module failed to initialize.
	ErrModuleLoadFailure ErrorKind = "module_load_failure"
)

// Error is the error payload of a failed Result.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Result is the uniform outcome of a tool invocation. Handler failures are
// returned as data, never as a Go error, so callers always receive a value
// from Invoke.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Ok builds a successful Result carrying data.
func Ok(data any) Result {
	return Result{Success: true, Data: data}
}

// Err builds a failed Result with the given kind and message.
func Err(kind ErrorKind, format string, args ...any) Result {
	return Result{
		Success: false,
		Error:   &Error{Kind: kind, Message: fmt.Sprintf(format, args...)},
	}
}
