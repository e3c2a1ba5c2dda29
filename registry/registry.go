//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package registry implements the in-memory tool, resource and prompt
// registry that the protocol server, remote proxy and streaming driver all
// read from and the workflow loader populates.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/telemetry"
	"github.com/toolmesh/toolmesh/tool"
)

// Resource is a named piece of content addressable by URI.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`

	// Handler produces the resource contents on read.
	Handler func(ctx context.Context) (ResourceContents, error) `json:"-"`
}

// ResourceContents is the payload returned by a resource read.
type ResourceContents struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// PromptArgument describes one argument accepted by a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is one message produced by a prompt handler.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is a named message template.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`

	// Handler renders the prompt with the supplied arguments.
	Handler func(ctx context.Context, args map[string]string) ([]PromptMessage, error) `json:"-"`
}

type toolEntry struct {
	tool   tool.CallableTool
	remote bool
}

// Registry holds the process-wide set of tools, resources and prompts.
// It is constructed explicitly by the composition root and passed by
// reference; there is no package-level instance.
//
// Mutations come only from the workflow loader and the remote proxy;
// everything else reads. All operations are atomic under one lock, so no
// reader ever observes a partially applied teardown or registration.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*toolEntry
	resources map[string]*Resource
	prompts   map[string]*Prompt

	callbacks *tool.Callbacks
}

// Option configures a Registry.
type Option func(*Registry)

// WithCallbacks installs before/after tool callbacks run around every Invoke.
func WithCallbacks(cb *tool.Callbacks) Option {
	return func(r *Registry) {
		r.callbacks = cb
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		tools:     make(map[string]*toolEntry),
		resources: make(map[string]*Resource),
		prompts:   make(map[string]*Prompt),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool under the given name, overwriting any existing entry
// with that name. Overwriting is what makes hot-reload work without a
// restart.
func (r *Registry) Register(name string, t tool.CallableTool) {
	r.register(name, t, false)
}

// RegisterRemote adds a remote-proxied tool. It behaves like Register but
// marks the entry so invocation logs show the target is remote.
func (r *Registry) RegisterRemote(name string, t tool.CallableTool) {
	r.register(name, t, true)
}

func (r *Registry) register(name string, t tool.CallableTool, remote bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		log.Debugf("registry: overwriting tool %q", name)
	}
	r.tools[name] = &toolEntry{tool: t, remote: remote}
}

// RegisterResource adds a resource keyed by URI, overwriting any existing one.
func (r *Registry) RegisterResource(res *Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[res.URI] = res
}

// RegisterPrompt adds a prompt, overwriting any existing one with that name.
func (r *Registry) RegisterPrompt(p *Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[p.Name] = p
}

// UnregisterTools removes a set of tool names in one atomic step.
func (r *Registry) UnregisterTools(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		delete(r.tools, name)
	}
}

// UnregisterResources removes a set of resource URIs in one atomic step.
func (r *Registry) UnregisterResources(uris []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, uri := range uris {
		delete(r.resources, uri)
	}
}

// UnregisterPrompts removes a set of prompt names in one atomic step.
func (r *Registry) UnregisterPrompts(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		delete(r.prompts, name)
	}
}

// HasTool reports whether a tool is registered under name.
func (r *Registry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// ToolCount returns the number of registered tools.
func (r *Registry) ToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Tools returns a snapshot of tool declarations, sorted by name and safe to
// serialize. A non-empty filterPrefix restricts the snapshot to names within
// that namespace ("desktop" matches "desktop.run" and "desktop").
func (r *Registry) Tools(filterPrefix string) []*tool.Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]*tool.Declaration, 0, len(r.tools))
	for name, entry := range r.tools {
		if !matchesNamespace(name, filterPrefix) {
			continue
		}
		decl := *entry.tool.Declaration()
		decl.Name = name
		decls = append(decls, &decl)
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// Resources returns a snapshot of registered resources, sorted by URI.
func (r *Registry) Resources() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Resource looks up a resource by URI.
func (r *Registry) Resource(uri string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[uri]
	return res, ok
}

// Prompts returns a snapshot of registered prompts, sorted by name.
func (r *Registry) Prompts() []*Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Prompt looks up a prompt by name.
func (r *Registry) Prompt(name string) (*Prompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[name]
	return p, ok
}

// Invoke validates args against the tool's input schema and executes the
// handler. Every failure mode comes back as a failed Result; Invoke never
// returns a Go error and never lets a handler panic escape.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) Result {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Err(ErrUnknownTool, "tool %q is not registered", name)
	}

	decl := entry.tool.Declaration()
	if failed := validateArgs(decl.InputSchema, args); failed != nil {
		return *failed
	}

	jsonArgs, err := json.Marshal(args)
	if err != nil {
		return Err(ErrMalformedMessage, "arguments are not JSON-encodable: %v", err)
	}

	target := "local"
	if entry.remote {
		target = "remote"
	}
	log.Infof("invoking tool %q (%s)", name, target)
	start := time.Now()

	ctx, span := telemetry.StartToolSpan(ctx, name, entry.remote)
	result := r.execute(ctx, name, decl, entry.tool, jsonArgs)
	telemetry.EndToolSpan(span, result.Success)

	log.Infof("tool %q finished in %s (success=%v)", name, time.Since(start), result.Success)
	return result
}

// InvokeJSON is Invoke for callers that hold raw JSON argument text, such as
// the streaming driver. An unparseable payload fails only this call.
func (r *Registry) InvokeJSON(ctx context.Context, name string, jsonArgs []byte) Result {
	args := map[string]any{}
	if len(jsonArgs) > 0 {
		if err := json.Unmarshal(jsonArgs, &args); err != nil {
			return Err(ErrMalformedMessage, "tool %q arguments are not valid JSON: %v", name, err)
		}
	}
	return r.Invoke(ctx, name, args)
}

func (r *Registry) execute(ctx context.Context, name string, decl *tool.Declaration, t tool.CallableTool, jsonArgs []byte) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("tool %q panicked: %v", name, rec)
			result = Err(ErrHandlerFailure, "tool %q panicked: %v", name, rec)
		}
	}()

	if r.callbacks != nil {
		custom, skip, err := r.callbacks.RunBefore(ctx, name, decl, jsonArgs)
		if err != nil {
			return Err(ErrHandlerFailure, "before-tool callback: %v", err)
		}
		if custom != nil || skip {
			return Ok(custom)
		}
	}

	data, err := t.Call(ctx, jsonArgs)

	if r.callbacks != nil {
		custom, override, cbErr := r.callbacks.RunAfter(ctx, name, decl, jsonArgs, data, err)
		if cbErr != nil {
			return Err(ErrHandlerFailure, "after-tool callback: %v", cbErr)
		}
		if override {
			return Ok(custom)
		}
	}

	if err != nil {
		return Err(kindForError(err), "%v", err)
	}
	return Ok(data)
}

// kindForError keeps remote timeout classification intact when a proxied tool
// reports it through the normal error path.
func kindForError(err error) ErrorKind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return ErrHandlerFailure
}

// matchesNamespace reports whether name belongs to the given dot-separated
// namespace prefix. An empty prefix matches everything.
func matchesNamespace(name, prefix string) bool {
	if prefix == "" {
		return true
	}
	return name == prefix || strings.HasPrefix(name, prefix+".")
}

// String implements fmt.Stringer for debug logging.
func (r *Registry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("registry{tools:%d resources:%d prompts:%d}", len(r.tools), len(r.resources), len(r.prompts))
}
