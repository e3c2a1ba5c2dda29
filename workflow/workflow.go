//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package workflow manages the lifecycle of workflow modules and keeps the
// registry consistent with the set of currently loaded modules.
package workflow

import (
	"context"
	"sync"

	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/tool"
)

// Workflow is a self-contained unit that registers tools, resources and
// prompts during Init and releases them during Cleanup. A workflow instance
// moves through Uninitialized → Initialized → Cleaned-Up and is never
// re-initialized; hot-reload constructs a fresh instance.
type Workflow interface {
	// Name returns the unique workflow name. It doubles as the namespace
	// prefix for every tool the workflow registers.
	Name() string

	// Description returns a human readable description.
	Description() string

	// Priority orders workflows; higher runs earlier.
	Priority() int

	// Init registers the workflow's tools, resources and prompts on the
	// binding. An error excludes the workflow from the active set.
	Init(ctx context.Context, b *Binding) error

	// Cleanup releases any resources held by the workflow. The loader removes
	// the workflow's registrations itself; Cleanup only tears down what Init
	// acquired outside the registry.
	Cleanup(ctx context.Context) error
}

// Switchable is implemented by workflows that can be disabled without being
// removed from configuration.
type Switchable interface {
	Enabled() bool
}

// Base provides Name/Description/Priority/Enabled via fields so concrete
// workflows only implement Init and Cleanup.
type Base struct {
	WorkflowName        string
	WorkflowDescription string
	WorkflowPriority    int
	Disabled            bool
}

// Name implements Workflow.
func (b *Base) Name() string { return b.WorkflowName }

// Description implements Workflow.
func (b *Base) Description() string { return b.WorkflowDescription }

// Priority implements Workflow.
func (b *Base) Priority() int { return b.WorkflowPriority }

// Enabled implements Switchable.
func (b *Base) Enabled() bool { return !b.Disabled }

// Cleanup implements Workflow with a no-op.
func (b *Base) Cleanup(ctx context.Context) error { return nil }

// Binding is the registrar handed to Workflow.Init. It records every name the
// workflow registers so teardown can remove exactly that set; after N
// load/unload cycles no orphaned entry remains in the registry.
type Binding struct {
	workflowName string
	reg          *registry.Registry

	mu        sync.Mutex
	toolNames []string
	tools     map[string]tool.CallableTool
	toolOrder []string
	resources []string
	prompts   []string
}

func newBinding(workflowName string, reg *registry.Registry) *Binding {
	return &Binding{
		workflowName: workflowName,
		reg:          reg,
		tools:        make(map[string]tool.CallableTool),
	}
}

// RegisterTool registers t under "<workflow>.<shortName>".
func (b *Binding) RegisterTool(shortName string, t tool.CallableTool) {
	full := b.workflowName + "." + shortName
	b.reg.Register(full, t)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.toolNames = append(b.toolNames, full)
	if _, ok := b.tools[shortName]; !ok {
		b.toolOrder = append(b.toolOrder, shortName)
	}
	b.tools[shortName] = t
}

// RegisterResource registers a resource owned by the workflow.
func (b *Binding) RegisterResource(res *registry.Resource) {
	b.reg.RegisterResource(res)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.resources = append(b.resources, res.URI)
}

// RegisterPrompt registers a prompt owned by the workflow.
func (b *Binding) RegisterPrompt(p *registry.Prompt) {
	b.reg.RegisterPrompt(p)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, p.Name)
}

// OwnedTools returns the fully qualified tool names this binding registered.
func (b *Binding) OwnedTools() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.toolNames))
	copy(out, b.toolNames)
	return out
}

// shortNameTools returns short name → tool in registration order, for merge.
func (b *Binding) shortNameTools() ([]string, map[string]tool.CallableTool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	order := make([]string, len(b.toolOrder))
	copy(order, b.toolOrder)
	tools := make(map[string]tool.CallableTool, len(b.tools))
	for k, v := range b.tools {
		tools[k] = v
	}
	return order, tools
}

// teardown removes everything this binding registered, as one atomic step per
// kind. The registry never holds a handler whose workflow has been torn down.
func (b *Binding) teardown() {
	b.mu.Lock()
	toolNames := b.toolNames
	resources := b.resources
	prompts := b.prompts
	b.toolNames, b.resources, b.prompts = nil, nil, nil
	b.mu.Unlock()

	b.reg.UnregisterTools(toolNames)
	b.reg.UnregisterResources(resources)
	b.reg.UnregisterPrompts(prompts)
}

// Info describes a loaded workflow for status listings.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Enabled     bool   `json:"enabled"`
	ToolCount   int    `json:"toolCount"`
}
