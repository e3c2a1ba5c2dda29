//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package workflow

import (
	"context"
	"fmt"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/tool"
)

// MergeOptions controls how secondary tool names are folded into the
// composite namespace. The zero value prefixes secondaries.
type MergeOptions struct {
	// NoPrefix keeps each secondary tool's short name instead of renaming it
	// to "<secondary>.<tool>", allowing collisions with the primary's names.
	NoPrefix bool
}

// Merge replaces the primary workflow with a composite whose tool set is the
// union of the primary's tools plus each secondary's tools. Name collisions
// are skipped silently, first writer wins; the primary registers first. This
// is deliberate leniency, not an error condition.
//
// The secondaries stay loaded; the composite holds references to their
// handlers under the primary's namespace.
func (l *Loader) Merge(ctx context.Context, primaryName string, secondaryNames []string, opts MergeOptions) error {
	primarySource, primary := l.findByName(primaryName)
	if primary == nil {
		return fmt.Errorf("merge: primary workflow %q is not loaded", primaryName)
	}

	order, tools := primary.binding.shortNameTools()
	union := make(map[string]tool.CallableTool, len(tools))
	unionOrder := make([]string, 0, len(order))
	for _, short := range order {
		union[short] = tools[short]
		unionOrder = append(unionOrder, short)
	}

	for _, secondaryName := range secondaryNames {
		_, secondary := l.findByName(secondaryName)
		if secondary == nil {
			return fmt.Errorf("merge: secondary workflow %q is not loaded", secondaryName)
		}
		secOrder, secTools := secondary.binding.shortNameTools()
		for _, short := range secOrder {
			key := secondaryName + "." + short
			if opts.NoPrefix {
				key = short
			}
			if _, exists := union[key]; exists {
				log.Debugf("merge: skipping %q from %q, name already taken", key, secondaryName)
				continue
			}
			union[key] = secTools[short]
			unionOrder = append(unionOrder, key)
		}
	}

	composite := &mergedWorkflow{
		Base: Base{
			WorkflowName:        primary.workflow.Name(),
			WorkflowDescription: primary.workflow.Description(),
			WorkflowPriority:    primary.workflow.Priority(),
		},
		inner: primary.workflow,
		order: unionOrder,
		tools: union,
	}

	// Swap the primary for the composite under the same source id so a later
	// Reload rebuilds the plain primary from its factory. Only the primary's
	// registered names are removed; the instance itself stays alive inside
	// the composite because the union still points at its handlers.
	lock := l.sourceLock(primarySource)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	delete(l.active, primarySource)
	l.mu.Unlock()
	primary.binding.teardown()

	return l.initInstance(ctx, primarySource, composite)
}

// mergedWorkflow is the composite module produced by Merge.
type mergedWorkflow struct {
	Base
	inner Workflow
	order []string
	tools map[string]tool.CallableTool
}

// Init registers the union tool set under the composite's namespace.
func (m *mergedWorkflow) Init(ctx context.Context, b *Binding) error {
	for _, name := range m.order {
		b.RegisterTool(name, m.tools[name])
	}
	return nil
}

// Cleanup tears down the wrapped primary instance.
func (m *mergedWorkflow) Cleanup(ctx context.Context) error {
	return m.inner.Cleanup(ctx)
}
