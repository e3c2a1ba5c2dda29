//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package builtin provides small workflows that ship with the server.
package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/tool/function"
	"github.com/toolmesh/toolmesh/workflow"
)

// System returns the factory for the "system" workflow: clock and echo tools
// plus a status resource.
func System() workflow.Factory {
	return func() (workflow.Workflow, error) {
		return &systemWorkflow{
			Base: workflow.Base{
				WorkflowName:        "system",
				WorkflowDescription: "Built-in system utilities",
				WorkflowPriority:    100,
			},
			started: time.Now(),
		}, nil
	}
}

type systemWorkflow struct {
	workflow.Base
	started time.Time
}

type currentTimeArgs struct {
	Format string `json:"format,omitempty" description:"Go layout string, defaults to RFC3339"`
}

type echoArgs struct {
	Text string `json:"text" description:"Text to echo back"`
}

func (w *systemWorkflow) Init(ctx context.Context, b *workflow.Binding) error {
	b.RegisterTool("current_time", function.New(
		func(ctx context.Context, args currentTimeArgs) (string, error) {
			layout := args.Format
			if layout == "" {
				layout = time.RFC3339
			}
			return time.Now().Format(layout), nil
		},
		function.WithName("current_time"),
		function.WithDescription("Returns the current local time"),
	))

	b.RegisterTool("echo", function.New(
		func(ctx context.Context, args echoArgs) (string, error) {
			return args.Text, nil
		},
		function.WithName("echo"),
		function.WithDescription("Echoes the given text back"),
	))

	b.RegisterResource(&registry.Resource{
		URI:         "system://uptime",
		Name:        "uptime",
		Description: "Time since the server started",
		MIMEType:    "text/plain",
		Handler: func(ctx context.Context) (registry.ResourceContents, error) {
			return registry.ResourceContents{
				URI:      "system://uptime",
				MIMEType: "text/plain",
				Text:     time.Since(w.started).Round(time.Second).String(),
			}, nil
		},
	})

	return nil
}

// Calc returns the factory for the "calc" workflow: basic arithmetic tools.
func Calc() workflow.Factory {
	return func() (workflow.Workflow, error) {
		return &calcWorkflow{
			Base: workflow.Base{
				WorkflowName:        "calc",
				WorkflowDescription: "Basic arithmetic",
				WorkflowPriority:    50,
			},
		}, nil
	}
}

type calcWorkflow struct {
	workflow.Base
}

type binaryArgs struct {
	A float64 `json:"a" description:"Left operand"`
	B float64 `json:"b" description:"Right operand"`
}

func (w *calcWorkflow) Init(ctx context.Context, b *workflow.Binding) error {
	b.RegisterTool("add", function.New(
		func(ctx context.Context, args binaryArgs) (float64, error) {
			return args.A + args.B, nil
		},
		function.WithName("add"),
		function.WithDescription("Adds two numbers"),
	))

	b.RegisterTool("div", function.New(
		func(ctx context.Context, args binaryArgs) (float64, error) {
			if args.B == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return args.A / args.B, nil
		},
		function.WithName("div"),
		function.WithDescription("Divides a by b"),
	))

	b.RegisterPrompt(&registry.Prompt{
		Name:        "calc.explain",
		Description: "Explains an arithmetic result",
		Arguments: []registry.PromptArgument{
			{Name: "expression", Description: "Expression to explain", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]string) ([]registry.PromptMessage, error) {
			expr, ok := args["expression"]
			if !ok {
				return nil, fmt.Errorf("missing required argument %q", "expression")
			}
			return []registry.PromptMessage{
				{Role: "user", Content: "Explain step by step how to evaluate: " + expr},
			}, nil
		},
	})

	return nil
}
