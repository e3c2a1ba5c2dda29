//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/toolmesh/toolmesh/tool"
)

// Manifest is a declaratively defined workflow: a YAML file in the watch
// directory describes the workflow and a set of tools that execute local
// commands. Editing the file hot-reloads the workflow.
type Manifest struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Priority    int            `yaml:"priority"`
	Enabled     *bool          `yaml:"enabled"`
	Tools       []ManifestTool `yaml:"tools"`
}

// ManifestTool declares one command-backed tool.
type ManifestTool struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`

	// Properties maps argument name to JSON-schema type ("string", "number",
	// "integer", "boolean"). Occurrences of "{name}" in Args are replaced by
	// the argument's value at call time.
	Properties map[string]ManifestProperty `yaml:"properties"`
	Required   []string                    `yaml:"required"`
}

// ManifestProperty is the schema fragment for one declared argument.
type ManifestProperty struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// ParseManifest decodes and sanity-checks a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest is missing a workflow name")
	}
	for _, t := range m.Tools {
		if t.Name == "" || t.Command == "" {
			return nil, fmt.Errorf("manifest %q declares a tool without name or command", m.Name)
		}
	}
	return &m, nil
}

// ManifestFactory returns a Factory that re-reads the manifest file on every
// construction, so a Reload picks up edits.
func ManifestFactory(path string) Factory {
	return func() (Workflow, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", path, err)
		}
		m, err := ParseManifest(data)
		if err != nil {
			return nil, err
		}
		return newManifestWorkflow(m), nil
	}
}

func newManifestWorkflow(m *Manifest) *manifestWorkflow {
	disabled := m.Enabled != nil && !*m.Enabled
	return &manifestWorkflow{
		Base: Base{
			WorkflowName:        m.Name,
			WorkflowDescription: m.Description,
			WorkflowPriority:    m.Priority,
			Disabled:            disabled,
		},
		manifest: m,
	}
}

type manifestWorkflow struct {
	Base
	manifest *Manifest
}

// Init registers one command tool per manifest entry.
func (w *manifestWorkflow) Init(ctx context.Context, b *Binding) error {
	for _, mt := range w.manifest.Tools {
		b.RegisterTool(mt.Name, newCommandTool(mt))
	}
	return nil
}

// commandTool executes a local command with argument substitution.
type commandTool struct {
	decl    *tool.Declaration
	command string
	args    []string
}

func newCommandTool(mt ManifestTool) *commandTool {
	s := &tool.Schema{Type: "object", Properties: map[string]*tool.Schema{}}
	for name, prop := range mt.Properties {
		s.Properties[name] = &tool.Schema{Type: prop.Type, Description: prop.Description}
	}
	s.Required = append(s.Required, mt.Required...)
	return &commandTool{
		decl: &tool.Declaration{
			Name:        mt.Name,
			Description: mt.Description,
			InputSchema: s,
		},
		command: mt.Command,
		args:    mt.Args,
	}
}

// Declaration implements tool.Tool.
func (c *commandTool) Declaration() *tool.Declaration {
	return c.decl
}

// Call substitutes "{name}" placeholders in the declared args and runs the
// command, returning trimmed stdout.
func (c *commandTool) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	args := map[string]any{}
	if len(jsonArgs) > 0 {
		if err := json.Unmarshal(jsonArgs, &args); err != nil {
			return nil, err
		}
	}

	argv := make([]string, len(c.args))
	for i, a := range c.args {
		argv[i] = substitute(a, args)
	}

	cmd := exec.CommandContext(ctx, c.command, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("command %s failed: %v: %s", c.command, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func substitute(template string, args map[string]any) string {
	out := template
	for name, value := range args {
		out = strings.ReplaceAll(out, "{"+name+"}", fmt.Sprintf("%v", value))
	}
	return out
}
