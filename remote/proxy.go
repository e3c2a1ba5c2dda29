//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/tool"
)

// Transport kinds accepted in server descriptors.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServerConfig describes one external tool server.
type ServerConfig struct {
	Name      string            `yaml:"name" json:"name"`
	Transport string            `yaml:"transport" json:"transport"`
	Command   string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	URL       string            `yaml:"url,omitempty" json:"url,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Timeout   time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// binding is one live connection to a remote server plus the names it
// imported into the registry.
type binding struct {
	config        ServerConfig
	caller        Caller
	importedNames []string
}

// Proxy folds remote servers' tools into the local registry. Each imported
// tool carries the "remote.<server>." prefix, so local and remote tools with
// the same short name never collide.
type Proxy struct {
	reg *registry.Registry

	mu       sync.Mutex
	bindings map[string]*binding
}

// NewProxy creates a Proxy registering into reg.
func NewProxy(reg *registry.Registry) *Proxy {
	return &Proxy{
		reg:      reg,
		bindings: make(map[string]*binding),
	}
}

// Activate connects the configured servers. When selection is non-empty only
// named servers are activated. A server that fails to connect is logged and
// skipped; the others still come up.
func (p *Proxy) Activate(ctx context.Context, configs []ServerConfig, selection []string) {
	selected := make(map[string]bool, len(selection))
	for _, name := range selection {
		selected[name] = true
	}

	for _, cfg := range configs {
		if len(selected) > 0 && !selected[cfg.Name] {
			continue
		}
		if err := p.Register(ctx, cfg); err != nil {
			log.Errorf("remote server %q failed to activate: %v", cfg.Name, err)
		}
	}
}

// Register connects one server, performs the handshake and imports its tools.
func (p *Proxy) Register(ctx context.Context, cfg ServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("remote server has no name")
	}

	p.mu.Lock()
	_, exists := p.bindings[cfg.Name]
	p.mu.Unlock()
	if exists {
		return fmt.Errorf("remote server %q is already registered", cfg.Name)
	}

	caller, err := p.connect(cfg)
	if err != nil {
		return err
	}

	if _, err := caller.Initialize(ctx); err != nil {
		caller.Close()
		return fmt.Errorf("handshake with %q: %w", cfg.Name, err)
	}

	decls, err := caller.ListTools(ctx)
	if err != nil {
		caller.Close()
		return fmt.Errorf("list tools of %q: %w", cfg.Name, err)
	}

	b := &binding{config: cfg, caller: caller}
	for _, decl := range decls {
		imported := fmt.Sprintf("remote.%s.%s", cfg.Name, decl.Name)
		p.reg.RegisterRemote(imported, &proxyTool{
			decl:     decl,
			remote:   decl.Name,
			caller:   caller,
			imported: imported,
		})
		b.importedNames = append(b.importedNames, imported)
	}

	p.mu.Lock()
	p.bindings[cfg.Name] = b
	p.mu.Unlock()

	log.Infof("remote server %q connected, imported %d tools", cfg.Name, len(decls))
	return nil
}

func (p *Proxy) connect(cfg ServerConfig) (Caller, error) {
	switch cfg.Transport {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("remote server %q: stdio transport requires a command", cfg.Name)
		}
		t, err := NewStdioTransport(StdioConfig{
			Command: cfg.Command,
			Args:    cfg.Args,
			Env:     cfg.Env,
		})
		if err != nil {
			return nil, err
		}
		opts := []ClientOption{
			WithDisconnectHandler(func(err error) {
				// Unexpected exit: drop the imported names by the same
				// invariant as module unload.
				p.Unregister(cfg.Name)
			}),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithCallTimeout(cfg.Timeout))
		}
		return NewClient(cfg.Name, t, opts...), nil
	case TransportHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("remote server %q: http transport requires a url", cfg.Name)
		}
		var opts []HTTPOption
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPTimeout(cfg.Timeout))
		}
		return NewHTTPClient(cfg.Name, cfg.URL, cfg.Headers, opts...), nil
	default:
		return nil, fmt.Errorf("remote server %q: unknown transport %q", cfg.Name, cfg.Transport)
	}
}

// Unregister disconnects one server and removes its imported tool names.
func (p *Proxy) Unregister(name string) {
	p.mu.Lock()
	b, ok := p.bindings[name]
	delete(p.bindings, name)
	p.mu.Unlock()
	if !ok {
		return
	}

	p.reg.UnregisterTools(b.importedNames)
	if err := b.caller.Close(); err != nil {
		log.Debugf("remote server %q close: %v", name, err)
	}
	log.Infof("remote server %q unregistered, removed %d tools", name, len(b.importedNames))
}

// Close disconnects every server.
func (p *Proxy) Close() {
	p.mu.Lock()
	names := make([]string, 0, len(p.bindings))
	for name := range p.bindings {
		names = append(names, name)
	}
	p.mu.Unlock()
	for _, name := range names {
		p.Unregister(name)
	}
}

// Servers lists the connected server names.
func (p *Proxy) Servers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.bindings))
	for name := range p.bindings {
		names = append(names, name)
	}
	return names
}

// proxyTool forwards invocations to a remote server, exposing the remote
// declaration under the imported name.
type proxyTool struct {
	decl     *tool.Declaration
	remote   string
	imported string
	caller   Caller
}

// Declaration implements tool.Tool. The schema is the remote server's; only
// the name is rewritten to the imported form.
func (t *proxyTool) Declaration() *tool.Declaration {
	decl := *t.decl
	decl.Name = t.imported
	return &decl
}

// Call implements tool.CallableTool.
func (t *proxyTool) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	args := map[string]any{}
	if len(jsonArgs) > 0 {
		if err := json.Unmarshal(jsonArgs, &args); err != nil {
			return nil, err
		}
	}
	return t.caller.CallTool(ctx, t.remote, args)
}
