//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package config loads the toolmesh daemon configuration from a YAML file
// with environment overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/toolmesh/toolmesh/remote"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Log       LogConfig             `yaml:"log"`
	Workflows WorkflowsConfig       `yaml:"workflows"`
	Model     ModelConfig           `yaml:"model"`
	Driver    DriverConfig          `yaml:"driver"`
	Remotes   []remote.ServerConfig `yaml:"remotes"`
	// Selection limits remote activation to the named servers. Empty means
	// all configured remotes.
	Selection []string `yaml:"selection"`
}

// ServerConfig controls the protocol listeners.
type ServerConfig struct {
	HTTPAddr   string `yaml:"http_addr"`
	SocketPath string `yaml:"socket_path"`
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// WorkflowsConfig controls manifest-defined workflow loading.
type WorkflowsConfig struct {
	Dir      string `yaml:"dir"`
	Watch    bool   `yaml:"watch"`
	PoolSize int    `yaml:"pool_size"`
}

// ModelConfig selects the language model backend.
type ModelConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// DriverConfig tunes the tool-calling loop.
type DriverConfig struct {
	MaxRounds    int    `yaml:"max_rounds"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: ":8421",
			Name:     "toolmesh",
			Version:  "0.1.0",
		},
		Log:       LogConfig{Level: "info"},
		Workflows: WorkflowsConfig{Dir: "workflows", Watch: true, PoolSize: 4},
		Model:     ModelConfig{Name: "gpt-4o-mini"},
		Driver:    DriverConfig{MaxRounds: 5},
	}
}

// Load reads the configuration file at path and applies environment
// overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables. Secrets are
// expected to arrive this way rather than in the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TOOLMESH_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("TOOLMESH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TOOLMESH_WORKFLOWS_DIR"); v != "" {
		c.Workflows.Dir = v
	}
	if v := os.Getenv("TOOLMESH_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("TOOLMESH_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("TOOLMESH_BASE_URL"); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv("TOOLMESH_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Driver.MaxRounds = n
		}
	}
}

func (c *Config) validate() error {
	if c.Driver.MaxRounds <= 0 {
		return fmt.Errorf("driver.max_rounds must be positive, got %d", c.Driver.MaxRounds)
	}
	seen := make(map[string]struct{}, len(c.Remotes))
	for i := range c.Remotes {
		r := &c.Remotes[i]
		if r.Name == "" {
			return fmt.Errorf("remotes[%d]: name is required", i)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("remotes[%d]: duplicate server name %q", i, r.Name)
		}
		seen[r.Name] = struct{}{}
		switch r.Transport {
		case remote.TransportStdio:
			if r.Command == "" {
				return fmt.Errorf("remote %q: command is required for stdio transport", r.Name)
			}
		case remote.TransportHTTP:
			if r.URL == "" {
				return fmt.Errorf("remote %q: url is required for http transport", r.Name)
			}
		default:
			return fmt.Errorf("remote %q: unknown transport %q", r.Name, r.Transport)
		}
	}
	return nil
}
