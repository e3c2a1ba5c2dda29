//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Command toolmesh-chat is an interactive client that drives a streaming
// model against the local tool registry.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/toolmesh/toolmesh/config"
	"github.com/toolmesh/toolmesh/driver"
	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/model/openai"
	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/remote"
	"github.com/toolmesh/toolmesh/workflow"
	"github.com/toolmesh/toolmesh/workflow/builtin"
)

func main() {
	configPath := flag.String("config", "toolmesh.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log.SetLevel(cfg.Log.Level)

	ctx := context.Background()

	reg := registry.New()
	loader := workflow.NewLoader(reg)
	loader.RegisterSource("system", builtin.System())
	loader.RegisterSource("calc", builtin.Calc())
	loader.LoadAll(ctx)

	proxy := remote.NewProxy(reg)
	proxy.Activate(ctx, cfg.Remotes, cfg.Selection)
	defer proxy.Close()

	mdl := openai.New(cfg.Model.Name,
		openai.WithAPIKey(cfg.Model.APIKey),
		openai.WithBaseURL(cfg.Model.BaseURL))

	d := driver.New(mdl, reg,
		driver.WithMaxRounds(cfg.Driver.MaxRounds),
		driver.WithSystemPrompt(cfg.Driver.SystemPrompt),
		driver.WithTextSink(func(delta string) {
			fmt.Print(delta)
		}))

	fmt.Printf("toolmesh chat (%d tools available)\n", reg.ToolCount())
	fmt.Println("Type 'exit' to quit, 'clear' to reset the conversation.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "exit":
			return
		case "clear":
			d.Reset()
			fmt.Println("conversation cleared")
			continue
		}

		if _, err := d.Run(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
			continue
		}
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "input error: %v\n", err)
	}
}
