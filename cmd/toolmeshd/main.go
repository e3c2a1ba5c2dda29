//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Command toolmeshd runs the tool invocation daemon: it loads workflows,
// connects remote tool servers and exposes the protocol over HTTP, a unix
// socket and optionally stdio.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toolmesh/toolmesh/config"
	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/protocol"
	"github.com/toolmesh/toolmesh/protocol/transport"
	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/remote"
	"github.com/toolmesh/toolmesh/workflow"
	"github.com/toolmesh/toolmesh/workflow/builtin"
)

func main() {
	configPath := flag.String("config", "toolmesh.yaml", "path to configuration file")
	stdio := flag.Bool("stdio", false, "serve the protocol over stdin/stdout instead of listeners")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New()

	loader := workflow.NewLoader(reg, workflow.WithPoolSize(cfg.Workflows.PoolSize))
	loader.RegisterSource("system", builtin.System())
	loader.RegisterSource("calc", builtin.Calc())
	stats := loader.LoadAll(ctx)
	if stats.Failed > 0 {
		log.Warnf("%d workflow(s) failed to load", stats.Failed)
	}

	var watcher *workflow.Watcher
	if cfg.Workflows.Watch && cfg.Workflows.Dir != "" {
		if _, err := os.Stat(cfg.Workflows.Dir); err == nil {
			watcher, err = loader.Watch(ctx, cfg.Workflows.Dir)
			if err != nil {
				log.Errorf("watch workflows dir %s: %v", cfg.Workflows.Dir, err)
			}
		}
	}
	if watcher != nil {
		defer watcher.Close()
	}

	proxy := remote.NewProxy(reg)
	proxy.Activate(ctx, cfg.Remotes, cfg.Selection)
	defer proxy.Close()

	server := protocol.NewServer(reg,
		protocol.WithServerInfo(cfg.Server.Name, cfg.Server.Version))

	if *stdio {
		line := transport.NewLineServer(server)
		if err := line.ServeStdio(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("stdio serve: %v", err)
		}
		return
	}

	if cfg.Server.SocketPath != "" {
		go serveSocket(ctx, server, cfg.Server.SocketPath)
	}

	handler := transport.NewHTTPHandler(server)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("http listening on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
}

// serveSocket accepts line-delimited protocol connections on a unix socket.
func serveSocket(ctx context.Context, server *protocol.Server, path string) {
	_ = os.Remove(path)
	listener, err := net.Listen("unix", path)
	if err != nil {
		log.Errorf("listen unix socket %s: %v", path, err)
		return
	}
	defer os.Remove(path)

	log.Infof("socket listening on %s", path)
	line := transport.NewLineServer(server)
	if err := line.Listen(ctx, listener); err != nil && ctx.Err() == nil {
		log.Errorf("socket serve: %v", err)
	}
}
