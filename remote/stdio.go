//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package remote

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/toolmesh/toolmesh/log"
)

// StdioConfig configures a subprocess transport.
type StdioConfig struct {
	Command string
	Args    []string
	Env     map[string]string
	Dir     string
}

// StdioTransport frames messages as lines over a subprocess's stdin/stdout.
// The subprocess handle is owned exclusively by this transport; Close
// terminates it.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader

	mu     sync.Mutex
	closed bool
}

// NewStdioTransport spawns the external process and wires its pipes.
func NewStdioTransport(config StdioConfig) (*StdioTransport, error) {
	cmd := exec.Command(config.Command, config.Args...)
	if config.Dir != "" {
		cmd.Dir = config.Dir
	}
	cmd.Env = os.Environ()
	for k, v := range config.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("start %s: %w", config.Command, err)
	}

	t := &StdioTransport{
		cmd:   cmd,
		stdin: stdin,
		// bufio.Reader instead of a Scanner: remote servers can return
		// arbitrarily large single-line responses.
		reader: bufio.NewReader(stdout),
	}
	go t.monitorStderr(stderr)

	log.Infof("remote server started: %s (pid %d)", config.Command, cmd.Process.Pid)
	return t, nil
}

func (t *StdioTransport) monitorStderr(stderr io.Reader) {
	reader := bufio.NewReader(stderr)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			log.Debugf("remote stderr: %s", line)
		}
		if err != nil {
			return
		}
	}
}

// Send writes one message followed by a newline.
func (t *StdioTransport) Send(ctx context.Context, msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport is closed")
	}
	if _, err := t.stdin.Write(append(msg, '\n')); err != nil {
		return fmt.Errorf("write to subprocess: %w", err)
	}
	return nil
}

// Receive reads the next line from the subprocess. An EOF means the process
// exited.
func (t *StdioTransport) Receive(ctx context.Context) ([]byte, error) {
	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		if len(line) > 0 {
			return line, nil
		}
		return nil, err
	}
	return line[:len(line)-1], nil
}

// Close terminates the subprocess.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	return t.cmd.Wait()
}
