//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package driver runs tool-calling conversations against a streaming model.
// It forwards text deltas to a sink as they arrive, assembles tool call
// fragments, executes the requested tools through the registry and feeds the
// results back to the model, bounded by a round ceiling.
package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/model"
	"github.com/toolmesh/toolmesh/registry"
	"github.com/toolmesh/toolmesh/tool"
)

const defaultMaxRounds = 5

// TextSink receives text deltas as they stream in. Implementations must be
// fast; the driver calls them inline from the stream loop.
type TextSink func(delta string)

// Option configures a Driver.
type Option func(*Driver)

// WithMaxRounds caps how many times tool results are fed back to the model
// within a single Run. Values below one fall back to the default.
func WithMaxRounds(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxRounds = n
		}
	}
}

// WithSystemPrompt prepends a system message to every conversation.
func WithSystemPrompt(prompt string) Option {
	return func(d *Driver) {
		d.systemPrompt = prompt
	}
}

// WithTextSink sets the destination for streamed text deltas.
func WithTextSink(sink TextSink) Option {
	return func(d *Driver) {
		d.sink = sink
	}
}

// Driver orchestrates the model/tool loop for one conversation at a time.
// It is not safe for concurrent Run calls.
type Driver struct {
	mdl          model.Model
	reg          *registry.Registry
	maxRounds    int
	systemPrompt string
	sink         TextSink
	messages     []model.Message
}

// New creates a driver over the given model and registry.
func New(mdl model.Model, reg *registry.Registry, opts ...Option) *Driver {
	d := &Driver{
		mdl:       mdl,
		reg:       reg,
		maxRounds: defaultMaxRounds,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reset discards the accumulated conversation transcript.
func (d *Driver) Reset() {
	d.messages = nil
}

// Messages returns a copy of the transcript accumulated so far.
func (d *Driver) Messages() []model.Message {
	out := make([]model.Message, len(d.messages))
	copy(out, d.messages)
	return out
}

// Run submits the user input and drives the conversation until the model
// produces a final text answer, returning that answer. If the model is still
// requesting tools when the round ceiling is hit, Run stops and returns the
// text accumulated across the rounds so far instead of an error.
func (d *Driver) Run(ctx context.Context, input string) (string, error) {
	if len(d.messages) == 0 && d.systemPrompt != "" {
		d.messages = append(d.messages, model.NewSystemMessage(d.systemPrompt))
	}
	d.messages = append(d.messages, model.NewUserMessage(input))

	decls := d.reg.Tools("")
	var accumulated strings.Builder
	for round := 0; round < d.maxRounds; round++ {
		resp, err := d.generate(ctx, decls)
		if err != nil {
			return "", err
		}
		accumulated.WriteString(resp.content)

		if resp.finish != model.FinishToolCalls || len(resp.calls) == 0 {
			d.messages = append(d.messages, model.Message{
				Role:    model.RoleAssistant,
				Content: resp.content,
			})
			return resp.content, nil
		}

		d.messages = append(d.messages, model.Message{
			Role:      model.RoleAssistant,
			Content:   resp.content,
			ToolCalls: resp.calls,
		})
		d.executeCalls(ctx, resp.calls)
	}

	// Ceiling guard against a model that keeps requesting tools. Whatever
	// text was gathered along the way is the answer; no further model turn.
	log.Warnf("tool call round ceiling (%d) reached", d.maxRounds)
	return accumulated.String(), nil
}

type roundResult struct {
	content string
	calls   []model.ToolCall
	finish  string
}

// generate runs one model turn, streaming text to the sink and assembling
// tool call fragments until the stream completes. A nil declaration list
// disables tool calling for the turn.
func (d *Driver) generate(ctx context.Context, decls []*tool.Declaration) (*roundResult, error) {
	req := &model.Request{Messages: d.messages, Tools: decls}
	ch, err := d.mdl.GenerateStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate stream: %w", err)
	}

	var content strings.Builder
	asm := newAssembler()
	finish := model.FinishStop

	for resp := range ch {
		if resp.Err != nil {
			return nil, resp.Err
		}
		if resp.Content != "" {
			content.WriteString(resp.Content)
			if d.sink != nil {
				d.sink(resp.Content)
			}
		}
		asm.Add(resp.ToolCallDeltas)
		if resp.Done && resp.FinishReason != "" {
			finish = resp.FinishReason
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	calls := asm.Finalize()
	// Some providers omit finish_reason; treat assembled calls as intent.
	if len(calls) > 0 && finish == model.FinishStop {
		finish = model.FinishToolCalls
	}
	return &roundResult{content: content.String(), calls: calls, finish: finish}, nil
}

// executeCalls runs the assembled calls sequentially and appends one tool
// message per call. A failed call never aborts the batch: its error is
// reported back to the model as the tool result.
func (d *Driver) executeCalls(ctx context.Context, calls []model.ToolCall) {
	for i := range calls {
		call := &calls[i]
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		result := d.reg.InvokeJSON(ctx, call.Name, []byte(call.Arguments))
		d.messages = append(d.messages, model.NewToolMessage(call.ID, renderResult(result)))
	}
}

// renderResult flattens a registry result into the text returned to the model.
func renderResult(result registry.Result) string {
	if !result.Success {
		return fmt.Sprintf("error (%s): %s", result.Error.Kind, result.Error.Message)
	}
	if s, ok := result.Data.(string); ok {
		return s
	}
	data, err := json.Marshal(result.Data)
	if err != nil {
		return fmt.Sprintf("%v", result.Data)
	}
	return string(data)
}
