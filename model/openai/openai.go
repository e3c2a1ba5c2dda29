//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package openai binds the model interface to OpenAI-compatible chat
// completion APIs.
package openai

import (
	"context"
	"encoding/json"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/model"
	"github.com/toolmesh/toolmesh/tool"
)

const defaultChannelBufferSize = 256

// Option configures the model binding.
type Option func(*options)

type options struct {
	apiKey  string
	baseURL string
}

// WithAPIKey sets the API key used for authentication.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// Model streams chat completions from an OpenAI-compatible provider.
type Model struct {
	client openai.Client
	name   string
}

// New creates a model binding for the named chat model.
func New(name string, opts ...Option) *Model {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	return &Model{
		client: openai.NewClient(clientOpts...),
		name:   name,
	}
}

// GenerateStream starts a streaming completion. Events are delivered on the
// returned channel, which is closed after the final event.
func (m *Model) GenerateStream(ctx context.Context, req *model.Request) (<-chan *model.Response, error) {
	chatRequest := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.name),
		Messages: convertMessages(req.Messages),
		Tools:    convertTools(req.Tools),
	}

	ch := make(chan *model.Response, defaultChannelBufferSize)
	go m.stream(ctx, chatRequest, ch)
	return ch, nil
}

func (m *Model) stream(ctx context.Context, chatRequest openai.ChatCompletionNewParams, ch chan<- *model.Response) {
	defer close(ch)

	stream := m.client.Chat.Completions.NewStreaming(ctx, chatRequest)
	defer stream.Close()

	finish := ""
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			finish = choice.FinishReason
		}

		resp := &model.Response{Content: choice.Delta.Content}
		for _, tc := range choice.Delta.ToolCalls {
			resp.ToolCallDeltas = append(resp.ToolCallDeltas, model.ToolCallDelta{
				Index:     int(tc.Index),
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if resp.Content == "" && len(resp.ToolCallDeltas) == 0 {
			continue
		}

		select {
		case ch <- resp:
		case <-ctx.Done():
			return
		}
	}

	final := &model.Response{Done: true, FinishReason: finish}
	if err := stream.Err(); err != nil {
		final.Err = err
	}
	select {
	case ch <- final:
	case <-ctx.Done():
	}
}

// convertMessages maps transcript messages onto the SDK's role unions.
// Unknown roles degrade to user messages rather than failing the request.
func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, systemMessage(msg))
		case model.RoleAssistant:
			out = append(out, assistantMessage(msg))
		case model.RoleTool:
			out = append(out, toolMessage(msg))
		default:
			out = append(out, userMessage(msg))
		}
	}
	return out
}

func systemMessage(msg model.Message) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfSystem: &openai.ChatCompletionSystemMessageParam{
			Content: openai.ChatCompletionSystemMessageParamContentUnion{
				OfString: openai.String(msg.Content),
			},
		},
	}
}

func userMessage(msg model.Message) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(msg.Content),
			},
		},
	}
}

func assistantMessage(msg model.Message) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: openai.String(msg.Content),
			},
			ToolCalls: convertToolCalls(msg.ToolCalls),
		},
	}
}

func toolMessage(msg model.Message) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfTool: &openai.ChatCompletionToolMessageParam{
			Content: openai.ChatCompletionToolMessageParamContentUnion{
				OfString: openai.String(msg.Content),
			},
			ToolCallID: msg.ToolCallID,
		},
	}
}

func convertToolCalls(calls []model.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	var result []openai.ChatCompletionMessageToolCallParam
	for _, call := range calls {
		result = append(result, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	return result
}

func convertTools(tools []*tool.Declaration) []openai.ChatCompletionToolParam {
	var result []openai.ChatCompletionToolParam
	for _, declaration := range tools {
		schemaBytes, err := json.Marshal(declaration.InputSchema)
		if err != nil {
			log.Errorf("failed to marshal tool schema for %s: %v", declaration.Name, err)
			continue
		}
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(schemaBytes, &parameters); err != nil {
			log.Errorf("failed to unmarshal tool schema for %s: %v", declaration.Name, err)
			continue
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        declaration.Name,
				Description: openai.String(declaration.Description),
				Parameters:  parameters,
			},
		})
	}
	return result
}
