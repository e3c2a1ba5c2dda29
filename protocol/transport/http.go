//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package transport binds the protocol server to its transports: HTTP
// request/response, a server-sent push channel and line-delimited duplex
// streams for subprocess and socket peers.
package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/protocol"
)

// defaultPingInterval is the push channel heartbeat period.
const defaultPingInterval = 30 * time.Second

// HTTPHandler serves the protocol over HTTP.
type HTTPHandler struct {
	server       *protocol.Server
	pingInterval time.Duration
}

// HTTPOption configures an HTTPHandler.
type HTTPOption func(*HTTPHandler)

// WithPingInterval overrides the push channel heartbeat period.
func WithPingInterval(d time.Duration) HTTPOption {
	return func(h *HTTPHandler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// NewHTTPHandler builds the HTTP binding for server.
func NewHTTPHandler(server *protocol.Server, opts ...HTTPOption) *HTTPHandler {
	h := &HTTPHandler{server: server, pingInterval: defaultPingInterval}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns the http.Handler mounting every protocol endpoint,
// CORS-enabled for browser callers.
func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/protocol/jsonrpc", h.handleJSONRPC).Methods(http.MethodPost)
	r.HandleFunc("/protocol/tools", h.handleListTools).Methods(http.MethodGet)
	r.HandleFunc("/protocol/tools/call", h.handleCallTool).Methods(http.MethodPost)
	r.HandleFunc("/protocol/connect", h.handleConnect).Methods(http.MethodGet)
	return cors.Default().Handler(r)
}

// handleJSONRPC answers one JSON-RPC exchange. An optional stream query
// parameter restricts tools/list to one workflow's namespace.
func (h *HTTPHandler) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, protocol.NewErrorResponse(nil,
			protocol.NewError(protocol.CodeParseError, "invalid JSON", nil)))
		return
	}

	if stream := r.URL.Query().Get("stream"); stream != "" && req.Method == protocol.MethodToolsList {
		params, err := json.Marshal(protocol.ToolsListParams{Stream: stream})
		if err == nil {
			req.Params = params
		}
	}

	resp := h.server.Handle(r.Context(), &req)
	if resp == nil {
		// Notification: acknowledge with no body.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListTools is the convenience wrapper over tools/list.
func (h *HTTPHandler) handleListTools(w http.ResponseWriter, r *http.Request) {
	stream := r.URL.Query().Get("stream")
	tools := h.server.Registry().Tools(stream)
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":  tools,
		"count":  len(tools),
		"stream": stream,
	})
}

type callToolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type callToolMetadata struct {
	Tool      string `json:"tool"`
	Duration  string `json:"duration"`
	Timestamp string `json:"timestamp"`
}

// handleCallTool invokes one tool outside of the JSON-RPC envelope.
func (h *HTTPHandler) handleCallTool(w http.ResponseWriter, r *http.Request) {
	var req callToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "tool name is required",
		})
		return
	}

	start := time.Now()
	result := h.server.Registry().Invoke(r.Context(), req.Name, req.Arguments)
	meta := callToolMetadata{
		Tool:      req.Name,
		Duration:  time.Since(start).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if !result.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  false,
			"error":    result.Error.Message,
			"metadata": meta,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"content":  result.Data,
		"metadata": meta,
	})
}

// handleConnect opens the push channel: a connected event immediately, then
// a heartbeat on every tick until the peer goes away.
func (h *HTTPHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.pushEvent(w, map[string]any{
		"type":       "connected",
		"toolsCount": h.server.Registry().ToolCount(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debugf("push channel closed by peer")
			return
		case <-ticker.C:
			h.pushEvent(w, map[string]any{
				"type":       "ping",
				"timestamp":  time.Now().UTC().Format(time.RFC3339),
				"toolsCount": h.server.Registry().ToolCount(),
			})
			flusher.Flush()
		}
	}
}

func (h *HTTPHandler) pushEvent(w http.ResponseWriter, event map[string]any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("push channel: marshal event: %v", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("http transport: write response: %v", err)
	}
}
