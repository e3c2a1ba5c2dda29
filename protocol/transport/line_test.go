//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolmesh/toolmesh/protocol"
)

// serveLines feeds the input lines through one Serve call and returns the
// response lines in order.
func serveLines(t *testing.T, input string) []string {
	t.Helper()
	l := NewLineServer(newTestHandler().server)
	var out bytes.Buffer
	err := l.Serve(context.Background(), strings.NewReader(input), &out)
	require.Error(t, err) // EOF terminates the loop

	var lines []string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestLineServerJSONRPC(t *testing.T) {
	lines := serveLines(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n")
	require.Len(t, lines, 1)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	require.Nil(t, resp.Error)

	var result protocol.ToolsListResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Len(t, result.Tools, 1)
}

func TestLineServerSkipsMalformedLines(t *testing.T) {
	// A connection survives garbage between valid messages.
	input := "{broken json\n" +
		`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		"more garbage here\n" +
		`{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n"
	lines := serveLines(t, input)
	require.Len(t, lines, 2)

	for _, line := range lines {
		var resp protocol.Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		assert.Nil(t, resp.Error)
	}
}

func TestLineServerLegacyPing(t *testing.T) {
	lines := serveLines(t, `{"type":"ping"}`+"\n")
	require.Len(t, lines, 1)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, "pong", resp["type"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestLineServerLegacyListTools(t *testing.T) {
	lines := serveLines(t, `{"type":"list_tools"}`+"\n")
	require.Len(t, lines, 1)

	var resp struct {
		Type  string `json:"type"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, "tools", resp.Type)
	assert.Equal(t, 1, resp.Count)
}

func TestLineServerLegacyCallTool(t *testing.T) {
	lines := serveLines(t, `{"type":"call_tool","name":"system.echo","arguments":{"text":"yo"}}`+"\n")
	require.Len(t, lines, 1)

	var resp struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Success bool   `json:"success"`
		Content any    `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, "tool_result", resp.Type)
	assert.Equal(t, "system.echo", resp.Name)
	assert.True(t, resp.Success)
	assert.Equal(t, "yo", resp.Content)
}

func TestLineServerLegacyCallToolFailure(t *testing.T) {
	lines := serveLines(t, `{"type":"call_tool","name":"ghost"}`+"\n")
	require.Len(t, lines, 1)

	var resp struct {
		Type    string `json:"type"`
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, "tool_result", resp.Type)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestLineServerLegacyGetTool(t *testing.T) {
	input := `{"type":"get_tool","name":"system.echo"}` + "\n" +
		`{"type":"get_tool","name":"nope"}` + "\n"
	lines := serveLines(t, input)
	require.Len(t, lines, 2)

	var found struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &found))
	assert.Equal(t, "tool", found.Type)

	var missing struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &missing))
	assert.Equal(t, "error", missing.Type)
	assert.Contains(t, missing.Error, "nope")
}

func TestLineServerLegacyUnknownType(t *testing.T) {
	lines := serveLines(t, `{"type":"self_destruct"}`+"\n")
	require.Len(t, lines, 1)

	var resp struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Error, "self_destruct")
}

func TestLineServerNotificationWritesNothing(t *testing.T) {
	lines := serveLines(t, `{"jsonrpc":"2.0","method":"ping"}`+"\n")
	assert.Empty(t, lines)
}
