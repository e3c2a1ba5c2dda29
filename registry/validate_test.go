//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolmesh/toolmesh/tool"
)

func paginationSchema() *tool.Schema {
	return &tool.Schema{
		Type: "object",
		Properties: map[string]*tool.Schema{
			"query": {Type: "string"},
			"limit": {Type: "integer"},
			"score": {Type: "number"},
			"exact": {Type: "boolean"},
			"tags":  {Type: "array", Items: &tool.Schema{Type: "string"}},
			"meta":  {Type: "object"},
		},
		Required: []string{"query"},
	}
}

func TestValidateArgsAccepts(t *testing.T) {
	args := map[string]any{
		"query": "go concurrency",
		"limit": 10.0, // JSON numbers arrive as float64
		"score": 0.5,
		"exact": true,
		"tags":  []any{"a", "b"},
		"meta":  map[string]any{"k": "v"},
	}
	assert.Nil(t, validateArgs(paginationSchema(), args))
}

func TestValidateArgsMissingRequired(t *testing.T) {
	result := validateArgs(paginationSchema(), map[string]any{"limit": 1.0})
	require.NotNil(t, result)
	assert.Equal(t, ErrMissingArgument, result.Error.Kind)
	assert.Contains(t, result.Error.Message, "query")
}

func TestValidateArgsTypeMismatches(t *testing.T) {
	cases := []struct {
		name string
		args map[string]any
	}{
		{"string got number", map[string]any{"query": 3.0}},
		{"integer got fraction", map[string]any{"query": "q", "limit": 1.5}},
		{"boolean got string", map[string]any{"query": "q", "exact": "yes"}},
		{"array got object", map[string]any{"query": "q", "tags": map[string]any{}}},
		{"object got array", map[string]any{"query": "q", "meta": []any{}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := validateArgs(paginationSchema(), tc.args)
			require.NotNil(t, result)
			assert.Equal(t, ErrTypeMismatch, result.Error.Kind)
		})
	}
}

func TestValidateArgsIntegerAcceptsWholeFloat(t *testing.T) {
	// 10.0 decodes from JSON as float64 but is a valid integer.
	args := map[string]any{"query": "q", "limit": 10.0}
	assert.Nil(t, validateArgs(paginationSchema(), args))
}

func TestValidateArgsNilSchema(t *testing.T) {
	assert.Nil(t, validateArgs(nil, map[string]any{"anything": 1}))
}

func TestValidateArgsUndeclaredArgumentTolerated(t *testing.T) {
	// Extra arguments are passed through; the handler ignores what it
	// does not know.
	args := map[string]any{"query": "q", "surprise": "ok"}
	assert.Nil(t, validateArgs(paginationSchema(), args))
}
