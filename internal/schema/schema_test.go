//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query   string   `json:"query" description:"the search query"`
	Limit   int      `json:"limit,omitempty"`
	Exact   bool     `json:"exact,omitempty"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
	Cursor  *string  `json:"cursor"`
	hidden  string
	Skipped string   `json:"-"`
}

func TestGenerateStruct(t *testing.T) {
	s := Generate(reflect.TypeOf(searchArgs{}))
	require.Equal(t, "object", s.Type)

	require.Contains(t, s.Properties, "query")
	assert.Equal(t, "string", s.Properties["query"].Type)
	assert.Equal(t, "the search query", s.Properties["query"].Description)

	assert.Equal(t, "integer", s.Properties["limit"].Type)
	assert.Equal(t, "boolean", s.Properties["exact"].Type)
	assert.Equal(t, "number", s.Properties["score"].Type)

	require.Contains(t, s.Properties, "tags")
	assert.Equal(t, "array", s.Properties["tags"].Type)
	require.NotNil(t, s.Properties["tags"].Items)
	assert.Equal(t, "string", s.Properties["tags"].Items.Type)

	assert.NotContains(t, s.Properties, "hidden")
	assert.NotContains(t, s.Properties, "Skipped")

	// Required excludes omitempty fields and pointer fields.
	assert.ElementsMatch(t, []string{"query", "score"}, s.Required)
}

func TestGenerateNested(t *testing.T) {
	type inner struct {
		Value string `json:"value"`
	}
	type outer struct {
		Inner inner `json:"inner"`
	}

	s := Generate(reflect.TypeOf(outer{}))
	require.Contains(t, s.Properties, "inner")
	nested := s.Properties["inner"]
	assert.Equal(t, "object", nested.Type)
	assert.Equal(t, "string", nested.Properties["value"].Type)
}

func TestGenerateRecursiveType(t *testing.T) {
	type node struct {
		Name     string  `json:"name"`
		Children []*node `json:"children,omitempty"`
	}

	s := Generate(reflect.TypeOf(node{}))
	require.Equal(t, "object", s.Type)
	children := s.Properties["children"]
	require.Equal(t, "array", children.Type)
	// The recursive element degrades to a plain object instead of looping.
	assert.Equal(t, "object", children.Items.Type)
}

func TestGenerateScalars(t *testing.T) {
	assert.Equal(t, "string", Generate(reflect.TypeOf("")).Type)
	assert.Equal(t, "integer", Generate(reflect.TypeOf(0)).Type)
	assert.Equal(t, "number", Generate(reflect.TypeOf(0.0)).Type)
	assert.Equal(t, "boolean", Generate(reflect.TypeOf(false)).Type)
	assert.Equal(t, "object", Generate(reflect.TypeOf(map[string]int{})).Type)
	assert.Equal(t, "object", Generate(nil).Type)
}

func TestGenerateUnwrapsPointers(t *testing.T) {
	type args struct {
		Name string `json:"name"`
	}
	s := Generate(reflect.TypeOf(&args{}))
	assert.Equal(t, "object", s.Type)
	assert.Contains(t, s.Properties, "name")
}
