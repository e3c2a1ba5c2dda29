//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package driver

import (
	"sort"
	"strings"

	"github.com/toolmesh/toolmesh/model"
)

// assembler reconstructs complete tool calls from streamed fragments.
// Fragments are grouped by positional index; id, name and argument pieces
// are concatenated in arrival order. A call is only materialized when the
// stream finishes, so partially delivered calls never execute.
type assembler struct {
	calls map[int]*callBuilder
}

type callBuilder struct {
	id   strings.Builder
	name strings.Builder
	args strings.Builder
}

func newAssembler() *assembler {
	return &assembler{calls: make(map[int]*callBuilder)}
}

// Add folds one batch of deltas into the partial call state.
func (a *assembler) Add(deltas []model.ToolCallDelta) {
	for _, d := range deltas {
		b, ok := a.calls[d.Index]
		if !ok {
			b = &callBuilder{}
			a.calls[d.Index] = b
		}
		b.id.WriteString(d.ID)
		b.name.WriteString(d.Name)
		b.args.WriteString(d.Arguments)
	}
}

// Empty reports whether no fragments have arrived.
func (a *assembler) Empty() bool {
	return len(a.calls) == 0
}

// Finalize returns the assembled calls ordered by index. The result is
// independent of how the provider chunked the stream: any re-chunking that
// preserves per-index ordering assembles to the same calls.
func (a *assembler) Finalize() []model.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]model.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		b := a.calls[i]
		out = append(out, model.ToolCall{
			ID:        b.id.String(),
			Name:      b.name.String(),
			Arguments: b.args.String(),
		})
	}
	return out
}
