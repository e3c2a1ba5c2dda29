//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package registry

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/tool"
)

// validateArgs checks args against the tool's input schema. It returns nil
// when the arguments are acceptable, otherwise a failed Result.
//
// The required and top-level type checks are explicit so the error taxonomy
// stays precise; a gojsonschema pass then covers nested constraints (items,
// enums, nested objects).
func validateArgs(s *tool.Schema, args map[string]any) *Result {
	if s == nil {
		return nil
	}

	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			r := Err(ErrMissingArgument, "missing required argument %q", name)
			return &r
		}
	}

	for name, value := range args {
		prop, ok := s.Properties[name]
		if !ok || prop.Type == "" || value == nil {
			continue
		}
		if !typeMatches(prop.Type, value) {
			r := Err(ErrTypeMismatch, "argument %q must be of type %s", name, prop.Type)
			return &r
		}
	}

	return deepValidate(s, args)
}

// typeMatches performs the JSON-level type check for a decoded argument value.
func typeMatches(schemaType string, value any) bool {
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		return isJSONNumber(value)
	case "integer":
		f, ok := value.(float64)
		if !ok {
			return isNonFloatNumber(value)
		}
		return f == float64(int64(f))
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func isJSONNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}

func isNonFloatNumber(value any) bool {
	switch value.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}

// deepValidate runs the full JSON-schema validation. Schema compilation
// failures are logged and tolerated: a workflow with an exotic schema should
// not make its tools uninvocable.
func deepValidate(s *tool.Schema, args map[string]any) *Result {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s))
	if err != nil {
		log.Debugf("registry: schema compilation failed, skipping deep validation: %v", err)
		return nil
	}
	outcome, err := compiled.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		log.Debugf("registry: deep validation errored, skipping: %v", err)
		return nil
	}
	if outcome.Valid() {
		return nil
	}

	first := outcome.Errors()[0]
	kind := ErrTypeMismatch
	if first.Type() == "required" {
		kind = ErrMissingArgument
	}
	r := Err(kind, "%s", first.String())
	return &r
}
