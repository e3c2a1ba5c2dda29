//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

// Package schema generates JSON schemas from Go types via reflection.
package schema

import (
	"reflect"
	"strings"

	"github.com/toolmesh/toolmesh/tool"
)

// Generate builds a tool.Schema describing t. Struct fields are mapped to
// object properties using their json tags; fields without an "omitempty"
// option and with a non-pointer type are listed as required.
func Generate(t reflect.Type) *tool.Schema {
	if t == nil {
		return &tool.Schema{Type: "object"}
	}
	return typeSchema(t, map[reflect.Type]bool{})
}

func typeSchema(t reflect.Type, seen map[reflect.Type]bool) *tool.Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Bool:
		return &tool.Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &tool.Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &tool.Schema{Type: "number"}
	case reflect.String:
		return &tool.Schema{Type: "string"}
	case reflect.Slice, reflect.Array:
		return &tool.Schema{Type: "array", Items: typeSchema(t.Elem(), seen)}
	case reflect.Map:
		return &tool.Schema{Type: "object"}
	case reflect.Struct:
		// Guard against self-referential types.
		if seen[t] {
			return &tool.Schema{Type: "object"}
		}
		seen[t] = true
		defer delete(seen, t)
		return structSchema(t, seen)
	case reflect.Interface:
		return &tool.Schema{}
	default:
		return &tool.Schema{Type: "string"}
	}
}

func structSchema(t reflect.Type, seen map[reflect.Type]bool) *tool.Schema {
	s := &tool.Schema{
		Type:       "object",
		Properties: map[string]*tool.Schema{},
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitempty, skip := parseJSONTag(field)
		if skip {
			continue
		}
		prop := typeSchema(field.Type, seen)
		if desc := field.Tag.Get("description"); desc != "" {
			prop.Description = desc
		}
		s.Properties[name] = prop
		if !omitempty && field.Type.Kind() != reflect.Pointer {
			s.Required = append(s.Required, name)
		}
	}
	return s
}

func parseJSONTag(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}
