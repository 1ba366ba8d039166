// Package schema loads the CV JSON Schema and derives the editor's augmented
// copy of it.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

//go:embed jsoncv.schema.json
var baseJSON []byte

var ErrPathNotFound = errors.New("schema path not found")

// Schema is a decoded JSON Schema document.
type Schema map[string]any

// Base returns a fresh copy of the bundled schema.
func Base() Schema {
	s, err := Parse(baseJSON)
	if err != nil {
		panic("schema: bundled schema is invalid: " + err.Error())
	}
	return s
}

// BaseJSON returns the raw bundled schema.
func BaseJSON() []byte {
	out := make([]byte, len(baseJSON))
	copy(out, baseJSON)
	return out
}

func Parse(data []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Clone returns a deep copy.
func (s Schema) Clone() Schema {
	return cloneValue(map[string]any(s)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Schema:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Lookup resolves a dotted path of object keys starting at node.
func Lookup(node map[string]any, path string) (map[string]any, error) {
	cur := node
	for _, key := range strings.Split(path, ".") {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s (at %q)", ErrPathNotFound, path, key)
		}
		cur = next
	}
	return cur, nil
}

// Properties returns the properties object of node, or nil.
func Properties(node map[string]any) map[string]any {
	props, _ := node["properties"].(map[string]any)
	return props
}

// Property returns the named property schema of the root.
func (s Schema) Property(name string) map[string]any {
	props := Properties(s)
	if props == nil {
		return nil
	}
	p, _ := props[name].(map[string]any)
	return p
}

// Skeleton builds an empty value for a properties object: nested objects
// recurse, arrays become empty, everything else an empty string.
func Skeleton(properties map[string]any) map[string]any {
	out := make(map[string]any, len(properties))
	for key, raw := range properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch prop["type"] {
		case "object":
			out[key] = Skeleton(Properties(prop))
		case "array":
			out[key] = []any{}
		default:
			out[key] = ""
		}
	}
	return out
}
