// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the pipeline document loader and stage
// executor (C6/C7/C8): parsing job-definition documents, applying
// command-line overrides, resolving components, scheduling remote jobs,
// and running the associated automation playbooks.
package pipeline

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind classifies one node of a parsed document tree.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Node is one value in the dynamic tagged-variant tree the loader
// carries documents through before validating a fixed shape at the
// boundary into the stage executor (per the "dynamic document -> typed
// model" design note). It wraps the Go-native dynamic value produced by
// unmarshaling YAML into interface{} — object becomes map[string]any,
// array becomes []any, scalars their native Go type — so KindOf is a
// thin classifier rather than a parallel representation.
type Node struct {
	Value any
}

// KindOf classifies v.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int64, float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindNull
	}
}

// Kind reports n's kind.
func (n Node) Kind() Kind { return KindOf(n.Value) }

// Object returns n's value as a map, or nil if n is not an object.
func (n Node) Object() map[string]any {
	m, _ := n.Value.(map[string]any)
	return m
}

// Array returns n's value as a slice, or nil if n is not an array.
func (n Node) Array() []any {
	a, _ := n.Value.([]any)
	return a
}

// String returns n's value as a string, or "" if n is not a string.
func (n Node) String() string {
	s, _ := n.Value.(string)
	return s
}

// ParseDocument decodes one YAML document into a dynamic tree rooted at
// a Node. Documents are a top-level list of job-def mappings.
func ParseDocument(data []byte) ([]Node, error) {
	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing pipeline document: %w", err)
	}
	nodes := make([]Node, 0, len(raw))
	for _, v := range raw {
		nodes = append(nodes, Node{Value: normalize(v)})
	}
	return nodes, nil
}

// normalize recursively converts map[any]any (which some yaml decoders
// produce for nested mappings) into map[string]any so the rest of the
// package can assume string keys throughout the tree.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// deepCopy returns an independent copy of a dynamic value, used before
// mutating a node in place (merge, override application) so the caller's
// original tree is never aliased.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
