// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MergeAdjacent merges consecutive job-def nodes sharing the same
// "name": list-valued keys concatenate, map-valued keys deep-update,
// scalar keys take the later value. This lets a user append to a base
// job-def with a minimal overlay document later in the concatenated
// pipeline.
func MergeAdjacent(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nodes
	}
	out := make([]Node, 0, len(nodes))
	out = append(out, Node{Value: deepCopy(nodes[0].Value)})
	for _, n := range nodes[1:] {
		prev := out[len(out)-1].Object()
		cur := n.Object()
		if prev != nil && cur != nil && fmt.Sprint(prev["name"]) == fmt.Sprint(cur["name"]) && prev["name"] != nil {
			mergeInto(prev, cur)
			continue
		}
		out = append(out, Node{Value: deepCopy(n.Value)})
	}
	return out
}

// mergeInto deep-merges src onto dst in place: lists concatenate, maps
// deep-update recursively, scalars are replaced.
func mergeInto(dst, src map[string]any) {
	for k, sv := range src {
		dv, exists := dst[k]
		if !exists {
			dst[k] = deepCopy(sv)
			continue
		}
		switch sv := sv.(type) {
		case []any:
			if dl, ok := dv.([]any); ok {
				dst[k] = append(append([]any{}, dl...), sv...)
				continue
			}
			dst[k] = deepCopy(sv)
		case map[string]any:
			if dm, ok := dv.(map[string]any); ok {
				mergeInto(dm, sv)
				continue
			}
			dst[k] = deepCopy(sv)
		default:
			dst[k] = sv
		}
	}
}

// Override is one parsed "<name>:<key>=<value>" command-line override.
// Name == "@pipeline" targets pipeline-level options instead of a
// job-def.
type Override struct {
	Name  string
	Key   string
	Value any
}

// ParseOverride parses one raw "<name>:<key>=<value>" argument. Values
// are tried as JSON first; otherwise "k:v" -> {k:v}, "k:v,v" -> {k:[v,v]},
// "v,v" -> [v,v], and URLs remain plain strings. A leading '@' name other
// than "@pipeline" is rejected.
func ParseOverride(raw string) (Override, error) {
	name, keyValue, ok := strings.Cut(raw, ":")
	if !ok {
		return Override{}, fmt.Errorf("invalid override %q: expected <name>:<key>=<value>", raw)
	}
	key, valueRaw, ok := strings.Cut(keyValue, "=")
	if !ok {
		return Override{}, fmt.Errorf("invalid override %q: expected <name>:<key>=<value>", raw)
	}
	if strings.HasPrefix(name, "@") && name != "@pipeline" {
		return Override{}, fmt.Errorf("invalid override %q: unknown pseudo-name %q", raw, name)
	}
	return Override{Name: name, Key: key, Value: parseOverrideValue(valueRaw)}, nil
}

func parseOverrideValue(raw string) any {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	var js any
	if err := json.Unmarshal([]byte(raw), &js); err == nil {
		return js
	}
	if k, v, ok := strings.Cut(raw, ":"); ok {
		if strings.Contains(v, ",") {
			return map[string]any{k: splitCSV(v)}
		}
		return map[string]any{k: v}
	}
	if strings.Contains(raw, ",") {
		return splitCSV(raw)
	}
	return raw
}

func splitCSV(s string) []any {
	parts := strings.Split(s, ",")
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

// Apply applies one override onto the matching job-def node (or, for
// "@pipeline", onto pipeline-level options). Within a list-valued key,
// an element shaped "K=V" or "K?..." replaces any existing element whose
// "K" prefix matches; otherwise it is appended ("add or replace").
func Apply(nodes []Node, pipelineOpts map[string]any, o Override) {
	if o.Name == "@pipeline" {
		pipelineOpts[o.Key] = o.Value
		return
	}
	for _, n := range nodes {
		obj := n.Object()
		if obj == nil || fmt.Sprint(obj["name"]) != o.Name {
			continue
		}
		applyKey(obj, o.Key, o.Value)
	}
}

func applyKey(obj map[string]any, key string, value any) {
	newList, isList := value.([]any)
	existing, hasExisting := obj[key]
	existingList, existingIsList := existing.([]any)

	if isList && hasExisting && existingIsList {
		obj[key] = mergeOverrideList(existingList, newList)
		return
	}
	obj[key] = value
}

// mergeOverrideList implements "add or replace" for list-valued
// overrides: an incoming element with a 'K=' or 'K?' prefix replaces any
// existing element sharing that prefix; everything else is appended.
func mergeOverrideList(existing, incoming []any) []any {
	out := append([]any{}, existing...)
	for _, inEl := range incoming {
		inStr, ok := inEl.(string)
		prefix, hasPrefix := "", false
		if ok {
			prefix, hasPrefix = overridePrefix(inStr)
		}
		replaced := false
		if hasPrefix {
			for i, exEl := range out {
				exStr, ok := exEl.(string)
				if !ok {
					continue
				}
				if p, has := overridePrefix(exStr); has && p == prefix {
					out[i] = inEl
					replaced = true
					break
				}
			}
		}
		if !replaced {
			out = append(out, inEl)
		}
	}
	return out
}

func overridePrefix(s string) (string, bool) {
	if i := strings.IndexAny(s, "=?"); i >= 0 {
		return s[:i], true
	}
	return "", false
}
