// SPDX-License-Identifier: Apache-2.0

// Package components resolves component expressions — the strings and
// structured maps a job-def uses to name the artifact versions a stage
// should run against — into concrete remote component records.
package components

import (
	"fmt"
	"strings"
)

// Kind is the expression form, dispatched to a registered queryBuilder.
type Kind string

const (
	KindBare       Kind = "bare"
	KindPinned     Kind = "pinned"
	KindQuery      Kind = "query"
	KindStructured Kind = "structured"
)

// Field is an ordered key/value pair from a query expression's field
// list. Kept as a slice rather than a map so the generated query string
// is deterministic across repeated calls with the same input.
type Field struct {
	Key   string
	Value string
}

// Expression is one parsed component expression.
type Expression struct {
	Kind Kind
	Type string

	// Pinned
	Version string

	// Query
	Fields []Field
	Tags   []string // plain tags, in the order they appeared
	Build  []string // build-stability tags (nightly/dev/candidate/ga), in order

	// Structured
	PriorityTags []string
	MaxAgeDays   int
}

// buildOrder is the stability ordering referenced by the "build tags"
// rule: a maximum present tag accepts itself and every later (more
// stable) tag.
var buildOrder = []string{"nightly", "dev", "candidate", "ga"}

func buildRank(tag string) (int, bool) {
	for i, t := range buildOrder {
		if t == tag {
			return i, true
		}
	}
	return 0, false
}

// Parse parses a bare, pinned, or query string expression. Structured
// expressions arrive already decoded from YAML/JSON maps; use
// ParseStructured for those.
func Parse(raw string) (Expression, error) {
	if raw == "" {
		return Expression{}, fmt.Errorf("empty component expression")
	}

	if i := strings.Index(raw, "?"); i >= 0 {
		return parseQuery(raw[:i], raw[i+1:])
	}
	if i := strings.Index(raw, "="); i >= 0 {
		return Expression{Kind: KindPinned, Type: raw[:i], Version: raw[i+1:]}, nil
	}
	return Expression{Kind: KindBare, Type: raw}, nil
}

func parseQuery(typ, rest string) (Expression, error) {
	expr := Expression{Kind: KindQuery, Type: typ}
	if rest == "" {
		return expr, nil
	}
	for _, clause := range strings.Split(rest, "&") {
		if clause == "" {
			continue
		}
		key, value, ok := strings.Cut(clause, ":")
		if !ok {
			return Expression{}, fmt.Errorf("invalid query clause %q: expected key:value", clause)
		}
		if key == "tags" {
			expr.Tags, expr.Build = splitTags(value, expr.Tags, expr.Build)
			continue
		}
		expr.Fields = append(expr.Fields, Field{Key: key, Value: value})
	}
	return expr, nil
}

// splitTags appends value's comma-separated tags onto tags/build,
// routing "build:X" entries to build and everything else to tags.
func splitTags(value string, tags, build []string) ([]string, []string) {
	for _, t := range strings.Split(value, ",") {
		if t == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(t, "build:"); ok {
			build = append(build, rest)
			continue
		}
		tags = append(tags, t)
	}
	return tags, build
}

// StructuredInput is the decoded form of a component expression's
// structured map representation ({type, priority_tags, max_age}).
type StructuredInput struct {
	Type         string
	PriorityTags []string
	MaxAge       int
}

// ParseStructured builds a structured Expression from an already-decoded
// map, as produced by the pipeline document loader for components list
// entries that are maps rather than strings.
func ParseStructured(in StructuredInput) (Expression, error) {
	if in.Type == "" {
		return Expression{}, fmt.Errorf("structured component expression missing type")
	}
	return Expression{
		Kind:         KindStructured,
		Type:         in.Type,
		PriorityTags: in.PriorityTags,
		MaxAgeDays:   in.MaxAge,
	}, nil
}

func (e Expression) String() string {
	switch e.Kind {
	case KindPinned:
		return e.Type + "=" + e.Version
	case KindQuery:
		var b strings.Builder
		b.WriteString(e.Type)
		b.WriteByte('?')
		parts := make([]string, 0, len(e.Fields)+1)
		for _, f := range e.Fields {
			parts = append(parts, f.Key+":"+f.Value)
		}
		if len(e.Tags) > 0 || len(e.Build) > 0 {
			tagParts := append([]string{}, e.Tags...)
			for _, bt := range e.Build {
				tagParts = append(tagParts, "build:"+bt)
			}
			parts = append(parts, "tags:"+strings.Join(tagParts, ","))
		}
		b.WriteString(strings.Join(parts, "&"))
		return b.String()
	case KindStructured:
		return fmt.Sprintf("{type:%s, priority_tags:%v, max_age:%d}", e.Type, e.PriorityTags, e.MaxAgeDays)
	default:
		return e.Type
	}
}
