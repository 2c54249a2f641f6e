// SPDX-License-Identifier: Apache-2.0

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
)

// eq, ilike, contains, and, or build the server-side query-clause
// grammar named in spec: and(eq(field,value), ...). A value ending in
// "*" becomes a prefix match (ilike) instead of an equality match.
func eq(field, value string) string {
	if strings.HasSuffix(value, "*") {
		return fmt.Sprintf("ilike(%s,%s)", field, value)
	}
	return fmt.Sprintf("eq(%s,%s)", field, value)
}

func contains(field, value string) string {
	return fmt.Sprintf("contains(%s,%s)", field, value)
}

func and(parts ...string) string {
	parts = nonEmpty(parts)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "and(" + strings.Join(parts, ",") + ")"
}

func or(parts ...string) string {
	parts = nonEmpty(parts)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "or(" + strings.Join(parts, ",") + ")"
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// queryBuilder produces the server-side query clause for one expression
// kind. Kinds self-register into the package registry at init time,
// mirroring the registration-by-name pattern used across the example
// pack's provider registries.
type queryBuilder func(e Expression, fallbackTags []string) string

var builders = map[Kind]queryBuilder{}

func register(k Kind, b queryBuilder) {
	if _, exists := builders[k]; exists {
		panic(fmt.Sprintf("components: duplicate query builder for kind %q", k))
	}
	builders[k] = b
}

func init() {
	register(KindBare, buildBareQuery)
	register(KindPinned, buildPinnedQuery)
	register(KindQuery, buildQueryQuery)
}

func buildBareQuery(e Expression, fallbackTags []string) string {
	return and(eq("state", "active"), eq("type", e.Type), tagClause(e.Tags, e.Build, fallbackTags))
}

func buildPinnedQuery(e Expression, fallbackTags []string) string {
	return and(eq("state", "active"), eq("type", e.Type), eq("version", e.Version), tagClause(e.Tags, e.Build, fallbackTags))
}

func buildQueryQuery(e Expression, fallbackTags []string) string {
	parts := []string{eq("type", e.Type)}
	for _, f := range e.Fields {
		parts = append(parts, eq(f.Key, f.Value))
	}
	parts = append(parts, tagClause(e.Tags, e.Build, fallbackTags))
	return and(parts...)
}

// tagClause renders the plain-tag contains() predicates and the
// build-tag disjunction described in spec §4.5: build tags are ordered
// nightly < dev < candidate < ga; the maximum one present (merging in
// any fallback tags from a retry call) accepts itself and every later,
// more stable tag.
func tagClause(tags, build, fallbackTags []string) string {
	var plainParts []string
	for _, t := range tags {
		plainParts = append(plainParts, contains("tags", t))
	}

	mergedBuild := append(append([]string{}, build...), extractBuildTags(fallbackTags)...)
	maxRank := -1
	for _, t := range mergedBuild {
		if r, ok := buildRank(t); ok && r > maxRank {
			maxRank = r
		}
	}

	var buildParts []string
	if maxRank >= 0 {
		for _, t := range buildOrder[maxRank:] {
			buildParts = append(buildParts, contains("tags", t))
		}
	}

	all := append(plainParts, or(buildParts...))
	return and(all...)
}

func extractBuildTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if rest, ok := strings.CutPrefix(t, "build:"); ok {
			out = append(out, rest)
			continue
		}
		if _, ok := buildRank(t); ok {
			out = append(out, t)
		}
	}
	return out
}

// BuildQuery translates a parsed expression plus any fallback tags
// (carried over from a failed attempt's retry policy) into a
// dciclient.ComponentQuery requesting the single newest match.
//
// Structured expressions are handled by Resolve directly, since they may
// require several queries (one per priority tag) rather than one.
func BuildQuery(topicID string, e Expression, fallbackTags []string) (dciclient.ComponentQuery, error) {
	b, ok := builders[e.Kind]
	if !ok {
		return dciclient.ComponentQuery{}, fmt.Errorf("no query builder registered for expression kind %q", e.Kind)
	}
	return dciclient.ComponentQuery{
		TopicID: topicID,
		Query:   b(e, fallbackTags),
		Sort:    "-created_at",
		Limit:   1,
	}, nil
}

// createdAfterCutoff renders a max_age (days) as the created_after
// cutoff timestamp the structured form expects.
func createdAfterCutoff(days int) string {
	return time.Now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)
}
