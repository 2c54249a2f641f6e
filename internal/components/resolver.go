// SPDX-License-Identifier: Apache-2.0

package components

import (
	"context"
	"fmt"

	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
)

// ErrUnschedulable is returned by Resolve when no component matches any
// form of the expression; the caller marks the owning job-def
// unschedulable rather than aborting the whole run.
var ErrUnschedulable = fmt.Errorf("no component matches expression")

// Resolve picks the single newest component matching expr within topic,
// merging fallbackTags into the build-tag policy (used when retrying a
// failed job-def against its fallback_last_success tags).
func Resolve(ctx context.Context, client *dciclient.Client, topicID string, expr Expression, fallbackTags []string) (*dciclient.Component, error) {
	if expr.Kind == KindStructured {
		return resolveStructured(ctx, client, topicID, expr, fallbackTags)
	}

	q, err := BuildQuery(topicID, expr, fallbackTags)
	if err != nil {
		return nil, err
	}
	cs, err := client.Components(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing components for %s: %w", expr, err)
	}
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnschedulable, expr)
	}
	return &cs[0], nil
}

// resolveStructured tries each priority tag in turn, in order, taking
// the first one that produces a result. max_age, if set, bounds every
// attempt to components created within the last N days.
func resolveStructured(ctx context.Context, client *dciclient.Client, topicID string, expr Expression, fallbackTags []string) (*dciclient.Component, error) {
	tags := expr.PriorityTags
	if len(tags) == 0 {
		tags = []string{""}
	}
	for _, tag := range tags {
		asExpr := Expression{Kind: KindQuery, Type: expr.Type}
		if tag != "" {
			asExpr.Tags = []string{tag}
		}
		q, err := BuildQuery(topicID, asExpr, fallbackTags)
		if err != nil {
			return nil, err
		}
		if expr.MaxAgeDays > 0 {
			q.CreatedAfter = createdAfterCutoff(expr.MaxAgeDays)
		}
		cs, err := client.Components(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("listing components for %s: %w", expr, err)
		}
		if len(cs) > 0 {
			return &cs[0], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnschedulable, expr)
}

// ResolveAll resolves every expression in a job-def's components list.
// If any expression is unresolved, the job-def is unschedulable and
// ResolveAll returns ErrUnschedulable wrapping the failing expression.
func ResolveAll(ctx context.Context, client *dciclient.Client, topicID string, exprs []Expression, fallbackTags []string) ([]dciclient.Component, error) {
	out := make([]dciclient.Component, 0, len(exprs))
	for _, e := range exprs {
		c, err := Resolve(ctx, client, topicID, e, fallbackTags)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// FixedComponent reports whether expr is a pinned expression: a job-def
// whose components are entirely pinned is excluded from fallback retry.
func FixedComponent(e Expression) bool {
	return e.Kind == KindPinned
}

// AllFixed reports whether every expression in exprs is pinned.
func AllFixed(exprs []Expression) bool {
	for _, e := range exprs {
		if !FixedComponent(e) {
			return false
		}
	}
	return true
}
