// SPDX-License-Identifier: Apache-2.0

package components

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildQueryBare(t *testing.T) {
	e, err := Parse("ocp")
	require.NoError(t, err)
	q, err := BuildQuery("topic-1", e, nil)
	require.NoError(t, err)
	require.Equal(t, "and(eq(state,active),eq(type,ocp))", q.Query)
	require.Equal(t, 1, q.Limit)
}

func TestBuildQueryPinned(t *testing.T) {
	e, err := Parse("ocp=4.8.0")
	require.NoError(t, err)
	q, err := BuildQuery("topic-1", e, nil)
	require.NoError(t, err)
	require.Equal(t, "and(eq(state,active),eq(type,ocp),eq(version,4.8.0))", q.Query)
}

func TestBuildQueryPrefixMatch(t *testing.T) {
	e, err := Parse("ocp?arch:x86*")
	require.NoError(t, err)
	q, err := BuildQuery("topic-1", e, nil)
	require.NoError(t, err)
	require.Equal(t, "and(eq(type,ocp),ilike(arch,x86*))", q.Query)
}

func TestBuildQueryBuildTagDisjunction(t *testing.T) {
	e, err := Parse("ocp?tags:build:dev")
	require.NoError(t, err)
	q, err := BuildQuery("topic-1", e, nil)
	require.NoError(t, err)
	require.Equal(t, "and(eq(type,ocp),or(contains(tags,dev),contains(tags,candidate),contains(tags,ga)))", q.Query)
}

func TestBuildQueryMergesFallbackTags(t *testing.T) {
	e, err := Parse("ocp?tags:build:nightly")
	require.NoError(t, err)
	q, err := BuildQuery("topic-1", e, []string{"build:candidate"})
	require.NoError(t, err)
	require.Equal(t, "and(eq(type,ocp),or(contains(tags,candidate),contains(tags,ga)))", q.Query)
}

func TestBuildQueryIsIdempotent(t *testing.T) {
	e, err := Parse("ocp?arch:x86_64&tags:X,Y,build:dev")
	require.NoError(t, err)
	q1, err := BuildQuery("topic-1", e, []string{"build:candidate"})
	require.NoError(t, err)
	q2, err := BuildQuery("topic-1", e, []string{"build:candidate"})
	require.NoError(t, err)
	require.Equal(t, q1.Query, q2.Query)
}
