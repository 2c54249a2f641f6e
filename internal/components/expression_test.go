// SPDX-License-Identifier: Apache-2.0

package components

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBare(t *testing.T) {
	e, err := Parse("ocp")
	require.NoError(t, err)
	require.Equal(t, KindBare, e.Kind)
	require.Equal(t, "ocp", e.Type)
}

func TestParsePinned(t *testing.T) {
	e, err := Parse("ocp=4.8.0")
	require.NoError(t, err)
	require.Equal(t, KindPinned, e.Kind)
	require.Equal(t, "ocp", e.Type)
	require.Equal(t, "4.8.0", e.Version)
	require.True(t, FixedComponent(e))
}

func TestParseQuery(t *testing.T) {
	e, err := Parse("ocp?arch:x86_64&tags:X,build:candidate")
	require.NoError(t, err)
	require.Equal(t, KindQuery, e.Kind)
	require.Equal(t, "ocp", e.Type)
	require.Equal(t, []Field{{Key: "arch", Value: "x86_64"}}, e.Fields)
	require.Equal(t, []string{"X"}, e.Tags)
	require.Equal(t, []string{"candidate"}, e.Build)
	require.False(t, FixedComponent(e))
}

func TestParseQueryRejectsMalformedClause(t *testing.T) {
	_, err := Parse("ocp?arch")
	require.Error(t, err)
}

func TestParseStructured(t *testing.T) {
	e, err := ParseStructured(StructuredInput{Type: "ocp", PriorityTags: []string{"ga", "candidate"}, MaxAge: 7})
	require.NoError(t, err)
	require.Equal(t, KindStructured, e.Kind)
	require.Equal(t, []string{"ga", "candidate"}, e.PriorityTags)
	require.Equal(t, 7, e.MaxAgeDays)
}

func TestParseStructuredRequiresType(t *testing.T) {
	_, err := ParseStructured(StructuredInput{PriorityTags: []string{"ga"}})
	require.Error(t, err)
}

func TestAllFixed(t *testing.T) {
	pinned, _ := Parse("ocp=4.8.0")
	bare, _ := Parse("cnf")
	require.True(t, AllFixed([]Expression{pinned}))
	require.False(t, AllFixed([]Expression{pinned, bare}))
}
