// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOverrideJSON(t *testing.T) {
	o, err := ParseOverride("A:ansible_tags=[\"a\",\"b\"]")
	require.NoError(t, err)
	require.Equal(t, "A", o.Name)
	require.Equal(t, "ansible_tags", o.Key)
	require.Equal(t, []any{"a", "b"}, o.Value)
}

func TestParseOverrideKV(t *testing.T) {
	o, err := ParseOverride("A:topic=OCP")
	require.NoError(t, err)
	require.Equal(t, "OCP", o.Value)
}

func TestParseOverrideKVList(t *testing.T) {
	o, err := ParseOverride("A:components=ocp?tags:X,Y")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"ocp?tags": []any{"X", "Y"}}, o.Value)
}

func TestParseOverrideURL(t *testing.T) {
	o, err := ParseOverride("A:url=https://example.com/x")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/x", o.Value)
}

func TestParseOverrideRejectsUnknownPseudoName(t *testing.T) {
	_, err := ParseOverride("@bogus:key=value")
	require.Error(t, err)
}

func TestApplyPipelineLevel(t *testing.T) {
	opts := map[string]any{}
	o, err := ParseOverride("@pipeline:name=my-run")
	require.NoError(t, err)
	Apply(nil, opts, o)
	require.Equal(t, "my-run", opts["name"])
}

func TestApplyListAddOrReplace(t *testing.T) {
	nodes, err := ParseDocument([]byte(`
- name: A
  components: ["ocp", "cnf=1.0"]
`))
	require.NoError(t, err)

	o, err := ParseOverride("A:components=[\"cnf=2.0\",\"new\"]")
	require.NoError(t, err)
	Apply(nodes, map[string]any{}, o)

	jd, err := DecodeJobDef(nodes[0])
	require.NoError(t, err)
	require.Equal(t, []any{"ocp", "cnf=2.0", "new"}, jd.Components)
}

func TestMergeAdjacentSameName(t *testing.T) {
	nodes, err := ParseDocument([]byte(`
- name: A
  ansible_tags: ["t1"]
- name: A
  ansible_tags: ["t2"]
  topic: OCP
`))
	require.NoError(t, err)
	merged := MergeAdjacent(nodes)
	require.Len(t, merged, 1)

	jd, err := DecodeJobDef(merged[0])
	require.NoError(t, err)
	require.Equal(t, []string{"t1", "t2"}, jd.AnsibleTags)
	require.Equal(t, "OCP", jd.Topic)
}
