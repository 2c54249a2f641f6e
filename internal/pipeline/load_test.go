// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePipelineYAML = `
- name: deploy
  stage: ocp
  topic: OCP
  components: [ocp]
  ansible_playbook: site.yml
  dci_credentials: dci_credentials.yml
- name: deploy
  ansible_tags: [smoke]
`

func TestLoadPipelineMergesOverridesAndTagsSourcePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yml")
	require.NoError(t, os.WriteFile(path, []byte(samplePipelineYAML), 0o644))

	jobDefs, pipelineOpts, err := LoadPipeline(context.Background(), LoadOptions{
		Paths: []string{path},
		Overrides: []Override{
			{Name: "deploy", Key: "ansible_tags", Value: []any{"full"}},
			{Name: "@pipeline", Key: "name", Value: "nightly"},
		},
	})
	require.NoError(t, err)
	require.Len(t, jobDefs, 1, "same-named consecutive job-defs merge into one")
	require.Equal(t, path, jobDefs[0].SourcePath)
	require.Equal(t, []string{"smoke", "full"}, jobDefs[0].AnsibleTags)
	require.NotContains(t, jobDefs[0].Raw, sourcePathKey, "internal tracking key must never leak into Raw")
	require.Equal(t, "nightly", pipelineOpts["name"])
}

func TestLoadPipelineDecryptsInlineVaultStrings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yml")
	doc := "- name: deploy\n  stage: ocp\n  comment: \"$ANSIBLE_VAULT;ciphertext\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	jobDefs, _, err := LoadPipeline(context.Background(), LoadOptions{
		Paths:        []string{path},
		VaultCommand: "ansible-vault",
		Runner:       &fakeRunner{vaultPlaintext: "decrypted-secret"},
	})
	require.NoError(t, err)
	require.Len(t, jobDefs, 1)
	require.Equal(t, "decrypted-secret", jobDefs[0].Comment)
}
