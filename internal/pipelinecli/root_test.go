// SPDX-License-Identifier: Apache-2.0

package pipelinecli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitArgsSeparatesOverridesFromPaths(t *testing.T) {
	overrides, paths, err := splitArgs([]string{
		"deploy:ansible_tags=smoke,full",
		"pipeline.yml",
		"@pipeline:name=nightly",
		"other.yml",
	})
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	require.Equal(t, "deploy", overrides[0].Name)
	require.Equal(t, "@pipeline", overrides[1].Name)
	require.Equal(t, []string{"pipeline.yml", "other.yml"}, paths)
}

func TestSplitArgsRejectsNothingJustRoutesToPaths(t *testing.T) {
	_, paths, err := splitArgs([]string{"plainfile.yml"})
	require.NoError(t, err)
	require.Equal(t, []string{"plainfile.yml"}, paths)
}

func TestRootCommandRegistersDiffSubcommand(t *testing.T) {
	exitCode := 0
	root := NewRootCommand(&exitCode)
	diffCmd, _, err := root.Find([]string{"diff"})
	require.NoError(t, err)
	require.Equal(t, "diff", diffCmd.Name())
}
