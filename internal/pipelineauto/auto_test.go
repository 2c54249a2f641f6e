// SPDX-License-Identifier: Apache-2.0

package pipelineauto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDescriptionExtractsTestLines(t *testing.T) {
	desc := "Fixes a bug.\n\nTestOCP: -p smoke\nTestSNO: --foo \"bar baz\"\nNot a test line\n"
	got := ParseDescription(desc)
	require.Equal(t, []string{"-p", "smoke"}, got["OCP"])
	require.Equal(t, []string{"--foo", "bar baz"}, got["SNO"])
	require.NotContains(t, got, "Not")
}

func TestParseDescriptionStripsShellMetacharacters(t *testing.T) {
	got := ParseDescription("TestOCP: -p smoke; rm -rf / & echo pwned | cat\n")
	require.Equal(t, []string{"-p", "smoke", "rm", "-rf", "/", "echo", "pwned", "cat"}, got["OCP"])
}

func TestBuildCommandSubstitutesURLAndAppendsArgs(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "auto.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("[OCP]\ncmd = dci-pipeline-check @URL -p bm\n"), 0o644))

	cfg, err := LoadConfig(confPath)
	require.NoError(t, err)

	argv, ok := BuildCommand(cfg, "OCP", "https://example.com/change/1", []string{"-p", "smoke"})
	require.True(t, ok)
	require.Equal(t, []string{"dci-pipeline-check", "https://example.com/change/1", "-p", "bm", "-p", "smoke"}, argv)

	_, ok = BuildCommand(cfg, "Unknown", "https://example.com/change/1", nil)
	require.False(t, ok)
}

func TestLoadConfigMissingFileYieldsEmptyConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.NoError(t, err)
	_, ok := cfg.Command("anything")
	require.False(t, ok)
}
