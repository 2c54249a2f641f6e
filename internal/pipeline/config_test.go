// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCredentialsDefaultsServerURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dci_credentials.yml")
	require.NoError(t, os.WriteFile(path, []byte("DCI_CLIENT_ID: remoteci/x\nDCI_API_SECRET: secret\n"), 0o644))

	c, err := LoadCredentials("dci_credentials.yml", dir)
	require.NoError(t, err)
	require.Equal(t, "remoteci/x", c.ClientID)
	require.Equal(t, defaultServerURL, c.ServerURL)
}

func TestLoadCredentialsRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dci_credentials.yml")
	require.NoError(t, os.WriteFile(path, []byte("DCI_CLIENT_ID: remoteci/x\n"), 0o644))

	_, err := LoadCredentials("dci_credentials.yml", dir)
	require.Error(t, err)
}

func TestLoadPipelineUserCredentialsOptional(t *testing.T) {
	c, err := LoadPipelineUserCredentials("", "/does/not/matter")
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestResolvePathRelativeToBaseDir(t *testing.T) {
	require.Equal(t, filepath.Join("/base", "creds.yml"), resolvePath("creds.yml", "/base"))
	require.Equal(t, "/abs/creds.yml", resolvePath("/abs/creds.yml", "/base"))
}
