// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/redhat-cip/dci-pipeline/pkg/executil"
)

// VaultClient decrypts ciphertext strings through an external vault
// subprocess (out of scope per §1: "a sub-process taking ciphertext on
// stdin, returning plaintext"). Identity names the vault identity passed
// to ansible-playbook's --vault-id flag.
type VaultClient struct {
	Runner   executil.Runner
	Command  string // the decrypting subprocess, e.g. "ansible-vault"
	Identity string
	Secret   string // the vault password, read by LoadPipeline from the file named by DCI_PIPELINE_VAULT_PASSWORD_FILE; Decrypt does not pass it to the subprocess
}

// Decrypt runs the vault command with ciphertext on stdin and returns
// the decrypted plaintext from stdout.
func (v *VaultClient) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	if v == nil || v.Command == "" {
		return ciphertext, nil
	}
	res, err := v.Runner.Run(ctx, executil.Command{
		Name:  v.Command,
		Args:  []string{"decrypt", "--vault-id", v.Identity + "@prompt", "--output", "-"},
		Stdin: bytes.NewBufferString(ciphertext),
	})
	if err != nil {
		return "", fmt.Errorf("running vault decrypt: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("vault decrypt exited %d: %s", res.ExitCode, string(res.Stderr))
	}
	return string(res.Stdout), nil
}

// IdentityList renders the ANSIBLE_VAULT_IDENTITY_LIST environment value
// expected by ansible-playbook.
func (v *VaultClient) IdentityList() string {
	if v == nil || v.Identity == "" {
		return ""
	}
	return v.Identity + "@prompt"
}
