// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redhat-cip/dci-pipeline/pkg/executil"
)

// vaultCipherPrefix marks an inline ansible-vault encrypted scalar, the
// same marker ansible-vault itself writes ("$ANSIBLE_VAULT;1.1;AES256\n...").
const vaultCipherPrefix = "$ANSIBLE_VAULT;"

// vaultPasswordFileEnvVar, when set, names a file holding the vault
// password used to decrypt inline vault strings in the parsed documents.
const vaultPasswordFileEnvVar = "DCI_PIPELINE_VAULT_PASSWORD_FILE"

// sourcePathKey is a reserved Raw key stamped onto every job-def node
// during loading so relative paths (credentials, playbooks) resolve
// against the document that declared them, not the process cwd. It is
// stripped back out of JobDef.Raw once DecodeJobDef has run, so it is
// never sent to the remote service as part of the job's pipeline data.
const sourcePathKey = "__dci_source_path"

// LoadOptions configures LoadPipeline.
type LoadOptions struct {
	Paths         []string
	Overrides     []Override
	VaultCommand  string // external decrypting subprocess, e.g. "ansible-vault"; empty disables vault support
	VaultIdentity string
	Runner        executil.Runner
}

// LoadPipeline implements §4.6: each input document is parsed, tagged
// with its source path, concatenated, merged (same-named consecutive
// job-defs), and override-applied before inline vault strings are
// decrypted and the result decoded into fixed-shape job-defs.
//
// The original parses every document twice — once raw to locate the
// credentials file and the vault secret, once more with the vault client
// attached — because the secret itself may live behind a path named
// inside the (otherwise plain) document tree. Here the secret is read
// directly from a well-known environment variable instead, so a single
// pass over the merged tree suffices; see DESIGN.md for why.
func LoadPipeline(ctx context.Context, opts LoadOptions) ([]*JobDef, map[string]any, error) {
	var rawNodes []Node
	for _, path := range opts.Paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading pipeline document %s: %w", path, err)
		}
		nodes, err := ParseDocument(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, n := range nodes {
			if obj := n.Object(); obj != nil {
				obj[sourcePathKey] = path
			}
		}
		rawNodes = append(rawNodes, nodes...)
	}

	merged := MergeAdjacent(rawNodes)

	pipelineOpts := map[string]any{}
	for _, o := range opts.Overrides {
		Apply(merged, pipelineOpts, o)
	}

	vault, err := resolveVault(opts)
	if err != nil {
		return nil, nil, err
	}

	jobDefs := make([]*JobDef, 0, len(merged))
	for _, n := range merged {
		if err := decryptVaultStrings(ctx, n.Value, vault); err != nil {
			return nil, nil, fmt.Errorf("decrypting vault strings: %w", err)
		}
		jd, err := DecodeJobDef(n)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding job-def: %w", err)
		}
		if sp, ok := jd.Raw[sourcePathKey].(string); ok {
			jd.SourcePath = sp
			delete(jd.Raw, sourcePathKey)
		}
		jobDefs = append(jobDefs, jd)
	}
	return jobDefs, pipelineOpts, nil
}

func resolveVault(opts LoadOptions) (*VaultClient, error) {
	if opts.VaultCommand == "" {
		return nil, nil
	}
	v := &VaultClient{Runner: opts.Runner, Command: opts.VaultCommand, Identity: opts.VaultIdentity}
	if pwFile := os.Getenv(vaultPasswordFileEnvVar); pwFile != "" {
		data, err := os.ReadFile(pwFile)
		if err != nil {
			return nil, fmt.Errorf("reading vault password file %s: %w", pwFile, err)
		}
		v.Secret = strings.TrimRight(string(data), "\n")
	}
	return v, nil
}

// decryptVaultStrings walks a dynamic document value in place, replacing
// every inline-vault-encrypted string with its plaintext.
func decryptVaultStrings(ctx context.Context, v any, vault *VaultClient) error {
	if vault == nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if s, ok := val.(string); ok && strings.HasPrefix(s, vaultCipherPrefix) {
				plain, err := vault.Decrypt(ctx, s)
				if err != nil {
					return fmt.Errorf("key %s: %w", k, err)
				}
				t[k] = plain
				continue
			}
			if err := decryptVaultStrings(ctx, val, vault); err != nil {
				return err
			}
		}
	case []any:
		for i, val := range t {
			if s, ok := val.(string); ok && strings.HasPrefix(s, vaultCipherPrefix) {
				plain, err := vault.Decrypt(ctx, s)
				if err != nil {
					return err
				}
				t[i] = plain
				continue
			}
			if err := decryptVaultStrings(ctx, val, vault); err != nil {
				return err
			}
		}
	}
	return nil
}
