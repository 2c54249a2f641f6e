// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redhat-cip/dci-pipeline/pkg/executil"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// defaultCallbackPluginDir is where the framework installs its ansible
// callback plugin (junit/job-info capture), pointed at by the default
// generated ansible.cfg when the job-def does not supply its own.
const defaultCallbackPluginDir = "/usr/share/dci-pipeline/callback"

// PlaybookRun is one invocation of ansible-playbook against one job-def,
// either the inventory pre-step or the main playbook.
type PlaybookRun struct {
	Playbook   string
	ReturnCode int
	Stats      map[string]any
}

// ComposePlaybookInvocation builds the command-line flags and child
// environment for jd's main playbook, per §4.7 step 11.
func ComposePlaybookInvocation(jd *JobDef, dataDir string, creds map[string]string, vault *VaultClient, jobID string, extraVars map[string]any) (executil.Command, error) {
	cfgPath, err := resolvePlaybookConfig(jd, dataDir)
	if err != nil {
		return executil.Command{}, err
	}

	args := []string{jd.AnsiblePlaybook}
	if jd.AnsibleInventory != "" {
		args = append(args, "-i", jd.AnsibleInventory)
	}
	if len(jd.AnsibleTags) > 0 {
		args = append(args, "--tags", strings.Join(jd.AnsibleTags, ","))
	}
	if len(jd.AnsibleSkipTags) > 0 {
		args = append(args, "--skip-tags", strings.Join(jd.AnsibleSkipTags, ","))
	}

	allExtraVars := map[string]any{}
	for k, v := range jd.AnsibleExtraVars {
		allExtraVars[k] = v
	}
	for k, v := range extraVars {
		allExtraVars[k] = v
	}
	if len(allExtraVars) > 0 {
		encoded, err := json.Marshal(allExtraVars)
		if err != nil {
			return executil.Command{}, fmt.Errorf("encoding ansible_extravars: %w", err)
		}
		args = append(args, "--extra-vars", string(encoded))
	}
	for _, f := range jd.AnsibleExtraVarsFiles {
		args = append(args, "--extra-vars", "@"+f)
	}
	if idList := vault.IdentityList(); idList != "" {
		args = append(args, "--vault-id", idList)
	}

	env := map[string]string{}
	for k, v := range creds {
		env[k] = v
	}
	for k, v := range jd.AnsibleEnvVars {
		env[k] = v
	}
	env["ANSIBLE_CONFIG"] = cfgPath
	env["DCI_JOB_ID"] = jobID
	env["DCI_PLAYBOOK_ARGS"] = strings.Join(args, " ")
	if idList := vault.IdentityList(); idList != "" {
		env["ANSIBLE_VAULT_IDENTITY_LIST"] = idList
	}

	return executil.Command{
		Name: "ansible-playbook",
		Args: args,
		Dir:  dataDir,
		Env:  env,
	}, nil
}

// resolvePlaybookConfig copies the job-def's ansible_cfg into dataDir, or
// writes a default one pointing its callback_plugins path at the
// framework's callback directory.
func resolvePlaybookConfig(jd *JobDef, dataDir string) (string, error) {
	dst := filepath.Join(dataDir, "ansible.cfg")
	if jd.AnsibleCfg != "" {
		contents, err := os.ReadFile(jd.AnsibleCfg)
		if err != nil {
			return "", fmt.Errorf("reading ansible_cfg %s: %w", jd.AnsibleCfg, err)
		}
		if err := os.WriteFile(dst, contents, 0o644); err != nil {
			return "", fmt.Errorf("writing ansible.cfg: %w", err)
		}
		return dst, nil
	}
	def := fmt.Sprintf("[defaults]\ncallback_plugins = %s\n", defaultCallbackPluginDir)
	if err := os.WriteFile(dst, []byte(def), 0o644); err != nil {
		return "", fmt.Errorf("writing default ansible.cfg: %w", err)
	}
	return dst, nil
}

// RunPlaybook runs one ansible-playbook invocation to completion,
// capturing its stats summary (emitted by the callback plugin as a
// trailing JSON line on stdout) and return code.
func RunPlaybook(ctx context.Context, runner executil.Runner, cmd executil.Command, logPath string, log logging.Logger) (*PlaybookRun, error) {
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating playbook log %s: %w", logPath, err)
	}
	defer logFile.Close()

	var captured strings.Builder
	tee := teeWriter{a: logFile, b: &captured}
	err = runner.RunStream(ctx, cmd, tee)

	rc := 0
	if err != nil {
		rc = extractExitCode(err)
		log.Warn("playbook exited non-zero", logging.NewField("playbook", cmd.Args[0]), logging.NewField("rc", rc))
	}

	return &PlaybookRun{
		Playbook:   cmd.Args[0],
		ReturnCode: rc,
		Stats:      parseStats(captured.String()),
	}, nil
}

// parseStats looks for the callback plugin's trailing JSON stats summary
// in a playbook's combined log output. A log with no recognizable
// summary yields an empty (not nil) map, since "stats are non-empty" is
// one of the success-evaluation conditions.
func parseStats(logOutput string) map[string]any {
	lines := strings.Split(strings.TrimRight(logOutput, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var stats map[string]any
		if err := json.Unmarshal([]byte(line), &stats); err == nil {
			return stats
		}
	}
	return map[string]any{}
}

type teeWriter struct {
	a, b interface{ Write([]byte) (int, error) }
}

func (t teeWriter) Write(p []byte) (int, error) {
	if _, err := t.b.Write(p); err != nil {
		return 0, err
	}
	return t.a.Write(p)
}

func extractExitCode(err error) int {
	const prefix = "command failed with exit code "
	msg := err.Error()
	if i := strings.Index(msg, prefix); i >= 0 {
		rest := msg[i+len(prefix):]
		var code int
		if _, scanErr := fmt.Sscanf(rest, "%d", &code); scanErr == nil {
			return code
		}
	}
	return 1
}
