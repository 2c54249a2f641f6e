// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/redhat-cip/dci-pipeline/internal/components"
	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
	"github.com/redhat-cip/dci-pipeline/internal/runtime"
	"github.com/redhat-cip/dci-pipeline/pkg/executil"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

const (
	dataDirBaseEnvVar = "DCI_PIPELINE_DATADIR"

	junitTestCasePrefixEnv = "JUNIT_TEST_CASE_PREFIX"
	junitTaskClassEnv      = "JUNIT_TASK_CLASS"
	junitOutputDirEnv      = "JUNIT_OUTPUT_DIR"
	tmpdirPlaceholder      = "/@tmpdir"
)

// Executor runs a loaded pipeline's stages to completion against the
// remote service, one job-def at a time, per §4.7: grouped into stages
// by first-appearance order, job-defs within a stage run in document
// order, and a stage only starts once the previous one has finished.
type Executor struct {
	RT     *runtime.Runtime
	Log    logging.Logger
	Runner executil.Runner

	// DataDirBases is the ordered list of candidate roots for per-job
	// data directories; the first one the process can create under
	// wins. Exported so tests can point it at a TempDir.
	DataDirBases []string
}

// NewExecutor builds an Executor with the standard data-dir search path:
// $DCI_PIPELINE_DATADIR if set, else ~/.local/share/dci-pipeline, else
// /var/lib/dci-pipeline.
func NewExecutor(rt *runtime.Runtime, log logging.Logger, runner executil.Runner) *Executor {
	return &Executor{RT: rt, Log: log, Runner: runner, DataDirBases: defaultDataDirBases()}
}

func defaultDataDirBases() []string {
	var bases []string
	if v := os.Getenv(dataDirBaseEnvVar); v != "" {
		bases = append(bases, v)
	}
	if home, err := os.UserHomeDir(); err == nil {
		bases = append(bases, filepath.Join(home, ".local/share/dci-pipeline"))
	}
	bases = append(bases, "/var/lib/dci-pipeline")
	return bases
}

func firstWritableBase(bases []string) (string, error) {
	for _, b := range bases {
		if err := os.MkdirAll(b, 0o755); err == nil {
			return b, nil
		}
	}
	return "", fmt.Errorf("no writable data directory base among %v", bases)
}

// JobDefResult summarizes one job-def's outcome for the stage-level exit
// code mapping and the end-of-run summary (§4.7, last paragraph).
type JobDefResult struct {
	JobDef    *JobDef
	LastState string // "success", "failure", "error", "killed"
	Err       error
}

// RunPipeline executes every stage of jobDefs in order, per §4.7's
// per-stage loop, and returns one result per job-def plus the outcome
// used to compute the process exit code (§4.8).
func (ex *Executor) RunPipeline(ctx context.Context, jobDefs []*JobDef, pipelineOpts map[string]any) ([]JobDefResult, runtime.Outcome) {
	stages := GroupStages(jobDefs)
	byName := Index(jobDefs)

	var results []JobDefResult
	var outcome runtime.Outcome
	var pipelineID string
	if id, ok := pipelineOpts["pipeline_id"].(string); ok {
		pipelineID = id
	}
	pipelineName, _ := pipelineOpts["name"].(string)

	for _, stage := range stages {
		if ex.RT.Cancelled() {
			outcome.AnyFailed = true
			break
		}
		stageFailed := false
		for _, jd := range stage.JobDefs {
			res := ex.runJobDef(ctx, jd, jobDefs, byName, &pipelineID, pipelineName)
			results = append(results, res)
			if res.Err == nil {
				continue
			}
			stageFailed = true
			if res.LastState == "error" {
				outcome.AnyError = true
			} else {
				outcome.AnyFailed = true
			}
		}
		if stageFailed {
			break
		}
	}
	return results, outcome
}

// runJobDef implements the eighteen numbered steps of §4.7 for one
// job-def. Once the remote job has been scheduled, it finalizes that
// job's state (step 18) before returning, so a playbook failure is
// reflected in both the server's jobstate history and the returned
// JobDefResult. A failure while loading credentials, creating the
// pipeline, or scheduling the job returns an "error" result without
// writing any jobstate.
func (ex *Executor) runJobDef(ctx context.Context, jd *JobDef, all []*JobDef, byName ByName, pipelineID *string, pipelineName string) JobDefResult {
	baseDir := filepath.Dir(jd.SourcePath)

	// Step 1: load credentials.
	creds, err := LoadCredentials(jd.DCICredentials, baseDir)
	if err != nil {
		return JobDefResult{JobDef: jd, LastState: "error", Err: Wrap(KindConfig, jd.Name, err)}
	}

	// Step 2: build contexts.
	client := BuildClient(creds, ex.Log)
	listClient := client
	if jd.PipelineUser != "" {
		userCreds, err := LoadPipelineUserCredentials(jd.PipelineUser, baseDir)
		if err != nil {
			return JobDefResult{JobDef: jd, LastState: "error", Err: Wrap(KindConfig, jd.Name, err)}
		}
		if userCreds != nil {
			listClient = client.WithAuth(dciclient.Auth{Username: userCreds.Username, Password: userCreds.Password})
		}
	}

	// Step 3: previous context.
	previous := PreviousJobDefs(jd, all, byName)
	var previousJobID string
	topicName := jd.Topic
	if len(previous) > 0 {
		nearest := previous[0]
		if nearest.JobInfo != nil {
			previousJobID = nearest.JobInfo.JobID
		}
		if jd.UsePreviousTopic {
			topicName = nearest.Topic
		}
	}

	// Step 4: ensure a pipeline-id exists.
	if *pipelineID == "" {
		p, err := client.CreatePipeline(ctx, pipelineName)
		if err != nil {
			return JobDefResult{JobDef: jd, LastState: "error", Err: Wrap(KindTransient, jd.Name, err)}
		}
		*pipelineID = p.ID
	}

	jobInfo, job, err := ex.scheduleJob(ctx, client, listClient, jd, previous, topicName, previousJobID, *pipelineID, nil)
	if err != nil {
		return JobDefResult{JobDef: jd, LastState: "error", Err: err}
	}
	jd.JobInfo = jobInfo

	rc, stats, runErr := ex.runJobInfo(ctx, jd, jobInfo, client)
	jobInfo.ReturnCode = rc
	jobInfo.Stats = stats
	success := runErr == nil && rc == 0 && len(stats) > 0 && !ex.RT.Cancelled()

	// Step 15/16: reload and evaluate success; tag components on success.
	if success {
		if reloaded, err := client.Job(ctx, job.ID); err == nil {
			job = reloaded
		}
		ex.tagSuccessfulComponents(ctx, client, jd, job)
		ex.finalizeJobState(ctx, client, job.ID, "success")
		return JobDefResult{JobDef: jd, LastState: "success"}
	}

	// Step 17: fallback retry.
	exprs, _ := parseComponentExpressions(jd)
	if len(jd.FallbackLastSuccess) > 0 && !components.AllFixed(exprs) && !ex.RT.Cancelled() {
		if res, ok := ex.retryWithFallback(ctx, client, listClient, jd, previous, topicName, previousJobID, *pipelineID, job, jobInfo); ok {
			return res
		}
	}

	state := ex.finalizeJobState(ctx, client, job.ID, "running")
	return JobDefResult{JobDef: jd, LastState: state, Err: Wrap(KindChildFailure, jd.Name, fmt.Errorf("job-def %s did not succeed (rc=%d)", jd.Name, rc))}
}

// retryWithFallback implements step 17's retry: resolve components under
// jd.FallbackLastSuccess, skip the retry if it would resolve to the exact
// versions that just failed, and otherwise run it the same way the
// primary attempt ran. ok is false when no retry was attempted, letting
// the caller fall through to its own finalization.
func (ex *Executor) retryWithFallback(ctx context.Context, client, listClient *dciclient.Client, jd *JobDef, previous []*JobDef, topicName, previousJobID, pipelineID string, failedJob *dciclient.Job, failedInfo *JobInfo) (JobDefResult, bool) {
	retryInfo, retryJob, err := ex.scheduleJob(ctx, client, listClient, jd, previous, topicName, previousJobID, pipelineID, jd.FallbackLastSuccess)
	if err != nil {
		return JobDefResult{}, false
	}
	if sameVersions(failedJob.Components, retryJob.Components) {
		return JobDefResult{}, false
	}

	jd.FailedJobInfo = failedInfo
	if err := client.TagJob(ctx, retryJob.ID, "fallback"); err != nil {
		ex.Log.Warn("tagging retry job failed", logging.NewField("job", retryJob.ID), logging.NewField("error", err.Error()))
	}

	rc, stats, runErr := ex.runJobInfo(ctx, jd, retryInfo, client)
	retryInfo.ReturnCode = rc
	retryInfo.Stats = stats
	jd.JobInfo = retryInfo
	success := runErr == nil && rc == 0 && len(stats) > 0 && !ex.RT.Cancelled()

	if success {
		if reloaded, err := client.Job(ctx, retryJob.ID); err == nil {
			retryJob = reloaded
		}
		ex.tagSuccessfulComponents(ctx, client, jd, retryJob)
		ex.finalizeJobState(ctx, client, retryJob.ID, "success")
		ex.finalizeJobState(ctx, client, failedJob.ID, "running")
		return JobDefResult{JobDef: jd, LastState: "success"}, true
	}

	ex.finalizeJobState(ctx, client, failedJob.ID, "running")
	// A fallback retry that also fails counts as an error (step 17), not a
	// plain failure, so this must not reuse the "running" sentinel.
	state := ex.finalizeJobState(ctx, client, retryJob.ID, "retry_exhausted")
	return JobDefResult{JobDef: jd, LastState: state, Err: Wrap(KindChildFailure, jd.Name, fmt.Errorf("fallback retry for %s also failed", jd.Name))}, true
}

func (ex *Executor) tagSuccessfulComponents(ctx context.Context, client *dciclient.Client, jd *JobDef, job *dciclient.Job) {
	if jd.SuccessTag == "" {
		return
	}
	for _, c := range job.Components {
		if err := client.TagComponent(ctx, c.ID, jd.SuccessTag); err != nil {
			ex.Log.Warn("tagging component failed", logging.NewField("component", c.ID), logging.NewField("error", err.Error()))
		}
	}
}

// finalizeJobState implements step 18: write the terminal jobstate for a
// job. On cancellation the state is "killed", and nothing is written when
// the job's newest jobstate already is "killed". Otherwise lastKnown is
// "success" for a job-def that ran to completion, "running" for a failed
// attempt (finalized as "failure"), and anything else (e.g. a fallback
// retry that also failed) finalizes as "error".
func (ex *Executor) finalizeJobState(ctx context.Context, client *dciclient.Client, jobID, lastKnown string) string {
	state := "error"
	switch {
	case ex.RT.Cancelled():
		state = "killed"
		if states, err := client.ListJobStates(ctx, jobID); err == nil && len(states) > 0 && states[0].Status == "killed" {
			return state
		}
	case lastKnown == "success":
		state = "success"
	case lastKnown == "running":
		state = "failure"
	}
	if _, err := client.CreateJobState(ctx, jobID, state, ""); err != nil {
		ex.Log.Warn("finalizing jobstate failed", logging.NewField("job", jobID), logging.NewField("state", state), logging.NewField("error", err.Error()))
	}
	return state
}

// scheduleJob implements steps 5-9: resolve components, create the
// remote job, allocate its data directory, stage inputs, allocate output
// paths, and send tags. fallbackTags is nil on the primary attempt and
// jd.FallbackLastSuccess on the retry.
func (ex *Executor) scheduleJob(ctx context.Context, client, listClient *dciclient.Client, jd *JobDef, previous []*JobDef, topicName, previousJobID, pipelineID string, fallbackTags []string) (*JobInfo, *dciclient.Job, error) {
	topics, err := listClient.Topics(ctx, topicName)
	if err != nil {
		return nil, nil, Wrap(KindTransient, jd.Name, err)
	}
	if len(topics) == 0 {
		return nil, nil, Wrap(KindEmptyResult, jd.Name, fmt.Errorf("no topic named %q", topicName))
	}
	topicID := topics[0].ID

	exprs, err := parseComponentExpressions(jd)
	if err != nil {
		return nil, nil, Wrap(KindConfig, jd.Name, err)
	}
	resolved, err := components.ResolveAll(ctx, listClient, topicID, exprs, fallbackTags)
	if err != nil {
		return nil, nil, Wrap(KindEmptyResult, jd.Name, err)
	}
	componentIDs := make([]string, len(resolved))
	for i, c := range resolved {
		componentIDs[i] = c.ID
	}

	job, err := client.CreateJob(ctx, dciclient.NewJobInput{
		TopicID:       topicID,
		Components:    componentIDs,
		Name:          jd.Name,
		Comment:       jd.Comment,
		Configuration: jd.Configuration,
		URL:           jd.URL,
		Data:          map[string]any{"pipeline": sanitizedJobDef(jd)},
		PreviousJobID: previousJobID,
		PipelineID:    pipelineID,
	})
	if err != nil {
		return nil, nil, Wrap(KindTransient, jd.Name, err)
	}
	if _, err := client.CreateJobState(ctx, job.ID, "new", ""); err != nil {
		return nil, nil, Wrap(KindTransient, jd.Name, err)
	}
	if len(job.Components) != len(componentIDs) {
		ex.Log.Warn("job's returned components do not match request", logging.NewField("job", job.ID))
	}

	base, err := firstWritableBase(ex.DataDirBases)
	if err != nil {
		return nil, nil, Wrap(KindConfig, jd.Name, err)
	}
	dataDir := filepath.Join(base, jd.Name, job.ID)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, Wrap(KindConfig, jd.Name, err)
	}

	jobInfo := &JobInfo{JobID: job.ID, DataDir: dataDir, Inputs: map[string]string{}, Outputs: map[string]string{}}

	if err := stageInputs(jd, previous, jobInfo); err != nil {
		return nil, nil, Wrap(KindConfig, jd.Name, err)
	}
	if err := allocateOutputs(jd, jobInfo); err != nil {
		return nil, nil, Wrap(KindConfig, jd.Name, err)
	}
	if err := persistJobRecord(jobInfo, jd); err != nil {
		ex.Log.Warn("persisting job record failed", logging.NewField("job", job.ID), logging.NewField("error", err.Error()))
	}

	tags := ComputeTags(jd, previous)
	if len(fallbackTags) == 0 && len(previous) > 0 && previous[0].JobInfo != nil {
		if nearestJob, err := client.Job(ctx, previous[0].JobInfo.JobID); err == nil {
			tags = append(tags, ComponentPrevTags(nearestJob)...)
		}
	}
	for _, t := range tags {
		if err := client.TagJob(ctx, job.ID, t); err != nil {
			ex.Log.Warn("tagging job failed", logging.NewField("job", job.ID), logging.NewField("tag", t), logging.NewField("error", err.Error()))
		}
	}

	return jobInfo, job, nil
}

func parseComponentExpressions(jd *JobDef) ([]components.Expression, error) {
	exprs := make([]components.Expression, 0, len(jd.Components))
	for _, raw := range jd.Components {
		switch v := raw.(type) {
		case string:
			e, err := components.Parse(v)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		case map[string]any:
			in := components.StructuredInput{}
			in.Type, _ = v["type"].(string)
			in.MaxAge = asInt(v["max_age"])
			for _, t := range asSlice(v["priority_tags"]) {
				if s, ok := t.(string); ok {
					in.PriorityTags = append(in.PriorityTags, s)
				}
			}
			e, err := components.ParseStructured(in)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		default:
			return nil, fmt.Errorf("unrecognized component expression %v", raw)
		}
	}
	return exprs, nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// sanitizedJobDef renders jd's raw tree for the job's data.pipeline
// field, stripped of anything the remote service should never see.
func sanitizedJobDef(jd *JobDef) map[string]any {
	out := make(map[string]any, len(jd.Raw))
	for k, v := range jd.Raw {
		if k == "dci_credentials" || k == "pipeline_user" {
			continue
		}
		out[k] = v
	}
	return out
}

// stageInputs implements step 7: for each declared input key, find a
// previous job-def (nearest match first) exposing that key among its own
// outputs, copy the file into <data_dir>/inputs/, and record the
// destination so the playbook invocation can bind it into extra-vars.
func stageInputs(jd *JobDef, previous []*JobDef, jobInfo *JobInfo) error {
	if len(jd.Inputs) == 0 {
		return nil
	}
	inDir := filepath.Join(jobInfo.DataDir, "inputs")
	if err := os.MkdirAll(inDir, 0o755); err != nil {
		return err
	}
	for key, filename := range jd.Inputs {
		src := findInputSource(previous, key)
		if src == "" {
			continue
		}
		dst := filepath.Join(inDir, filename)
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading input %s from %s: %w", key, src, err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("writing input %s: %w", key, err)
		}
		jobInfo.Inputs[key] = dst
	}
	return nil
}

// findInputSource returns the source file backing the named output key
// on the nearest preceding job-def that declares it, or "" if none do.
func findInputSource(previous []*JobDef, key string) string {
	for _, p := range previous {
		if _, declared := p.Outputs[key]; !declared {
			continue
		}
		if p.JobInfo == nil {
			continue
		}
		if src, ok := p.JobInfo.Outputs[key]; ok {
			return src
		}
	}
	return ""
}

// allocateOutputs implements step 8: create <data_dir>/outputs/ and
// record one destination path per declared output key.
func allocateOutputs(jd *JobDef, jobInfo *JobInfo) error {
	if len(jd.Outputs) == 0 {
		return nil
	}
	outDir := filepath.Join(jobInfo.DataDir, "outputs")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for key, filename := range jd.Outputs {
		jobInfo.Outputs[key] = filepath.Join(outDir, filename)
	}
	return nil
}

// persistJobRecord writes job_info.yaml and jobdef.yaml into the per-job
// data directory, per the persisted-files contract.
func persistJobRecord(jobInfo *JobInfo, jd *JobDef) error {
	info, err := yaml.Marshal(jobInfo)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(jobInfo.DataDir, "job_info.yaml"), info, 0o644); err != nil {
		return err
	}
	raw, err := yaml.Marshal(jd.Raw)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(jobInfo.DataDir, "jobdef.yaml"), raw, 0o644)
}

// runJobInfo implements steps 10-14: pre-process JUnit env defaults,
// compose and run the optional inventory playbook then the main one, and
// upload the log plus any JUnit output.
func (ex *Executor) runJobInfo(ctx context.Context, jd *JobDef, jobInfo *JobInfo, client *dciclient.Client) (int, map[string]any, error) {
	tmpdirs, err := preprocessJUnitEnv(jd)
	if err != nil {
		return 1, nil, Wrap(KindConfig, jd.Name, err)
	}
	defer func() {
		for _, d := range tmpdirs {
			os.RemoveAll(d)
		}
	}()

	extraVars := map[string]any{"job_info": map[string]any{"id": jobInfo.JobID}}
	for key, dst := range jobInfo.Inputs {
		extraVars[key] = dst
	}

	credsEnv := map[string]string{}
	vault := &VaultClient{Runner: ex.Runner, Command: os.Getenv("DCI_VAULT_CLIENT")}

	if jd.InventoryPlaybook != "" {
		invJD := *jd
		invJD.AnsiblePlaybook = jd.InventoryPlaybook
		invJD.AnsibleTags = nil
		invJD.AnsibleSkipTags = nil
		cmd, err := ComposePlaybookInvocation(&invJD, jobInfo.DataDir, credsEnv, vault, jobInfo.JobID, extraVars)
		if err != nil {
			return 1, nil, Wrap(KindConfig, jd.Name, err)
		}
		run, err := RunPlaybook(ctx, ex.Runner, cmd, filepath.Join(jobInfo.DataDir, "inventory.log"), ex.Log)
		if err != nil || run.ReturnCode != 0 || ex.RT.Cancelled() {
			return 1, nil, Wrap(KindChildFailure, jd.Name, fmt.Errorf("inventory playbook failed"))
		}
	}

	cmd, err := ComposePlaybookInvocation(jd, jobInfo.DataDir, credsEnv, vault, jobInfo.JobID, extraVars)
	if err != nil {
		return 1, nil, Wrap(KindConfig, jd.Name, err)
	}
	logPath := filepath.Join(jobInfo.DataDir, "ansible.log")
	run, err := RunPlaybook(ctx, ex.Runner, cmd, logPath, ex.Log)
	if err != nil {
		return 1, nil, Wrap(KindChildFailure, jd.Name, err)
	}

	ex.postProcess(ctx, client, jobInfo, logPath, tmpdirs)

	return run.ReturnCode, run.Stats, nil
}

// preprocessJUnitEnv implements step 10: ensures the JUnit defaults are
// set and allocates a fresh temp directory for every env var whose value
// is the "/@tmpdir" placeholder, returning the name->path associations so
// post-processing can find them again.
func preprocessJUnitEnv(jd *JobDef) (map[string]string, error) {
	if jd.AnsibleEnvVars == nil {
		jd.AnsibleEnvVars = map[string]string{}
	}
	if _, ok := jd.AnsibleEnvVars[junitTestCasePrefixEnv]; !ok {
		jd.AnsibleEnvVars[junitTestCasePrefixEnv] = "test_"
	}
	if _, ok := jd.AnsibleEnvVars[junitTaskClassEnv]; !ok {
		jd.AnsibleEnvVars[junitTaskClassEnv] = "yes"
	}
	if _, ok := jd.AnsibleEnvVars[junitOutputDirEnv]; !ok {
		jd.AnsibleEnvVars[junitOutputDirEnv] = tmpdirPlaceholder
	}

	tmpdirs := map[string]string{}
	for name, v := range jd.AnsibleEnvVars {
		if v != tmpdirPlaceholder {
			continue
		}
		dir, err := os.MkdirTemp("", "dci-pipeline-junit-")
		if err != nil {
			return nil, fmt.Errorf("allocating junit tmpdir for %s: %w", name, err)
		}
		jd.AnsibleEnvVars[name] = dir
		tmpdirs[name] = dir
	}
	return tmpdirs, nil
}

// postProcess implements step 14: uploads the playbook log and, for each
// tmpdir bound to JUNIT_OUTPUT_DIR, every *.xml file inside it.
func (ex *Executor) postProcess(ctx context.Context, client *dciclient.Client, jobInfo *JobInfo, logPath string, tmpdirs map[string]string) {
	if data, err := os.ReadFile(logPath); err == nil {
		if err := client.UploadJobFile(ctx, jobInfo.JobID, filepath.Base(logPath), "text/plain", data); err != nil {
			ex.Log.Warn("uploading playbook log failed", logging.NewField("job", jobInfo.JobID), logging.NewField("error", err.Error()))
		}
	}

	junitDir, ok := tmpdirs[junitOutputDirEnv]
	if !ok {
		return
	}
	entries, err := os.ReadDir(junitDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(junitDir, e.Name()))
		if err != nil {
			continue
		}
		if err := client.UploadJobFile(ctx, jobInfo.JobID, e.Name(), "application/junit", data); err != nil {
			ex.Log.Warn("uploading junit file failed", logging.NewField("job", jobInfo.JobID), logging.NewField("file", e.Name()), logging.NewField("error", err.Error()))
		}
	}
}

// sameVersions reports whether a and b name the same multiset of
// component versions, used by the fallback-retry step to skip a retry
// that would resolve to exactly the components that already failed.
func sameVersions(a, b []dciclient.Component) bool {
	if len(a) != len(b) {
		return false
	}
	versions := make(map[string]int, len(a))
	for _, c := range a {
		versions[c.Version]++
	}
	for _, c := range b {
		versions[c.Version]--
	}
	for _, n := range versions {
		if n != 0 {
			return false
		}
	}
	return true
}
