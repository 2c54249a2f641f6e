// SPDX-License-Identifier: Apache-2.0

// Package pipelinerebuild reconstructs the pipeline document that produced
// a given job, with every component pinned to the exact version that job
// actually ran against, so a failure can be reproduced later even after
// the topics have moved on to newer components.
package pipelinerebuild

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

const (
	localDevServerURL = "http://127.0.0.1:5000/"
	localDevUsername  = "pipeline-user"
	localDevPassword  = "pipeline-user"
)

// EnvConfig resolves a Client the same way the environment-inspection
// order resolves it: login/password first, then signature credentials,
// then a local-development fallback that also permits an empty job id.
type EnvConfig struct {
	ServerURL string

	Login    string
	Password string

	ClientID  string
	APISecret string

	// LocalDev is true when none of the above were set from the
	// environment, meaning the local-development fallback identity and
	// server were used.
	LocalDev bool
}

// ResolveEnvConfig inspects the process environment using the same
// precedence as the original tool: DCI_LOGIN/DCI_PASSWORD/DCI_CS_URL wins
// first, DCI_CLIENT_ID/DCI_API_SECRET/DCI_CS_URL second, and an
// unconfigured environment falls back to the local pipeline-user.
func ResolveEnvConfig() EnvConfig {
	url := os.Getenv("DCI_CS_URL")
	login := os.Getenv("DCI_LOGIN")
	password := os.Getenv("DCI_PASSWORD")
	clientID := os.Getenv("DCI_CLIENT_ID")
	apiSecret := os.Getenv("DCI_API_SECRET")

	switch {
	case login != "" && password != "" && url != "":
		return EnvConfig{ServerURL: url, Login: login, Password: password}
	case clientID != "" && apiSecret != "" && url != "":
		return EnvConfig{ServerURL: url, ClientID: clientID, APISecret: apiSecret}
	default:
		return EnvConfig{ServerURL: localDevServerURL, Login: localDevUsername, Password: localDevPassword, LocalDev: true}
	}
}

// BuildClient builds a dciclient.Client for cfg, preferring signature
// authentication when both identities happen to be set.
func BuildClient(cfg EnvConfig, log logging.Logger) *dciclient.Client {
	if cfg.ClientID != "" && cfg.APISecret != "" {
		return dciclient.New(cfg.ServerURL, cfg.ClientID, cfg.APISecret, log)
	}
	c := dciclient.New(cfg.ServerURL, "", "", log)
	return c.WithAuth(dciclient.Auth{Username: cfg.Login, Password: cfg.Password})
}

// ResolveJobID returns the job id to rebuild from: explicitJobID if given,
// otherwise the newest known job, which is only permitted in the
// local-development fallback (mirrors the original tool refusing to guess
// a job id against a real server).
func ResolveJobID(ctx context.Context, client *dciclient.Client, cfg EnvConfig, explicitJobID string) (string, error) {
	if explicitJobID != "" {
		return explicitJobID, nil
	}
	if !cfg.LocalDev {
		return "", fmt.Errorf("no job id provided and DCI_CS_URL is set: pass a job id explicitly")
	}
	jobs, err := client.LatestJobs(ctx, 1)
	if err != nil {
		return "", fmt.Errorf("listing latest jobs: %w", err)
	}
	if len(jobs) == 0 {
		return "", fmt.Errorf("no job found")
	}
	return jobs[0].ID, nil
}

const prevJobTagPrefix = "prev-job:"

func previousJobID(job *dciclient.Job) string {
	for _, t := range job.Tags {
		if id, ok := strings.CutPrefix(t, prevJobTagPrefix); ok {
			return id
		}
	}
	return ""
}

// previousJobs walks job's "prev-job:<id>" chain backward to the pipeline's
// first job, returning them oldest-first.
func previousJobs(ctx context.Context, client *dciclient.Client, job *dciclient.Job) ([]*dciclient.Job, error) {
	var out []*dciclient.Job
	current := job
	for {
		prevID := previousJobID(current)
		if prevID == "" {
			break
		}
		prev, err := client.Job(ctx, prevID)
		if err != nil {
			return nil, fmt.Errorf("fetching previous job %s: %w", prevID, err)
		}
		out = append(out, prev)
		current = prev
	}
	// reverse into oldest-first order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// nextJobs walks forward from job, following whichever job (if any) tags
// itself as job's "prev-job:<id>", until the chain ends.
func nextJobs(ctx context.Context, client *dciclient.Client, job *dciclient.Job) ([]*dciclient.Job, error) {
	var out []*dciclient.Job
	current := job
	for {
		candidates, err := client.JobsByTag(ctx, prevJobTagPrefix+current.ID)
		if err != nil {
			return nil, fmt.Errorf("listing jobs tagged %s%s: %w", prevJobTagPrefix, current.ID, err)
		}
		if len(candidates) == 0 {
			break
		}
		next := candidates[0]
		out = append(out, &next)
		current = &next
	}
	return out, nil
}

// PipelineFromJob fetches every job belonging to jobID's pipeline, in
// execution order: every stage that ran before it, jobID's own job, and
// every stage that ran after it.
func PipelineFromJob(ctx context.Context, client *dciclient.Client, jobID string) ([]*dciclient.Job, error) {
	initial, err := client.Job(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetching job %s: %w", jobID, err)
	}

	before, err := previousJobs(ctx, client, initial)
	if err != nil {
		return nil, err
	}
	after, err := nextJobs(ctx, client, initial)
	if err != nil {
		return nil, err
	}

	jobs := make([]*dciclient.Job, 0, len(before)+1+len(after))
	jobs = append(jobs, before...)
	jobs = append(jobs, initial)
	jobs = append(jobs, after...)
	return jobs, nil
}

// PinComponentVersions rewrites each job's stored pipeline-document
// components to the exact "type=name" pins the job actually ran with, so
// replaying the rebuilt document can never silently pick up a newer
// component than the one that was tested. jobs must already carry their
// Components (client.Job embeds them on every fetch).
func PinComponentVersions(jobs []*dciclient.Job) error {
	for _, job := range jobs {
		pins := make([]string, 0, len(job.Components))
		for _, c := range job.Components {
			pins = append(pins, fmt.Sprintf("%s=%s", c.Type, c.Name))
		}

		pipelineDoc, ok := jobDataPipeline(job)
		if !ok {
			return fmt.Errorf("job %s has no data.pipeline entry to pin", job.ID)
		}
		pipelineDoc["components"] = pins
	}
	return nil
}

// PipelineDocument extracts job's stored data.pipeline document, used by
// both the rebuild and diff tools to read back the document a job ran
// with.
func PipelineDocument(job *dciclient.Job) (map[string]any, bool) {
	return jobDataPipeline(job)
}

func jobDataPipeline(job *dciclient.Job) (map[string]any, bool) {
	if job.Data == nil {
		return nil, false
	}
	raw, ok := job.Data["pipeline"]
	if !ok {
		return nil, false
	}
	doc, ok := raw.(map[string]any)
	return doc, ok
}

// Documents extracts each job's data.pipeline document, in the order
// jobs was given, ready to be marshalled as the rebuilt pipeline file.
func Documents(jobs []*dciclient.Job) ([]map[string]any, error) {
	docs := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		doc, ok := jobDataPipeline(job)
		if !ok {
			return nil, fmt.Errorf("job %s has no data.pipeline entry", job.ID)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
