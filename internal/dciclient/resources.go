// SPDX-License-Identifier: Apache-2.0

package dciclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Topic is a remote-service topic record.
type Topic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Component is a versioned artifact selected from the remote service.
type Component struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Version string    `json:"version,omitempty"`
	State   string    `json:"state"`
	TopicID string    `json:"topic_id"`
	Tags    []string  `json:"tags,omitempty"`
	Released string   `json:"released_at,omitempty"`
}

// JobState is one entry in a job's state history.
type JobState struct {
	ID        string `json:"id"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Job is the opaque server-assigned record for one scheduled stage run.
type Job struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Name       string      `json:"name,omitempty"`
	Comment    string      `json:"comment,omitempty"`
	URL        string      `json:"url,omitempty"`
	PipelineID string      `json:"pipeline_id,omitempty"`
	Topic      *Topic      `json:"topic,omitempty"`
	Components []Component `json:"components,omitempty"`
	JobStates  []JobState  `json:"jobstates,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Pipeline is a grouping of jobs sharing one pipeline-id.
type Pipeline struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Identity is the caller's own remoteci/team identity, as returned by
// WhoAmI.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"team_id,omitempty"`
}

// Topics lists topics by name. An empty name lists every topic.
func (c *Client) Topics(ctx context.Context, name string) ([]Topic, error) {
	q := url.Values{}
	if name != "" {
		q.Set("where", "name:"+name)
	}
	var out struct {
		Topics []Topic `json:"topics"`
	}
	if err := c.do(ctx, "GET", "/api/v1/topics", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Topics, nil
}

// ComponentQuery describes a server-side component listing request, per
// the query clauses the resolver (C5) builds for each component
// expression kind.
type ComponentQuery struct {
	TopicID      string
	Where        string
	Query        string
	Sort         string
	Limit        int
	Offset       int
	CreatedAfter string
}

// Components lists a topic's components matching q, newest first by
// default (Sort left empty falls back to "-created_at" so the resolver
// can take index 0 as "the single newest matching component").
func (c *Client) Components(ctx context.Context, q ComponentQuery) ([]Component, error) {
	vals := url.Values{}
	if q.Where != "" {
		vals.Set("where", q.Where)
	}
	if q.Query != "" {
		vals.Set("query", q.Query)
	}
	sort := q.Sort
	if sort == "" {
		sort = "-created_at"
	}
	vals.Set("sort", sort)
	if q.Limit > 0 {
		vals.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		vals.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.CreatedAfter != "" {
		vals.Set("created_after", q.CreatedAfter)
	}
	var out struct {
		Components []Component `json:"components"`
	}
	path := fmt.Sprintf("/api/v1/topics/%s/components", q.TopicID)
	if err := c.do(ctx, "GET", path, vals, nil, &out); err != nil {
		return nil, err
	}
	return out.Components, nil
}

// NewJobInput is the payload for creating a remote job.
type NewJobInput struct {
	TopicID        string      `json:"topic_id"`
	Components     []string    `json:"components"`
	Name           string      `json:"name,omitempty"`
	Comment        string      `json:"comment,omitempty"`
	Configuration  string      `json:"configuration,omitempty"`
	URL            string      `json:"url,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	PreviousJobID  string      `json:"previous_job_id,omitempty"`
	PipelineID     string      `json:"pipeline_id,omitempty"`
}

// CreateJob creates a remote job and returns its record.
func (c *Client) CreateJob(ctx context.Context, in NewJobInput) (*Job, error) {
	var out struct {
		Job Job `json:"job"`
	}
	if err := c.do(ctx, "POST", "/api/v1/jobs", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

// Job fetches a job with its topic, remoteci, and components embedded.
func (c *Client) Job(ctx context.Context, id string) (*Job, error) {
	q := url.Values{}
	q.Set("embed", "topic,remoteci,components")
	var out struct {
		Job Job `json:"job"`
	}
	path := fmt.Sprintf("/api/v1/jobs/%s", id)
	if err := c.do(ctx, "GET", path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

// CreateJobState creates one job state for jobID.
//
//	new, running, success, failure, error, killed
//
// are the only statuses the stage executor ever writes.
func (c *Client) CreateJobState(ctx context.Context, jobID, status, comment string) (*JobState, error) {
	in := struct {
		JobID   string `json:"job_id"`
		Status  string `json:"status"`
		Comment string `json:"comment,omitempty"`
	}{jobID, status, comment}
	var out struct {
		JobState JobState `json:"jobstate"`
	}
	if err := c.do(ctx, "POST", "/api/v1/jobstates", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.JobState, nil
}

// ListJobStates lists a job's jobstates, newest first.
func (c *Client) ListJobStates(ctx context.Context, jobID string) ([]JobState, error) {
	q := url.Values{}
	q.Set("where", "job_id:"+jobID)
	q.Set("sort", "-created_at")
	var out struct {
		JobStates []JobState `json:"jobstates"`
	}
	if err := c.do(ctx, "GET", "/api/v1/jobstates", q, nil, &out); err != nil {
		return nil, err
	}
	return out.JobStates, nil
}

// TagComponent attaches a tag to a component, used to mark a successful
// job's components with the job-def's success_tag.
func (c *Client) TagComponent(ctx context.Context, componentID, tag string) error {
	in := struct {
		Name string `json:"name"`
	}{tag}
	path := fmt.Sprintf("/api/v1/components/%s/tags", componentID)
	return c.do(ctx, "POST", path, nil, in, nil)
}

// TagJob attaches a tag to a job, used for stage/pipeline/prev-job/prev-
// component/fallback tags.
func (c *Client) TagJob(ctx context.Context, jobID, tag string) error {
	in := struct {
		Name string `json:"name"`
	}{tag}
	path := fmt.Sprintf("/api/v1/jobs/%s/tags", jobID)
	return c.do(ctx, "POST", path, nil, in, nil)
}

// UploadJobFile uploads a log or JUnit file and attaches it to jobID.
func (c *Client) UploadJobFile(ctx context.Context, jobID, filename, mimeType string, data []byte) error {
	path := fmt.Sprintf("/api/v1/jobs/%s/files", jobID)
	return c.uploadFile(ctx, path, filename, mimeType, data, nil)
}

// Pipelines lists pipelines, optionally filtered by name.
func (c *Client) Pipelines(ctx context.Context, name string) ([]Pipeline, error) {
	q := url.Values{}
	if name != "" {
		q.Set("where", "name:"+name)
	}
	var out struct {
		Pipelines []Pipeline `json:"pipelines"`
	}
	if err := c.do(ctx, "GET", "/api/v1/pipelines", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Pipelines, nil
}

// CreatePipeline creates a pipeline grouping, used once per run on the
// first job-def that needs a pipeline-id.
func (c *Client) CreatePipeline(ctx context.Context, name string) (*Pipeline, error) {
	in := struct {
		Name string `json:"name,omitempty"`
	}{name}
	var out struct {
		Pipeline Pipeline `json:"pipeline"`
	}
	if err := c.do(ctx, "POST", "/api/v1/pipelines", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Pipeline, nil
}

// JobsByPipeline lists the jobs belonging to a pipeline.
func (c *Client) JobsByPipeline(ctx context.Context, pipelineID string) ([]Job, error) {
	q := url.Values{}
	q.Set("where", "pipeline_id:"+pipelineID)
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.do(ctx, "GET", "/api/v1/jobs", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// LatestJobs lists the most recently created jobs, newest first, capped
// at limit. Used by dci-rebuild-pipeline's no-argument form to seed
// itself from whatever ran last.
func (c *Client) LatestJobs(ctx context.Context, limit int) ([]Job, error) {
	q := url.Values{}
	q.Set("sort", "-created_at")
	q.Set("limit", strconv.Itoa(limit))
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.do(ctx, "GET", "/api/v1/jobs", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// JobsByTag lists jobs carrying the exact tag value, newest first. Used to
// walk a pipeline's job chain forward via its "prev-job:<id>" tags.
func (c *Client) JobsByTag(ctx context.Context, tag string) ([]Job, error) {
	q := url.Values{}
	q.Set("where", "tags:"+tag)
	q.Set("sort", "-created_at")
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.do(ctx, "GET", "/api/v1/jobs", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// WhoAmI fetches the caller's own identity. The stage executor does not
// call it; it schedules jobs without a separate credentials check.
func (c *Client) WhoAmI(ctx context.Context) (*Identity, error) {
	var out struct {
		Identity Identity `json:"identity"`
	}
	if err := c.do(ctx, "GET", "/api/v1/identity", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Identity, nil
}
