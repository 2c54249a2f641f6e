// SPDX-License-Identifier: Apache-2.0

// Package pipelinediff reports component-version drift between two
// pipeline runs that are expected to share the same stage structure: a
// read-only report, never a mutation of either job.
package pipelinediff

import (
	"context"
	"fmt"

	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
	"github.com/redhat-cip/dci-pipeline/internal/pipelinerebuild"
)

// Row is one component whose version differs between the two pipelines at
// the same stage index.
type Row struct {
	Job1      string
	Job2      string
	Stage     string
	Type      string
	Name1     string
	Name2     string
}

// Compare fetches the full pipeline chain for both job ids and reports
// every component whose name differs between same-typed components at the
// same stage index. It errors if the two pipelines don't have the same
// number of stages or the same set of stage types, mirroring the original
// tool's refusal to diff structurally different pipelines.
func Compare(ctx context.Context, client *dciclient.Client, jobID1, jobID2 string) ([]Row, error) {
	pipeline1, err := pipelinerebuild.PipelineFromJob(ctx, client, jobID1)
	if err != nil {
		return nil, fmt.Errorf("fetching pipeline for job %s: %w", jobID1, err)
	}
	pipeline2, err := pipelinerebuild.PipelineFromJob(ctx, client, jobID2)
	if err != nil {
		return nil, fmt.Errorf("fetching pipeline for job %s: %w", jobID2, err)
	}

	if len(pipeline1) != len(pipeline2) {
		return nil, fmt.Errorf("not the same pipeline structure: %d stages vs %d stages", len(pipeline1), len(pipeline2))
	}

	types1, err := stageTypes(pipeline1)
	if err != nil {
		return nil, err
	}
	types2, err := stageTypes(pipeline2)
	if err != nil {
		return nil, err
	}
	if !sameSet(types1, types2) {
		return nil, fmt.Errorf("not the same pipeline types: pipeline_1=%v, pipeline_2=%v", types1, types2)
	}

	var rows []Row
	for i := range pipeline1 {
		job1, job2 := pipeline1[i], pipeline2[i]
		doc1, _ := pipelinerebuild.PipelineDocument(job1)
		stageName, _ := doc1["name"].(string)

		for _, c1 := range job1.Components {
			for _, c2 := range job2.Components {
				if c1.Type != c2.Type || c1.Name == c2.Name {
					continue
				}
				rows = append(rows, Row{
					Job1:  job1.ID,
					Job2:  job2.ID,
					Stage: stageName,
					Type:  c1.Type,
					Name1: c1.Name,
					Name2: c2.Name,
				})
			}
		}
	}
	return rows, nil
}

func stageTypes(jobs []*dciclient.Job) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, job := range jobs {
		doc, ok := pipelinerebuild.PipelineDocument(job)
		if !ok {
			return nil, fmt.Errorf("job %s has no data.pipeline entry", job.ID)
		}
		t, _ := doc["type"].(string)
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := map[string]bool{}
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if !set[v] {
			return false
		}
	}
	return true
}
