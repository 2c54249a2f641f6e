// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
)

// pipelineIDEnvVar names the environment variable whose value, when set,
// is sent as an extra tag so jobs in the same CI run can be correlated
// outside the server's own pipeline grouping.
const pipelineIDEnvVar = "DCI_PIPELINE_ID_TAG"

// ComputeTags implements §4.7 step 9: stage label, optional pipeline id
// tag from the environment, the inventory's basename, and for the
// nearest previous job-def only, one prev-job tag. The prev-component
// tags need the previous remote job record and are rendered separately
// by ComponentPrevTags.
func ComputeTags(jd *JobDef, previous []*JobDef) []string {
	tags := []string{jd.Stage}
	if v := os.Getenv(pipelineIDEnvVar); v != "" {
		tags = append(tags, v)
	}
	if jd.AnsibleInventory != "" {
		tags = append(tags, filepath.Base(jd.AnsibleInventory))
	}
	if len(previous) == 0 {
		return tags
	}
	nearest := previous[0]
	if nearest.JobInfo == nil {
		return tags
	}
	tags = append(tags, fmt.Sprintf("prev-job:%s", nearest.JobInfo.JobID))
	return tags
}

// ComponentPrevTags renders one prev-component tag per component on the
// nearest previous job-def's remote job record.
func ComponentPrevTags(nearestJob *dciclient.Job) []string {
	if nearestJob == nil || nearestJob.Topic == nil {
		return nil
	}
	tags := make([]string, 0, len(nearestJob.Components))
	for _, c := range nearestJob.Components {
		tags = append(tags, fmt.Sprintf("prev-component:%s:%s/%s", c.Type, nearestJob.Topic.Name, c.Name))
	}
	return tags
}
