// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// jobDefRegexp matches dci-pipeline's own "running jobdef: <name> with..."
// log line, capturing the jobdef name and the DCI job UUID it was assigned.
var jobDefRegexp = regexp.MustCompile(`^\d{4}-.*\s+running jobdef: ([\w.-]+) with.*/([0-9a-f-]+) .*$`)

// ansibleChangedJobRegexp matches the JSON blob ansible-playbook prints for
// a "changed" dci_check_change task, which embeds the job id and name.
var ansibleChangedJobRegexp = regexp.MustCompile(`^changed: \[[\w-]+\] => (\{"changed": true, "job":.+\})$`)

type changedJobEvent struct {
	Job struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"job"`
}

// JobIDs reconstructs the mapping from DCI job name to DCI job UUID found
// in the log of a single dispatched command, by grepping for the two
// patterns dci-pipeline and ansible leave behind. Order is the order jobs
// first appear in the log.
func (s *Scheduler) JobIDs(pool string, id int) ([]NamedJob, error) {
	data, err := s.Log(pool, id)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var jobs []NamedJob

	add := func(jobID, name string) {
		if jobID == "" || seen[jobID] {
			return
		}
		seen[jobID] = true
		jobs = append(jobs, NamedJob{ID: jobID, Name: name})
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if m := jobDefRegexp.FindStringSubmatch(line); m != nil {
			add(m[2], m[1])
			continue
		}
		if m := ansibleChangedJobRegexp.FindStringSubmatch(line); m != nil {
			var evt changedJobEvent
			if err := json.Unmarshal([]byte(m[1]), &evt); err == nil {
				add(evt.Job.ID, evt.Job.Name)
			}
		}
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("no DCI job IDs found in %s/%d", pool, id)
	}
	return jobs, nil
}

// NamedJob pairs a DCI job UUID with the jobdef name that produced it.
type NamedJob struct {
	ID   string
	Name string
}
