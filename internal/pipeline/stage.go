// SPDX-License-Identifier: Apache-2.0

package pipeline

// Stage is one group of job-defs sharing a stage label, in the order
// that label first appeared in the pipeline.
type Stage struct {
	Name    string
	JobDefs []*JobDef
}

// GroupStages groups job-defs into stages in the order their stage
// labels first appear, per §4.7 step 0 ("groups the pipeline into
// stages in the order their stage labels first appear").
func GroupStages(jobDefs []*JobDef) []*Stage {
	var stages []*Stage
	index := map[string]int{}
	for _, jd := range jobDefs {
		i, ok := index[jd.Stage]
		if !ok {
			i = len(stages)
			index[jd.Stage] = i
			stages = append(stages, &Stage{Name: jd.Stage})
		}
		stages[i].JobDefs = append(stages[i].JobDefs, jd)
	}
	return stages
}

// ByName indexes job-defs by name for prev_stages resolution. A
// prev_stages entry may name either a job-def directly or a stage label
// (all job-defs in that stage).
type ByName map[string]*JobDef

// Index builds a ByName index over every job-def in the pipeline.
func Index(jobDefs []*JobDef) ByName {
	idx := make(ByName, len(jobDefs))
	for _, jd := range jobDefs {
		idx[jd.Name] = jd
	}
	return idx
}

// PreviousJobDefs resolves jd's prev_stages references into the ordered,
// reversed list of job-defs with a completed JobInfo, per §4.7 step 3.
// A reference to an unknown name or stage yields no entries for that
// reference (§9 Open Questions: unvalidated, silently empty) rather than
// an error.
func PreviousJobDefs(jd *JobDef, all []*JobDef, byName ByName) []*JobDef {
	stageMembers := map[string][]*JobDef{}
	for _, j := range all {
		stageMembers[j.Stage] = append(stageMembers[j.Stage], j)
	}

	var refs []*JobDef
	for _, ref := range jd.PrevStages {
		if j, ok := byName[ref]; ok {
			refs = append(refs, j)
			continue
		}
		refs = append(refs, stageMembers[ref]...)
	}

	var completed []*JobDef
	for _, j := range refs {
		if j.JobInfo != nil {
			completed = append(completed, j)
		}
	}

	for i, j := 0, len(completed)-1; i < j; i, j = i+1, j-1 {
		completed[i], completed[j] = completed[j], completed[i]
	}
	return completed
}
