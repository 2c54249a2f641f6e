// SPDX-License-Identifier: Apache-2.0

package pipeline

import "fmt"

// JobDef is one stage of a pipeline, validated into a fixed shape at the
// boundary between the dynamic document tree and the stage executor.
type JobDef struct {
	Name  string
	Stage string // stage or type, whichever was set; stage wins if both are

	Topic      string
	Components []any // component expression strings or structured maps, parsed lazily by internal/components

	AnsiblePlaybook       string
	AnsibleInventory      string
	AnsibleCfg            string
	AnsibleTags           []string
	AnsibleSkipTags       []string
	AnsibleEnvVars        map[string]string
	AnsibleExtraVars      map[string]any
	AnsibleExtraVarsFiles []string
	InventoryPlaybook     string

	Inputs  map[string]string // key -> filename
	Outputs map[string]string // key -> filename

	PrevStages          []string
	SuccessTag          string
	FallbackLastSuccess []string
	UsePreviousTopic    bool

	DCICredentials string
	PipelineUser   string

	Comment       string
	Configuration string
	URL           string

	// Carried by the document path so relative paths (credentials,
	// playbooks) resolve against the originating file, not the cwd.
	SourcePath string

	// Populated after scheduling; nil until then.
	JobInfo       *JobInfo
	FailedJobInfo *JobInfo

	// Raw retains the full dynamic tree this JobDef was decoded from, so
	// overrides touching keys outside the fixed shape (configuration
	// blobs, ansible_extravars nesting) are never silently dropped.
	Raw map[string]any
}

// JobInfo is the remote job record plus the local bookkeeping the stage
// executor accumulates while running one job-def's playbook.
type JobInfo struct {
	JobID      string
	DataDir    string
	Inputs     map[string]string
	Outputs    map[string]string
	Stats      map[string]any
	ReturnCode int
	Cancelled  bool
}

// DecodeJobDef validates a dynamic object node into a JobDef. Unknown
// keys are preserved in Raw, never rejected: the pipeline document
// format is meant to be extended by overrides targeting arbitrary keys.
func DecodeJobDef(n Node) (*JobDef, error) {
	obj := n.Object()
	if obj == nil {
		return nil, fmt.Errorf("job-def is not a mapping")
	}

	jd := &JobDef{Raw: obj}
	jd.Name, _ = obj["name"].(string)
	if jd.Name == "" {
		return nil, fmt.Errorf("job-def missing required name")
	}

	if s, ok := obj["stage"].(string); ok && s != "" {
		jd.Stage = s
	} else if t, ok := obj["type"].(string); ok {
		jd.Stage = t
	}

	jd.Topic, _ = obj["topic"].(string)
	jd.Components = asSlice(obj["components"])

	jd.AnsiblePlaybook, _ = obj["ansible_playbook"].(string)
	jd.AnsibleInventory, _ = obj["ansible_inventory"].(string)
	jd.AnsibleCfg, _ = obj["ansible_cfg"].(string)
	jd.AnsibleTags = asStringSlice(obj["ansible_tags"])
	jd.AnsibleSkipTags = asStringSlice(obj["ansible_skip_tags"])
	jd.AnsibleEnvVars = asStringMap(obj["ansible_envvars"])
	if m, ok := obj["ansible_extravars"].(map[string]any); ok {
		jd.AnsibleExtraVars = m
	}
	jd.AnsibleExtraVarsFiles = asStringSlice(obj["ansible_extravars_files"])
	jd.InventoryPlaybook, _ = obj["inventory_playbook"].(string)

	jd.Inputs = asStringMap(obj["inputs"])
	jd.Outputs = asStringMap(obj["outputs"])

	jd.PrevStages = asStringSlice(obj["prev_stages"])
	jd.SuccessTag, _ = obj["success_tag"].(string)
	jd.FallbackLastSuccess = asStringSlice(obj["fallback_last_success"])
	jd.UsePreviousTopic, _ = obj["use_previous_topic"].(bool)

	jd.DCICredentials, _ = obj["dci_credentials"].(string)
	jd.PipelineUser, _ = obj["pipeline_user"].(string)

	jd.Comment, _ = obj["comment"].(string)
	jd.Configuration, _ = obj["configuration"].(string)
	jd.URL, _ = obj["url"].(string)

	return jd, nil
}

func asSlice(v any) []any {
	a, _ := v.([]any)
	return a
}

func asStringSlice(v any) []string {
	a, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(a))
	for _, e := range a {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asStringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		out[k] = fmt.Sprint(val)
	}
	return out
}
