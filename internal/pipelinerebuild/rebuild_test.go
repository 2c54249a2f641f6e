// SPDX-License-Identifier: Apache-2.0

package pipelinerebuild

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

func TestResolveEnvConfigPrecedence(t *testing.T) {
	t.Setenv("DCI_CS_URL", "https://cs.example.com/")
	t.Setenv("DCI_LOGIN", "alice")
	t.Setenv("DCI_PASSWORD", "pw")
	t.Setenv("DCI_CLIENT_ID", "")
	t.Setenv("DCI_API_SECRET", "")

	cfg := ResolveEnvConfig()
	require.Equal(t, "alice", cfg.Login)
	require.False(t, cfg.LocalDev)
}

func TestResolveEnvConfigFallsBackToSignature(t *testing.T) {
	t.Setenv("DCI_CS_URL", "https://cs.example.com/")
	t.Setenv("DCI_LOGIN", "")
	t.Setenv("DCI_PASSWORD", "")
	t.Setenv("DCI_CLIENT_ID", "remoteci/x")
	t.Setenv("DCI_API_SECRET", "secret")

	cfg := ResolveEnvConfig()
	require.Equal(t, "remoteci/x", cfg.ClientID)
	require.False(t, cfg.LocalDev)
}

func TestResolveEnvConfigLocalDevFallback(t *testing.T) {
	t.Setenv("DCI_CS_URL", "")
	t.Setenv("DCI_LOGIN", "")
	t.Setenv("DCI_PASSWORD", "")
	t.Setenv("DCI_CLIENT_ID", "")
	t.Setenv("DCI_API_SECRET", "")

	cfg := ResolveEnvConfig()
	require.True(t, cfg.LocalDev)
	require.Equal(t, localDevServerURL, cfg.ServerURL)
	require.Equal(t, localDevUsername, cfg.Login)
}

func TestResolveJobIDRequiresExplicitIDAgainstRealServer(t *testing.T) {
	cfg := EnvConfig{LocalDev: false}
	_, err := ResolveJobID(context.Background(), nil, cfg, "")
	require.Error(t, err)
}

func TestResolveJobIDFallsBackToLatestInLocalDev(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs": [{"id": "job-42"}]}`))
	}))
	defer srv.Close()

	client := dciclient.New(srv.URL, "", "", logging.NewLogger(false)).WithAuth(dciclient.Auth{Username: "pipeline-user", Password: "pw"})
	id, err := ResolveJobID(context.Background(), client, EnvConfig{LocalDev: true}, "")
	require.NoError(t, err)
	require.Equal(t, "job-42", id)
}

func TestPipelineFromJobWalksBothDirections(t *testing.T) {
	jobs := map[string]*dciclient.Job{
		"first":  {ID: "first"},
		"middle": {ID: "middle", Tags: []string{"prev-job:first"}},
		"last":   {ID: "last", Tags: []string{"prev-job:middle"}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/jobs":
			q, _ := url.ParseQuery(r.URL.RawQuery)
			where := q.Get("where")
			var found []*dciclient.Job
			for _, j := range jobs {
				for _, tag := range j.Tags {
					if "tags:"+tag == where {
						found = append(found, j)
					}
				}
			}
			writeJobsList(w, found)
		default:
			id := r.URL.Path[len("/api/v1/jobs/"):]
			writeJob(w, jobs[id])
		}
	}))
	defer srv.Close()

	client := dciclient.New(srv.URL, "remoteci/x", "secret", logging.NewLogger(false))
	got, err := PipelineFromJob(context.Background(), client, "middle")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "first", got[0].ID)
	require.Equal(t, "middle", got[1].ID)
	require.Equal(t, "last", got[2].ID)
}

func TestSavePipelineWritesYAMLDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rebuilt-pipeline.yml")
	docs := []map[string]any{
		{"name": "deploy", "components": []string{"ocp=4.15.0"}},
	}
	require.NoError(t, SavePipeline(path, docs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "name: deploy")
}

func TestPinComponentVersionsAndDocuments(t *testing.T) {
	jobs := []*dciclient.Job{
		{
			ID:         "job-1",
			Components: []dciclient.Component{{Type: "ocp", Name: "4.15.0"}, {Type: "rhel", Name: "9.3"}},
			Data: map[string]any{
				"pipeline": map[string]any{"name": "deploy", "components": []any{"ocp=4.14.0"}},
			},
		},
	}

	require.NoError(t, PinComponentVersions(jobs))
	docs, err := Documents(jobs)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, []string{"ocp=4.15.0", "rhel=9.3"}, docs[0]["components"])
}

func TestPinComponentVersionsRequiresDataPipeline(t *testing.T) {
	jobs := []*dciclient.Job{{ID: "job-1"}}
	require.Error(t, PinComponentVersions(jobs))
}

func writeJob(w http.ResponseWriter, job *dciclient.Job) {
	type envelope struct {
		Job *dciclient.Job `json:"job"`
	}
	writeJSON(w, envelope{Job: job})
}

func writeJobsList(w http.ResponseWriter, jobs []*dciclient.Job) {
	type envelope struct {
		Jobs []*dciclient.Job `json:"jobs"`
	}
	if jobs == nil {
		jobs = []*dciclient.Job{}
	}
	writeJSON(w, envelope{Jobs: jobs})
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
