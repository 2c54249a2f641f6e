// SPDX-License-Identifier: Apache-2.0

package dciclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

func TestClientSignsWithHMACByDefault(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "remoteci/x", r.Header.Get("Client-Id"))
		w.Write([]byte(`{"topics": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "remoteci/x", "secret", logging.NewLogger(false))
	_, err := c.Topics(context.Background(), "")
	require.NoError(t, err)
	require.Contains(t, gotAuth, "DCI-HMAC-SHA256 ")
}

func TestClientWithAuthSwitchesToBasic(t *testing.T) {
	var gotUser, gotPass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, ok = r.BasicAuth()
		w.Write([]byte(`{"topics": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "remoteci/x", "secret", logging.NewLogger(false))
	listClient := c.WithAuth(Auth{Username: "pipeline-user", Password: "pw"})
	_, err := listClient.Topics(context.Background(), "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "pipeline-user", gotUser)
	require.Equal(t, "pw", gotPass)

	// The original client is untouched.
	require.True(t, c.Auth.signatureBased())
}

func TestClientReturnsErrStatusOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`not found`))
	}))
	defer srv.Close()

	c := New(srv.URL, "remoteci/x", "secret", logging.NewLogger(false))
	_, err := c.Job(context.Background(), "missing")
	require.Error(t, err)

	var st *errStatus
	require.True(t, asErrStatus(err, &st))
	require.Equal(t, 404, st.Code)
	require.False(t, st.Retryable())
}

func TestLatestJobsSortsNewestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "-created_at", r.URL.Query().Get("sort"))
		require.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"jobs": [{"id": "job-1", "status": "success"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "remoteci/x", "secret", logging.NewLogger(false))
	jobs, err := c.LatestJobs(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "job-1", jobs[0].ID)
}
