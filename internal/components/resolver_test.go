// SPDX-License-Identifier: Apache-2.0

package components

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redhat-cip/dci-pipeline/internal/dciclient"
)

func TestResolveReturnsNewestMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"components": []dciclient.Component{{ID: "c1", Name: "ocp-4.8.0", Type: "ocp"}},
		})
	}))
	defer srv.Close()

	client := dciclient.New(srv.URL, "remoteci-1", "secret", nil)
	e, err := Parse("ocp")
	require.NoError(t, err)

	c, err := Resolve(context.Background(), client, "topic-1", e, nil)
	require.NoError(t, err)
	require.Equal(t, "c1", c.ID)
}

func TestResolveUnschedulableWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"components": []dciclient.Component{}})
	}))
	defer srv.Close()

	client := dciclient.New(srv.URL, "remoteci-1", "secret", nil)
	e, err := Parse("ocp")
	require.NoError(t, err)

	_, err = Resolve(context.Background(), client, "topic-1", e, nil)
	require.ErrorIs(t, err, ErrUnschedulable)
}

func TestResolveStructuredTriesEachPriorityTag(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		seen = append(seen, q)
		if len(seen) < 2 {
			json.NewEncoder(w).Encode(map[string]any{"components": []dciclient.Component{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"components": []dciclient.Component{{ID: "c2", Type: "ocp"}},
		})
	}))
	defer srv.Close()

	client := dciclient.New(srv.URL, "remoteci-1", "secret", nil)
	e, err := ParseStructured(StructuredInput{Type: "ocp", PriorityTags: []string{"ga", "candidate"}})
	require.NoError(t, err)

	c, err := Resolve(context.Background(), client, "topic-1", e, nil)
	require.NoError(t, err)
	require.Equal(t, "c2", c.ID)
	require.Len(t, seen, 2)
}

func TestResolveAllFailsOnFirstUnschedulable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"components": []dciclient.Component{}})
	}))
	defer srv.Close()

	client := dciclient.New(srv.URL, "remoteci-1", "secret", nil)
	e, err := Parse("ocp")
	require.NoError(t, err)

	_, err = ResolveAll(context.Background(), client, "topic-1", []Expression{e}, nil)
	require.ErrorIs(t, err, ErrUnschedulable)
}
