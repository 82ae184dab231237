package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/executor"
	"github.com/tigerroll/gicli/pkg/gicli/session"
)

func TestRunResolvesLoginThenFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login":
			json.NewEncoder(w).Encode(map[string]any{"access_token": "tok"})
		case "/data":
			json.NewEncoder(w).Encode(map[string]any{"value": 1})
		}
	}))
	defer srv.Close()

	group := &config.Group{
		Group: "demo",
		Origins: []config.Origin{{
			Name: "svc", BaseURL: srv.URL,
			Jobs: []config.Job{
				{ID: "login", Type: config.JobTypeAuth, Method: "POST", Path: "/login", SessionName: "S", TokenIdentifier: "access_token"},
				{ID: "fetch", Type: config.JobTypeRequest, Method: "GET", Path: "/data", SessionName: "S", Dependencies: []string{"login"}},
			},
		}},
	}

	store := session.New()
	defer store.Close()
	o := New(group, store, "master", nil)

	result := o.Run(context.Background(), "fetch", nil)
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.ExitCode())
	require.Len(t, result.Runs, 2)
	assert.Equal(t, "login", result.Runs[0].JobID)
	assert.Equal(t, "fetch", result.Runs[1].JobID)
}

func TestRunTargetNotFound(t *testing.T) {
	group := &config.Group{Group: "demo", Origins: []config.Origin{{Name: "svc", BaseURL: "http://x"}}}
	store := session.New()
	defer store.Close()
	o := New(group, store, "master", nil)

	result := o.Run(context.Background(), "ghost", nil)
	require.Error(t, result.Err)
	assert.Equal(t, 1, result.ExitCode())
}

func TestRunShortCircuitsOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	group := &config.Group{
		Group: "demo",
		Origins: []config.Origin{{
			Name: "svc", BaseURL: srv.URL,
			Jobs: []config.Job{
				{ID: "fetch", Type: config.JobTypeRequest, Method: "GET", Path: "/data"},
			},
		}},
	}
	store := session.New()
	defer store.Close()
	o := New(group, store, "master", nil)

	result := o.Run(context.Background(), "fetch", nil)
	require.Error(t, result.Err)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, executor.StatusFailed, result.Runs[0].Status)
}
