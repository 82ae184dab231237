package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
group: demo
origins:
  - name: svc
    base_url: https://api.example.com
    job:
      - id: login
        type: auth
        method: POST
        path: /auth
        session_name: S
        token_identifier: access_token
      - id: fetch
        type: request
        method: GET
        path: /data
        session_name: S
        dependencies: [login]
`

func TestParseYAML(t *testing.T) {
	g, err := Parse([]byte(sampleYAML), "group.yaml")
	require.NoError(t, err)
	assert.Equal(t, "demo", g.Group)
	require.Len(t, g.Origins, 1)
	assert.Len(t, g.Origins[0].Jobs, 2)

	job, origin, ok := g.FindJob("fetch")
	require.True(t, ok)
	assert.Equal(t, "svc", origin.Name)
	assert.Equal(t, []string{"login"}, job.Dependencies)
}

func TestValidateDanglingDependency(t *testing.T) {
	g := &Group{
		Group: "demo",
		Origins: []Origin{{
			Name:    "svc",
			BaseURL: "https://x",
			Jobs: []Job{
				{ID: "a", Type: JobTypeRequest, Dependencies: []string{"missing"}},
			},
		}},
	}
	err := Validate(g)
	require.Error(t, err)
}

func TestValidateDuplicateJobID(t *testing.T) {
	g := &Group{
		Group: "demo",
		Origins: []Origin{{
			Name:    "svc",
			BaseURL: "https://x",
			Jobs: []Job{
				{ID: "a", Type: JobTypeRequest},
				{ID: "a", Type: JobTypeRequest},
			},
		}},
	}
	err := Validate(g)
	require.Error(t, err)
}

func TestValidateOK(t *testing.T) {
	g, err := Parse([]byte(sampleYAML), "group.yaml")
	require.NoError(t, err)
	assert.NoError(t, Validate(g))
}
