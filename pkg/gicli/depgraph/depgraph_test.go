package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
)

func TestResolveLoginThenFetch(t *testing.T) {
	nodes := []Node{
		{ID: "login"},
		{ID: "fetch", Dependencies: []string{"login"}},
	}
	order, err := Resolve(nodes, "fetch")
	require.NoError(t, err)
	assert.Equal(t, []string{"login", "fetch"}, order)
}

func TestResolveCycle(t *testing.T) {
	nodes := []Node{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	}
	_, err := Resolve(nodes, "a")
	require.Error(t, err)
	kind, ok := gicerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, gicerr.DependencyCycle, kind)
}

func TestResolveDanglingDependency(t *testing.T) {
	nodes := []Node{
		{ID: "a", Dependencies: []string{"ghost"}},
	}
	_, err := Resolve(nodes, "a")
	require.Error(t, err)
}

func TestResolvePrefixClosed(t *testing.T) {
	// For every i,j: if O[i] depends on O[j], then j < i.
	nodes := []Node{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
		{ID: "c", Dependencies: []string{"b", "a"}},
	}
	order, err := Resolve(nodes, "c")
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	byID := make(map[string]Node)
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, id := range order {
		for _, dep := range byID[id].Dependencies {
			assert.Less(t, pos[dep], pos[id])
		}
	}
}

func TestResolveClosureMonotonic(t *testing.T) {
	// dependencyClosure(t') subset dependencyClosure(t) when t depends on t'.
	nodes := []Node{
		{ID: "root"},
		{ID: "mid", Dependencies: []string{"root"}},
		{ID: "leaf", Dependencies: []string{"mid"}},
	}
	closureMid, err := Resolve(nodes, "mid")
	require.NoError(t, err)
	closureLeaf, err := Resolve(nodes, "leaf")
	require.NoError(t, err)

	set := make(map[string]bool)
	for _, id := range closureLeaf {
		set[id] = true
	}
	for _, id := range closureMid {
		assert.True(t, set[id])
	}
}
