// Package depgraph computes a safe execution order for a target job
// and its transitive prerequisites. It is grounded directly on
// meikuraledutech-dag's postgres/dag.go validateAcyclic: the same
// three-state (unvisited/visiting/visited) depth-first search, adapted
// from "is this whole edge set acyclic" to "compute the topological
// closure reachable from one target, and fail only on a cycle within
// that closure."
package depgraph

import (
	"strings"

	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
)

const (
	unvisited = 0
	visiting  = 1
	visited   = 2
)

// Node is the minimal shape the resolver needs from a job: an id and
// the ids it depends on.
type Node struct {
	ID           string
	Dependencies []string
}

// Resolve returns the execution order for the dependency closure of
// target (or of every node, in declaration order respecting
// dependencies, if target is ""). The order is the DFS post-order
// rooted at target, which is exactly a topological order: every node
// appears after all of its dependencies.
func Resolve(nodes []Node, target string) ([]string, error) {
	byID := make(map[string]Node, len(nodes))
	var declared []string
	for _, n := range nodes {
		byID[n.ID] = n
		declared = append(declared, n.ID)
	}

	if dangling := findDangling(nodes); len(dangling) > 0 {
		return nil, gicerr.Newf(gicerr.DependencyMissing, "depgraph", "dangling dependency references: %s", strings.Join(dangling, ", "))
	}

	state := make(map[string]int, len(nodes))
	var order []string

	var dfs func(id string) error
	dfs = func(id string) error {
		state[id] = visiting
		n, ok := byID[id]
		if ok {
			for _, dep := range n.Dependencies {
				switch state[dep] {
				case visiting:
					return gicerr.Newf(gicerr.DependencyCycle, "depgraph", "dependency cycle detected involving job %q", dep)
				case unvisited:
					if err := dfs(dep); err != nil {
						return err
					}
				}
			}
		}
		state[id] = visited
		order = append(order, id)
		return nil
	}

	if target != "" {
		if _, ok := byID[target]; !ok {
			return nil, gicerr.Newf(gicerr.DependencyMissing, "depgraph", "target job %q not found", target)
		}
		if err := dfs(target); err != nil {
			return nil, err
		}
		return order, nil
	}

	// No target: resolve every node, declaration order as tie-break.
	for _, id := range declared {
		if state[id] == unvisited {
			if err := dfs(id); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func findDangling(nodes []Node) []string {
	exists := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		exists[n.ID] = true
	}
	var dangling []string
	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			if !exists[dep] {
				dangling = append(dangling, n.ID+"->"+dep)
			}
		}
	}
	return dangling
}
