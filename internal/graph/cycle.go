package graph

import (
	"github.com/metalagman/goalpath/internal/model"
)

// edges maps a task id to the ids it depends on.
type edges map[string][]string

func edgesOf(tasks []model.Task) edges {
	out := make(edges, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t.DependsOn
	}
	return out
}

// FindCyclePath checks whether giving taskID the dependency set deps would
// close a cycle among tasks. It returns the cycle as a path that starts and
// ends with taskID (for example [A B C A]), or nil when the write is safe.
func FindCyclePath(tasks []model.Task, taskID string, deps []string) []string {
	g := edgesOf(tasks)
	g[taskID] = deps

	visited := make(map[string]bool, len(g))
	for _, dep := range deps {
		if dep == taskID {
			return []string{taskID, taskID}
		}
		if path := g.pathTo(dep, taskID, visited); path != nil {
			return append([]string{taskID}, path...)
		}
	}
	return nil
}

// pathTo searches dependency edges from "from" to target. The visited map is
// shared across searches so every node is expanded at most once.
func (g edges) pathTo(from, target string, visited map[string]bool) []string {
	if from == target {
		return []string{target}
	}
	if visited[from] {
		return nil
	}
	visited[from] = true

	for _, next := range g[from] {
		if path := g.pathTo(next, target, visited); path != nil {
			return append([]string{from}, path...)
		}
	}
	return nil
}

// CyclicTasks returns the ids of tasks that lie on a dependency cycle.
// Such tasks can never become available until an edge is removed.
func CyclicTasks(tasks []model.Task) IDSet {
	g := edgesOf(tasks)
	out := make(IDSet)
	for _, t := range tasks {
		if out.Has(t.ID) {
			continue
		}
		visited := make(map[string]bool, len(g))
		for _, dep := range t.DependsOn {
			path := g.pathTo(dep, t.ID, visited)
			if path == nil {
				continue
			}
			out.Add(t.ID)
			for _, id := range path {
				out.Add(id)
			}
			break
		}
	}
	return out
}
