// Package graph derives task availability from a goal's dependency edges.
//
// Everything here is a pure computation over an in-memory snapshot. Nothing is
// cached between calls, so callers re-derive availability after every mutation.
package graph

import (
	"sort"

	"github.com/metalagman/goalpath/internal/model"
)

// IDSet is a set of entity ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CompletedIDs returns the ids of every completed task.
func CompletedIDs(tasks []model.Task) IDSet {
	out := make(IDSet, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			out.Add(t.ID)
		}
	}
	return out
}

// IsAvailable reports whether t can be worked on: it is not completed and every
// dependency is in completed. A task without dependencies is available.
func IsAvailable(t model.Task, completed IDSet) bool {
	if t.Completed {
		return false
	}
	for _, dep := range t.DependsOn {
		if !completed.Has(dep) {
			return false
		}
	}
	return true
}

// AvailableTasks returns the unlocked tasks of a goal, earliest created first.
func AvailableTasks(tree model.GoalTree) []model.Task {
	tasks := tree.Tasks()
	completed := CompletedIDs(tasks)

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if IsAvailable(t, completed) {
			out = append(out, t)
		}
	}
	sortByCreation(out, tree.MilestoneOrder())
	return out
}

// sortByCreation orders tasks by creation time. Ties fall back to milestone
// order, task order and finally id so repeated calls agree.
func sortByCreation(tasks []model.Task, milestoneOrder map[string]int) {
	sort.SliceStable(tasks, func(i, j int) bool {
		left := tasks[i]
		right := tasks[j]
		if !left.CreatedAt.Equal(right.CreatedAt) {
			return left.CreatedAt.Before(right.CreatedAt)
		}
		lm, rm := milestoneOrder[left.MilestoneID], milestoneOrder[right.MilestoneID]
		if lm != rm {
			return lm < rm
		}
		if left.Order != right.Order {
			return left.Order < right.Order
		}
		return left.ID < right.ID
	})
}
