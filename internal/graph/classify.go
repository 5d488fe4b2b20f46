package graph

import (
	"github.com/metalagman/goalpath/internal/model"
)

// State is the derived lock state of a task.
type State string

const (
	StateCompleted State = "completed"
	StateAvailable State = "available"
	StateBlocked   State = "blocked"
)

// Snapshot is the availability of every task in a goal at one point in time.
type Snapshot struct {
	Completed []model.Task
	Available []model.Task
	Blocked   []model.Task
	States    map[string]State
	// Blockers lists, per blocked task, the dependency ids that are not yet
	// satisfied. Ids that do not resolve to a task in the goal are included.
	Blockers map[string][]string
}

// StateOf returns the state of a task id, or StateBlocked when unknown.
func (s Snapshot) StateOf(id string) State {
	if st, ok := s.States[id]; ok {
		return st
	}
	return StateBlocked
}

// Classify splits a goal's tasks into completed, available and blocked.
// Each list is ordered by creation time like AvailableTasks.
func Classify(tree model.GoalTree) Snapshot {
	tasks := tree.Tasks()
	completed := CompletedIDs(tasks)
	snap := Snapshot{
		States:   make(map[string]State, len(tasks)),
		Blockers: make(map[string][]string),
	}
	for _, t := range tasks {
		switch {
		case t.Completed:
			snap.Completed = append(snap.Completed, t)
			snap.States[t.ID] = StateCompleted
		case IsAvailable(t, completed):
			snap.Available = append(snap.Available, t)
			snap.States[t.ID] = StateAvailable
		default:
			snap.Blocked = append(snap.Blocked, t)
			snap.States[t.ID] = StateBlocked
			snap.Blockers[t.ID] = Unsatisfied(t, completed)
		}
	}
	order := tree.MilestoneOrder()
	sortByCreation(snap.Completed, order)
	sortByCreation(snap.Available, order)
	sortByCreation(snap.Blocked, order)
	return snap
}

// Unsatisfied returns the dependency ids of t that are not in completed,
// in dependency order.
func Unsatisfied(t model.Task, completed IDSet) []string {
	var out []string
	for _, dep := range t.DependsOn {
		if !completed.Has(dep) {
			out = append(out, dep)
		}
	}
	return out
}
