package tools

import (
	"github.com/metalagman/goalpath/internal/graph"
	"github.com/metalagman/goalpath/internal/model"
)

// GoalView is a goal tree annotated with the derived state of every task.
type GoalView struct {
	model.Goal       `yaml:",inline"`
	Milestones       []MilestoneView `json:"milestones"                yaml:"milestones"`
	AvailableTaskIDs []string        `json:"available_task_ids"        yaml:"available_task_ids"`
	CyclicTaskIDs    []string        `json:"cyclic_task_ids,omitempty" yaml:"cyclic_task_ids,omitempty"`
}

// MilestoneView is a milestone with annotated tasks.
type MilestoneView struct {
	model.Milestone `yaml:",inline"`
	Tasks           []TaskView `json:"tasks" yaml:"tasks"`
}

// TaskView is a task with its state and the dependencies still holding it.
type TaskView struct {
	model.Task `yaml:",inline"`
	State      graph.State `json:"state"                yaml:"state"`
	BlockedBy  []string    `json:"blocked_by,omitempty" yaml:"blocked_by,omitempty"`
}

// NewGoalView annotates tree with snap.
func NewGoalView(tree model.GoalTree, snap graph.Snapshot) GoalView {
	v := GoalView{
		Goal:             tree.Goal,
		Milestones:       make([]MilestoneView, 0, len(tree.Milestones)),
		AvailableTaskIDs: make([]string, 0, len(snap.Available)),
	}
	for _, m := range tree.Milestones {
		mv := MilestoneView{Milestone: m.Milestone, Tasks: make([]TaskView, 0, len(m.Tasks))}
		for _, t := range m.Tasks {
			mv.Tasks = append(mv.Tasks, TaskView{Task: t, State: snap.StateOf(t.ID), BlockedBy: snap.Blockers[t.ID]})
		}
		v.Milestones = append(v.Milestones, mv)
	}
	for _, t := range snap.Available {
		v.AvailableTaskIDs = append(v.AvailableTaskIDs, t.ID)
	}
	if cyclic := graph.CyclicTasks(tree.Tasks()); cyclic.Len() > 0 {
		v.CyclicTaskIDs = cyclic.Sorted()
	}
	return v
}
