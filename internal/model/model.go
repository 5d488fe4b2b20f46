// Package model defines the goal, milestone and task entities shared by storage,
// the availability engine and the tool dispatcher.
package model

import (
	"slices"
	"time"
)

// Goal is a top-level user objective.
type Goal struct {
	ID          string     `json:"id"                    yaml:"id"`
	UserID      string     `json:"user_id"               yaml:"user_id"`
	Title       string     `json:"title"                 yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"    yaml:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"            yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"            yaml:"updated_at"`
}

// SameAs reports whether both values describe the same goal.
func (g Goal) SameAs(other Goal) bool {
	return g.ID == other.ID
}

// Milestone is a named phase of a goal.
type Milestone struct {
	ID          string    `json:"id"          yaml:"id"`
	GoalID      string    `json:"goal_id"     yaml:"goal_id"`
	Title       string    `json:"title"       yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Order       int       `json:"order_index" yaml:"order_index"`
	CreatedAt   time.Time `json:"created_at"  yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"  yaml:"updated_at"`
}

// SameAs reports whether both values describe the same milestone.
func (m Milestone) SameAs(other Milestone) bool {
	return m.ID == other.ID
}

// Task is the smallest actionable unit. DependsOn lists the ids of tasks
// that must be completed before this one becomes available.
type Task struct {
	ID               string     `json:"id"                          yaml:"id"`
	MilestoneID      string     `json:"milestone_id"                yaml:"milestone_id"`
	Title            string     `json:"title"                       yaml:"title"`
	Description      string     `json:"description"                 yaml:"description"`
	Completed        bool       `json:"is_completed"                yaml:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"      yaml:"completed_at,omitempty"`
	DependsOn        []string   `json:"dependencies"                yaml:"dependencies"`
	Order            int        `json:"order_index"                 yaml:"order_index"`
	Deadline         *time.Time `json:"deadline,omitempty"          yaml:"deadline,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty" yaml:"estimated_minutes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"                  yaml:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"                  yaml:"updated_at"`
}

// SameAs reports whether both values describe the same task.
func (t Task) SameAs(other Task) bool {
	return t.ID == other.ID
}

// HasDependency reports whether id is in the task's dependency set.
func (t Task) HasDependency(id string) bool {
	return slices.Contains(t.DependsOn, id)
}

// MilestoneTree is a milestone with its tasks in display order.
type MilestoneTree struct {
	Milestone `yaml:",inline"`
	Tasks     []Task `json:"tasks" yaml:"tasks"`
}

// GoalTree is a goal with its milestones and tasks loaded.
type GoalTree struct {
	Goal       `yaml:",inline"`
	Milestones []MilestoneTree `json:"milestones" yaml:"milestones"`
}

// Tasks flattens the tree in milestone order, then task order.
func (g GoalTree) Tasks() []Task {
	n := 0
	for _, m := range g.Milestones {
		n += len(m.Tasks)
	}
	out := make([]Task, 0, n)
	for _, m := range g.Milestones {
		out = append(out, m.Tasks...)
	}
	return out
}

// Task looks up a task anywhere in the goal.
func (g GoalTree) Task(id string) (Task, bool) {
	for _, m := range g.Milestones {
		for _, t := range m.Tasks {
			if t.ID == id {
				return t, true
			}
		}
	}
	return Task{}, false
}

// MilestoneOrder returns the order index of every milestone keyed by id.
func (g GoalTree) MilestoneOrder() map[string]int {
	out := make(map[string]int, len(g.Milestones))
	for _, m := range g.Milestones {
		out[m.ID] = m.Order
	}
	return out
}
