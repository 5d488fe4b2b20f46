package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/goalpath/internal/tracker"
)

// Decomposition is an assistant-generated goal broken into milestones and
// dependency-ordered tasks.
type Decomposition struct {
	Summary    string          `json:"summary" yaml:"summary"`
	Goal       GoalPlan        `json:"goal" yaml:"goal"`
	Milestones []MilestonePlan `json:"milestones" yaml:"milestones"`
}

// Validate checks titles, deadlines and task keys. A task may only depend on
// keys of tasks listed before it.
func (d Decomposition) Validate() error {
	if err := d.Goal.Validate(); err != nil {
		return fmt.Errorf("goal: %w", err)
	}
	if len(d.Milestones) == 0 {
		return fmt.Errorf("at least one milestone is required")
	}
	seen := make(map[string]bool)
	for i, m := range d.Milestones {
		if strings.TrimSpace(m.Title) == "" {
			return fmt.Errorf("milestone[%d]: title is required", i)
		}
		for j, t := range m.Tasks {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("milestone[%d].task[%d]: %w", i, j, err)
			}
			for _, dep := range t.DependsOn {
				if !seen[strings.TrimSpace(dep)] {
					return fmt.Errorf("milestone[%d].task[%d]: depends on unknown or later task %q", i, j, dep)
				}
			}
			key := strings.TrimSpace(t.Key)
			if key == "" {
				continue
			}
			if seen[key] {
				return fmt.Errorf("milestone[%d].task[%d]: duplicate key %q", i, j, key)
			}
			seen[key] = true
		}
	}
	return nil
}

// TaskCount returns the number of tasks across all milestones.
func (d Decomposition) TaskCount() int {
	n := 0
	for _, m := range d.Milestones {
		n += len(m.Tasks)
	}
	return n
}

type GoalPlan struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Deadline    string `json:"deadline,omitempty" yaml:"deadline,omitempty"`
}

func (g GoalPlan) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if _, err := g.deadline(); err != nil {
		return err
	}
	return nil
}

func (g GoalPlan) deadline() (*time.Time, error) {
	return tracker.ParseDeadline(g.Deadline)
}

type MilestonePlan struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Tasks       []TaskPlan `json:"tasks" yaml:"tasks"`
}

// TaskPlan is one planned task. Key names the task for DependsOn references
// inside the plan. A nil DependsOn chains the task to the previous task of its
// milestone; an empty, non-nil one means no dependencies.
type TaskPlan struct {
	Key              string   `json:"key,omitempty" yaml:"key,omitempty"`
	Title            string   `json:"title" yaml:"title"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	DependsOn        []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes,omitempty" yaml:"estimated_minutes,omitempty"`
}

func (t TaskPlan) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if t.EstimatedMinutes < 0 {
		return fmt.Errorf("estimated_minutes must not be negative")
	}
	return nil
}
