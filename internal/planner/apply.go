package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/metalagman/goalpath/internal/model"
	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/rs/zerolog/log"
)

// Writer defines the tracker operations needed to import a plan.
type Writer interface {
	CreateGoal(ctx context.Context, in tracker.GoalInput) (model.Goal, error)
	CreateMilestone(ctx context.Context, goalID string, in tracker.MilestoneInput) (model.Milestone, error)
	CreateTask(ctx context.Context, milestoneID string, in tracker.TaskInput) (model.Task, error)
	DeleteGoal(ctx context.Context, id string) error
}

// Planner imports decompositions through a Writer.
type Planner struct {
	writer Writer
}

func NewPlanner(writer Writer) *Planner {
	return &Planner{writer: writer}
}

type ApplyResult struct {
	GoalID     string             `json:"goal_id"`
	Milestones []AppliedMilestone `json:"milestones"`
	// TaskIDs maps plan keys to the ids of the created tasks.
	TaskIDs map[string]string `json:"task_ids,omitempty"`
}

type AppliedMilestone struct {
	MilestoneID string   `json:"milestone_id"`
	TaskIDs     []string `json:"task_ids"`
}

// Apply creates the goal, its milestones and tasks. If any step fails the
// partially created goal is deleted again.
func (p *Planner) Apply(ctx context.Context, plan Decomposition) (ApplyResult, error) {
	if p.writer == nil {
		return ApplyResult{}, fmt.Errorf("writer is required")
	}
	if err := plan.Validate(); err != nil {
		return ApplyResult{}, err
	}
	deadline, err := plan.Goal.deadline()
	if err != nil {
		return ApplyResult{}, err
	}

	description := strings.TrimSpace(plan.Goal.Description)
	if description == "" {
		description = strings.TrimSpace(plan.Summary)
	}
	goal, err := p.writer.CreateGoal(ctx, tracker.GoalInput{
		Title:       plan.Goal.Title,
		Description: description,
		Deadline:    deadline,
	})
	if err != nil {
		return ApplyResult{}, fmt.Errorf("create goal: %w", err)
	}

	res, err := p.fill(ctx, goal.ID, plan)
	if err != nil {
		if derr := p.writer.DeleteGoal(context.WithoutCancel(ctx), goal.ID); derr != nil {
			log.Error().Err(derr).Str("goal_id", goal.ID).Msg("failed to remove partially imported goal")
		}
		return ApplyResult{}, err
	}
	log.Info().
		Str("goal_id", goal.ID).
		Int("milestones", len(res.Milestones)).
		Int("tasks", plan.TaskCount()).
		Msg("plan imported")
	return res, nil
}

func (p *Planner) fill(ctx context.Context, goalID string, plan Decomposition) (ApplyResult, error) {
	res := ApplyResult{
		GoalID:     goalID,
		Milestones: make([]AppliedMilestone, 0, len(plan.Milestones)),
		TaskIDs:    make(map[string]string),
	}
	for _, mp := range plan.Milestones {
		milestone, err := p.writer.CreateMilestone(ctx, goalID, tracker.MilestoneInput{
			Title:       mp.Title,
			Description: mp.Description,
		})
		if err != nil {
			return ApplyResult{}, fmt.Errorf("create milestone %q: %w", mp.Title, err)
		}

		applied := AppliedMilestone{
			MilestoneID: milestone.ID,
			TaskIDs:     make([]string, 0, len(mp.Tasks)),
		}
		for _, tp := range mp.Tasks {
			deps := resolve(tp.DependsOn, res.TaskIDs)
			if tp.DependsOn == nil && len(applied.TaskIDs) > 0 {
				deps = []string{applied.TaskIDs[len(applied.TaskIDs)-1]}
			}
			in := tracker.TaskInput{
				Title:       tp.Title,
				Description: tp.Description,
				DependsOn:   deps,
			}
			if tp.EstimatedMinutes > 0 {
				minutes := tp.EstimatedMinutes
				in.EstimatedMinutes = &minutes
			}
			created, err := p.writer.CreateTask(ctx, milestone.ID, in)
			if err != nil {
				return ApplyResult{}, fmt.Errorf("create task %q: %w", tp.Title, err)
			}
			applied.TaskIDs = append(applied.TaskIDs, created.ID)
			if key := strings.TrimSpace(tp.Key); key != "" {
				res.TaskIDs[key] = created.ID
			}
		}
		res.Milestones = append(res.Milestones, applied)
	}
	return res, nil
}

func resolve(keys []string, ids map[string]string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, ids[strings.TrimSpace(key)])
	}
	return out
}
