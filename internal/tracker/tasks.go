package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/goalpath/internal/graph"
	"github.com/metalagman/goalpath/internal/model"
	"github.com/metalagman/goalpath/internal/notify"
	"github.com/rs/zerolog/log"
)

// TaskInput holds the fields of a new task.
type TaskInput struct {
	Title       string
	Description string
	DependsOn   []string
	// ChainToPrevious makes a task without explicit dependencies depend on the
	// last task already in the milestone.
	ChainToPrevious  bool
	Deadline         *time.Time
	EstimatedMinutes *int
}

// TaskPatch holds targeted task edits. Nil fields are left unchanged; a
// non-nil DependsOn replaces the whole dependency set.
type TaskPatch struct {
	Title            *string
	Description      *string
	DependsOn        *[]string
	Deadline         *time.Time
	ClearDeadline    bool
	EstimatedMinutes *int
	ClearEstimate    bool
	Order            *int
}

// CreateTask appends a task to a milestone.
func (t *Tracker) CreateTask(ctx context.Context, milestoneID string, in TaskInput) (model.Task, error) {
	milestoneID, err := requireID("milestone_id", milestoneID)
	if err != nil {
		return model.Task{}, err
	}
	title, err := requireTitle(in.Title)
	if err != nil {
		return model.Task{}, err
	}
	if err := checkEstimate(in.EstimatedMinutes); err != nil {
		return model.Task{}, err
	}
	deps, err := normalizeDependencies(in.DependsOn)
	if err != nil {
		return model.Task{}, err
	}

	goalID, err := t.store.GoalOfMilestone(ctx, t.owner, milestoneID)
	if err != nil {
		return model.Task{}, parentFromStore("read milestone", "milestone_id", "milestone", milestoneID, err)
	}
	unlock := t.goals.Lock(goalID)
	defer unlock()

	tasks, err := t.store.TasksForGoal(ctx, t.owner, goalID)
	if err != nil {
		return model.Task{}, fromStore("read goal tasks", "goal", goalID, err)
	}
	if len(deps) == 0 && in.ChainToPrevious {
		if prev, ok := lastInMilestone(tasks, milestoneID); ok {
			deps = []string{prev.ID}
		}
	}
	id := t.newID()
	if err := checkDependencies(tasks, id, deps); err != nil {
		return model.Task{}, err
	}

	now := t.timestamp()
	created, err := t.store.CreateTask(ctx, t.owner, model.Task{
		ID:               id,
		MilestoneID:      milestoneID,
		Title:            title,
		Description:      in.Description,
		DependsOn:        deps,
		Deadline:         utcPtr(in.Deadline),
		EstimatedMinutes: in.EstimatedMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return model.Task{}, parentFromStore("create task", "milestone_id", "milestone", milestoneID, err)
	}
	log.Info().
		Str("goal_id", goalID).
		Str("milestone_id", milestoneID).
		Str("task_id", created.ID).
		Strs("depends_on", created.DependsOn).
		Msg("task created")
	return created, nil
}

// UpdateTask replaces the editable fields of a task, including its dependency
// set. Completion is never taken from the argument.
func (t *Tracker) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	return t.modifyTask(ctx, task.ID, func(cur *model.Task) error {
		cur.Title = task.Title
		cur.Description = task.Description
		cur.DependsOn = task.DependsOn
		cur.Deadline = utcPtr(task.Deadline)
		cur.EstimatedMinutes = task.EstimatedMinutes
		cur.Order = task.Order
		return nil
	})
}

// EditTask applies a patch to a task.
func (t *Tracker) EditTask(ctx context.Context, id string, p TaskPatch) (model.Task, error) {
	return t.modifyTask(ctx, id, func(cur *model.Task) error {
		if p.Title != nil {
			cur.Title = *p.Title
		}
		if p.Description != nil {
			cur.Description = *p.Description
		}
		if p.DependsOn != nil {
			cur.DependsOn = *p.DependsOn
		}
		switch {
		case p.ClearDeadline:
			cur.Deadline = nil
		case p.Deadline != nil:
			cur.Deadline = utcPtr(p.Deadline)
		}
		switch {
		case p.ClearEstimate:
			cur.EstimatedMinutes = nil
		case p.EstimatedMinutes != nil:
			cur.EstimatedMinutes = p.EstimatedMinutes
		}
		if p.Order != nil {
			cur.Order = *p.Order
		}
		return nil
	})
}

// modifyTask runs a read-modify-write of one task under its goal lock.
func (t *Tracker) modifyTask(ctx context.Context, id string, apply func(*model.Task) error) (model.Task, error) {
	id, err := requireID("task_id", id)
	if err != nil {
		return model.Task{}, err
	}
	goalID, err := t.store.GoalOfTask(ctx, t.owner, id)
	if err != nil {
		return model.Task{}, fromStore("read task", "task", id, err)
	}
	unlock := t.goals.Lock(goalID)
	defer unlock()

	tasks, err := t.store.TasksForGoal(ctx, t.owner, goalID)
	if err != nil {
		return model.Task{}, fromStore("read goal tasks", "goal", goalID, err)
	}
	current, ok := findTask(tasks, id)
	if !ok {
		return model.Task{}, &NotFoundError{Kind: "task", ID: id}
	}

	next := current
	next.DependsOn = append([]string(nil), current.DependsOn...)
	if err := apply(&next); err != nil {
		return model.Task{}, err
	}
	if next.Title, err = requireTitle(next.Title); err != nil {
		return model.Task{}, err
	}
	if err := checkEstimate(next.EstimatedMinutes); err != nil {
		return model.Task{}, err
	}
	if next.Order < 0 {
		return model.Task{}, &ValidationError{Field: "order_index", Reason: "must not be negative"}
	}
	if next.DependsOn, err = normalizeDependencies(next.DependsOn); err != nil {
		return model.Task{}, err
	}
	if err := checkDependencies(tasks, id, next.DependsOn); err != nil {
		return model.Task{}, err
	}

	next.ID = current.ID
	next.MilestoneID = current.MilestoneID
	next.Completed = current.Completed
	next.CompletedAt = current.CompletedAt
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = t.timestamp()
	if err := t.store.UpdateTask(ctx, t.owner, next); err != nil {
		return model.Task{}, fromStore("update task", "task", id, err)
	}
	log.Info().Str("task_id", id).Strs("depends_on", next.DependsOn).Msg("task updated")
	return next, nil
}

// ToggleTaskCompletion flips a task between open and completed. A task that
// becomes completed is reported to the notifier; notifier failures are logged
// and never fail the toggle.
func (t *Tracker) ToggleTaskCompletion(ctx context.Context, id string) (model.Task, error) {
	id, err := requireID("task_id", id)
	if err != nil {
		return model.Task{}, err
	}
	task, err := t.store.ToggleTask(ctx, t.owner, id, t.timestamp())
	if err != nil {
		return model.Task{}, fromStore("toggle task", "task", id, err)
	}
	log.Info().Str("task_id", id).Bool("completed", task.Completed).Msg("task toggled")
	if task.Completed {
		t.notifyCompleted(ctx, task)
	}
	return task, nil
}

// CompleteTask marks a task completed. Already completed tasks are returned
// unchanged and are not reported again.
func (t *Tracker) CompleteTask(ctx context.Context, id string) (model.Task, error) {
	id, err := requireID("task_id", id)
	if err != nil {
		return model.Task{}, err
	}
	task, changed, err := t.store.CompleteTask(ctx, t.owner, id, t.timestamp())
	if err != nil {
		return model.Task{}, fromStore("complete task", "task", id, err)
	}
	if !changed {
		log.Debug().Str("task_id", id).Msg("task already completed")
		return task, nil
	}
	log.Info().Str("task_id", id).Msg("task completed")
	t.notifyCompleted(ctx, task)
	return task, nil
}

func (t *Tracker) notifyCompleted(ctx context.Context, task model.Task) {
	if t.notifier == nil || task.CompletedAt == nil {
		return
	}
	event := notify.CompletionEvent{
		TaskID:      task.ID,
		MilestoneID: task.MilestoneID,
		Title:       task.Title,
		CompletedAt: *task.CompletedAt,
	}
	if err := t.notifier.TaskCompleted(context.WithoutCancel(ctx), event); err != nil {
		log.Warn().Err(err).Str("task_id", task.ID).Msg("completion notification failed")
	}
}

// DeleteTask removes a task. Every task that depended on it loses that edge.
func (t *Tracker) DeleteTask(ctx context.Context, id string) error {
	id, err := requireID("task_id", id)
	if err != nil {
		return err
	}
	goalID, err := t.store.GoalOfTask(ctx, t.owner, id)
	if err != nil {
		return fromStore("read task", "task", id, err)
	}
	unlock := t.goals.Lock(goalID)
	defer unlock()

	if err := t.store.DeleteTask(ctx, t.owner, id, t.timestamp()); err != nil {
		return fromStore("delete task", "task", id, err)
	}
	log.Info().Str("goal_id", goalID).Str("task_id", id).Msg("task deleted")
	return nil
}

// Task fetches one task.
func (t *Tracker) Task(ctx context.Context, id string) (model.Task, error) {
	task, err := t.store.Task(ctx, t.owner, id)
	if err != nil {
		return model.Task{}, fromStore("read task", "task", id, err)
	}
	return task, nil
}

// MaxEstimateMinutes caps a task estimate at one year.
const MaxEstimateMinutes = 365 * 24 * 60

func checkEstimate(minutes *int) error {
	switch {
	case minutes == nil:
		return nil
	case *minutes <= 0:
		return &ValidationError{Field: "estimated_minutes", Reason: "must be positive"}
	case *minutes > MaxEstimateMinutes:
		return &ValidationError{Field: "estimated_minutes", Reason: fmt.Sprintf("must not exceed %d", MaxEstimateMinutes)}
	}
	return nil
}

// normalizeDependencies trims ids and drops duplicates, keeping first
// occurrence order.
func normalizeDependencies(deps []string) ([]string, error) {
	out := make([]string, 0, len(deps))
	seen := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			return nil, &ValidationError{Field: "dependencies", Reason: "contains an empty id"}
		}
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}
	return out, nil
}

// checkDependencies validates a dependency set for taskID against the goal's
// current tasks.
func checkDependencies(tasks []model.Task, taskID string, deps []string) error {
	known := make(graph.IDSet, len(tasks))
	for _, task := range tasks {
		known.Add(task.ID)
	}
	for _, dep := range deps {
		if dep == taskID {
			return &GraphIntegrityError{TaskID: taskID, Path: []string{taskID, taskID}}
		}
		if !known.Has(dep) {
			return &ValidationError{Field: "dependencies", Reason: fmt.Sprintf("task %s does not exist in this goal", dep)}
		}
	}
	if path := graph.FindCyclePath(tasks, taskID, deps); path != nil {
		return &GraphIntegrityError{TaskID: taskID, Path: path}
	}
	return nil
}

func findTask(tasks []model.Task, id string) (model.Task, bool) {
	for _, task := range tasks {
		if task.ID == id {
			return task, true
		}
	}
	return model.Task{}, false
}

func lastInMilestone(tasks []model.Task, milestoneID string) (model.Task, bool) {
	var last model.Task
	found := false
	for _, task := range tasks {
		if task.MilestoneID != milestoneID {
			continue
		}
		if !found || task.Order >= last.Order {
			last = task
			found = true
		}
	}
	return last, found
}
