package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/goalpath/internal/graph"
	"github.com/metalagman/goalpath/internal/model"
	"github.com/rs/zerolog/log"
)

// ParseDeadline accepts RFC3339 timestamps and plain YYYY-MM-DD dates and
// returns the instant in UTC. An empty value means no deadline.
func ParseDeadline(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &ValidationError{Field: "deadline", Reason: fmt.Sprintf("%q is neither RFC3339 nor YYYY-MM-DD", value)}
}

// GoalInput holds the fields of a new goal.
type GoalInput struct {
	Title       string
	Description string
	Deadline    *time.Time
}

// GoalPatch holds targeted goal edits. Nil fields are left unchanged.
type GoalPatch struct {
	Title         *string
	Description   *string
	Deadline      *time.Time
	ClearDeadline bool
}

// CreateGoal stores a new goal for the owner.
func (t *Tracker) CreateGoal(ctx context.Context, in GoalInput) (model.Goal, error) {
	title, err := requireTitle(in.Title)
	if err != nil {
		return model.Goal{}, err
	}
	now := t.timestamp()
	g := model.Goal{
		ID:          t.newID(),
		UserID:      t.owner,
		Title:       title,
		Description: in.Description,
		Deadline:    utcPtr(in.Deadline),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.store.CreateGoal(ctx, g); err != nil {
		return model.Goal{}, fromStore("create goal", "goal", g.ID, err)
	}
	log.Info().Str("goal_id", g.ID).Str("title", g.Title).Msg("goal created")
	return g, nil
}

// UpdateGoal replaces title, description and deadline of an existing goal.
func (t *Tracker) UpdateGoal(ctx context.Context, g model.Goal) (model.Goal, error) {
	id, err := requireID("id", g.ID)
	if err != nil {
		return model.Goal{}, err
	}
	title, err := requireTitle(g.Title)
	if err != nil {
		return model.Goal{}, err
	}
	current, err := t.store.Goal(ctx, t.owner, id)
	if err != nil {
		return model.Goal{}, fromStore("read goal", "goal", id, err)
	}
	current.Title = title
	current.Description = g.Description
	current.Deadline = utcPtr(g.Deadline)
	return t.saveGoal(ctx, current)
}

// EditGoal applies a patch to an existing goal.
func (t *Tracker) EditGoal(ctx context.Context, id string, p GoalPatch) (model.Goal, error) {
	id, err := requireID("goal_id", id)
	if err != nil {
		return model.Goal{}, err
	}
	current, err := t.store.Goal(ctx, t.owner, id)
	if err != nil {
		return model.Goal{}, fromStore("read goal", "goal", id, err)
	}
	if p.Title != nil {
		if current.Title, err = requireTitle(*p.Title); err != nil {
			return model.Goal{}, err
		}
	}
	if p.Description != nil {
		current.Description = *p.Description
	}
	switch {
	case p.ClearDeadline:
		current.Deadline = nil
	case p.Deadline != nil:
		current.Deadline = utcPtr(p.Deadline)
	}
	return t.saveGoal(ctx, current)
}

func (t *Tracker) saveGoal(ctx context.Context, g model.Goal) (model.Goal, error) {
	g.UpdatedAt = t.timestamp()
	if err := t.store.UpdateGoal(ctx, g); err != nil {
		return model.Goal{}, fromStore("update goal", "goal", g.ID, err)
	}
	log.Info().Str("goal_id", g.ID).Msg("goal updated")
	return g, nil
}

// DeleteGoal removes a goal with its milestones and tasks.
func (t *Tracker) DeleteGoal(ctx context.Context, id string) error {
	id, err := requireID("goal_id", id)
	if err != nil {
		return err
	}
	unlock := t.goals.Lock(id)
	defer unlock()

	if err := t.store.DeleteGoal(ctx, t.owner, id); err != nil {
		return fromStore("delete goal", "goal", id, err)
	}
	log.Info().Str("goal_id", id).Msg("goal deleted")
	return nil
}

// Goals lists the owner's goals, oldest first.
func (t *Tracker) Goals(ctx context.Context) ([]model.Goal, error) {
	goals, err := t.store.GoalsForUser(ctx, t.owner)
	if err != nil {
		return nil, fromStore("list goals", "user", t.owner, err)
	}
	return goals, nil
}

// Goal fetches one goal.
func (t *Tracker) Goal(ctx context.Context, id string) (model.Goal, error) {
	g, err := t.store.Goal(ctx, t.owner, id)
	if err != nil {
		return model.Goal{}, fromStore("read goal", "goal", id, err)
	}
	return g, nil
}

// GoalTree loads a goal with its milestones and tasks as one snapshot.
func (t *Tracker) GoalTree(ctx context.Context, id string) (model.GoalTree, error) {
	tree, err := t.store.GoalTree(ctx, t.owner, id)
	if err != nil {
		return model.GoalTree{}, fromStore("load goal tree", "goal", id, err)
	}
	log.Debug().Str("goal_id", id).Int("milestones", len(tree.Milestones)).Msg("goal tree loaded")
	return tree, nil
}

// AvailableTasks returns the goal's actionable tasks, derived from a fresh
// snapshot on every call.
func (t *Tracker) AvailableTasks(ctx context.Context, goalID string) ([]model.Task, error) {
	tree, err := t.GoalTree(ctx, goalID)
	if err != nil {
		return nil, err
	}
	return graph.AvailableTasks(tree), nil
}

// Classify loads the goal and splits its tasks into completed, available and
// blocked.
func (t *Tracker) Classify(ctx context.Context, goalID string) (model.GoalTree, graph.Snapshot, error) {
	tree, err := t.GoalTree(ctx, goalID)
	if err != nil {
		return model.GoalTree{}, graph.Snapshot{}, err
	}
	return tree, graph.Classify(tree), nil
}
