package tracker

import (
	"context"

	"github.com/metalagman/goalpath/internal/model"
	"github.com/rs/zerolog/log"
)

// MilestoneInput holds the fields of a new milestone.
type MilestoneInput struct {
	Title       string
	Description string
}

// MilestonePatch holds targeted milestone edits.
type MilestonePatch struct {
	Title       *string
	Description *string
	Order       *int
}

// CreateMilestone appends a milestone to a goal.
func (t *Tracker) CreateMilestone(ctx context.Context, goalID string, in MilestoneInput) (model.Milestone, error) {
	goalID, err := requireID("goal_id", goalID)
	if err != nil {
		return model.Milestone{}, err
	}
	title, err := requireTitle(in.Title)
	if err != nil {
		return model.Milestone{}, err
	}
	unlock := t.goals.Lock(goalID)
	defer unlock()

	now := t.timestamp()
	m, err := t.store.CreateMilestone(ctx, t.owner, model.Milestone{
		ID:          t.newID(),
		GoalID:      goalID,
		Title:       title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return model.Milestone{}, parentFromStore("create milestone", "goal_id", "goal", goalID, err)
	}
	log.Info().Str("goal_id", goalID).Str("milestone_id", m.ID).Int("order", m.Order).Msg("milestone created")
	return m, nil
}

// UpdateMilestone replaces title, description and order of a milestone.
func (t *Tracker) UpdateMilestone(ctx context.Context, m model.Milestone) (model.Milestone, error) {
	id, err := requireID("id", m.ID)
	if err != nil {
		return model.Milestone{}, err
	}
	title, err := requireTitle(m.Title)
	if err != nil {
		return model.Milestone{}, err
	}
	if m.Order < 0 {
		return model.Milestone{}, &ValidationError{Field: "order_index", Reason: "must not be negative"}
	}
	current, err := t.store.Milestone(ctx, t.owner, id)
	if err != nil {
		return model.Milestone{}, fromStore("read milestone", "milestone", id, err)
	}
	current.Title = title
	current.Description = m.Description
	current.Order = m.Order
	return t.saveMilestone(ctx, current)
}

// EditMilestone applies a patch to a milestone.
func (t *Tracker) EditMilestone(ctx context.Context, id string, p MilestonePatch) (model.Milestone, error) {
	id, err := requireID("milestone_id", id)
	if err != nil {
		return model.Milestone{}, err
	}
	current, err := t.store.Milestone(ctx, t.owner, id)
	if err != nil {
		return model.Milestone{}, fromStore("read milestone", "milestone", id, err)
	}
	if p.Title != nil {
		if current.Title, err = requireTitle(*p.Title); err != nil {
			return model.Milestone{}, err
		}
	}
	if p.Description != nil {
		current.Description = *p.Description
	}
	if p.Order != nil {
		if *p.Order < 0 {
			return model.Milestone{}, &ValidationError{Field: "order_index", Reason: "must not be negative"}
		}
		current.Order = *p.Order
	}
	return t.saveMilestone(ctx, current)
}

func (t *Tracker) saveMilestone(ctx context.Context, m model.Milestone) (model.Milestone, error) {
	m.UpdatedAt = t.timestamp()
	if err := t.store.UpdateMilestone(ctx, t.owner, m); err != nil {
		return model.Milestone{}, fromStore("update milestone", "milestone", m.ID, err)
	}
	log.Info().Str("milestone_id", m.ID).Msg("milestone updated")
	return m, nil
}

// DeleteMilestone removes a milestone and its tasks. Tasks in other milestones
// lose their edges to the removed tasks.
func (t *Tracker) DeleteMilestone(ctx context.Context, id string) error {
	id, err := requireID("milestone_id", id)
	if err != nil {
		return err
	}
	goalID, err := t.store.GoalOfMilestone(ctx, t.owner, id)
	if err != nil {
		return fromStore("read milestone", "milestone", id, err)
	}
	unlock := t.goals.Lock(goalID)
	defer unlock()

	if err := t.store.DeleteMilestone(ctx, t.owner, id, t.timestamp()); err != nil {
		return fromStore("delete milestone", "milestone", id, err)
	}
	log.Info().Str("goal_id", goalID).Str("milestone_id", id).Msg("milestone deleted")
	return nil
}

// Milestones lists a goal's milestones in order.
func (t *Tracker) Milestones(ctx context.Context, goalID string) ([]model.Milestone, error) {
	ms, err := t.store.MilestonesForGoal(ctx, t.owner, goalID)
	if err != nil {
		return nil, fromStore("list milestones", "goal", goalID, err)
	}
	return ms, nil
}

// Tasks lists a milestone's tasks in order.
func (t *Tracker) Tasks(ctx context.Context, milestoneID string) ([]model.Task, error) {
	tasks, err := t.store.TasksForMilestone(ctx, t.owner, milestoneID)
	if err != nil {
		return nil, fromStore("list tasks", "milestone", milestoneID, err)
	}
	return tasks, nil
}
