package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/goalpath/internal/model"
)

const milestoneColumns = `m.id, m.goal_id, m.title, m.description, m.order_index, m.created_at, m.updated_at`

// MilestonesForGoal returns a goal's milestones in order.
func (s *Store) MilestonesForGoal(ctx context.Context, userID, goalID string) ([]model.Milestone, error) {
	if _, err := goalByID(ctx, s.db, userID, goalID); err != nil {
		return nil, err
	}
	return milestonesForGoal(ctx, s.db, goalID)
}

func milestonesForGoal(ctx context.Context, q querier, goalID string) ([]model.Milestone, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+milestoneColumns+` FROM milestones m WHERE m.goal_id=?
		ORDER BY m.order_index, m.created_at, m.id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer rows.Close()
	var out []model.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return out, nil
}

// Milestone fetches one milestone.
func (s *Store) Milestone(ctx context.Context, userID, id string) (model.Milestone, error) {
	return milestoneByID(ctx, s.db, userID, id)
}

func milestoneByID(ctx context.Context, q querier, userID, id string) (model.Milestone, error) {
	row := q.QueryRowContext(ctx, `SELECT `+milestoneColumns+` FROM milestones m JOIN goals g ON g.id=m.goal_id
		WHERE m.id=? AND g.user_id=?`, id, userID)
	m, err := scanMilestone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Milestone{}, fmt.Errorf("milestone %s: %w", id, ErrNotFound)
		}
		return model.Milestone{}, err
	}
	return m, nil
}

// CreateMilestone appends a milestone to its goal. The order index is the
// number of milestones the goal already has, read in the same transaction.
func (s *Store) CreateMilestone(ctx context.Context, userID string, m model.Milestone) (model.Milestone, error) {
	err := s.inTx(ctx, "create milestone", func(tx *sql.Tx) error {
		if _, err := goalByID(ctx, tx, userID, m.GoalID); err != nil {
			return err
		}
		if err := ensureAbsent(ctx, tx, "milestones", m.ID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM milestones WHERE goal_id=?`, m.GoalID).Scan(&m.Order); err != nil {
			return fmt.Errorf("count milestones: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO milestones(id, goal_id, title, description, order_index, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.GoalID, m.Title, m.Description, m.Order, formatTime(m.CreatedAt), formatTime(m.UpdatedAt)); err != nil {
			return fmt.Errorf("insert milestone: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Milestone{}, err
	}
	return m, nil
}

// UpdateMilestone replaces title, description and order of a milestone.
func (s *Store) UpdateMilestone(ctx context.Context, userID string, m model.Milestone) error {
	res, err := s.db.ExecContext(ctx, `UPDATE milestones SET title=?, description=?, order_index=?, updated_at=?
		WHERE id=? AND goal_id IN (SELECT id FROM goals WHERE user_id=?)`,
		m.Title, m.Description, m.Order, formatTime(m.UpdatedAt), m.ID, userID)
	if err != nil {
		return fmt.Errorf("update milestone: %w", err)
	}
	return expectRow(res, "milestone", m.ID)
}

// DeleteMilestone removes a milestone and its tasks. Tasks elsewhere in the
// goal that depended on a removed task lose that dependency and get
// updated_at=at.
func (s *Store) DeleteMilestone(ctx context.Context, userID, id string, at time.Time) error {
	return s.inTx(ctx, "delete milestone", func(tx *sql.Tx) error {
		if _, err := milestoneByID(ctx, tx, userID, id); err != nil {
			return err
		}
		const milestoneTasks = `SELECT id FROM tasks WHERE milestone_id=?`
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET updated_at=? WHERE milestone_id!=? AND id IN (
			SELECT task_id FROM task_dependencies WHERE depends_on_id IN (`+milestoneTasks+`))`,
			formatTime(at.UTC()), id, id); err != nil {
			return fmt.Errorf("touch dependents: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id IN (`+milestoneTasks+`) OR depends_on_id IN (`+milestoneTasks+`)`, id, id); err != nil {
			return fmt.Errorf("delete milestone dependencies: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE milestone_id=?`, id); err != nil {
			return fmt.Errorf("delete milestone tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM milestones WHERE id=?`, id); err != nil {
			return fmt.Errorf("delete milestone: %w", err)
		}
		return nil
	})
}

func scanMilestone(row scanner) (model.Milestone, error) {
	var m model.Milestone
	var createdAt, updatedAt string
	if err := row.Scan(&m.ID, &m.GoalID, &m.Title, &m.Description, &m.Order, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Milestone{}, err
		}
		return model.Milestone{}, fmt.Errorf("scan milestone: %w", err)
	}
	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Milestone{}, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Milestone{}, err
	}
	return m, nil
}
