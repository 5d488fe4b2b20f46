package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/goalpath/internal/model"
)

const taskColumns = `t.id, t.milestone_id, t.title, t.description, t.is_completed, t.completed_at,
	t.order_index, t.deadline, t.estimated_minutes, t.created_at, t.updated_at`

// TasksForMilestone returns a milestone's tasks in order.
func (s *Store) TasksForMilestone(ctx context.Context, userID, milestoneID string) ([]model.Task, error) {
	if _, err := milestoneByID(ctx, s.db, userID, milestoneID); err != nil {
		return nil, err
	}
	tasks, err := queryTasks(ctx, s.db, `SELECT `+taskColumns+` FROM tasks t WHERE t.milestone_id=?
		ORDER BY t.order_index, t.created_at, t.id`, milestoneID)
	if err != nil {
		return nil, err
	}
	deps, err := queryDependencies(ctx, s.db, `SELECT d.task_id, d.depends_on_id FROM task_dependencies d
		JOIN tasks t ON t.id=d.task_id WHERE t.milestone_id=? ORDER BY d.task_id, d.position`, milestoneID)
	if err != nil {
		return nil, err
	}
	return attachDependencies(tasks, deps), nil
}

// TasksForGoal returns every task of a goal in milestone order, then task order.
func (s *Store) TasksForGoal(ctx context.Context, userID, goalID string) ([]model.Task, error) {
	if _, err := goalByID(ctx, s.db, userID, goalID); err != nil {
		return nil, err
	}
	return tasksForGoal(ctx, s.db, goalID)
}

func tasksForGoal(ctx context.Context, q querier, goalID string) ([]model.Task, error) {
	tasks, err := queryTasks(ctx, q, `SELECT `+taskColumns+` FROM tasks t JOIN milestones m ON m.id=t.milestone_id
		WHERE m.goal_id=? ORDER BY m.order_index, m.created_at, t.order_index, t.created_at, t.id`, goalID)
	if err != nil {
		return nil, err
	}
	deps, err := queryDependencies(ctx, q, `SELECT d.task_id, d.depends_on_id FROM task_dependencies d
		JOIN tasks t ON t.id=d.task_id JOIN milestones m ON m.id=t.milestone_id
		WHERE m.goal_id=? ORDER BY d.task_id, d.position`, goalID)
	if err != nil {
		return nil, err
	}
	return attachDependencies(tasks, deps), nil
}

// Task fetches one task with its dependencies.
func (s *Store) Task(ctx context.Context, userID, id string) (model.Task, error) {
	return taskByID(ctx, s.db, userID, id)
}

func taskByID(ctx context.Context, q querier, userID, id string) (model.Task, error) {
	tasks, err := queryTasks(ctx, q, `SELECT `+taskColumns+` FROM tasks t
		JOIN milestones m ON m.id=t.milestone_id JOIN goals g ON g.id=m.goal_id
		WHERE t.id=? AND g.user_id=?`, id, userID)
	if err != nil {
		return model.Task{}, err
	}
	if len(tasks) == 0 {
		return model.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	deps, err := queryDependencies(ctx, q, `SELECT d.task_id, d.depends_on_id FROM task_dependencies d
		WHERE d.task_id=? ORDER BY d.position`, id)
	if err != nil {
		return model.Task{}, err
	}
	return attachDependencies(tasks, deps)[0], nil
}

// GoalOfMilestone returns the id of the goal owning a milestone.
func (s *Store) GoalOfMilestone(ctx context.Context, userID, milestoneID string) (string, error) {
	m, err := milestoneByID(ctx, s.db, userID, milestoneID)
	if err != nil {
		return "", err
	}
	return m.GoalID, nil
}

// GoalOfTask returns the id of the goal owning a task.
func (s *Store) GoalOfTask(ctx context.Context, userID, taskID string) (string, error) {
	var goalID string
	err := s.db.QueryRowContext(ctx, `SELECT g.id FROM tasks t
		JOIN milestones m ON m.id=t.milestone_id JOIN goals g ON g.id=m.goal_id
		WHERE t.id=? AND g.user_id=?`, taskID, userID).Scan(&goalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		return "", fmt.Errorf("read task goal: %w", err)
	}
	return goalID, nil
}

// CreateTask appends a task to its milestone. The order index is the number of
// existing siblings. Every dependency must be a task of the same goal.
func (s *Store) CreateTask(ctx context.Context, userID string, t model.Task) (model.Task, error) {
	err := s.inTx(ctx, "create task", func(tx *sql.Tx) error {
		m, err := milestoneByID(ctx, tx, userID, t.MilestoneID)
		if err != nil {
			return err
		}
		if err := ensureAbsent(ctx, tx, "tasks", t.ID); err != nil {
			return err
		}
		if err := ensureDependencies(ctx, tx, m.GoalID, t.DependsOn); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE milestone_id=?`, t.MilestoneID).Scan(&t.Order); err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(id, milestone_id, title, description, is_completed, completed_at,
			order_index, deadline, estimated_minutes, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.MilestoneID, t.Title, t.Description, t.Completed, nullableTime(t.CompletedAt),
			t.Order, nullableTime(t.Deadline), nullableInt(t.EstimatedMinutes), formatTime(t.CreatedAt), formatTime(t.UpdatedAt)); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return insertDependencies(ctx, tx, t.ID, t.DependsOn)
	})
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// UpdateTask replaces the editable fields and the dependency set of a task.
// Completion state is left untouched; only ToggleTask changes it.
func (s *Store) UpdateTask(ctx context.Context, userID string, t model.Task) error {
	return s.inTx(ctx, "update task", func(tx *sql.Tx) error {
		var goalID string
		if err := tx.QueryRowContext(ctx, `SELECT g.id FROM tasks t
			JOIN milestones m ON m.id=t.milestone_id JOIN goals g ON g.id=m.goal_id
			WHERE t.id=? AND g.user_id=?`, t.ID, userID).Scan(&goalID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
			}
			return fmt.Errorf("read task goal: %w", err)
		}
		if err := ensureDependencies(ctx, tx, goalID, t.DependsOn); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, order_index=?, deadline=?, estimated_minutes=?, updated_at=?
			WHERE id=?`,
			t.Title, t.Description, t.Order, nullableTime(t.Deadline), nullableInt(t.EstimatedMinutes), formatTime(t.UpdatedAt), t.ID); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id=?`, t.ID); err != nil {
			return fmt.Errorf("clear dependencies: %w", err)
		}
		return insertDependencies(ctx, tx, t.ID, t.DependsOn)
	})
}

// ToggleTask flips the completion flag. Completing stamps completed_at with
// at; reopening clears it. The updated task is returned.
func (s *Store) ToggleTask(ctx context.Context, userID, id string, at time.Time) (model.Task, error) {
	var out model.Task
	err := s.inTx(ctx, "toggle task", func(tx *sql.Tx) error {
		t, err := taskByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		t.Completed = !t.Completed
		t.CompletedAt = nil
		if t.Completed {
			stamp := at.UTC()
			t.CompletedAt = &stamp
		}
		t.UpdatedAt = at.UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET is_completed=?, completed_at=?, updated_at=? WHERE id=?`,
			t.Completed, nullableTime(t.CompletedAt), formatTime(t.UpdatedAt), id); err != nil {
			return fmt.Errorf("toggle task: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return out, nil
}

// CompleteTask marks a task completed at at. The write only applies to an
// open task, so a concurrent completion is never undone; completed reports
// whether this call made the change.
func (s *Store) CompleteTask(ctx context.Context, userID, id string, at time.Time) (task model.Task, completed bool, err error) {
	err = s.inTx(ctx, "complete task", func(tx *sql.Tx) error {
		if _, err := taskByID(ctx, tx, userID, id); err != nil {
			return err
		}
		stamp := formatTime(at.UTC())
		res, err := tx.ExecContext(ctx, `UPDATE tasks SET is_completed=1, completed_at=?, updated_at=? WHERE id=? AND is_completed=0`,
			stamp, stamp, id)
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		completed = n == 1
		task, err = taskByID(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return model.Task{}, false, err
	}
	return task, completed, nil
}

// DeleteTask removes a task and strips its id from every dependency set that
// referenced it, in one transaction. Former dependents get updated_at=at.
func (s *Store) DeleteTask(ctx context.Context, userID, id string, at time.Time) error {
	return s.inTx(ctx, "delete task", func(tx *sql.Tx) error {
		if _, err := taskByID(ctx, tx, userID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET updated_at=? WHERE id IN (
			SELECT task_id FROM task_dependencies WHERE depends_on_id=?)`, formatTime(at.UTC()), id); err != nil {
			return fmt.Errorf("touch dependents: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id=? OR depends_on_id=?`, id, id); err != nil {
			return fmt.Errorf("delete task dependencies: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

func ensureDependencies(ctx context.Context, q querier, goalID string, deps []string) error {
	for _, dep := range deps {
		var n int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks t JOIN milestones m ON m.id=t.milestone_id
			WHERE t.id=? AND m.goal_id=?`, dep, goalID).Scan(&n); err != nil {
			return fmt.Errorf("check dependency: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("task %s: %w", dep, ErrDependencyNotFound)
		}
	}
	return nil
}

func insertDependencies(ctx context.Context, tx *sql.Tx, taskID string, deps []string) error {
	for i, dep := range deps {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_dependencies(task_id, depends_on_id, position) VALUES(?, ?, ?)`,
			taskID, dep, i); err != nil {
			return fmt.Errorf("insert dependency: %w", err)
		}
	}
	return nil
}

func queryTasks(ctx context.Context, q querier, query string, args ...any) ([]model.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var out []model.Task
	for rows.Next() {
		var t model.Task
		var completedAt, deadline sql.NullString
		var estimate sql.NullInt64
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.MilestoneID, &t.Title, &t.Description, &t.Completed, &completedAt,
			&t.Order, &deadline, &estimate, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if t.CompletedAt, err = parseNullableTime(completedAt); err != nil {
			return nil, err
		}
		if t.Deadline, err = parseNullableTime(deadline); err != nil {
			return nil, err
		}
		if estimate.Valid {
			minutes := int(estimate.Int64)
			t.EstimatedMinutes = &minutes
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func queryDependencies(ctx context.Context, q querier, query string, args ...any) (map[string][]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var taskID, dependsOn string
		if err := rows.Scan(&taskID, &dependsOn); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		out[taskID] = append(out[taskID], dependsOn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependencies: %w", err)
	}
	return out, nil
}

func attachDependencies(tasks []model.Task, deps map[string][]string) []model.Task {
	for i := range tasks {
		tasks[i].DependsOn = deps[tasks[i].ID]
		if tasks[i].DependsOn == nil {
			tasks[i].DependsOn = []string{}
		}
	}
	return tasks
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
