package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/goalpath/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when inserting an id that already exists.
	ErrDuplicate = errors.New("duplicate id")
	// ErrDependencyNotFound is returned when a dependency id does not resolve to
	// a task of the same goal.
	ErrDependencyNotFound = errors.New("dependency not found")
)

// Store persists goals, milestones and tasks. Every read and write is scoped
// by the owning user id; rows of other users behave as missing.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

const goalColumns = `id, user_id, title, description, deadline, created_at, updated_at`

// GoalsForUser returns the user's goals, oldest first.
func (s *Store) GoalsForUser(ctx context.Context, userID string) ([]model.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id=? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()
	var out []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

// Goal fetches one goal.
func (s *Store) Goal(ctx context.Context, userID, id string) (model.Goal, error) {
	return goalByID(ctx, s.db, userID, id)
}

func goalByID(ctx context.Context, q querier, userID, id string) (model.Goal, error) {
	row := q.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id=? AND user_id=?`, id, userID)
	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Goal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
		}
		return model.Goal{}, err
	}
	return g, nil
}

// CreateGoal inserts a goal.
func (s *Store) CreateGoal(ctx context.Context, g model.Goal) error {
	return s.inTx(ctx, "create goal", func(tx *sql.Tx) error {
		if err := ensureAbsent(ctx, tx, "goals", g.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO goals(`+goalColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.UserID, g.Title, g.Description, nullableTime(g.Deadline), formatTime(g.CreatedAt), formatTime(g.UpdatedAt)); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
		return nil
	})
}

// UpdateGoal replaces the mutable fields of a goal.
func (s *Store) UpdateGoal(ctx context.Context, g model.Goal) error {
	res, err := s.db.ExecContext(ctx, `UPDATE goals SET title=?, description=?, deadline=?, updated_at=? WHERE id=? AND user_id=?`,
		g.Title, g.Description, nullableTime(g.Deadline), formatTime(g.UpdatedAt), g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return expectRow(res, "goal", g.ID)
}

// DeleteGoal removes a goal with all of its milestones, tasks and edges.
func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	return s.inTx(ctx, "delete goal", func(tx *sql.Tx) error {
		if _, err := goalByID(ctx, tx, userID, id); err != nil {
			return err
		}
		const goalTasks = `SELECT t.id FROM tasks t JOIN milestones m ON m.id=t.milestone_id WHERE m.goal_id=?`
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id IN (`+goalTasks+`) OR depends_on_id IN (`+goalTasks+`)`, id, id); err != nil {
			return fmt.Errorf("delete goal dependencies: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE milestone_id IN (SELECT id FROM milestones WHERE goal_id=?)`, id); err != nil {
			return fmt.Errorf("delete goal tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM milestones WHERE goal_id=?`, id); err != nil {
			return fmt.Errorf("delete goal milestones: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id=?`, id); err != nil {
			return fmt.Errorf("delete goal: %w", err)
		}
		return nil
	})
}

// GoalTree loads a goal with its milestones and tasks from one read transaction,
// so the snapshot never mixes states from before and after a concurrent write.
func (s *Store) GoalTree(ctx context.Context, userID, id string) (model.GoalTree, error) {
	var tree model.GoalTree
	err := s.inTx(ctx, "load goal tree", func(tx *sql.Tx) error {
		g, err := goalByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		milestones, err := milestonesForGoal(ctx, tx, id)
		if err != nil {
			return err
		}
		tasks, err := tasksForGoal(ctx, tx, id)
		if err != nil {
			return err
		}
		byMilestone := make(map[string][]model.Task, len(milestones))
		for _, t := range tasks {
			byMilestone[t.MilestoneID] = append(byMilestone[t.MilestoneID], t)
		}
		tree.Goal = g
		tree.Milestones = make([]model.MilestoneTree, 0, len(milestones))
		for _, m := range milestones {
			tree.Milestones = append(tree.Milestones, model.MilestoneTree{Milestone: m, Tasks: byMilestone[m.ID]})
		}
		return nil
	})
	if err != nil {
		return model.GoalTree{}, err
	}
	return tree, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(row scanner) (model.Goal, error) {
	var g model.Goal
	var deadline sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &deadline, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Goal{}, err
		}
		return model.Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	var err error
	if g.Deadline, err = parseNullableTime(deadline); err != nil {
		return model.Goal{}, err
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Goal{}, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Goal{}, err
	}
	return g, nil
}

// ensureAbsent rejects inserts of an id that is already taken. Retried writes
// surface as ErrDuplicate instead of creating a second row.
func ensureAbsent(ctx context.Context, q querier, table, id string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id=?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check %s id: %w", table, err)
	}
	if n > 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrDuplicate)
	}
	return nil
}

func expectRow(res sql.Result, kind, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	return t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
