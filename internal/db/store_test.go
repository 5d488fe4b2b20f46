package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/metalagman/goalpath/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "goalpath.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewStore(conn)
}

func seedGoal(t *testing.T, s *Store, userID, id string) model.Goal {
	t.Helper()
	g := model.Goal{ID: id, UserID: userID, Title: "goal " + id, CreatedAt: created, UpdatedAt: created}
	require.NoError(t, s.CreateGoal(context.Background(), g))
	return g
}

func seedMilestone(t *testing.T, s *Store, userID, goalID, id string) model.Milestone {
	t.Helper()
	m, err := s.CreateMilestone(context.Background(), userID, model.Milestone{
		ID: id, GoalID: goalID, Title: "milestone " + id, CreatedAt: created, UpdatedAt: created,
	})
	require.NoError(t, err)
	return m
}

func seedTask(t *testing.T, s *Store, userID, milestoneID, id string, deps ...string) model.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), userID, model.Task{
		ID: id, MilestoneID: milestoneID, Title: "task " + id, DependsOn: deps, CreatedAt: created, UpdatedAt: created,
	})
	require.NoError(t, err)
	return task
}

func TestStore_GoalRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	deadline := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	g := model.Goal{
		ID: "g1", UserID: "u1", Title: "Learn Go", Description: "slowly",
		Deadline: &deadline, CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, s.CreateGoal(ctx, g))

	got, err := s.Goal(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, g.Title, got.Title)
	assert.Equal(t, g.Description, got.Description)
	require.NotNil(t, got.Deadline)
	assert.True(t, deadline.Equal(*got.Deadline))
	assert.True(t, created.Equal(got.CreatedAt))

	got.Title = "Learn Go well"
	got.Deadline = nil
	require.NoError(t, s.UpdateGoal(ctx, got))

	again, err := s.Goal(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "Learn Go well", again.Title)
	assert.Nil(t, again.Deadline)
}

func TestStore_UserIsolation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "alice", "g1")
	seedMilestone(t, s, "alice", "g1", "m1")
	seedTask(t, s, "alice", "m1", "t1")

	goals, err := s.GoalsForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, goals)

	_, err = s.Goal(ctx, "bob", "g1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Milestone(ctx, "bob", "m1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Task(ctx, "bob", "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ToggleTask(ctx, "bob", "t1", created)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteGoal(ctx, "bob", "g1"), ErrNotFound)

	_, err = s.CreateMilestone(ctx, "bob", model.Milestone{ID: "m2", GoalID: "g1", Title: "x", CreatedAt: created, UpdatedAt: created})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Task(ctx, "alice", "t1")
	assert.NoError(t, err)
}

func TestStore_RejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	g := seedGoal(t, s, "u1", "g1")
	assert.ErrorIs(t, s.CreateGoal(ctx, g), ErrDuplicate)

	m := seedMilestone(t, s, "u1", "g1", "m1")
	_, err := s.CreateMilestone(ctx, "u1", m)
	assert.ErrorIs(t, err, ErrDuplicate)

	task := seedTask(t, s, "u1", "m1", "t1")
	_, err = s.CreateTask(ctx, "u1", task)
	assert.ErrorIs(t, err, ErrDuplicate)

	tasks, err := s.TasksForMilestone(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestStore_AppendOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	assert.Equal(t, 0, seedMilestone(t, s, "u1", "g1", "m1").Order)
	assert.Equal(t, 1, seedMilestone(t, s, "u1", "g1", "m2").Order)

	assert.Equal(t, 0, seedTask(t, s, "u1", "m2", "a").Order)
	assert.Equal(t, 1, seedTask(t, s, "u1", "m2", "b").Order)
	assert.Equal(t, 0, seedTask(t, s, "u1", "m1", "c").Order)

	milestones, err := s.MilestonesForGoal(ctx, "u1", "g1")
	require.NoError(t, err)
	require.Len(t, milestones, 2)
	assert.Equal(t, "m1", milestones[0].ID)

	tasks, err := s.TasksForGoal(ctx, "u1", "g1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
}

func TestStore_DependenciesMustExistInGoal(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	seedMilestone(t, s, "u1", "g1", "m1")
	seedGoal(t, s, "u1", "g2")
	seedMilestone(t, s, "u1", "g2", "m9")
	seedTask(t, s, "u1", "m9", "foreign")

	_, err := s.CreateTask(ctx, "u1", model.Task{ID: "t1", MilestoneID: "m1", Title: "x", DependsOn: []string{"missing"}, CreatedAt: created, UpdatedAt: created})
	assert.ErrorIs(t, err, ErrDependencyNotFound)

	_, err = s.CreateTask(ctx, "u1", model.Task{ID: "t1", MilestoneID: "m1", Title: "x", DependsOn: []string{"foreign"}, CreatedAt: created, UpdatedAt: created})
	assert.ErrorIs(t, err, ErrDependencyNotFound)

	_, err = s.Task(ctx, "u1", "t1")
	assert.ErrorIs(t, err, ErrNotFound, "rejected insert must not leave a row behind")
}

func TestStore_UpdateTaskReplacesDependencies(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	seedMilestone(t, s, "u1", "g1", "m1")
	seedTask(t, s, "u1", "m1", "a")
	seedTask(t, s, "u1", "m1", "b")
	c := seedTask(t, s, "u1", "m1", "c", "a")

	c.DependsOn = []string{"b", "a"}
	c.Title = "renamed"
	c.Completed = true
	require.NoError(t, s.UpdateTask(ctx, "u1", c))

	got, err := s.Task(ctx, "u1", "c")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, []string{"b", "a"}, got.DependsOn)
	assert.False(t, got.Completed, "update must not change completion")
}

func TestStore_ToggleTask(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	seedMilestone(t, s, "u1", "g1", "m1")
	seedTask(t, s, "u1", "m1", "a")

	at := created.Add(time.Hour)
	got, err := s.ToggleTask(ctx, "u1", "a", at)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, at.Equal(*got.CompletedAt))

	stored, err := s.Task(ctx, "u1", "a")
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	require.NotNil(t, stored.CompletedAt)

	got, err = s.ToggleTask(ctx, "u1", "a", at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Nil(t, got.CompletedAt)
}

func TestStore_CompleteTask(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	seedMilestone(t, s, "u1", "g1", "m1")
	seedTask(t, s, "u1", "m1", "a")

	at := created.Add(time.Hour)
	got, completed, err := s.CompleteTask(ctx, "u1", "a", at)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, at.Equal(*got.CompletedAt))

	got, completed, err = s.CompleteTask(ctx, "u1", "a", at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, completed, "second completion must not write")
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, at.Equal(*got.CompletedAt), "completed_at must keep the first completion time")

	_, _, err = s.CompleteTask(ctx, "u1", "missing", at)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.CompleteTask(ctx, "u2", "a", at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteGoalCascades(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	seedMilestone(t, s, "u1", "g1", "m1")
	seedMilestone(t, s, "u1", "g1", "m2")
	seedTask(t, s, "u1", "m1", "a")
	seedTask(t, s, "u1", "m2", "b", "a")
	seedGoal(t, s, "u1", "keep")

	require.NoError(t, s.DeleteGoal(ctx, "u1", "g1"))

	for _, table := range []string{"milestones", "tasks", "task_dependencies"} {
		var n int
		require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n))
		assert.Zero(t, n, table)
	}
	goals, err := s.GoalsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "keep", goals[0].ID)

	assert.ErrorIs(t, s.DeleteGoal(ctx, "u1", "g1"), ErrNotFound)
}

func TestStore_DeleteMilestoneRepairsOtherMilestones(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	seedMilestone(t, s, "u1", "g1", "m1")
	seedMilestone(t, s, "u1", "g1", "m2")
	seedTask(t, s, "u1", "m1", "a")
	seedTask(t, s, "u1", "m2", "b", "a")

	require.NoError(t, s.DeleteMilestone(ctx, "u1", "m1", created.Add(time.Hour)))

	_, err := s.Task(ctx, "u1", "a")
	assert.ErrorIs(t, err, ErrNotFound)
	b, err := s.Task(ctx, "u1", "b")
	require.NoError(t, err)
	assert.Empty(t, b.DependsOn)
}

func TestStore_DeleteTaskRepairsDependents(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	seedMilestone(t, s, "u1", "g1", "m1")
	seedTask(t, s, "u1", "m1", "a")
	seedTask(t, s, "u1", "m1", "b", "a")
	seedTask(t, s, "u1", "m1", "c", "b", "a")

	at := created.Add(2 * time.Hour)
	require.NoError(t, s.DeleteTask(ctx, "u1", "b", at))

	tree, err := s.GoalTree(ctx, "u1", "g1")
	require.NoError(t, err)
	require.Len(t, tree.Milestones, 1)
	tasks := tree.Milestones[0].Tasks
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "c", tasks[1].ID)
	assert.Equal(t, []string{"a"}, tasks[1].DependsOn)
	assert.True(t, at.Equal(tasks[1].UpdatedAt), "dependent updated_at = %v, want %v", tasks[1].UpdatedAt, at)
	assert.True(t, created.Equal(tasks[0].UpdatedAt), "untouched task keeps its updated_at")

	assert.ErrorIs(t, s.DeleteTask(ctx, "u1", "b", at), ErrNotFound)
}

func TestStore_GoalTree(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	seedGoal(t, s, "u1", "g1")
	seedMilestone(t, s, "u1", "g1", "m1")
	seedMilestone(t, s, "u1", "g1", "m2")
	seedTask(t, s, "u1", "m2", "b")
	seedTask(t, s, "u1", "m1", "a")

	tree, err := s.GoalTree(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", tree.ID)
	require.Len(t, tree.Milestones, 2)
	assert.Equal(t, "a", tree.Milestones[0].Tasks[0].ID)
	assert.Equal(t, "b", tree.Milestones[1].Tasks[0].ID)

	_, err = s.GoalTree(ctx, "u2", "g1")
	assert.ErrorIs(t, err, ErrNotFound)
}
