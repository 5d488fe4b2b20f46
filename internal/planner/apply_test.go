package planner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/metalagman/goalpath/internal/model"
	"github.com/metalagman/goalpath/internal/tracker"
)

func samplePlan() Decomposition {
	return Decomposition{
		Summary: "Read the book and build something",
		Goal:    GoalPlan{Title: "Learn Go", Deadline: "2026-09-01"},
		Milestones: []MilestonePlan{
			{
				Title: "Basics",
				Tasks: []TaskPlan{
					{Key: "tour", Title: "Take the tour", EstimatedMinutes: 90},
					{Key: "book", Title: "Read chapters 1-3"},
					{Key: "notes", Title: "Write notes", DependsOn: []string{}},
				},
			},
			{
				Title: "Practice",
				Tasks: []TaskPlan{
					{Title: "Build a CLI", DependsOn: []string{"tour", "book"}},
				},
			},
		},
	}
}

func TestPlanner_ApplyCreatesHierarchy(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	res, err := NewPlanner(writer).Apply(context.Background(), samplePlan())
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if res.GoalID == "" {
		t.Fatal("goal id is empty")
	}
	if len(res.Milestones) != 2 {
		t.Fatalf("milestones created = %d, want %d", len(res.Milestones), 2)
	}
	if writer.goal.Description != "Read the book and build something" {
		t.Fatalf("goal description = %q, want summary fallback", writer.goal.Description)
	}
	if writer.goal.Deadline == nil {
		t.Fatal("goal deadline was not passed on")
	}
	if len(writer.tasks) != 4 {
		t.Fatalf("create task calls = %d, want %d", len(writer.tasks), 4)
	}

	tour, book := res.TaskIDs["tour"], res.TaskIDs["book"]
	wantDeps := [][]string{
		{},
		{tour},
		{},
		{tour, book},
	}
	for i, call := range writer.tasks {
		if !reflect.DeepEqual(call.in.DependsOn, wantDeps[i]) {
			t.Fatalf("task %d (%s) deps = %v, want %v", i, call.in.Title, call.in.DependsOn, wantDeps[i])
		}
	}
	if est := writer.tasks[0].in.EstimatedMinutes; est == nil || *est != 90 {
		t.Fatalf("estimated minutes = %v, want 90", est)
	}
	if writer.tasks[3].milestoneID != res.Milestones[1].MilestoneID {
		t.Fatalf("task created in milestone %s, want %s", writer.tasks[3].milestoneID, res.Milestones[1].MilestoneID)
	}
}

func TestPlanner_ApplyRemovesPartialGoalOnFailure(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{failTask: "Build a CLI"}
	_, err := NewPlanner(writer).Apply(context.Background(), samplePlan())
	if err == nil {
		t.Fatal("Apply succeeded, want error")
	}
	if !errors.Is(err, tracker.ErrStorage) {
		t.Fatalf("error = %v, want storage error", err)
	}
	if len(writer.deleted) != 1 || writer.deleted[0] != writer.goal.ID {
		t.Fatalf("deleted goals = %v, want [%s]", writer.deleted, writer.goal.ID)
	}
}

func TestPlanner_ApplyNormalizesDeadlineToUTC(t *testing.T) {
	t.Parallel()

	plan := samplePlan()
	plan.Goal.Deadline = "2030-01-01T10:00:00+02:00"
	writer := &fakeWriter{}
	if _, err := NewPlanner(writer).Apply(context.Background(), plan); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if writer.goal.Deadline == nil {
		t.Fatal("goal deadline was not passed on")
	}
	want := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	if !writer.goal.Deadline.Equal(want) || writer.goal.Deadline.Location() != time.UTC {
		t.Fatalf("deadline = %v, want %v", writer.goal.Deadline, want)
	}
}

func TestDecomposition_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Decomposition)
		want   string
	}{
		{name: "valid", mutate: func(*Decomposition) {}},
		{name: "goal title", mutate: func(d *Decomposition) { d.Goal.Title = " " }, want: "goal: title is required"},
		{name: "deadline", mutate: func(d *Decomposition) { d.Goal.Deadline = "soon" }, want: "deadline"},
		{name: "no milestones", mutate: func(d *Decomposition) { d.Milestones = nil }, want: "at least one milestone"},
		{name: "milestone title", mutate: func(d *Decomposition) { d.Milestones[1].Title = "" }, want: "milestone[1]: title is required"},
		{name: "task title", mutate: func(d *Decomposition) { d.Milestones[0].Tasks[1].Title = "" }, want: "milestone[0].task[1]: title is required"},
		{name: "duplicate key", mutate: func(d *Decomposition) { d.Milestones[0].Tasks[1].Key = "tour" }, want: "duplicate key"},
		{name: "forward reference", mutate: func(d *Decomposition) {
			d.Milestones[0].Tasks[0].DependsOn = []string{"book"}
		}, want: "unknown or later task"},
		{name: "self reference", mutate: func(d *Decomposition) {
			d.Milestones[0].Tasks[1].DependsOn = []string{"book"}
		}, want: "unknown or later task"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan := samplePlan()
			tt.mutate(&plan)
			err := plan.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate returned error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

type fakeWriter struct {
	nextID   int
	failTask string
	goal     model.Goal
	tasks    []createTaskCall
	deleted  []string
}

type createTaskCall struct {
	milestoneID string
	in          tracker.TaskInput
}

func (f *fakeWriter) CreateGoal(_ context.Context, in tracker.GoalInput) (model.Goal, error) {
	f.goal = model.Goal{ID: f.newID("goal"), Title: in.Title, Description: in.Description, Deadline: in.Deadline}
	return f.goal, nil
}

func (f *fakeWriter) CreateMilestone(_ context.Context, goalID string, in tracker.MilestoneInput) (model.Milestone, error) {
	return model.Milestone{ID: f.newID("milestone"), GoalID: goalID, Title: in.Title}, nil
}

func (f *fakeWriter) CreateTask(_ context.Context, milestoneID string, in tracker.TaskInput) (model.Task, error) {
	if in.Title == f.failTask {
		return model.Task{}, &tracker.StorageError{Op: "create task", Err: errors.New("connection reset")}
	}
	f.tasks = append(f.tasks, createTaskCall{milestoneID: milestoneID, in: in})
	return model.Task{ID: f.newID("task"), MilestoneID: milestoneID, Title: in.Title, DependsOn: in.DependsOn}, nil
}

func (f *fakeWriter) DeleteGoal(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeWriter) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}
