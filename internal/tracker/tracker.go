// Package tracker is the only write path for goals, milestones and tasks.
// Every operation validates its input before touching storage and keeps the
// dependency graph free of self-loops, cycles and dangling references.
package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/goalpath/internal/model"
	"github.com/metalagman/goalpath/internal/notify"
)

// Storage is the persistence collaborator. Every call is scoped by user id.
type Storage interface {
	GoalsForUser(ctx context.Context, userID string) ([]model.Goal, error)
	Goal(ctx context.Context, userID, id string) (model.Goal, error)
	CreateGoal(ctx context.Context, g model.Goal) error
	UpdateGoal(ctx context.Context, g model.Goal) error
	DeleteGoal(ctx context.Context, userID, id string) error
	GoalTree(ctx context.Context, userID, id string) (model.GoalTree, error)

	MilestonesForGoal(ctx context.Context, userID, goalID string) ([]model.Milestone, error)
	Milestone(ctx context.Context, userID, id string) (model.Milestone, error)
	CreateMilestone(ctx context.Context, userID string, m model.Milestone) (model.Milestone, error)
	UpdateMilestone(ctx context.Context, userID string, m model.Milestone) error
	DeleteMilestone(ctx context.Context, userID, id string, at time.Time) error

	TasksForMilestone(ctx context.Context, userID, milestoneID string) ([]model.Task, error)
	TasksForGoal(ctx context.Context, userID, goalID string) ([]model.Task, error)
	Task(ctx context.Context, userID, id string) (model.Task, error)
	CreateTask(ctx context.Context, userID string, t model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, userID string, t model.Task) error
	ToggleTask(ctx context.Context, userID, id string, at time.Time) (model.Task, error)
	CompleteTask(ctx context.Context, userID, id string, at time.Time) (model.Task, bool, error)
	DeleteTask(ctx context.Context, userID, id string, at time.Time) error

	GoalOfMilestone(ctx context.Context, userID, milestoneID string) (string, error)
	GoalOfTask(ctx context.Context, userID, taskID string) (string, error)
}

// Tracker applies mutations for one user.
type Tracker struct {
	store    Storage
	owner    string
	now      func() time.Time
	newID    func() string
	notifier notify.Notifier
	goals    *keyedMutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator overrides the id generator for new entities.
func WithIDGenerator(newID func() string) Option {
	return func(t *Tracker) {
		if newID != nil {
			t.newID = newID
		}
	}
}

// WithNotifier sets the receiver of task completion events.
func WithNotifier(n notify.Notifier) Option {
	return func(t *Tracker) {
		t.notifier = n
	}
}

// New creates a tracker acting on behalf of owner.
func New(store Storage, owner string, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		owner: owner,
		now:   time.Now,
		newID: uuid.NewString,
		goals: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Owner returns the user id the tracker acts for.
func (t *Tracker) Owner() string {
	return t.owner
}

func (t *Tracker) timestamp() time.Time {
	return t.now().UTC()
}

func requireTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return title, nil
}

func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return id, nil
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	u := v.UTC()
	return &u
}
