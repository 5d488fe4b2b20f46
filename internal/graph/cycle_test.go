package graph

import (
	"testing"

	"github.com/metalagman/goalpath/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFindCyclePath(t *testing.T) {
	t.Parallel()

	// a <- b <- c (b depends on a, c depends on b)
	chain := []model.Task{task("a", 0), task("b", 1, "a"), task("c", 2, "b")}

	tests := []struct {
		name   string
		tasks  []model.Task
		taskID string
		deps   []string
		want   []string
	}{
		{name: "self dependency", tasks: chain, taskID: "a", deps: []string{"a"}, want: []string{"a", "a"}},
		{name: "direct back edge", tasks: chain, taskID: "a", deps: []string{"b"}, want: []string{"a", "b", "a"}},
		{name: "transitive back edge", tasks: chain, taskID: "a", deps: []string{"c"}, want: []string{"a", "c", "b", "a"}},
		{name: "forward edge is fine", tasks: chain, taskID: "c", deps: []string{"a", "b"}, want: nil},
		{name: "removing deps is fine", tasks: chain, taskID: "b", deps: nil, want: nil},
		{name: "unknown dep is fine", tasks: chain, taskID: "a", deps: []string{"zzz"}, want: nil},
		{
			name:   "replaces existing edges of the edited task",
			tasks:  []model.Task{task("a", 0, "b"), task("b", 1)},
			taskID: "a",
			deps:   nil,
			want:   nil,
		},
		{
			name:   "terminates on pre-existing cycle",
			tasks:  []model.Task{task("x", 0, "y"), task("y", 1, "x"), task("a", 2)},
			taskID: "a",
			deps:   []string{"x"},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FindCyclePath(tt.tasks, tt.taskID, tt.deps))
		})
	}
}

func TestCyclicTasks(t *testing.T) {
	t.Parallel()

	tasks := []model.Task{
		task("a", 0, "b"),
		task("b", 1, "c"),
		task("c", 2, "a"),
		task("d", 3, "a"),
		task("e", 4, "e"),
		task("f", 5),
	}

	assert.Equal(t, []string{"a", "b", "c", "e"}, CyclicTasks(tasks).Sorted())
	assert.Zero(t, CyclicTasks([]model.Task{task("a", 0), task("b", 1, "a")}).Len())
}
