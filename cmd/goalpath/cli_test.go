package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/metalagman/goalpath/internal/model"
	"github.com/metalagman/goalpath/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "user_id: tester\ndatabase:\n  path: " + filepath.Join(dir, "goalpath.db") + "\n"
	require.NoError(t, writeTestFile(cfgPath, content))
	return cfgPath
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	return runCLIWithInput(t, cfgPath, nil, args...)
}

func runCLIWithInput(t *testing.T, cfgPath string, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, cfgPath, args...)
	require.NoError(t, err, "goalpath %s", strings.Join(args, " "))
	return strings.TrimSpace(out)
}

func availableIDs(t *testing.T, cfgPath, goalID string) []string {
	t.Helper()
	var tasks []model.Task
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfgPath, "task", "available", goalID, "--format", "json")), &tasks))
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func TestCLI_GoalLifecycle(t *testing.T) {
	cfgPath := workspace(t)

	goalID := mustRun(t, cfgPath, "goal", "add", "Learn", "Go", "--deadline", "2030-01-01")
	require.NotEmpty(t, goalID)
	msID := mustRun(t, cfgPath, "milestone", "add", goalID, "Basics")
	a := mustRun(t, cfgPath, "task", "add", msID, "Tour")
	b := mustRun(t, cfgPath, "task", "add", msID, "Effective Go", "--estimate", "90")
	c := mustRun(t, cfgPath, "task", "add", msID, "Write a CLI", "--chain=false")

	assert.Equal(t, []string{a, c}, availableIDs(t, cfgPath, goalID))

	mustRun(t, cfgPath, "task", "done", a)
	mustRun(t, cfgPath, "task", "done", a)
	assert.Equal(t, []string{b, c}, availableIDs(t, cfgPath, goalID))

	mustRun(t, cfgPath, "task", "toggle", a)
	assert.Equal(t, []string{a, c}, availableIDs(t, cfgPath, goalID))

	_, err := runCLI(t, cfgPath, "task", "edit", a, "--depends-on", b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")

	mustRun(t, cfgPath, "task", "edit", b, "--no-deps")
	assert.Equal(t, []string{a, b, c}, availableIDs(t, cfgPath, goalID))

	out := mustRun(t, cfgPath, "goal", "show", goalID, "--format", "yaml")
	assert.Contains(t, out, "title: Learn Go")
	assert.Contains(t, out, "state: available")
	assert.Contains(t, out, "estimated_minutes: 90")

	out = mustRun(t, cfgPath, "goal", "show", goalID)
	assert.Contains(t, out, "Learn Go")
	assert.Contains(t, out, "Effective Go")

	mustRun(t, cfgPath, "goal", "edit", goalID, "--title", "Learn Go well", "--clear-deadline")
	var goals []model.Goal
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfgPath, "goal", "list", "--format", "json")), &goals))
	require.Len(t, goals, 1)
	assert.Equal(t, "Learn Go well", goals[0].Title)
	assert.Nil(t, goals[0].Deadline)

	mustRun(t, cfgPath, "task", "delete", c)
	mustRun(t, cfgPath, "milestone", "delete", msID)
	assert.Empty(t, availableIDs(t, cfgPath, goalID))

	mustRun(t, cfgPath, "goal", "delete", goalID)
	_, err = runCLI(t, cfgPath, "goal", "show", goalID)
	assert.Error(t, err)
}

func TestCLI_ToolCall(t *testing.T) {
	cfgPath := workspace(t)

	out := mustRun(t, cfgPath, "tool", "call", tools.CreateGoal, `{"title":"Marathon"}`)
	var res struct {
		OK   bool `json:"ok"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.OK, out)
	require.NotEmpty(t, res.Data.ID)

	out, err := runCLIWithInput(t, cfgPath, strings.NewReader(`{"goal_id":"`+res.Data.ID+`"}`), "tool", "call", tools.ViewGoal, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Marathon")

	_, err = runCLI(t, cfgPath, "tool", "call", "launch_rocket", `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), tools.KindUnknownTool)

	out = mustRun(t, cfgPath, "tool", "list")
	assert.Contains(t, out, tools.AvailableTasks)
}

func TestCLI_PlanApply(t *testing.T) {
	cfgPath := workspace(t)
	planPath := filepath.Join(filepath.Dir(cfgPath), "plan.yaml")
	require.NoError(t, writeTestFile(planPath, `goal:
  title: Marathon
milestones:
  - title: Base
    tasks:
      - key: easy
        title: Easy runs
      - key: long
        title: Long run
      - title: Stretching
        depends_on: []
`))

	mustRun(t, cfgPath, "plan", "apply", planPath, "--dry-run")
	var goals []model.Goal
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfgPath, "goal", "list", "--format", "json")), &goals))
	assert.Empty(t, goals)

	var res struct {
		GoalID  string            `json:"goal_id"`
		TaskIDs map[string]string `json:"task_ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfgPath, "plan", "apply", planPath)), &res))
	require.NotEmpty(t, res.GoalID)
	assert.Len(t, availableIDs(t, cfgPath, res.GoalID), 2)
	assert.Contains(t, availableIDs(t, cfgPath, res.GoalID), res.TaskIDs["easy"])
}

func TestCLI_RequiresExplicitConfig(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "missing.yaml"), "goal", "list")
	assert.Error(t, err)
}

func TestCLI_InitWritesConfigOnce(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".goalpath", "config.yaml")
	t.Setenv("GOALPATH_DATABASE_PATH", filepath.Join(dir, "goalpath.db"))

	mustRun(t, cfgPath, "init", "--user", "alice")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "user_id: alice")
	_, err = os.Stat(filepath.Join(dir, "goalpath.db"))
	require.NoError(t, err)

	mustRun(t, cfgPath, "init", "--user", "bob")
	again, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))

	cfg, err := loadConfig(cfgPath, false)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.UserID)
}
